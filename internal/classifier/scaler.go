// internal/classifier/scaler.go
package classifier

// Scaler is a fitted standard scaler: x' = (x - mean) / scale
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// transform scales x in place. Zero-variance columns (scale 0) are only
// centered, matching how the scaler was fit.
func (s Scaler) transform(x []float64) {
	for i := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		x[i] = (x[i] - s.Mean[i]) / scale
	}
}
