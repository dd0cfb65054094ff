// internal/classifier/classifier.go
package classifier

import (
	"errors"
	"fmt"

	"github.com/signalnine/secureinfer/internal/protocol"
)

// ErrModelUnavailable indicates the trained artifacts could not be loaded.
// The process must not serve analysis requests in this state.
var ErrModelUnavailable = errors.New("model artifacts unavailable")

// Artifacts are the exported outputs of training
type Artifacts struct {
	FeatureColumns []string // training-time column order
	Classes        []string // label encoder: index -> label
	Scaler         Scaler
	Model          Model
}

// Classifier labels feature records. It is immutable after construction and
// safe for concurrent use.
type Classifier struct {
	columns []string
	classes []string
	scaler  Scaler
	forest  *forest
}

// New validates the artifacts and builds a classifier
func New(a Artifacts) (*Classifier, error) {
	if len(a.FeatureColumns) == 0 {
		return nil, fmt.Errorf("%w: no feature columns", ErrModelUnavailable)
	}
	if len(a.Scaler.Mean) != len(a.FeatureColumns) || len(a.Scaler.Scale) != len(a.FeatureColumns) {
		return nil, fmt.Errorf("%w: scaler has %d/%d values for %d columns",
			ErrModelUnavailable, len(a.Scaler.Mean), len(a.Scaler.Scale), len(a.FeatureColumns))
	}
	if len(a.Classes) != a.Model.NumClass {
		return nil, fmt.Errorf("%w: label encoder has %d classes, model has %d",
			ErrModelUnavailable, len(a.Classes), a.Model.NumClass)
	}

	f, err := compileModel(a.Model, a.FeatureColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	return &Classifier{
		columns: append([]string(nil), a.FeatureColumns...),
		classes: append([]string(nil), a.Classes...),
		scaler: Scaler{
			Mean:  append([]float64(nil), a.Scaler.Mean...),
			Scale: append([]float64(nil), a.Scaler.Scale...),
		},
		forest: f,
	}, nil
}

// Classify predicts the label and class distribution for a record.
// Features missing from the record count as 0; unknown keys are ignored.
func (c *Classifier) Classify(record protocol.FeatureRecord) protocol.ClassificationResult {
	x := make([]float64, len(c.columns))
	for i, col := range c.columns {
		x[i] = record.Get(col)
	}
	c.scaler.transform(x)

	proba := c.forest.predict(x)
	best := argmax(proba)

	pct := make([]float64, len(proba))
	for i, p := range proba {
		pct[i] = p * 100
	}

	return protocol.ClassificationResult{
		Label:         c.classes[best],
		Confidence:    pct[best],
		Probabilities: pct,
	}
}

// Classes returns the label encoder classes in index order
func (c *Classifier) Classes() []string {
	return append([]string(nil), c.classes...)
}

// FeatureColumns returns the training-time feature order
func (c *Classifier) FeatureColumns() []string {
	return append([]string(nil), c.columns...)
}
