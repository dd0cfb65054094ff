// internal/protocol/types.go
package protocol

import (
	"time"

	"github.com/signalnine/secureinfer/internal/severity"
)

// FeatureRecord maps flow feature names to values. Absent features read as 0.
type FeatureRecord map[string]float64

// Get returns the named feature, or 0 when absent
func (r FeatureRecord) Get(name string) float64 {
	return r[name]
}

// Lookup reports whether the feature was supplied
func (r FeatureRecord) Lookup(name string) (float64, bool) {
	v, ok := r[name]
	return v, ok
}

// ClassificationResult is the classifier output for one record
type ClassificationResult struct {
	Label         string    `json:"label"`
	Confidence    float64   `json:"confidence"`    // percent, max of Probabilities
	Probabilities []float64 `json:"probabilities"` // percent per class, label-encoder order
}

// Briefing is the human-readable explanation of a classification
type Briefing struct {
	Summary             string `json:"summary"`
	Severity            string `json:"severity"` // generator's opinion, informational only
	Impact              string `json:"impact"`
	Action              string `json:"action"`
	GenerationLatencyMs int64  `json:"generation_latency_ms"`
	Fallback            bool   `json:"fallback,omitempty"`
}

// AnalysisResult is returned to callers of the pipeline
type AnalysisResult struct {
	ID                  string        `json:"id"`
	AttackType          string        `json:"attack_type"`
	Severity            severity.Tier `json:"severity"`
	Confidence          float64       `json:"confidence"`
	Briefing            Briefing      `json:"briefing"`
	IsThreat            bool          `json:"is_threat"`
	ClassifierLatencyMs int64         `json:"classifier_latency_ms"`
	GeneratorLatencyMs  int64         `json:"generator_latency_ms"`
	TotalLatencyMs      int64         `json:"total_latency_ms"`
	AnalyzedAt          time.Time     `json:"analyzed_at"`
}

// StoredResult is what we persist to the result store
type StoredResult struct {
	AnalysisResult
	Features FeatureRecord `json:"features"`
}

// Stats summarizes stored results for the dashboard
type Stats struct {
	Total             int64                   `json:"total"`
	Threats           int64                   `json:"threats"`
	Critical          int64                   `json:"critical"`
	AvgTotalLatencyMs float64                 `json:"avg_total_latency_ms"`
	BySeverity        map[severity.Tier]int64 `json:"by_severity"`
}

// AnalyzeRequest is the POST /analyze body. The snake_case fields cover the
// common features; Features accepts any column by its training name.
type AnalyzeRequest struct {
	DestinationPort      *float64           `json:"destination_port,omitempty"`
	FlowDuration         *float64           `json:"flow_duration,omitempty"`
	TotalFwdPackets      *float64           `json:"total_fwd_packets,omitempty"`
	TotalBackwardPackets *float64           `json:"total_backward_packets,omitempty"`
	PacketLengthMean     *float64           `json:"packet_length_mean,omitempty"`
	FlowBytesPerSec      *float64           `json:"flow_bytes_per_s,omitempty"`
	FwdPacketLengthMean  *float64           `json:"fwd_packet_length_mean,omitempty"`
	BwdPacketLengthMean  *float64           `json:"bwd_packet_length_mean,omitempty"`
	Features             map[string]float64 `json:"features,omitempty"`
}

// Record converts the request into a FeatureRecord. Named fields win over
// the same column in Features.
func (r *AnalyzeRequest) Record() FeatureRecord {
	rec := make(FeatureRecord, len(r.Features)+8)
	for k, v := range r.Features {
		rec[k] = v
	}

	named := map[string]*float64{
		"Destination Port":       r.DestinationPort,
		"Flow Duration":          r.FlowDuration,
		"Total Fwd Packets":      r.TotalFwdPackets,
		"Total Backward Packets": r.TotalBackwardPackets,
		"Packet Length Mean":     r.PacketLengthMean,
		"Flow Bytes/s":           r.FlowBytesPerSec,
		"Fwd Packet Length Mean": r.FwdPacketLengthMean,
		"Bwd Packet Length Mean": r.BwdPacketLengthMean,
	}
	for name, v := range named {
		if v != nil {
			rec[name] = *v
		}
	}
	return rec
}
