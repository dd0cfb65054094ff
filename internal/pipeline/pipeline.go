// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/severity"
)

var (
	analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureinfer_analyses_total",
			Help: "Completed analyses by predicted label and severity",
		},
		[]string{"attack_type", "severity"},
	)
	stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secureinfer_stage_latency_seconds",
			Help:    "Latency of each analysis stage",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(analyses)
	prometheus.MustRegister(stageLatency)
}

// Classifier labels a feature record
type Classifier interface {
	Classify(record protocol.FeatureRecord) protocol.ClassificationResult
}

// Explainer produces a briefing for a non-benign classification. It must
// not fail.
type Explainer interface {
	Explain(ctx context.Context, attackType string, features protocol.FeatureRecord, confidence float64) protocol.Briefing
}

// NoThreatBriefing is attached to benign results without calling the generator
func NoThreatBriefing() protocol.Briefing {
	return protocol.Briefing{
		Summary:  "Traffic is normal. No threat detected.",
		Severity: string(severity.Safe),
		Impact:   "None.",
		Action:   "No action required.",
	}
}

// Pipeline runs classification, severity lookup and explanation
type Pipeline struct {
	classifier Classifier
	explainer  Explainer
	log        *logrus.Logger
}

// New creates a pipeline
func New(c Classifier, e Explainer, log *logrus.Logger) *Pipeline {
	return &Pipeline{classifier: c, explainer: e, log: log}
}

// Analyze classifies a record and, for threats, attaches a generated
// briefing. It always returns a complete result; generator failures only
// degrade the briefing text.
func (p *Pipeline) Analyze(ctx context.Context, record protocol.FeatureRecord) *protocol.AnalysisResult {
	t0 := time.Now()

	cls := p.classifier.Classify(record)
	classifierDur := time.Since(t0)

	tier := severity.For(cls.Label)
	isThreat := cls.Label != severity.BenignLabel

	var briefing protocol.Briefing
	if isThreat {
		briefing = p.explainer.Explain(ctx, cls.Label, record, cls.Confidence)
	} else {
		briefing = NoThreatBriefing()
	}

	totalDur := time.Since(t0)

	result := &protocol.AnalysisResult{
		ID:                  uuid.New().String(),
		AttackType:          cls.Label,
		Severity:            tier,
		Confidence:          math.Round(cls.Confidence*10) / 10,
		Briefing:            briefing,
		IsThreat:            isThreat,
		ClassifierLatencyMs: classifierDur.Milliseconds(),
		GeneratorLatencyMs:  briefing.GenerationLatencyMs,
		TotalLatencyMs:      totalDur.Milliseconds(),
		AnalyzedAt:          t0.UTC(),
	}

	analyses.WithLabelValues(result.AttackType, string(result.Severity)).Inc()
	stageLatency.WithLabelValues("classifier").Observe(classifierDur.Seconds())
	if isThreat {
		stageLatency.WithLabelValues("generator").Observe(float64(briefing.GenerationLatencyMs) / 1000)
	}
	stageLatency.WithLabelValues("total").Observe(totalDur.Seconds())

	entry := p.log.WithFields(logrus.Fields{
		"id":          result.ID,
		"attack_type": result.AttackType,
		"severity":    result.Severity,
		"confidence":  result.Confidence,
		"latency_ms":  result.TotalLatencyMs,
	})
	if isThreat {
		entry.WithField("fallback", briefing.Fallback).Info("Threat detected")
	} else {
		entry.Debug("Benign traffic")
	}

	return result
}
