// internal/explainer/explainer.go
package explainer

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/signalnine/secureinfer/internal/protocol"
)

var (
	fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureinfer_briefing_fallbacks_total",
			Help: "Briefings served from the fallback template",
		},
		[]string{"reason"},
	)
	endpointFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secureinfer_generation_endpoint_failures_total",
			Help: "Failed calls to generation endpoints",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(fallbacks)
	prometheus.MustRegister(endpointFailures)
}

// Explainer turns a classification into a briefing
type Explainer struct {
	gen Generator
	log *logrus.Logger
}

// New creates an explainer. A nil generator always yields the fallback.
func New(gen Generator, log *logrus.Logger) *Explainer {
	return &Explainer{gen: gen, log: log}
}

// Explain asks the generator for a briefing. It always returns a usable
// briefing: unreachable services and malformed replies fall back to the
// template. GenerationLatencyMs covers the remote call only.
func (e *Explainer) Explain(ctx context.Context, attackType string, features protocol.FeatureRecord, confidence float64) protocol.Briefing {
	if e.gen == nil {
		fallbacks.WithLabelValues("disabled").Inc()
		return Fallback(attackType, confidence)
	}

	prompt := BuildPrompt(attackType, features, confidence)

	start := time.Now()
	raw, err := e.gen.Generate(ctx, prompt)
	latency := time.Since(start).Milliseconds()

	fields := logrus.Fields{"attack_type": attackType, "latency_ms": latency}

	if err != nil {
		reason := "error"
		if errors.Is(err, ErrGenerationUnreachable) {
			reason = "unreachable"
		}
		fallbacks.WithLabelValues(reason).Inc()
		e.log.WithError(err).WithFields(fields).Warn("Generation failed, using fallback briefing")

		b := Fallback(attackType, confidence)
		b.GenerationLatencyMs = latency
		return b
	}

	b, err := ParseBriefing(raw)
	if err != nil {
		fallbacks.WithLabelValues("malformed").Inc()
		e.log.WithError(err).WithFields(fields).Warn("Unparseable briefing, using fallback")

		b = Fallback(attackType, confidence)
	}
	b.GenerationLatencyMs = latency
	return b
}
