// internal/replay/replay.go
package replay

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/secureinfer/internal/config"
	"github.com/signalnine/secureinfer/internal/protocol"
)

// Replayer feeds recorded flows to a running server
type Replayer struct {
	cfg    *config.ReplayConfig
	client *http.Client
	flows  []Flow
	log    *logrus.Logger
}

// Summary describes one tick
type Summary struct {
	Sent       int
	Threats    int
	Mismatches int
	NextOffset int
}

// New loads the flows to replay: the configured CSV, or the reference
// samples when no CSV is set
func New(cfg *config.ReplayConfig, log *logrus.Logger) (*Replayer, error) {
	flows := SampleFlows()
	if cfg.CSVPath != "" {
		var err error
		flows, err = LoadFlows(cfg.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("load flows: %w", err)
		}
		if len(flows) == 0 {
			return nil, fmt.Errorf("no usable rows in %s", cfg.CSVPath)
		}
	}

	transport := &http.Transport{}
	if cfg.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Replayer{
		cfg:   cfg,
		flows: flows,
		log:   log,
		client: &http.Client{
			// a threat analysis waits on the generator
			Timeout:   2 * time.Minute,
			Transport: transport,
		},
	}, nil
}

// Run starts the replay loop
func (r *Replayer) Run(ctx context.Context) error {
	r.log.WithFields(logrus.Fields{
		"server":   r.cfg.ServerURL,
		"flows":    len(r.flows),
		"interval": r.cfg.Interval.String(),
		"batch":    r.cfg.BatchSize,
	}).Info("Replay starting")

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start
	r.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Replay shutting down")
			return nil
		case <-ticker.C:
			r.runTick(ctx)
		}
	}
}

func (r *Replayer) runTick(ctx context.Context) {
	sum, err := r.Tick(ctx)
	entry := r.log.WithFields(logrus.Fields{
		"sent":        sum.Sent,
		"threats":     sum.Threats,
		"mismatches":  sum.Mismatches,
		"next_offset": sum.NextOffset,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		entry.WithError(err).Error("Replay tick failed")
		return
	}
	entry.Info("Replay tick")
}

// Tick sends one batch and persists the offset after the last flow the
// server accepted
func (r *Replayer) Tick(ctx context.Context) (Summary, error) {
	offset, err := ReadOffset(r.cfg.StateFile)
	if err != nil {
		return Summary{}, fmt.Errorf("read state: %w", err)
	}

	batch, next := NextBatch(r.flows, offset, r.cfg.BatchSize)
	if offset >= len(r.flows) {
		offset = 0
	}
	sum := Summary{NextOffset: offset}

	for i, flow := range batch {
		res, err := r.send(ctx, flow)
		if err != nil {
			sum.NextOffset = (offset + i) % len(r.flows)
			if werr := WriteOffset(r.cfg.StateFile, sum.NextOffset); werr != nil {
				r.log.WithError(werr).Error("Write replay state")
			}
			return sum, fmt.Errorf("send row %d: %w", flow.Row, err)
		}

		sum.Sent++
		if res.IsThreat {
			sum.Threats++
		}
		if flow.Expected != "" && flow.Expected != res.AttackType {
			sum.Mismatches++
			r.log.WithFields(logrus.Fields{
				"row":         flow.Row,
				"expected":    flow.Expected,
				"attack_type": res.AttackType,
				"confidence":  res.Confidence,
			}).Warn("Prediction differs from recorded label")
		}
	}

	sum.NextOffset = next
	if next == 0 && len(batch) > 0 {
		r.log.Info("Reached end of flows, starting over")
	}
	if err := WriteOffset(r.cfg.StateFile, next); err != nil {
		return sum, fmt.Errorf("write state: %w", err)
	}
	return sum, nil
}

func (r *Replayer) send(ctx context.Context, flow Flow) (*protocol.AnalysisResult, error) {
	body, err := json.Marshal(protocol.AnalyzeRequest{Features: flow.Record})
	if err != nil {
		return nil, err
	}

	url := strings.TrimSuffix(r.cfg.ServerURL, "/") + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res protocol.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}
