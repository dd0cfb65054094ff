// internal/replay/replay_test.go
package replay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/secureinfer/internal/config"
	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/severity"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeServer labels port 8080 as Bot and everything else as benign
func fakeServer(t *testing.T, apiKey string, failAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		want := ""
		if apiKey != "" {
			want = "Bearer " + apiKey
		}
		if got := r.Header.Get("Authorization"); got != want {
			t.Errorf("Authorization = %q", got)
		}
		n := calls.Add(1)
		if failAfter > 0 && n > failAfter {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}

		var req protocol.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		label := severity.BenignLabel
		if req.Features["Destination Port"] == 8080 {
			label = "Bot"
		}
		json.NewEncoder(w).Encode(protocol.AnalysisResult{
			AttackType: label,
			Severity:   severity.For(label),
			IsThreat:   label != severity.BenignLabel,
			Confidence: 90,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "flows.csv")
	content := "Destination Port,Flow Duration,Label\n" +
		"8080,100,Bot\n" +
		"53,200,BENIGN\n" +
		"8080,300,BENIGN\n" +
		"443,400,DDoS\n" +
		"53,500,BENIGN\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTickSendsBatchAndPersistsOffset(t *testing.T) {
	dir := t.TempDir()
	srv, calls := fakeServer(t, "replay-key", 0)

	cfg := &config.ReplayConfig{
		ServerURL: srv.URL + "/",
		CSVPath:   writeCSV(t, dir),
		BatchSize: 2,
		StateFile: filepath.Join(dir, "offset"),
		APIKey:    "replay-key",
	}
	r, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := r.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if sum.Sent != 2 || sum.Threats != 1 || sum.Mismatches != 0 || sum.NextOffset != 2 {
		t.Errorf("first tick = %+v", sum)
	}

	sum, err = r.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	// row 3 is predicted Bot, row 4 predicted benign
	if sum.Sent != 2 || sum.Mismatches != 2 || sum.NextOffset != 4 {
		t.Errorf("second tick = %+v", sum)
	}

	if n, _ := ReadOffset(cfg.StateFile); n != 4 {
		t.Errorf("persisted offset = %d, want 4", n)
	}

	// last row, then wrap
	sum, err = r.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if sum.Sent != 1 || sum.NextOffset != 0 {
		t.Errorf("third tick = %+v", sum)
	}
	if calls.Load() != 5 {
		t.Errorf("server calls = %d, want 5", calls.Load())
	}
}

func TestTickResumesFromStateFile(t *testing.T) {
	dir := t.TempDir()
	srv, calls := fakeServer(t, "", 0)

	cfg := &config.ReplayConfig{
		ServerURL: srv.URL,
		CSVPath:   writeCSV(t, dir),
		BatchSize: 10,
		StateFile: filepath.Join(dir, "offset"),
	}
	if err := WriteOffset(cfg.StateFile, 3); err != nil {
		t.Fatal(err)
	}

	r, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sum, err := r.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if sum.Sent != 2 || calls.Load() != 2 {
		t.Errorf("resumed tick sent %d (calls %d), want 2", sum.Sent, calls.Load())
	}
}

func TestTickStopsOnServerError(t *testing.T) {
	dir := t.TempDir()
	srv, _ := fakeServer(t, "", 1)

	cfg := &config.ReplayConfig{
		ServerURL: srv.URL,
		CSVPath:   writeCSV(t, dir),
		BatchSize: 3,
		StateFile: filepath.Join(dir, "offset"),
	}
	r, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := r.Tick(context.Background())
	if err == nil {
		t.Fatal("expected error when the server fails")
	}
	if sum.Sent != 1 || sum.NextOffset != 1 {
		t.Errorf("summary = %+v, want 1 sent and offset 1", sum)
	}
	if n, _ := ReadOffset(cfg.StateFile); n != 1 {
		t.Errorf("persisted offset = %d, want 1", n)
	}
}

func TestReplaySamplesWithoutCSV(t *testing.T) {
	srv, calls := fakeServer(t, "", 0)

	cfg := &config.ReplayConfig{ServerURL: srv.URL, BatchSize: 100}
	r, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sum, err := r.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if sum.Sent != len(SampleFlows()) || int(calls.Load()) != sum.Sent {
		t.Errorf("sent %d, calls %d, want %d", sum.Sent, calls.Load(), len(SampleFlows()))
	}
	if sum.NextOffset != 0 {
		t.Errorf("NextOffset = %d, want wrap to 0", sum.NextOffset)
	}
}

func TestNewRejectsUnusableCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	os.WriteFile(path, []byte("Destination Port,Label\nInfinity,Bot\n"), 0644)

	if _, err := New(&config.ReplayConfig{ServerURL: "http://x", CSVPath: path}, quietLogger()); err == nil {
		t.Error("expected error for CSV without usable rows")
	}
	if _, err := New(&config.ReplayConfig{ServerURL: "http://x", CSVPath: filepath.Join(dir, "missing.csv")}, quietLogger()); err == nil {
		t.Error("expected error for missing CSV")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv, calls := fakeServer(t, "", 0)
	cfg := &config.ReplayConfig{ServerURL: srv.URL, BatchSize: 1, Interval: 10 * time.Millisecond}
	r, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Errorf("Run: %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want at least 2 ticks", calls.Load())
	}
}
