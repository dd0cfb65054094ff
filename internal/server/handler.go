// internal/server/handler.go
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/store"
	"github.com/signalnine/secureinfer/internal/version"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	hydrateResults   = 20
)

// Analyzer runs the two-stage analysis
type Analyzer interface {
	Analyze(ctx context.Context, record protocol.FeatureRecord) *protocol.AnalysisResult
}

// ReachabilityChecker reports whether the text generator answers
type ReachabilityChecker interface {
	Reachable(ctx context.Context) bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handlers serves the HTTP API
type Handlers struct {
	analyzer        Analyzer
	store           store.Store
	hub             *Hub
	generator       ReachabilityChecker
	classes         []string
	apiKey          string
	maxPayloadBytes int64
	log             *logrus.Logger
}

// HandlerConfig collects the dependencies of Handlers
type HandlerConfig struct {
	Analyzer        Analyzer
	Store           store.Store
	Hub             *Hub
	Generator       ReachabilityChecker // optional
	Classes         []string
	APIKey          string // empty disables auth
	MaxPayloadBytes int64
	Log             *logrus.Logger
}

// NewHandlers creates the API handlers
func NewHandlers(cfg HandlerConfig) *Handlers {
	return &Handlers{
		analyzer:        cfg.Analyzer,
		store:           cfg.Store,
		hub:             cfg.Hub,
		generator:       cfg.Generator,
		classes:         cfg.Classes,
		apiKey:          cfg.APIKey,
		maxPayloadBytes: cfg.MaxPayloadBytes,
		log:             cfg.Log,
	}
}

// Router builds the chi router for all endpoints
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", h.LiveFeed)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/analyze", h.Analyze)
		r.Get("/api/results", h.Results)
		r.Get("/api/alerts", h.Alerts)
		r.Get("/api/stats", h.Stats)
	})

	return r
}

func (h *Handlers) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

func (h *Handlers) authorized(r *http.Request) bool {
	if h.apiKey == "" {
		return true
	}
	var token string
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	} else {
		// browsers cannot set headers on websocket upgrades
		token = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) == 1
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authorized(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Analyze handles POST /analyze
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxPayloadBytes > 0 && r.ContentLength > h.maxPayloadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "request entity too large")
		return
	}

	var body []byte
	var err error
	if h.maxPayloadBytes > 0 {
		body, err = io.ReadAll(io.LimitReader(r.Body, h.maxPayloadBytes+1))
	} else {
		body, err = io.ReadAll(r.Body)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if h.maxPayloadBytes > 0 && int64(len(body)) > h.maxPayloadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "request entity too large")
		return
	}

	var req protocol.AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	record := req.Record()
	result := h.analyzer.Analyze(r.Context(), record)

	stored := &protocol.StoredResult{AnalysisResult: *result, Features: record}
	if err := h.store.InsertResult(r.Context(), stored); err != nil {
		// the caller still gets the analysis
		h.log.WithError(err).WithField("id", result.ID).Error("Store result")
	}

	h.hub.Publish(Message{Type: "result", Data: result})

	writeJSON(w, http.StatusOK, result)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	generator := "unreachable"
	if h.generator != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if h.generator.Reachable(ctx) {
			generator = "reachable"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"egress":        "zero",
		"version":       version.Version,
		"model_classes": h.classes,
		"generator":     generator,
	})
}

// Results handles GET /api/results
func (h *Handlers) Results(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	results, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Query recent results")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Alerts handles GET /api/alerts
func (h *Handlers) Alerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	results, err := h.store.Threats(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Query threats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Stats handles GET /api/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Query stats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// LiveFeed upgrades GET /ws and streams results as they are analyzed. New
// clients first get the current stats and the latest results, oldest first.
func (h *Handlers) LiveFeed(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	frames, cancel := h.hub.Subscribe()
	defer cancel()

	if err := h.hydrate(r.Context(), conn); err != nil {
		return
	}

	// Reads only detect the close; client messages are ignored
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) hydrate(ctx context.Context, conn *websocket.Conn) error {
	if stats, err := h.store.Stats(ctx); err == nil {
		if err := sendJSON(conn, Message{Type: "stats", Data: stats}); err != nil {
			return err
		}
	}

	recent, err := h.store.Recent(ctx, hydrateResults)
	if err != nil {
		return nil
	}
	for i := len(recent) - 1; i >= 0; i-- {
		if err := sendJSON(conn, Message{Type: "result", Data: recent[i].AnalysisResult}); err != nil {
			return err
		}
	}
	return nil
}

func sendJSON(conn *websocket.Conn, msg Message) error {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(msg)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
