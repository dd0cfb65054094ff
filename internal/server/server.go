// internal/server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/secureinfer/internal/classifier"
	"github.com/signalnine/secureinfer/internal/config"
	"github.com/signalnine/secureinfer/internal/explainer"
	"github.com/signalnine/secureinfer/internal/pipeline"
	"github.com/signalnine/secureinfer/internal/store"
)

// Server is the analysis service
type Server struct {
	cfg       *config.ServerConfig
	log       *logrus.Logger
	store     store.Store
	generator *explainer.Client
	server    *http.Server
}

// GeneratorClient converts the configured fallback chain into a client
func GeneratorClient(cfg config.GeneratorConfig, log *logrus.Logger) *explainer.Client {
	var endpoints []explainer.Endpoint
	for _, ep := range cfg.Endpoints {
		endpoints = append(endpoints, explainer.Endpoint{
			URL:    ep.URL,
			Model:  ep.Model,
			Format: ep.Format,
			APIKey: ep.APIKey,
		})
	}
	return explainer.NewClient(endpoints, explainer.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Stop:        cfg.Stop,
		Timeout:     cfg.Timeout,
	}, log)
}

// NewServer loads the model artifacts, opens the store and wires the
// pipeline. A missing or corrupt model is an error; an unreachable
// generator is not.
func NewServer(cfg *config.ServerConfig, log *logrus.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cls, err := classifier.Load(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	log.WithFields(logrus.Fields{
		"model_dir": cfg.ModelDir,
		"classes":   len(cls.Classes()),
		"features":  len(cls.FeatureColumns()),
	}).Info("Classifier loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	generator := GeneratorClient(cfg.Generator, log)
	pipe := pipeline.New(cls, explainer.New(generator, log), log)

	hub := NewHub(log)
	handlers := NewHandlers(HandlerConfig{
		Analyzer:        pipe,
		Store:           st,
		Hub:             hub,
		Generator:       generator,
		Classes:         cls.Classes(),
		APIKey:          cfg.APIKey,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		Log:             log,
	})

	server := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     handlers.Router(),
		ReadTimeout: 30 * time.Second,
		// generation can take most of a minute, and /ws never finishes
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
	server.RegisterOnShutdown(hub.Close)

	return &Server{
		cfg:       cfg,
		log:       log,
		store:     st,
		generator: generator,
		server:    server,
	}, nil
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	errCh := s.serve(ln)
	go s.probeGenerator(ctx)

	select {
	case <-ctx.Done():
		s.shutdown()
		return nil
	case err := <-errCh:
		s.store.Close()
		return err
	}
}

// RunAndGetAddr starts serving and returns the bound address once the
// listener is up. The server stops when ctx is cancelled.
func (s *Server) RunAndGetAddr(ctx context.Context) (string, error) {
	ln, err := s.listen()
	if err != nil {
		return "", err
	}

	errCh := s.serve(ln)
	go s.probeGenerator(ctx)

	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case err := <-errCh:
			s.log.WithError(err).Error("Server stopped")
			s.store.Close()
		}
	}()

	return ln.Addr().String(), nil
}

func (s *Server) listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	if s.cfg.TLSCert == "" {
		s.log.WithField("addr", ln.Addr().String()).Info("SecureInfer listening (plain HTTP)")
		return ln, nil
	}

	cert, err := tls.LoadX509KeyPair(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("load TLS cert: %w", err)
	}
	s.server.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	s.log.WithField("addr", ln.Addr().String()).Info("SecureInfer listening (TLS)")
	return tls.NewListener(ln, s.server.TLSConfig), nil
}

func (s *Server) serve(ln net.Listener) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

func (s *Server) shutdown() {
	s.log.Info("SecureInfer shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.server.Shutdown(shutdownCtx)
	s.store.Close()
}

func (s *Server) probeGenerator(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, r := range s.generator.Probe(ctx) {
		entry := s.log.WithFields(logrus.Fields{"endpoint": r.URL, "model": r.Model})
		switch {
		case !r.Reachable:
			entry.WithField("err", r.Error).Warn("Generator endpoint unreachable; briefings will use the fallback template")
		case !r.ModelAvailable:
			entry.WithField("models", r.Models).Warn("Generator model not pulled on endpoint")
		default:
			entry.Info("Generator endpoint ready")
		}
	}
}
