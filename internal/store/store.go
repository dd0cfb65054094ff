// internal/store/store.go

// Package store persists analysis results and serves the history views.
package store

import (
	"context"
	"fmt"

	"github.com/signalnine/secureinfer/internal/config"
	"github.com/signalnine/secureinfer/internal/protocol"
)

// Store keeps analysis history. Implementations are safe for concurrent use.
type Store interface {
	// InsertResult records one analysis
	InsertResult(ctx context.Context, r *protocol.StoredResult) error
	// Recent returns the newest results first
	Recent(ctx context.Context, limit int) ([]protocol.StoredResult, error)
	// Threats returns the newest non-benign results first
	Threats(ctx context.Context, limit int) ([]protocol.StoredResult, error)
	// Stats summarizes everything recorded so far
	Stats(ctx context.Context) (protocol.Stats, error)
	Close() error
}

// Open builds the store selected by cfg.Store
func Open(ctx context.Context, cfg *config.ServerConfig) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return NewSQLite(cfg.DBPath)
	case config.StoreRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Retention: cfg.ResultRetention,
		})
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
