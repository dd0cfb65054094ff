// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/severity"
	_ "modernc.org/sqlite"
)

// fixed width so lexical order matches time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite wraps a SQLite connection
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the SQLite database
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		analyzed_at TEXT NOT NULL,
		attack_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		confidence REAL NOT NULL,
		is_threat INTEGER NOT NULL,
		briefing TEXT,
		features TEXT,
		classifier_latency_ms INTEGER,
		generator_latency_ms INTEGER,
		total_latency_ms INTEGER,
		created_at TEXT DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_results_analyzed_at ON results(analyzed_at);
	CREATE INDEX IF NOT EXISTS idx_results_threat ON results(is_threat, analyzed_at);
	CREATE INDEX IF NOT EXISTS idx_results_severity ON results(severity);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

// InsertResult stores an analysis result
func (s *SQLite) InsertResult(ctx context.Context, r *protocol.StoredResult) error {
	briefingJSON, err := json.Marshal(r.Briefing)
	if err != nil {
		return err
	}
	featuresJSON, err := json.Marshal(r.Features)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (id, analyzed_at, attack_type, severity, confidence, is_threat,
			briefing, features, classifier_latency_ms, generator_latency_ms, total_latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.AnalyzedAt.UTC().Format(timeLayout), r.AttackType, string(r.Severity), r.Confidence,
		r.IsThreat, string(briefingJSON), string(featuresJSON),
		r.ClassifierLatencyMs, r.GeneratorLatencyMs, r.TotalLatencyMs)

	return err
}

const selectColumns = `
	SELECT id, analyzed_at, attack_type, severity, confidence, is_threat, briefing, features,
		classifier_latency_ms, generator_latency_ms, total_latency_ms
	FROM results`

// Recent returns the newest results
func (s *SQLite) Recent(ctx context.Context, limit int) ([]protocol.StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY analyzed_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

// Threats returns the newest non-benign results
func (s *SQLite) Threats(ctx context.Context, limit int) ([]protocol.StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE is_threat = 1
		ORDER BY analyzed_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanResults(rows)
}

// Stats returns totals over every stored result
func (s *SQLite) Stats(ctx context.Context) (protocol.Stats, error) {
	stats := protocol.Stats{BySeverity: make(map[severity.Tier]int64)}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(is_threat), 0),
			COALESCE(SUM(CASE WHEN severity = 'CRITICAL' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(total_latency_ms), 0)
		FROM results
	`).Scan(&stats.Total, &stats.Threats, &stats.Critical, &stats.AvgTotalLatencyMs)
	if err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM results GROUP BY severity
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var tier string
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return stats, err
		}
		stats.BySeverity[severity.Tier(tier)] = count
	}
	return stats, rows.Err()
}

func scanResults(rows *sql.Rows) ([]protocol.StoredResult, error) {
	results := []protocol.StoredResult{}
	for rows.Next() {
		var r protocol.StoredResult
		var analyzedStr, tier string
		var briefingJSON, featuresJSON sql.NullString
		var clsLatency, genLatency, totalLatency sql.NullInt64

		err := rows.Scan(&r.ID, &analyzedStr, &r.AttackType, &tier, &r.Confidence, &r.IsThreat,
			&briefingJSON, &featuresJSON, &clsLatency, &genLatency, &totalLatency)
		if err != nil {
			return nil, err
		}

		r.Severity = severity.Tier(tier)
		r.AnalyzedAt, _ = time.Parse(timeLayout, analyzedStr)
		if briefingJSON.Valid {
			json.Unmarshal([]byte(briefingJSON.String), &r.Briefing)
		}
		if featuresJSON.Valid {
			json.Unmarshal([]byte(featuresJSON.String), &r.Features)
		}
		r.ClassifierLatencyMs = clsLatency.Int64
		r.GeneratorLatencyMs = genLatency.Int64
		r.TotalLatencyMs = totalLatency.Int64

		results = append(results, r)
	}
	return results, rows.Err()
}
