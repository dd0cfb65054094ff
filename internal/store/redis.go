// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/signalnine/secureinfer/internal/protocol"
	"github.com/signalnine/secureinfer/internal/severity"
)

const (
	keyResults = "secureinfer:results"
	keyThreats = "secureinfer:threats"
	keyStats   = "secureinfer:stats"

	fieldTotal      = "total"
	fieldThreats    = "threats"
	fieldCritical   = "critical"
	fieldLatencySum = "latency_sum_ms"
	severityPrefix  = "severity:"
)

// RedisOptions configures the Redis store
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Retention caps how many results each history list keeps. Counters
	// behind Stats are never trimmed. Zero keeps everything.
	Retention int
}

// Redis keeps result history in sorted sets scored by analysis time
type Redis struct {
	client    *redis.Client
	retention int
}

// NewRedis connects and pings the server
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, retention: opts.Retention}, nil
}

// InsertResult stores the result and updates the counters in one transaction
func (r *Redis) InsertResult(ctx context.Context, res *protocol.StoredResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}

	z := redis.Z{
		Score:  float64(res.AnalyzedAt.UnixMicro()),
		Member: string(data),
	}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, keyResults, z)
	if res.IsThreat {
		pipe.ZAdd(ctx, keyThreats, z)
	}
	if r.retention > 0 {
		pipe.ZRemRangeByRank(ctx, keyResults, 0, int64(-r.retention-1))
		pipe.ZRemRangeByRank(ctx, keyThreats, 0, int64(-r.retention-1))
	}

	pipe.HIncrBy(ctx, keyStats, fieldTotal, 1)
	if res.IsThreat {
		pipe.HIncrBy(ctx, keyStats, fieldThreats, 1)
	}
	if res.Severity == severity.Critical {
		pipe.HIncrBy(ctx, keyStats, fieldCritical, 1)
	}
	pipe.HIncrBy(ctx, keyStats, fieldLatencySum, res.TotalLatencyMs)
	pipe.HIncrBy(ctx, keyStats, severityPrefix+string(res.Severity), 1)

	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the newest results
func (r *Redis) Recent(ctx context.Context, limit int) ([]protocol.StoredResult, error) {
	return r.newest(ctx, keyResults, limit)
}

// Threats returns the newest non-benign results
func (r *Redis) Threats(ctx context.Context, limit int) ([]protocol.StoredResult, error) {
	return r.newest(ctx, keyThreats, limit)
}

func (r *Redis) newest(ctx context.Context, key string, limit int) ([]protocol.StoredResult, error) {
	stop := int64(limit - 1)
	if limit <= 0 {
		stop = -1
	}

	members, err := r.client.ZRevRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return decodeResults(members), nil
}

// Stats reads the running counters
func (r *Redis) Stats(ctx context.Context) (protocol.Stats, error) {
	fields, err := r.client.HGetAll(ctx, keyStats).Result()
	if err != nil {
		return protocol.Stats{}, err
	}
	return statsFromHash(fields), nil
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeResults(members []string) []protocol.StoredResult {
	results := make([]protocol.StoredResult, 0, len(members))
	for _, m := range members {
		var res protocol.StoredResult
		if err := json.Unmarshal([]byte(m), &res); err != nil {
			continue
		}
		results = append(results, res)
	}
	return results
}

func statsFromHash(fields map[string]string) protocol.Stats {
	stats := protocol.Stats{BySeverity: make(map[severity.Tier]int64)}

	var latencySum int64
	for k, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		switch {
		case k == fieldTotal:
			stats.Total = n
		case k == fieldThreats:
			stats.Threats = n
		case k == fieldCritical:
			stats.Critical = n
		case k == fieldLatencySum:
			latencySum = n
		case strings.HasPrefix(k, severityPrefix):
			stats.BySeverity[severity.Tier(strings.TrimPrefix(k, severityPrefix))] = n
		}
	}
	if stats.Total > 0 {
		stats.AvgTotalLatencyMs = float64(latencySum) / float64(stats.Total)
	}
	return stats
}
