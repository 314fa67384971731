// Package statsource stores precomputed dashboard statistics keyed by
// dataset fingerprint. Every source satisfies analysis.StatisticsSource.
package statsource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/platform/cache"
	"github.com/p-n-ai/exam-atlas/internal/platform/config"
	"github.com/p-n-ai/exam-atlas/internal/platform/database"
)

const opTimeout = 3 * time.Second

// expired reports whether a value written at computedAt is older than ttl.
// A ttl of zero never expires.
func expired(computedAt time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(computedAt) > ttl
}

type memoryEntry struct {
	stats      analysis.Statistics
	computedAt time.Time
}

// Memory keeps statistics in process. Used in tests and when no external
// source is configured but caching across reloads is still wanted.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory source.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, fingerprint string) (analysis.Statistics, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[fingerprint]
	if !ok || expired(e.computedAt, m.ttl, m.now()) {
		return analysis.Statistics{}, false, nil
	}
	return e.stats, true, nil
}

func (m *Memory) Put(_ context.Context, fingerprint string, stats analysis.Statistics) error {
	m.mu.Lock()
	m.entries[fingerprint] = memoryEntry{stats: stats, computedAt: m.now()}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored fingerprints.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// HealthChecker is implemented by sources backed by an external store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker returns the readiness probe of src, or nil when src has no
// external store to probe.
func Checker(src analysis.StatisticsSource) HealthChecker {
	hc, _ := src.(HealthChecker)
	return hc
}

// Open builds the source selected by cfg.Stats.Source. A nil source with a
// nil error means precomputation is disabled. The returned close function
// is always safe to call.
func Open(ctx context.Context, cfg *config.Config) (analysis.StatisticsSource, func(), error) {
	nop := func() {}

	switch cfg.Stats.Source {
	case config.StatsSourceNone, "":
		return nil, nop, nil

	case config.StatsSourceRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, nop, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.Info("statistics source ready", "kind", "redis")
		return NewRedis(c, cfg.Stats.TTL), func() { _ = c.Close() }, nil

	case config.StatsSourcePostgres:
		db, err := database.New(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, nop, fmt.Errorf("connecting to postgres: %w", err)
		}
		src, err := NewPostgres(ctx, db, cfg.Stats.TTL)
		if err != nil {
			db.Close()
			return nil, nop, err
		}
		slog.Info("statistics source ready", "kind", "postgres")
		return src, db.Close, nil

	case config.StatsSourceSQLite:
		src, err := OpenSQLite(ctx, cfg.Stats.SQLitePath, cfg.Stats.TTL)
		if err != nil {
			return nil, nop, err
		}
		slog.Info("statistics source ready", "kind", "sqlite", "path", cfg.Stats.SQLitePath)
		return src, func() { _ = src.Close() }, nil

	default:
		return nil, nop, fmt.Errorf("unknown statistics source %q", cfg.Stats.Source)
	}
}
