package statsource

import (
	"context"
	"time"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/platform/cache"
)

// Redis stores statistics as JSON strings with a TTL.
type Redis struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedis wraps a connected cache.
func NewRedis(c *cache.Cache, ttl time.Duration) *Redis {
	return &Redis{cache: c, ttl: ttl}
}

func (r *Redis) key(fingerprint string) string {
	return r.cache.Key("stats", fingerprint)
}

func (r *Redis) Get(ctx context.Context, fingerprint string) (analysis.Statistics, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var stats analysis.Statistics
	found, err := r.cache.GetJSON(ctx, r.key(fingerprint), &stats)
	if err != nil || !found {
		return analysis.Statistics{}, false, err
	}
	return stats, true, nil
}

func (r *Redis) Put(ctx context.Context, fingerprint string, stats analysis.Statistics) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.cache.SetJSON(ctx, r.key(fingerprint), stats, r.ttl)
}

func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.cache.HealthCheck(ctx)
}
