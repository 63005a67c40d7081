// Package configcache fronts the persisted scoring configuration with an
// optional Redis layer. With no Redis address configured every call
// passes straight through to the database repo.
package configcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
)

const (
	cacheKey     = "pipeline_scoring_config"
	defaultTTL   = 30 * time.Second
	redisTimeout = 500 * time.Millisecond
)

// var _ ensures Cache can substitute for the raw repo wherever a
// persistence.ConfigRepo is expected.
var _ persistence.ConfigRepo = (*Cache)(nil)

// Cache fronts a ConfigRepo with an optional Redis layer. With no Redis
// address configured it passes every call straight through to the
// repo, matching the db.Config.Enabled gate pattern used elsewhere.
type Cache struct {
	repo   persistence.ConfigRepo
	client *redis.Client
	ttl    time.Duration
}

// New builds a Cache. If addr is empty, Redis is disabled and Load always
// falls through to repo.Load.
func New(repo persistence.ConfigRepo, addr string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	var client *redis.Client
	if addr != "" {
		client = redis.NewClient(&redis.Options{Addr: addr})
	}

	return &Cache{repo: repo, client: client, ttl: ttl}
}

// Load returns the current scoring configuration, preferring the cached
// copy when present and falling through to the repository (and its own
// DefaultConfig fallback) on a cache miss or when Redis is disabled. The
// signature matches persistence.ConfigRepo so a Cache can stand in for
// the raw repo anywhere a ConfigRepo is expected.
func (c *Cache) Load(ctx context.Context) (scoring.ScoringConfig, error) {
	if c.client == nil {
		return c.repo.Load(ctx)
	}

	if cfg, ok := c.readCache(ctx); ok {
		return cfg, nil
	}

	cfg, err := c.repo.Load(ctx)
	if err != nil {
		return cfg, err
	}

	c.writeCache(ctx, cfg)
	return cfg, nil
}

// Invalidate drops the cached document. The batch runner calls this once
// per run so a mid-run config edit is picked up by the next run.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}

	redisCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := c.client.Del(redisCtx, cacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("configcache: failed to invalidate cached config")
	}
}

func (c *Cache) readCache(ctx context.Context) (scoring.ScoringConfig, bool) {
	redisCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	raw, err := c.client.Get(redisCtx, cacheKey).Bytes()
	if err != nil {
		return scoring.ScoringConfig{}, false
	}

	var cfg scoring.ScoringConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		log.Warn().Err(err).Msg("configcache: cached config malformed, falling back to repo")
		return scoring.ScoringConfig{}, false
	}

	return cfg, true
}

func (c *Cache) writeCache(ctx context.Context, cfg scoring.ScoringConfig) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("configcache: failed to marshal config for caching")
		return
	}

	redisCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := c.client.Set(redisCtx, cacheKey, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("configcache: failed to write cached config")
	}
}
