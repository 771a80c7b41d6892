package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TobiSchelling/AIVisibility/internal/logger"
	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// DefaultCacheTTL is how long search results are reused.
const DefaultCacheTTL = 24 * time.Hour

const keyPrefix = "aivis:search:"

// RedisConfig configures the cache connection.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client. The connection is not checked.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
}

// CachedSearcher memoizes another Searcher in Redis. Cache failures are
// logged and fall through to the underlying searcher.
type CachedSearcher struct {
	next Searcher
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

// NewCachedSearcher wraps next with a Redis cache.
func NewCachedSearcher(next Searcher, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *CachedSearcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSearcher{next: next, rdb: rdb, ttl: ttl, log: logger.OrNop(log)}
}

// IsConfigured reports whether the wrapped searcher is configured.
func (c *CachedSearcher) IsConfigured() bool {
	return c.next.IsConfigured()
}

// Search returns cached results for (query, limit) or fetches and stores them.
func (c *CachedSearcher) Search(ctx context.Context, query string, limit int) ([]models.SearchSource, error) {
	key := cacheKey(query, limit)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []models.SearchSource
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		c.log.Warn("discarding corrupt search cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("search cache read failed", zap.Error(err))
	}

	results, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(results); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("search cache write failed", zap.Error(err))
		}
	}
	return results, nil
}

func cacheKey(query string, limit int) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.Join(strings.Fields(query), " "))))
	return fmt.Sprintf("%s%d:%s", keyPrefix, limit, hex.EncodeToString(sum[:]))
}
