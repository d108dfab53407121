package relay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/eleven-am/wastelens/internal/detection"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cache stores detection results keyed by the exact request parameters. A
// nil *Cache, or one without a redis client, never hits.
type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With("component", "detect-cache"),
	}
}

func CacheKey(image string, threshold float64, modelType string) string {
	sum := sha256.Sum256([]byte(image + "|" + strconv.FormatFloat(threshold, 'f', -1, 64) + "|" + modelType))
	return "detect:" + hex.EncodeToString(sum[:])
}

func (c *Cache) enabled() bool {
	return c != nil && c.redis != nil
}

func (c *Cache) Get(ctx context.Context, key string) (*detection.Result, bool) {
	if !c.enabled() {
		return nil, false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "error", err)
		}
		return nil, false
	}

	var res detection.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return &res, true
}

func (c *Cache) Set(ctx context.Context, key string, res *detection.Result) {
	if !c.enabled() || res == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("cache encode failed", "error", err)
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}
