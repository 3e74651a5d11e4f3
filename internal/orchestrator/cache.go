// internal/orchestrator/cache.go
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/metrics"
)

// DefaultCacheKeyPrefix namespaces cached classifications.
const DefaultCacheKeyPrefix = "nlu:intent:"

// CachedClassifier memoises classifications in Redis. Cache failures are
// logged and never fail a classification; classifier errors are not cached.
type CachedClassifier struct {
	next   IntentClassifier
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewCachedClassifier(next IntentClassifier, rdb redis.Cmdable, ttl time.Duration, prefix string, log logger.Logger) *CachedClassifier {
	if prefix == "" {
		prefix = DefaultCacheKeyPrefix
	}
	return &CachedClassifier{next: next, rdb: rdb, ttl: ttl, prefix: prefix, logger: log}
}

// CacheKey returns the Redis key for text. Case and runs of whitespace do
// not change the key.
func (c *CachedClassifier) CacheKey(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedClassifier) Classify(ctx context.Context, text, sessionID string) (*Classification, error) {
	key := c.CacheKey(text)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Classification
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			metrics.CollaboratorCalls.WithLabelValues("cache", "hit").Inc()
			return &cached, nil
		}
		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
		metrics.CollaboratorCalls.WithLabelValues("cache", "miss").Inc()
	default:
		metrics.CollaboratorCalls.WithLabelValues("cache", "error").Inc()
		c.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	result, err := c.next.Classify(ctx, text, sessionID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		metrics.CollaboratorCalls.WithLabelValues("cache", "error").Inc()
		c.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return result, nil
}
