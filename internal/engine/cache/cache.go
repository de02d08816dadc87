// Package cache provides the Redis-backed query result cache and per-session
// conversation history. Expiry is delegated to Redis TTLs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/common/metrics"
	"warehouse-askdb/internal/engine/conditions"
	"warehouse-askdb/internal/engine/executor"
	"warehouse-askdb/internal/engine/timeframe"
	"warehouse-askdb/internal/models"

	"github.com/redis/go-redis/v9"
)

// Entry is one cached answer with its result payload.
type Entry struct {
	TemplateID string           `json:"templateId"`
	SQL        string           `json:"sql"`
	Result     *executor.Result `json:"result"`
	Answer     string           `json:"answer"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Cache wraps the Redis client. All cache failures degrade to misses; the
// engine never fails a request because Redis is down.
type Cache struct {
	client      *redis.Client
	ttl         time.Duration
	historyTTL  time.Duration
	historySize int
	prefix      string
	logger      logger.Logger
}

type Options struct {
	TTL         time.Duration
	HistoryTTL  time.Duration
	HistorySize int
	KeyPrefix   string
}

func New(client *redis.Client, opts Options, log logger.Logger) *Cache {
	return &Cache{
		client:      client,
		ttl:         opts.TTL,
		historyTTL:  opts.HistoryTTL,
		historySize: opts.HistorySize,
		prefix:      opts.KeyPrefix,
		logger:      log,
	}
}

// Key derives a stable cache key from the normalized question, the resolved
// date range, and the condition fingerprint. Session history deliberately does
// not participate: asking the same question twice within the TTL must hit.
func Key(normalized string, rng *timeframe.Range, set *conditions.Set) string {
	var b strings.Builder
	b.WriteString(normalized)
	b.WriteString("\x00")
	if rng != nil {
		fmt.Fprintf(&b, "%d-%d-%s", rng.Start.Unix(), rng.End.Unix(), rng.Label)
	}
	b.WriteString("\x00")
	b.WriteString(set.Fingerprint())

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get looks up a cached entry. Any Redis error is logged and reported as a
// miss.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := c.client.Get(ctx, c.resultKey(key)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("Cache lookup failed", map[string]interface{}{"key": key})
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.WithError(err).Warn("Cache entry corrupt", map[string]interface{}{"key": key})
		metrics.CacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("hit").Inc()
	return &entry, true
}

// Set stores an entry under the configured TTL. Failures are logged only.
func (c *Cache) Set(ctx context.Context, key string, entry *Entry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).Error("Cache entry marshal failed", nil)
		return
	}
	if err := c.client.Set(ctx, c.resultKey(key), raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Cache store failed", map[string]interface{}{"key": key})
	}
}

// History returns the most recent exchanges for a session, newest first.
func (c *Cache) History(ctx context.Context, sessionID string) []models.Exchange {
	if sessionID == "" {
		return nil
	}
	raws, err := c.client.LRange(ctx, c.historyKey(sessionID), 0, int64(c.historySize-1)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("History lookup failed", map[string]interface{}{"sessionId": sessionID})
		}
		return nil
	}

	out := make([]models.Exchange, 0, len(raws))
	for _, raw := range raws {
		var ex models.Exchange
		if err := json.Unmarshal([]byte(raw), &ex); err == nil {
			out = append(out, ex)
		}
	}
	return out
}

// AppendHistory pushes an exchange onto the session list, trims it to the
// configured size, and refreshes the session TTL.
func (c *Cache) AppendHistory(ctx context.Context, sessionID string, ex models.Exchange) {
	if sessionID == "" {
		return
	}
	raw, err := json.Marshal(ex)
	if err != nil {
		return
	}

	key := c.historyKey(sessionID)
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, int64(c.historySize-1))
	pipe.Expire(ctx, key, c.historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WithError(err).Warn("History append failed", map[string]interface{}{"sessionId": sessionID})
	}
}

// Ping reports Redis liveness for the status endpoint.
func (c *Cache) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return c.client.Ping(pingCtx).Err()
}

func (c *Cache) resultKey(key string) string {
	return c.prefix + ":result:" + key
}

func (c *Cache) historyKey(sessionID string) string {
	return c.prefix + ":history:" + sessionID
}
