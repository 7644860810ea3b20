package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/content"
)

// stringCache is the subset of Cache used by ContentCache.
type stringCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cachedArtifact struct {
	Body      string    `json:"body"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentCache is a read-through content.Store: Redis first, durable store
// second. The durable store stays authoritative; Redis failures are logged
// and never surface to the caller.
type ContentCache struct {
	durable content.Store
	cache   stringCache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewContentCache wraps durable with cache. ttl <= 0 keeps entries forever.
func NewContentCache(durable content.Store, cache stringCache, ttl time.Duration, logger *slog.Logger) *ContentCache {
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentCache{durable: durable, cache: cache, ttl: ttl, logger: logger}
}

// GetArtifact serves from Redis when possible and backfills on a durable hit.
func (c *ContentCache) GetArtifact(ctx context.Context, key content.Key) (*content.Artifact, error) {
	raw, err := c.cache.GetString(ctx, ContentKey(key))
	switch {
	case err == nil:
		var ca cachedArtifact
		if jerr := json.Unmarshal([]byte(raw), &ca); jerr == nil && ca.Body != "" {
			return &content.Artifact{Key: key, Body: ca.Body, Topic: ca.Topic, CreatedAt: ca.CreatedAt}, nil
		}
		c.logger.Warn("dropping undecodable cached artifact", "key", key.String())
		c.forget(ctx, key)
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("redis read failed", "key", key.String(), "error", err)
	}

	a, err := c.durable.GetArtifact(ctx, key)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, a)
	return a, nil
}

// SaveArtifact writes through to the durable store, then to Redis.
func (c *ContentCache) SaveArtifact(ctx context.Context, a *content.Artifact) error {
	if err := c.durable.SaveArtifact(ctx, a); err != nil {
		return err
	}
	c.remember(ctx, a)
	return nil
}

// DeleteArtifact removes the artifact from both tiers.
func (c *ContentCache) DeleteArtifact(ctx context.Context, key content.Key) error {
	c.forget(ctx, key)
	return c.durable.DeleteArtifact(ctx, key)
}

// DeleteAllArtifacts clears both tiers; the count comes from the durable store.
func (c *ContentCache) DeleteAllArtifacts(ctx context.Context) (int, error) {
	if err := c.cache.DeleteByPattern(ctx, PrefixContent+"*"); err != nil {
		c.logger.Warn("redis wipe failed", "error", err)
	}
	return c.durable.DeleteAllArtifacts(ctx)
}

func (c *ContentCache) remember(ctx context.Context, a *content.Artifact) {
	data, err := json.Marshal(cachedArtifact{Body: a.Body, Topic: a.Topic, CreatedAt: a.CreatedAt})
	if err != nil {
		return
	}
	if err := c.cache.SetString(ctx, ContentKey(a.Key), string(data), c.ttl); err != nil {
		c.logger.Warn("redis write failed", "key", a.Key.String(), "error", err)
	}
}

func (c *ContentCache) forget(ctx context.Context, key content.Key) {
	if err := c.cache.Delete(ctx, ContentKey(key)); err != nil {
		c.logger.Warn("redis delete failed", "key", key.String(), "error", err)
	}
}
