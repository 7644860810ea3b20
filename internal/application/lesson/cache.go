package lesson

import (
	"context"
	"fmt"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/shared"
)

// Cache stores generated artifacts and keeps the lesson topic index in step
// with them.
type Cache struct {
	store  content.Store
	topics content.TopicIndex
}

// NewCache creates a cache over the given stores. Both may be the same value.
func NewCache(store content.Store, topics content.TopicIndex) *Cache {
	return &Cache{store: store, topics: topics}
}

// Get returns the cached artifact or content.ErrArtifactNotFound.
func (c *Cache) Get(ctx context.Context, key content.Key) (*content.Artifact, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return c.store.GetArtifact(ctx, key)
}

// Put stores a and, for lessons, upserts the topic record of its day.
// a.Topic is filled from the body marker.
func (c *Cache) Put(ctx context.Context, a *content.Artifact) error {
	if err := a.Key.Validate(); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Key.Kind == content.KindLesson {
		a.Topic, _ = content.ExtractTopic(a.Body)
	}

	if err := c.store.SaveArtifact(ctx, a); err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", a.Key, err)
	}

	if a.Key.Kind != content.KindLesson {
		return nil
	}
	rec := content.TopicRecord{Day: a.Key.Day, Topic: a.Topic}
	if err := c.topics.SaveTopic(ctx, rec); err != nil {
		return fmt.Errorf("failed to save topic for day %d: %w", a.Key.Day, err)
	}
	return nil
}

// Invalidate removes one artifact, and its topic record for lessons.
// Invalidating a missing artifact returns content.ErrArtifactNotFound after
// the topic record, if any, has been removed.
func (c *Cache) Invalidate(ctx context.Context, key content.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	err := c.store.DeleteArtifact(ctx, key)
	if err != nil && !shared.IsNotFound(err) {
		return fmt.Errorf("failed to delete artifact %s: %w", key, err)
	}

	if key.Kind == content.KindLesson {
		if terr := c.topics.DeleteTopic(ctx, key.Day); terr != nil {
			return fmt.Errorf("failed to delete topic for day %d: %w", key.Day, terr)
		}
	}
	return err
}

// Wipe removes every artifact and topic record. It returns the number of
// artifacts removed.
func (c *Cache) Wipe(ctx context.Context) (int, error) {
	n, err := c.store.DeleteAllArtifacts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete artifacts: %w", err)
	}
	if err := c.topics.DeleteAllTopics(ctx); err != nil {
		return n, fmt.Errorf("failed to delete topics: %w", err)
	}
	return n, nil
}
