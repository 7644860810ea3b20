package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/content"
)

// ContentStore is an in-memory content.Store and content.TopicIndex.
type ContentStore struct {
	mu        sync.RWMutex
	artifacts map[content.Key]content.Artifact
	topics    map[int]string
}

// NewContentStore creates an empty store.
func NewContentStore() *ContentStore {
	return &ContentStore{
		artifacts: make(map[content.Key]content.Artifact),
		topics:    make(map[int]string),
	}
}

// GetArtifact returns a copy of the stored artifact.
func (s *ContentStore) GetArtifact(ctx context.Context, key content.Key) (*content.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[key]
	if !ok {
		return nil, content.ErrArtifactNotFound
	}
	return &a, nil
}

// SaveArtifact upserts a.
func (s *ContentStore) SaveArtifact(ctx context.Context, a *content.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.Key.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Body) == "" {
		return content.ErrEmptyBody
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *a
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.artifacts[a.Key] = c
	return nil
}

// DeleteArtifact removes one artifact.
func (s *ContentStore) DeleteArtifact(ctx context.Context, key content.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.artifacts[key]; !ok {
		return content.ErrArtifactNotFound
	}
	delete(s.artifacts, key)
	return nil
}

// DeleteAllArtifacts clears the store.
func (s *ContentStore) DeleteAllArtifacts(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.artifacts)
	s.artifacts = make(map[content.Key]content.Artifact)
	return n, nil
}

// SaveTopic upserts the topic of a lesson day.
func (s *ContentStore) SaveTopic(ctx context.Context, rec content.TopicRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[rec.Day] = rec.Topic
	return nil
}

// DeleteTopic removes the topic of day; a missing topic is not an error.
func (s *ContentStore) DeleteTopic(ctx context.Context, day int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, day)
	return nil
}

// ListTopics returns topics up to and including upToDay, ascending.
func (s *ContentStore) ListTopics(ctx context.Context, upToDay int) ([]content.TopicRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []content.TopicRecord
	for day, topic := range s.topics {
		if day <= upToDay {
			out = append(out, content.TopicRecord{Day: day, Topic: topic})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// DeleteAllTopics clears the topic index.
func (s *ContentStore) DeleteAllTopics(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = make(map[int]string)
	return nil
}
