package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/content"
)

type artifactRow struct {
	Kind      string `db:"kind"`
	Day       int    `db:"day"`
	Date      string `db:"date"`
	Body      string `db:"body"`
	Topic     string `db:"topic"`
	CreatedAt int64  `db:"created_at"`
}

// GetArtifact returns the artifact stored under key.
func (s *Store) GetArtifact(ctx context.Context, key content.Key) (*content.Artifact, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var row artifactRow
	err := s.db.GetContext(ctx, &row,
		`SELECT kind, day, date, body, topic, created_at FROM content_artifacts WHERE cache_key = ?`,
		key.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, content.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", key, err)
	}
	return &content.Artifact{
		Key:       content.Key{Kind: content.Kind(row.Kind), Day: row.Day, Date: row.Date},
		Body:      row.Body,
		Topic:     row.Topic,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
	}, nil
}

// SaveArtifact upserts a.
func (s *Store) SaveArtifact(ctx context.Context, a *content.Artifact) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := a.Key.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Body) == "" {
		return content.ErrEmptyBody
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO content_artifacts (cache_key, kind, day, date, body, topic, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET
	body = excluded.body,
	topic = excluded.topic,
	created_at = excluded.created_at
`, a.Key.String(), string(a.Key.Kind), a.Key.Day, a.Key.Date, a.Body, a.Topic, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", a.Key, err)
	}
	return nil
}

// DeleteArtifact removes one artifact.
func (s *Store) DeleteArtifact(ctx context.Context, key content.Key) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_artifacts WHERE cache_key = ?`, key.String())
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", key, err)
	}
	if n == 0 {
		return content.ErrArtifactNotFound
	}
	return nil
}

// DeleteAllArtifacts removes every artifact.
func (s *Store) DeleteAllArtifacts(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_artifacts`)
	if err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete artifacts: %w", err)
	}
	return int(n), nil
}

// SaveTopic upserts the topic of a lesson day.
func (s *Store) SaveTopic(ctx context.Context, rec content.TopicRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO lesson_topics (day, topic, updated_at) VALUES (?, ?, ?)
ON CONFLICT (day) DO UPDATE SET topic = excluded.topic, updated_at = excluded.updated_at
`, rec.Day, rec.Topic, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save topic for day %d: %w", rec.Day, err)
	}
	return nil
}

// DeleteTopic removes the topic of day.
func (s *Store) DeleteTopic(ctx context.Context, day int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lesson_topics WHERE day = ?`, day); err != nil {
		return fmt.Errorf("delete topic for day %d: %w", day, err)
	}
	return nil
}

// ListTopics returns topics up to and including upToDay, ascending.
func (s *Store) ListTopics(ctx context.Context, upToDay int) ([]content.TopicRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var rows []struct {
		Day   int    `db:"day"`
		Topic string `db:"topic"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT day, topic FROM lesson_topics WHERE day <= ? ORDER BY day`, upToDay); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}

	out := make([]content.TopicRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, content.TopicRecord{Day: r.Day, Topic: r.Topic})
	}
	return out, nil
}

// DeleteAllTopics clears the topic index.
func (s *Store) DeleteAllTopics(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lesson_topics`); err != nil {
		return fmt.Errorf("delete topics: %w", err)
	}
	return nil
}
