package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/content"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT CACHE + TOPIC INDEX
// ══════════════════════════════════════════════════════════════════════════════

// ContentRepository implements content.Store and content.TopicIndex.
type ContentRepository struct {
	conn *Connection
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(conn *Connection) *ContentRepository {
	return &ContentRepository{conn: conn}
}

// GetArtifact returns the artifact stored under key.
func (r *ContentRepository) GetArtifact(ctx context.Context, key content.Key) (*content.Artifact, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	a := content.Artifact{Key: key}
	err := r.conn.QueryRow(ctx,
		`SELECT body, topic, created_at FROM content_artifacts WHERE cache_key = $1`,
		key.String(),
	).Scan(&a.Body, &a.Topic, &a.CreatedAt)
	if IsNoRows(err) {
		return nil, content.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %s: %w", key, err)
	}
	return &a, nil
}

// SaveArtifact upserts a.
func (r *ContentRepository) SaveArtifact(ctx context.Context, a *content.Artifact) error {
	if err := a.Key.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Body) == "" {
		return content.ErrEmptyBody
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO content_artifacts (cache_key, kind, day, date, body, topic, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cache_key) DO UPDATE SET
			body = EXCLUDED.body,
			topic = EXCLUDED.topic,
			created_at = EXCLUDED.created_at
	`, a.Key.String(), string(a.Key.Kind), a.Key.Day, a.Key.Date, a.Body, a.Topic, created)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", a.Key, err)
	}
	return nil
}

// DeleteArtifact removes one artifact.
func (r *ContentRepository) DeleteArtifact(ctx context.Context, key content.Key) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `DELETE FROM content_artifacts WHERE cache_key = $1`, key.String())
	if err != nil {
		return fmt.Errorf("failed to delete artifact %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrArtifactNotFound
	}
	return nil
}

// DeleteAllArtifacts removes every artifact and reports how many went.
func (r *ContentRepository) DeleteAllArtifacts(ctx context.Context) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `DELETE FROM content_artifacts`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete artifacts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SaveTopic upserts the topic of a lesson day.
func (r *ContentRepository) SaveTopic(ctx context.Context, rec content.TopicRecord) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := r.conn.Exec(ctx, `
		INSERT INTO lesson_topics (day, topic, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (day) DO UPDATE SET topic = EXCLUDED.topic, updated_at = NOW()
	`, rec.Day, rec.Topic)
	if err != nil {
		return fmt.Errorf("failed to save topic for day %d: %w", rec.Day, err)
	}
	return nil
}

// DeleteTopic removes the topic of day. Missing rows are not an error.
func (r *ContentRepository) DeleteTopic(ctx context.Context, day int) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if _, err := r.conn.Exec(ctx, `DELETE FROM lesson_topics WHERE day = $1`, day); err != nil {
		return fmt.Errorf("failed to delete topic for day %d: %w", day, err)
	}
	return nil
}

// ListTopics returns topics of days <= upToDay in ascending order.
func (r *ContentRepository) ListTopics(ctx context.Context, upToDay int) ([]content.TopicRecord, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT day, topic FROM lesson_topics WHERE day <= $1 ORDER BY day`, upToDay)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	out := []content.TopicRecord{}
	for rows.Next() {
		var rec content.TopicRecord
		if err := rows.Scan(&rec.Day, &rec.Topic); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteAllTopics clears the topic index.
func (r *ContentRepository) DeleteAllTopics(ctx context.Context) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if _, err := r.conn.Exec(ctx, `DELETE FROM lesson_topics`); err != nil {
		return fmt.Errorf("failed to delete topics: %w", err)
	}
	return nil
}
