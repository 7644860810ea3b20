package content

import "context"

// Store persists artifacts. SaveArtifact is an upsert.
type Store interface {
	// GetArtifact returns ErrArtifactNotFound on a miss.
	GetArtifact(ctx context.Context, key Key) (*Artifact, error)
	SaveArtifact(ctx context.Context, artifact *Artifact) error
	// DeleteArtifact returns ErrArtifactNotFound when nothing was stored.
	DeleteArtifact(ctx context.Context, key Key) error
	// DeleteAllArtifacts returns the number of removed artifacts.
	DeleteAllArtifacts(ctx context.Context) (int, error)
}

// TopicIndex persists one topic label per lesson day.
type TopicIndex interface {
	SaveTopic(ctx context.Context, record TopicRecord) error
	DeleteTopic(ctx context.Context, day int) error
	// ListTopics returns records with Day <= upToDay in ascending day order.
	ListTopics(ctx context.Context, upToDay int) ([]TopicRecord, error)
	DeleteAllTopics(ctx context.Context) error
}
