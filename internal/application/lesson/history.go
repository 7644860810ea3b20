package lesson

import (
	"context"
	"log/slog"

	"github.com/pydaily/lessonbot/internal/domain/content"
)

// FallbackHistory is used in prompts when the topic index cannot be read.
const FallbackHistory = "Basic Python Concepts"

// History renders the topics already taught.
type History struct {
	topics content.TopicIndex
	logger *slog.Logger
}

// NewHistory creates a History over topics.
func NewHistory(topics content.TopicIndex, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{topics: topics, logger: logger}
}

// UpTo returns "Day 1: X; Day 2: Y" for every recorded day <= day.
// It returns "" when nothing is recorded or day < 1, and FallbackHistory
// when the index fails.
func (h *History) UpTo(ctx context.Context, day int) string {
	if day < 1 {
		return ""
	}
	recs, err := h.topics.ListTopics(ctx, day)
	if err != nil {
		h.logger.Warn("topic history unavailable, using fallback",
			"up_to_day", day,
			"error", err,
		)
		return FallbackHistory
	}
	return content.FormatHistory(recs)
}
