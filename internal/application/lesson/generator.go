package lesson

import (
	"context"
	"errors"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// Generator produces artifact bodies. The gemini client implements it.
type Generator interface {
	// GenerateLesson returns an HTML lesson. history lists earlier topics.
	GenerateLesson(ctx context.Context, day int, history string) (string, error)

	// GenerateQuiz returns an HTML quiz covering history.
	GenerateQuiz(ctx context.Context, day int, history string) (string, error)

	// GenerateReminder returns the evening check-in for day.
	GenerateReminder(ctx context.Context, day int) (string, error)

	// GenerateMotivation returns the mid-day motivation note.
	GenerateMotivation(ctx context.Context) (string, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrGenerationFailed is returned when the generator errored or produced an
// empty body. Nothing is cached in that case.
var ErrGenerationFailed = errors.New("content generation failed")
