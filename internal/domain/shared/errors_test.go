package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesKindAndCause(t *testing.T) {
	cause := NewDomainError("student", "Transition", ErrStateTransition, "invalid status transition")
	err := WrapError("student", "Transition", ErrStateTransition, "paused -> lesson_sent", cause)

	assert.True(t, errors.Is(err, ErrStateTransition))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "student.Transition: paused -> lesson_sent: student.Transition: invalid status transition", err.Error())
}

func TestIsNotFound_ThroughFmtWrapping(t *testing.T) {
	base := NewDomainError("content", "Get", ErrNotFound, "artifact not found")
	err := fmt.Errorf("failed to read cache for lesson:3: %w", base)

	assert.True(t, IsNotFound(err))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
	assert.Equal(t, "content.Get: artifact not found", base.Error())
	assert.False(t, IsNotFound(errors.New("connection refused")))
}
