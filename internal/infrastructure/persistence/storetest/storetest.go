// Package storetest holds behaviour tests shared by every roster and content
// store implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/student"
)

// ContentStore is what the content contract exercises.
type ContentStore interface {
	content.Store
	content.TopicIndex
}

// NewStudent builds a valid pending day-1 student.
func NewStudent(t *testing.T, email, name string) *student.Student {
	t.Helper()
	s, err := student.NewStudent(student.NewStudentParams{ID: uuid.NewString(), Email: email, Name: name})
	require.NoError(t, err)
	return s
}

// RunRoster exercises a student.Roster. newRoster must return an empty store.
func RunRoster(t *testing.T, newRoster func(t *testing.T) student.Roster) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		r := newRoster(t)
		s := NewStudent(t, "ada@example.com", "Ada")
		s.PasswordHash = "hash"
		require.NoError(t, r.CreateStudent(ctx, s))

		got, err := r.GetStudent(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, "Ada", got.Name)
		assert.Equal(t, 1, got.Day)
		assert.Equal(t, student.StatusPending, got.Status)
		assert.Equal(t, "hash", got.PasswordHash)
	})

	t.Run("duplicate email", func(t *testing.T) {
		r := newRoster(t)
		require.NoError(t, r.CreateStudent(ctx, NewStudent(t, "ada@example.com", "Ada")))
		err := r.CreateStudent(ctx, NewStudent(t, "ada@example.com", "Ada Again"))
		assert.True(t, errors.Is(err, student.ErrStudentAlreadyExists), "got %v", err)
	})

	t.Run("list ordered by email", func(t *testing.T) {
		r := newRoster(t)
		for _, e := range []string{"c@x.com", "a@x.com", "b@x.com"} {
			require.NoError(t, r.CreateStudent(ctx, NewStudent(t, e, e)))
		}
		list, err := r.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"},
			[]string{list[0].Email, list[1].Email, list[2].Email})
	})

	t.Run("partial updates", func(t *testing.T) {
		r := newRoster(t)
		require.NoError(t, r.CreateStudent(ctx, NewStudent(t, "a@x.com", "A")))

		require.NoError(t, r.UpdateStudent(ctx, "a@x.com", student.StatusUpdate(student.StatusLessonSent)))
		got, err := r.GetStudent(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Day)
		assert.Equal(t, student.StatusLessonSent, got.Status)

		require.NoError(t, r.UpdateStudent(ctx, "a@x.com", student.ProgressUpdate(2, student.StatusPending)))
		got, err = r.GetStudent(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Day)
		assert.Equal(t, student.StatusPending, got.Status)

		assert.True(t, errors.Is(r.UpdateStudent(ctx, "a@x.com", student.Update{}), student.ErrEmptyUpdate))
		assert.True(t, errors.Is(r.UpdateStudent(ctx, "nobody@x.com", student.StatusUpdate(student.StatusPaused)), student.ErrStudentNotFound))
	})

	t.Run("password and delete", func(t *testing.T) {
		r := newRoster(t)
		require.NoError(t, r.CreateStudent(ctx, NewStudent(t, "a@x.com", "A")))

		require.NoError(t, r.SetPasswordHash(ctx, "a@x.com", "new-hash"))
		got, err := r.GetStudent(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)

		require.NoError(t, r.DeleteStudent(ctx, "a@x.com"))
		_, err = r.GetStudent(ctx, "a@x.com")
		assert.True(t, errors.Is(err, student.ErrStudentNotFound))
		assert.True(t, errors.Is(r.DeleteStudent(ctx, "a@x.com"), student.ErrStudentNotFound))
		assert.True(t, errors.Is(r.SetPasswordHash(ctx, "a@x.com", "x"), student.ErrStudentNotFound))
	})
}

// RunContent exercises a content store. newStore must return an empty store.
func RunContent(t *testing.T, newStore func(t *testing.T) ContentStore) {
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetArtifact(ctx, content.LessonKey(5))
		assert.True(t, errors.Is(err, content.ErrArtifactNotFound), "got %v", err)

		require.NoError(t, s.SaveArtifact(ctx, &content.Artifact{Key: content.LessonKey(5), Body: "LESSON5", Topic: "Strings"}))
		got, err := s.GetArtifact(ctx, content.LessonKey(5))
		require.NoError(t, err)
		assert.Equal(t, "LESSON5", got.Body)
		assert.Equal(t, "Strings", got.Topic)
		assert.False(t, got.CreatedAt.IsZero())

		_, err = s.GetArtifact(ctx, content.QuizKey(5))
		assert.True(t, errors.Is(err, content.ErrArtifactNotFound), "kinds are keyed separately")
	})

	t.Run("upsert keeps one artifact per key", func(t *testing.T) {
		s := newStore(t)
		key := content.MotivationKey(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
		require.NoError(t, s.SaveArtifact(ctx, &content.Artifact{Key: key, Body: "first"}))
		require.NoError(t, s.SaveArtifact(ctx, &content.Artifact{Key: key, Body: "second"}))

		got, err := s.GetArtifact(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Body)

		n, err := s.DeleteAllArtifacts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("rejects empty body and bad key", func(t *testing.T) {
		s := newStore(t)
		assert.True(t, errors.Is(s.SaveArtifact(ctx, &content.Artifact{Key: content.LessonKey(1), Body: "  "}), content.ErrEmptyBody))
		assert.True(t, errors.Is(s.SaveArtifact(ctx, &content.Artifact{Key: content.LessonKey(0), Body: "x"}), content.ErrInvalidKey))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveArtifact(ctx, &content.Artifact{Key: content.ReminderKey(2), Body: "R2"}))
		require.NoError(t, s.DeleteArtifact(ctx, content.ReminderKey(2)))
		assert.True(t, errors.Is(s.DeleteArtifact(ctx, content.ReminderKey(2)), content.ErrArtifactNotFound))
	})

	t.Run("topics", func(t *testing.T) {
		s := newStore(t)
		for _, rec := range []content.TopicRecord{{Day: 3, Topic: "Arithmetic"}, {Day: 1, Topic: "Intro"}, {Day: 2, Topic: "Variables"}} {
			require.NoError(t, s.SaveTopic(ctx, rec))
		}
		require.NoError(t, s.SaveTopic(ctx, content.TopicRecord{Day: 2, Topic: "Variables & Types"}))

		recs, err := s.ListTopics(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []content.TopicRecord{{Day: 1, Topic: "Intro"}, {Day: 2, Topic: "Variables & Types"}}, recs)

		require.NoError(t, s.DeleteTopic(ctx, 1))
		require.NoError(t, s.DeleteTopic(ctx, 42))
		recs, err = s.ListTopics(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, recs, 2)

		require.NoError(t, s.DeleteAllTopics(ctx))
		recs, err = s.ListTopics(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}
