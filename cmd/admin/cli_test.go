package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pydaily/lessonbot/internal/application/admin"
	"github.com/pydaily/lessonbot/internal/application/lesson"
	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/student"
	"github.com/pydaily/lessonbot/internal/infrastructure/persistence/memory"
	"github.com/pydaily/lessonbot/pkg/logger"
)

type harness struct {
	cli    *commandLine
	roster *memory.Roster
	store  *memory.ContentStore
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

type okTester struct{ err error }

func (t okTester) TestConnection(context.Context) error { return t.err }

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	h := &harness{
		roster: memory.NewRoster(),
		store:  memory.NewContentStore(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	svc := admin.NewService(h.roster, lesson.NewCache(h.store, h.store), okTester{}, logger.Discard(), admin.Config{BcryptCost: bcrypt.MinCost})
	h.cli = &commandLine{
		svc:     svc,
		stdin:   strings.NewReader(stdin),
		stdout:  h.stdout,
		stderr:  h.stderr,
		stdinFd: -1,
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	return h.cli.Run(context.Background(), args)
}

func TestUnknownCommandPrintsUsage(t *testing.T) {
	h := newHarness(t, "")

	err := h.run(t, "frobnicate")
	assert.ErrorIs(t, err, errHelp)
	assert.Contains(t, h.stderr.String(), `unknown command "frobnicate"`)
	assert.Contains(t, h.stderr.String(), "usage: admin <command>")
	assert.Contains(t, h.stderr.String(), "reset-cohort -yes")

	assert.ErrorIs(t, h.run(t), errHelp)
}

func TestEnrollListRemove(t *testing.T) {
	h := newHarness(t, "")

	require.NoError(t, h.run(t, "enroll", "-email", "ada@example.com", "-name", "Ada"))
	assert.Contains(t, h.stdout.String(), "enrolled ada@example.com (Ada) on day 1")
	assert.Contains(t, h.stdout.String(), "default password assigned")

	h.stdout.Reset()
	require.NoError(t, h.run(t, "list"))
	assert.Contains(t, h.stdout.String(), "ada@example.com")
	assert.Contains(t, h.stdout.String(), "pending")
	assert.Contains(t, h.stdout.String(), "1 students")

	require.NoError(t, h.run(t, "remove", "-email", "ada@example.com"))
	_, err := h.roster.GetStudent(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, student.ErrStudentNotFound)
}

func TestEnroll_MissingFlags(t *testing.T) {
	h := newHarness(t, "")

	err := h.run(t, "enroll", "-email", "ada@example.com")
	assert.ErrorIs(t, err, errHelp)
	assert.Contains(t, h.stderr.String(), "missing required flags: -name")

	assert.ErrorIs(t, h.run(t, "enroll", "-nope"), errHelp)
}

func TestEnroll_PromptFromTerminal(t *testing.T) {
	h := newHarness(t, "")
	h.cli.stdinFd = 0

	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(int) ([]byte, error) { return []byte("terminal-secret"), nil }

	require.NoError(t, h.run(t, "enroll", "-email", "ada@example.com", "-name", "Ada", "-prompt"))
	st, err := h.roster.GetStudent(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte("terminal-secret")))
	assert.NotContains(t, h.stdout.String(), "default password")
}

func TestPassword_FromPipedStdin(t *testing.T) {
	h := newHarness(t, "piped-secret\n")
	require.NoError(t, h.run(t, "enroll", "-email", "ada@example.com", "-name", "Ada"))

	require.NoError(t, h.run(t, "password", "-email", "ada@example.com"))
	st, err := h.roster.GetStudent(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte("piped-secret")))
}

func TestProgressCommands(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	require.NoError(t, h.run(t, "enroll", "-email", "ada@example.com", "-name", "Ada"))

	require.NoError(t, h.run(t, "skip", "-email", "ada@example.com", "-day", "12"))
	require.NoError(t, h.run(t, "pause", "-email", "ada@example.com"))
	st, err := h.roster.GetStudent(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 12, st.Day)
	assert.Equal(t, student.StatusPaused, st.Status)

	require.NoError(t, h.run(t, "resume", "-email", "ada@example.com"))
	require.NoError(t, h.run(t, "complete", "-email", "ada@example.com"))
	st, err = h.roster.GetStudent(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, student.StatusComplete, st.Status)

	assert.ErrorIs(t, h.run(t, "pause"), errHelp)
}

func TestResetCohort_RequiresConfirmation(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	require.NoError(t, h.run(t, "enroll", "-email", "ada@example.com", "-name", "Ada"))
	require.NoError(t, h.roster.UpdateStudent(ctx, "ada@example.com", student.ProgressUpdate(9, student.StatusLessonSent)))

	assert.ErrorIs(t, h.run(t, "reset-cohort"), errHelp)
	st, err := h.roster.GetStudent(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 9, st.Day)

	require.NoError(t, h.run(t, "reset-cohort", "-yes"))
	assert.Contains(t, h.stdout.String(), "reset 1 of 1 students")
	st, err = h.roster.GetStudent(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Day)
	assert.Equal(t, student.StatusPending, st.Status)
}

func TestInvalidateAndWipe(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	require.NoError(t, h.store.SaveArtifact(ctx, &content.Artifact{Key: content.LessonKey(4), Body: "x"}))
	require.NoError(t, h.store.SaveArtifact(ctx, &content.Artifact{Key: content.Key{Kind: content.KindMotivation, Date: "2026-10-15"}, Body: "m"}))

	require.NoError(t, h.run(t, "invalidate", "-kind", "lesson", "-day", "4"))
	assert.Contains(t, h.stdout.String(), "invalidated lesson:4")

	require.NoError(t, h.run(t, "invalidate", "-kind", "motivation", "-date", "2026-10-15"))
	_, err := h.store.GetArtifact(ctx, content.Key{Kind: content.KindMotivation, Date: "2026-10-15"})
	assert.ErrorIs(t, err, content.ErrArtifactNotFound)

	assert.ErrorIs(t, h.run(t, "invalidate", "-kind", "essay", "-day", "1"), errHelp)
	assert.ErrorIs(t, h.run(t, "invalidate", "-kind", "quiz"), content.ErrInvalidKey)

	assert.ErrorIs(t, h.run(t, "wipe-cache"), errHelp)
	require.NoError(t, h.run(t, "wipe-cache", "-yes"))
	assert.Contains(t, h.stdout.String(), "deleted 0 artifacts")
}

func TestTestConnection(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.run(t, "test-connection"))
	assert.Contains(t, h.stdout.String(), "connection OK")

	svc := admin.NewService(h.roster, nil, okTester{err: errors.New("535 bad credentials")}, logger.Discard(), admin.Config{})
	h.cli.svc = svc
	err := h.run(t, "test-connection")
	assert.ErrorContains(t, err, "535 bad credentials")
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, exitCode(nil, &stderr))
	assert.Equal(t, 2, exitCode(errHelp, &stderr))
	assert.Equal(t, 1, exitCode(errors.New("boom"), &stderr))
	assert.Contains(t, stderr.String(), "error: boom")
}
