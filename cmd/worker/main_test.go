package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pydaily/lessonbot/internal/application/cycle"
	"github.com/pydaily/lessonbot/pkg/logger"
)

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseFlags([]string{"-mode", "Evening", "-timeout", "5m", "-strict"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, cycle.ModeEvening, opts.mode)
	assert.Equal(t, 5*time.Minute, opts.timeout)
	assert.True(t, opts.strict)
}

func TestRun_UsageErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"missing mode": nil,
		"unknown mode": {"-mode", "midnight"},
		"extra args":   {"-mode", "morning", "now"},
		"bad flag":     {"-fast"},
	} {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), args, &stdout, &stderr)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr.String(), "usage: worker")
		})
	}
}

func TestRun_MissingCredentialsFailsBeforeWork(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "never-created.db")
	t.Setenv("PYDAILY_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("EMAIL_ADDRESS", "")
	t.Setenv("EMAIL_PASSWORD", "")
	t.Setenv("MAIL_TRANSPORT", "smtp")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-mode", "morning"}, &stdout, &stderr)

	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr.String(), "GEMINI_API_KEY is required")
	assert.Contains(t, stderr.String(), "EMAIL_ADDRESS is required")
	assert.NoFileExists(t, dbPath)
}

func TestFinish_StrictMode(t *testing.T) {
	report := &cycle.Report{Mode: cycle.ModeMorning, Failed: 1, Groups: []cycle.GroupOutcome{
		{Day: 2, Key: "lesson:2", Status: cycle.OutcomeFailed, Reasons: []string{"b@x.com: boom"}},
	}}

	assert.Equal(t, exitOK, finish(logger.Discard(), report, false))
	assert.Equal(t, exitFailed, finish(logger.Discard(), report, true))
}
