package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pydaily/lessonbot/pkg/circuitbreaker"
	"github.com/pydaily/lessonbot/pkg/logger"
	"github.com/pydaily/lessonbot/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("test-key-1234567890")
	cfg.BaseURL = srv.URL
	cfg.RateLimiterConfig = RateLimiterConfig{}
	cfg.Retrier = retry.New(retry.WithMaxAttempts(3), retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0))
	cfg.Breaker = circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	cfg.Logger = logger.Discard()

	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c, &calls
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(DefaultClientConfig("  "))
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateLesson_SendsPromptAndReturnsText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-flash-latest:generateContent", r.URL.Path)
		assert.Equal(t, "test-key-1234567890", r.Header.Get("x-goog-api-key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		assert.Contains(t, req.SystemInstruction.Parts[0].Text, `"PyDaily"`)
		require.Len(t, req.Contents, 1)
		prompt := req.Contents[0].Parts[0].Text
		assert.Contains(t, prompt, "Day 4")
		assert.Contains(t, prompt, "Day 1: Intro; Day 2: Variables")
		assert.Contains(t, prompt, "<!-- TOPIC:")

		writeText(w, "<!-- TOPIC: Loops -->\n<div>lesson</div>")
	})

	text, err := c.GenerateLesson(context.Background(), 4, "Day 1: Intro; Day 2: Variables")
	require.NoError(t, err)
	assert.Equal(t, "<!-- TOPIC: Loops -->\n<div>lesson</div>", text)
}

func TestGenerate_RetriesTransientFailures(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		writeText(w, "ok")
	})

	text, err := c.GenerateReminder(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestGenerate_DoesNotRetryClientErrors(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.GenerateMotivation(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, "API key not valid", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGenerate_BlankTextIsAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := c.GenerateQuiz(context.Background(), 3, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGenerate_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	for i := 0; i < 2; i++ {
		_, err := c.GenerateMotivation(context.Background())
		require.Error(t, err)
	}
	_, err := c.GenerateMotivation(context.Background())
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "<div>x</div>", stripCodeFence("```html\n<div>x</div>\n```"))
	assert.Equal(t, "<div>x</div>", stripCodeFence("<div>x</div>"))
}

func TestPrompts(t *testing.T) {
	assert.Contains(t, LessonPrompt(1, ""), "very first lesson (Day 1)")
	assert.Contains(t, LessonPrompt(1, ""), "#3776AB")
	assert.Contains(t, LessonPrompt(25, "Day 24: Sets"), "CURRICULUM PHASE 2")

	quiz := QuizPrompt(6, "Day 1: Intro")
	assert.Contains(t, quiz, "Total Questions: 15")
	assert.Contains(t, quiz, "Pass mark: 12/15")
	assert.Contains(t, quiz, "Days 1-6")

	reminder := ReminderPrompt(7)
	assert.Contains(t, reminder, "Pro Tip")
	assert.Contains(t, reminder, "I'm Ready for Day 8")

	assert.Contains(t, MotivationPrompt(), "#F59E0B")
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 60, BurstSize: 2})
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	_, ok := rl.tryAcquire()
	assert.True(t, ok)
	_, ok = rl.tryAcquire()
	assert.True(t, ok)
	wait, ok := rl.tryAcquire()
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	now = now.Add(time.Second)
	_, ok = rl.tryAcquire()
	assert.True(t, ok)

	rl.RecordRateLimitHit(30 * time.Second)
	wait, ok = rl.tryAcquire()
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	unlimited := NewRateLimiter(RateLimiterConfig{})
	require.NoError(t, unlimited.Wait(context.Background()))
}
