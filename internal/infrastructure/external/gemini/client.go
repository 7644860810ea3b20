// Package gemini implements the content generator on the Google Generative
// Language REST API (models/{model}:generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pydaily/lessonbot/pkg/circuitbreaker"
	"github.com/pydaily/lessonbot/pkg/logger"
	"github.com/pydaily/lessonbot/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-flash-latest"

	maxResponseBytes = 4 << 20
	maxErrorBytes    = 4096
)

// ErrMissingAPIKey is returned by NewClient without an API key.
var ErrMissingAPIKey = errors.New("gemini: API key is missing")

// ClientConfig contains configuration for the Gemini client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. https://generativelanguage.googleapis.com/v1beta
	BaseURL string

	// APIKey is sent in the x-goog-api-key header.
	APIKey string

	// Model is the model name without the "models/" prefix.
	Model string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// RateLimiterConfig spaces requests to stay inside the quota.
	RateLimiterConfig RateLimiterConfig

	// Retrier overrides retry.GeneratorRetrier.
	Retrier *retry.Retrier

	// Breaker overrides circuitbreaker.GeneratorBreaker.
	Breaker *circuitbreaker.CircuitBreaker

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		APIKey:            apiKey,
		Model:             DefaultModel,
		Timeout:           90 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Gemini API client. It satisfies lesson.Generator.
type Client struct {
	config     ClientConfig
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *RateLimiter
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new Gemini client.
func NewClient(config ClientConfig) (*Client, error) {
	config.APIKey = strings.TrimSpace(config.APIKey)
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	log := config.Logger.With("component", "gemini", "model", config.Model)

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	retrier := config.Retrier
	if retrier == nil {
		retrier = retry.GeneratorRetrier(func(attempt int, err error, delay time.Duration) {
			log.Warn("generation attempt failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		})
	}
	breaker := config.Breaker
	if breaker == nil {
		breaker = circuitbreaker.GeneratorBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		})
	}

	log.Info("gemini client configured", "api_key", logger.Mask(config.APIKey))

	return &Client{
		config:     config,
		endpoint:   strings.TrimRight(config.BaseURL, "/") + "/models/" + url.PathEscape(config.Model) + ":generateContent",
		httpClient: httpClient,
		logger:     log,
		limiter:    NewRateLimiter(config.RateLimiterConfig),
		retrier:    retrier,
		breaker:    breaker,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GenerateLesson writes the lesson of day, continuing from history.
func (c *Client) GenerateLesson(ctx context.Context, day int, history string) (string, error) {
	c.logger.Info("generating lesson", "day", day)
	return c.Generate(ctx, LessonPrompt(day, history))
}

// GenerateQuiz writes the quiz of a quiz day over history.
func (c *Client) GenerateQuiz(ctx context.Context, day int, history string) (string, error) {
	c.logger.Info("generating quiz", "day", day)
	return c.Generate(ctx, QuizPrompt(day, history))
}

// GenerateReminder writes the evening check-in of day.
func (c *Client) GenerateReminder(ctx context.Context, day int) (string, error) {
	c.logger.Info("generating reminder", "day", day)
	return c.Generate(ctx, ReminderPrompt(day))
}

// GenerateMotivation writes the mid-day boost.
func (c *Client) GenerateMotivation(ctx context.Context) (string, error) {
	c.logger.Info("generating motivation")
	return c.Generate(ctx, MotivationPrompt())
}

// Generate sends prompt with the PyDaily system instruction and returns the
// model text. Transient failures are retried; repeated failures open the
// breaker and later calls fail fast with circuitbreaker.ErrCircuitOpen.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("gemini: prompt is required")
	}

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = retry.DoWithData(ctx, c.retrier, func(ctx context.Context) (string, error) {
			return c.generateOnce(ctx, prompt)
		})
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// generateOnce performs a single HTTP request and marks the error for the
// retrier: throttling, 5xx and network errors are retryable, the rest
// permanent.
func (c *Client) generateOnce(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(GenerateRequest{
		SystemInstruction: &contentDTO{Parts: []partDTO{{Text: SystemInstruction}}},
		Contents:          []contentDTO{{Role: "user", Parts: []partDTO{{Text: prompt}}}},
	})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshal generate request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("build generate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", retry.Retryable(fmt.Errorf("generate request failed: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := readAPIError(res)
		if res.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimitHit(retryAfter(res.Header.Get("Retry-After")))
		}
		if apiErr.Temporary() {
			return "", retry.Retryable(apiErr)
		}
		return "", retry.Permanent(apiErr)
	}

	var payload GenerateResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return "", retry.Retryable(fmt.Errorf("decode generate response: %w", err))
	}

	text := payload.Text()
	if text == "" {
		reason := "empty response"
		if payload.PromptFeedback != nil && payload.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + payload.PromptFeedback.BlockReason
		} else if len(payload.Candidates) > 0 && payload.Candidates[0].FinishReason != "" {
			reason = "finish reason " + payload.Candidates[0].FinishReason
		}
		return "", retry.Permanent(fmt.Errorf("generate response missing text: %s", reason))
	}

	c.logger.Debug("generation completed", "duration", time.Since(start), "chars", len(text))
	return stripCodeFence(text), nil
}

func readAPIError(res *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBytes))
	apiErr := &APIError{StatusCode: res.StatusCode, Message: strings.TrimSpace(string(raw))}

	var dto APIErrorDTO
	if err := json.Unmarshal(raw, &dto); err == nil && dto.Err.Message != "" {
		apiErr.Message = dto.Err.Message
		apiErr.Status = dto.Err.Status
	}
	return apiErr
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// stripCodeFence unwraps ```html ... ``` blocks models sometimes emit
// despite the no-markdown instruction.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
