package lesson

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROVIDER
// Cache-or-generate for a single key.
// ══════════════════════════════════════════════════════════════════════════════

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	// GenerateTimeout bounds a single generator call.
	GenerateTimeout time.Duration
}

// DefaultProviderConfig returns the default configuration.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{GenerateTimeout: 2 * time.Minute}
}

// Provider returns cached artifacts and generates missing ones.
type Provider struct {
	cache     *Cache
	history   *History
	generator Generator
	logger    *slog.Logger
	timeout   time.Duration
}

// NewProvider creates a Provider.
func NewProvider(cache *Cache, history *History, generator Generator, logger *slog.Logger, config ProviderConfig) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if config.GenerateTimeout <= 0 {
		config = DefaultProviderConfig()
	}
	return &Provider{
		cache:     cache,
		history:   history,
		generator: generator,
		logger:    logger,
		timeout:   config.GenerateTimeout,
	}
}

// Fetch returns the artifact for key, generating and caching it on a miss.
//
// Generator failures and blank bodies are returned as ErrGenerationFailed and
// leave the cache untouched, so the next run tries again.
func (p *Provider) Fetch(ctx context.Context, key content.Key) (*content.Artifact, error) {
	cached, err := p.cache.Get(ctx, key)
	if err == nil {
		p.logger.Debug("content cache hit", "key", key.String())
		return cached, nil
	}
	if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("failed to read cache for %s: %w", key, err)
	}

	p.logger.Info("content cache miss, generating", "key", key.String())

	body, err := p.generate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, key, err)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: %s: empty body", ErrGenerationFailed, key)
	}

	a := &content.Artifact{Key: key, Body: body, CreatedAt: time.Now().UTC()}
	if err := p.cache.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (p *Provider) generate(ctx context.Context, key content.Key) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch key.Kind {
	case content.KindLesson:
		return p.generator.GenerateLesson(genCtx, key.Day, p.history.UpTo(ctx, key.Day-1))
	case content.KindQuiz:
		return p.generator.GenerateQuiz(genCtx, key.Day, p.history.UpTo(ctx, key.Day))
	case content.KindReminder:
		return p.generator.GenerateReminder(genCtx, key.Day)
	case content.KindMotivation:
		return p.generator.GenerateMotivation(genCtx)
	default:
		return "", content.ErrInvalidKey
	}
}
