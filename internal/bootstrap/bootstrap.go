// Package bootstrap builds the object graph shared by the worker and admin
// commands from a validated configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pydaily/lessonbot/config"
	"github.com/pydaily/lessonbot/internal/application/admin"
	"github.com/pydaily/lessonbot/internal/application/cycle"
	"github.com/pydaily/lessonbot/internal/application/lesson"
	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/student"
	"github.com/pydaily/lessonbot/internal/infrastructure/external/gemini"
	"github.com/pydaily/lessonbot/internal/infrastructure/external/mail"
	"github.com/pydaily/lessonbot/internal/infrastructure/persistence/postgres"
	"github.com/pydaily/lessonbot/internal/infrastructure/persistence/redis"
	"github.com/pydaily/lessonbot/internal/infrastructure/persistence/sqlite"
	"github.com/pydaily/lessonbot/internal/infrastructure/service"
	"github.com/pydaily/lessonbot/pkg/retry"
	"github.com/pydaily/lessonbot/pkg/timeutil"
)

// App holds the opened stores and builds the services on top of them.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Roster student.Roster
	Cache  *lesson.Cache

	// Lock is nil when Redis is disabled.
	Lock *redis.CycleLock

	artifacts content.Store
	topics    content.TopicIndex
	closers   []func()
}

// Open connects to the configured stores. Redis failures downgrade to running
// without the cache tier and the run lock; store failures are fatal.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	app := &App{Config: cfg, Logger: log}

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	app.openRedis(ctx)

	app.Cache = lesson.NewCache(app.artifacts, app.topics)
	return app, nil
}

// Close releases every connection opened by Open, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) storeRetrier() *retry.Retrier {
	return retry.StoreRetrier(func(attempt int, err error, delay time.Duration) {
		a.Logger.Warn("store connection failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// STORES
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config.Store
	switch cfg.Driver {
	case config.StorePostgres:
		pgCfg := postgres.DefaultConfig(cfg.DatabaseURL)
		pgCfg.MaxConns = cfg.MaxConns
		pgCfg.MinConns = cfg.MinConns
		pgCfg.QueryTimeout = cfg.QueryTimeout

		a.Logger.Info("connecting to postgres...")
		conn, err := retry.DoWithData(ctx, a.storeRetrier(), func(ctx context.Context) (*postgres.Connection, error) {
			return postgres.NewConnection(ctx, pgCfg)
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.onClose(func() {
			a.Logger.Info("closing database connection...")
			conn.Close()
		})

		if err := postgres.Migrate(ctx, conn); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.Logger.Info("database schema is up to date")

		repo := postgres.NewContentRepository(conn)
		a.Roster = postgres.NewStudentRepository(conn)
		a.artifacts, a.topics = repo, repo

	case config.StoreSQLite:
		a.Logger.Info("opening sqlite store...", "path", cfg.SQLitePath)
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.onClose(func() {
			if err := store.Close(); err != nil {
				a.Logger.Warn("sqlite close failed", "error", err)
			}
		})
		a.Roster, a.artifacts, a.topics = store, store, store

	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	return nil
}

func (a *App) openRedis(ctx context.Context) {
	cfg := a.Config.Redis
	if !cfg.Enabled {
		return
	}

	rcfg := redis.DefaultConfig()
	rcfg.Host = cfg.Host
	rcfg.Port = cfg.Port
	rcfg.Password = cfg.Password
	rcfg.DB = cfg.DB

	a.Logger.Info("connecting to Redis...", "addr", rcfg.Addr())
	cache, err := redis.NewCache(ctx, rcfg)
	if err != nil {
		a.Logger.Warn("failed to connect to Redis, content tier and run lock disabled", "error", err)
		return
	}
	a.onClose(func() { _ = cache.Close() })

	a.artifacts = redis.NewContentCache(a.artifacts, cache, cfg.ContentTTL, a.Logger)
	a.Lock = redis.NewCycleLock(cache, cfg.LockTTL)
	a.Logger.Info("Redis connection established")
}

// ─────────────────────────────────────────────────────────────────────────────
// SERVICES
// ─────────────────────────────────────────────────────────────────────────────

// Transport builds the configured mail transport. Console output goes to out.
func (a *App) Transport(out io.Writer) (mail.Transport, error) {
	m := a.Config.Mail
	switch m.Transport {
	case config.TransportSMTP:
		return mail.NewSMTPTransport(mail.SMTPConfig{
			Host:     m.SMTPHost,
			Port:     m.SMTPPort,
			Username: m.From,
			Password: m.Password,
		}), nil
	case config.TransportSendGrid:
		return mail.NewSendGridTransport(mail.SendGridConfig{
			APIKey:   m.SendGridAPIKey,
			FromName: "PyDaily",
		}), nil
	case config.TransportConsole:
		return mail.NewConsoleTransport(out), nil
	}
	return nil, fmt.Errorf("unsupported mail transport %q", m.Transport)
}

// Sender builds the dispatcher behind a cycle.Sender.
func (a *App) Sender(transport mail.Transport) *service.MailSender {
	m := a.Config.Mail
	if m.TestMode && m.AdminEmail == "" {
		a.Logger.Warn("TEST_MODE is on without ADMIN_EMAIL: recipients will be skipped")
	}
	return service.NewMailSender(mail.NewDispatcher(mail.DispatcherConfig{
		Transport:   transport,
		From:        m.Sender(),
		SandboxMode: m.TestMode,
		AdminEmail:  m.AdminEmail,
		SendTimeout: m.SendTimeout,
		Logger:      a.Logger,
	}))
}

// Generator builds the Gemini client.
func (a *App) Generator() (*gemini.Client, error) {
	g := a.Config.Generator
	gcfg := gemini.DefaultClientConfig(g.APIKey)
	gcfg.Model = g.Model
	gcfg.Timeout = g.Timeout
	gcfg.Logger = a.Logger
	if g.BaseURL != "" {
		gcfg.BaseURL = g.BaseURL
	}
	return gemini.NewClient(gcfg)
}

// Provider builds the cache-or-generate provider over the opened stores.
func (a *App) Provider(gen lesson.Generator) *lesson.Provider {
	return lesson.NewProvider(
		a.Cache,
		lesson.NewHistory(a.topics, a.Logger),
		gen,
		a.Logger,
		// Every client attempt plus backoff.
		lesson.ProviderConfig{GenerateTimeout: a.Config.Generator.Timeout * 4},
	)
}

// Engine builds the cycle engine. The clock follows APP_TIMEZONE.
func (a *App) Engine(gen lesson.Generator, sender cycle.Sender) *cycle.Engine {
	return cycle.NewEngine(
		a.Roster,
		a.Provider(gen),
		sender,
		timeutil.NewLocalClock(a.Config.App.Location),
		a.Logger,
		cycle.DefaultConfig(),
	)
}

// Admin builds the admin service. tester may be nil.
func (a *App) Admin(tester admin.ConnectionTester) *admin.Service {
	return admin.NewService(a.Roster, a.Cache, tester, a.Logger, admin.Config{})
}

// ErrRunInProgress is returned by AcquireRun when another run holds the lock.
var ErrRunInProgress = errors.New("another run in progress")

// AcquireRun takes the cycle lock for mode when Redis is configured. The
// returned release is always safe to call.
func (a *App) AcquireRun(ctx context.Context, mode cycle.Mode) (func(), error) {
	if a.Lock == nil {
		return func() {}, nil
	}
	release, err := a.Lock.Acquire(ctx, "cycle:"+string(mode))
	if errors.Is(err, redis.ErrLockHeld) {
		return func() {}, ErrRunInProgress
	}
	if err != nil {
		a.Logger.Warn("cycle lock unavailable, running without it", "error", err)
		return func() {}, nil
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			a.Logger.Warn("cycle lock release failed", "error", err)
		}
	}, nil
}
