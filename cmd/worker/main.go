// Package main - точка входа для запуска одного цикла рассылки PyDaily.
//
// Worker не содержит планировщика: его запускает внешний cron
// (утро, полдень, вечер). Каждый запуск:
// - загружает и проверяет конфигурацию до любой работы;
// - открывает хранилища (SQLite или PostgreSQL, опционально Redis);
// - берёт блокировку цикла, если Redis включён;
// - выполняет цикл и печатает сводку.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pydaily/lessonbot/config"
	"github.com/pydaily/lessonbot/internal/application/cycle"
	"github.com/pydaily/lessonbot/internal/bootstrap"
	"github.com/pydaily/lessonbot/pkg/logger"
)

// Коды завершения процесса.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// ══════════════════════════════════════════════════════════════════════════════
// FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// options - параметры командной строки.
type options struct {
	mode    cycle.Mode
	timeout time.Duration
	strict  bool
}

// parseFlags разбирает аргументы. Ошибка означает неверное использование.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	fs.SetOutput(stderr)

	rawMode := fs.String("mode", "", "cycle to run: morning, evening or motivation")
	timeout := fs.Duration("timeout", 0, "abort the run after this long (default CYCLE_TIMEOUT)")
	strict := fs.Bool("strict", false, "exit 1 when any group failed")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: worker -mode morning|evening|motivation [-timeout 10m] [-strict]\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	mode, err := cycle.ParseMode(*rawMode)
	if err != nil {
		fs.Usage()
		return nil, err
	}
	if *timeout < 0 {
		return nil, errors.New("-timeout must not be negative")
	}
	return &options{mode: mode, timeout: *timeout, strict: *strict}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Отменяем цикл по SIGINT/SIGTERM: незавершённые группы останутся
	// в прежнем статусе и будут выбраны следующим запуском.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. АРГУМЕНТЫ
	// ─────────────────────────────────────────────────────────────────────────
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitUsage
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. КОНФИГУРАЦИЯ (до любой работы с хранилищами)
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitFailed
	}
	if err := cfg.ValidateCycle(); err != nil {
		fmt.Fprintf(stderr, "cycle is not configured: %v\n", err)
		return exitFailed
	}

	log := logger.New(logger.Options{
		Env:       string(cfg.App.Environment),
		Debug:     cfg.App.Debug,
		Output:    stdout,
		Component: "worker",
	})
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	log.Info("starting PyDaily worker",
		"mode", string(opts.mode),
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
		"store", string(cfg.Store.Driver),
		"transport", string(cfg.Mail.Transport),
	)

	timeout := opts.timeout
	if timeout == 0 {
		timeout = cfg.Cycle.RunTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩА И ЗАВИСИМОСТИ
	// ─────────────────────────────────────────────────────────────────────────
	app, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open stores", "error", err)
		return exitFailed
	}
	defer app.Close()

	gen, err := app.Generator()
	if err != nil {
		log.Error("failed to create content generator", "error", err)
		return exitFailed
	}
	transport, err := app.Transport(stdout)
	if err != nil {
		log.Error("failed to create mail transport", "error", err)
		return exitFailed
	}
	engine := app.Engine(gen, app.Sender(transport))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. БЛОКИРОВКА И ЗАПУСК ЦИКЛА
	// ─────────────────────────────────────────────────────────────────────────
	release, err := app.AcquireRun(ctx, opts.mode)
	if errors.Is(err, bootstrap.ErrRunInProgress) {
		log.Info("another run in progress, exiting", "mode", string(opts.mode))
		return exitOK
	}
	defer release()

	report, err := engine.Run(ctx, opts.mode)
	if err != nil {
		log.Error("cycle failed", "error", err)
		return exitFailed
	}

	return finish(log, report, opts.strict)
}

// finish печатает сводку и выбирает код завершения.
func finish(log *slog.Logger, report *cycle.Report, strict bool) int {
	for _, g := range report.FailedGroups() {
		log.Warn("group failed", "key", g.Key, "day", g.Day, "reasons", g.Reasons)
	}
	log.Info(report.Summary(), "run_id", report.RunID)

	if strict && !report.OK() {
		return exitFailed
	}
	return exitOK
}
