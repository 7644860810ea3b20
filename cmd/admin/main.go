// Package main - административная утилита PyDaily.
//
// Команды меняют ростер (зачисление, сброс, пропуск дней, пауза) и кэш
// контента (инвалидация, полная очистка), а также проверяют почтовый
// транспорт. Запуск без аргументов печатает список команд.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/pydaily/lessonbot/config"
	"github.com/pydaily/lessonbot/internal/application/admin"
	"github.com/pydaily/lessonbot/internal/bootstrap"
	"github.com/pydaily/lessonbot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) int {
	// Справку печатаем без конфигурации и хранилищ.
	if len(args) == 0 {
		(&commandLine{stderr: stderr}).usage()
		return 2
	}
	if _, ok := commandTable()[args[0]]; !ok {
		_ = (&commandLine{stderr: stderr}).Run(ctx, args)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Логи - в stderr, чтобы stdout оставался для вывода команд.
	log := logger.New(logger.Options{
		Env:       string(cfg.App.Environment),
		Debug:     cfg.App.Debug,
		Output:    stderr,
		Component: "admin",
	})

	app, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open stores: %v\n", err)
		return 1
	}
	defer app.Close()

	// Транспорт нужен только для test-connection; без учётных данных
	// команда вернёт admin.ErrNotConfigured.
	var tester admin.ConnectionTester
	if err := cfg.ValidateTransport(); err != nil {
		log.Debug("mail transport not configured", "error", err)
	} else if transport, err := app.Transport(stdout); err == nil {
		tester = app.Sender(transport)
	}

	fd := -1
	if stdin != nil && term.IsTerminal(int(stdin.Fd())) {
		fd = int(stdin.Fd())
	}

	cli := &commandLine{
		svc:     app.Admin(tester),
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		stdinFd: fd,
	}
	return exitCode(cli.Run(ctx, args), stderr)
}

// exitCode переводит ошибку команды в код завершения.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}
