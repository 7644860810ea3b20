package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/pydaily/lessonbot/internal/application/admin"
	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/student"
)

// errHelp означает, что была выведена справка (неизвестная команда,
// неверные флаги или явный -h).
var errHelp = errors.New("help requested")

// readPasswordFunc читает пароль без эха; подменяется в тестах.
var readPasswordFunc = term.ReadPassword

// adminService - операции, доступные из командной строки.
type adminService interface {
	Enroll(ctx context.Context, req admin.EnrollRequest) (*student.Student, error)
	Remove(ctx context.Context, email string) error
	List(ctx context.Context) ([]*student.Student, error)
	ResetCohort(ctx context.Context) (*admin.ResetResult, error)
	Skip(ctx context.Context, email string, day int) error
	Pause(ctx context.Context, email string) error
	Resume(ctx context.Context, email string) error
	Complete(ctx context.Context, email string) error
	SetPassword(ctx context.Context, req admin.SetPasswordRequest) error
	InvalidateContent(ctx context.Context, key content.Key) error
	WipeContent(ctx context.Context) (int, error)
	TestConnection(ctx context.Context) error
}

// commandLine разбирает подкоманды и вызывает сервис.
type commandLine struct {
	svc    adminService
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// stdinFd - дескриптор терминала для ввода пароля; -1, если ввод не из
	// терминала.
	stdinFd int
}

type subcommand struct {
	usage string
	run   func(c *commandLine, ctx context.Context, args []string) error
}

// commandTable возвращает подкоманды по имени.
func commandTable() map[string]subcommand {
	return map[string]subcommand{
		"enroll":          {"enroll -email E -name N [-password P | -prompt]", (*commandLine).enroll},
		"remove":          {"remove -email E", (*commandLine).remove},
		"list":            {"list", (*commandLine).list},
		"reset-cohort":    {"reset-cohort -yes", (*commandLine).resetCohort},
		"skip":            {"skip -email E -day N", (*commandLine).skip},
		"pause":           {"pause -email E", emailCommand("pause", adminService.Pause)},
		"resume":          {"resume -email E", emailCommand("resume", adminService.Resume)},
		"complete":        {"complete -email E", emailCommand("complete", adminService.Complete)},
		"password":        {"password -email E", (*commandLine).password},
		"invalidate":      {"invalidate -kind lesson|quiz|reminder|motivation (-day N | -date YYYY-MM-DD)", (*commandLine).invalidate},
		"wipe-cache":      {"wipe-cache -yes", (*commandLine).wipeCache},
		"test-connection": {"test-connection", (*commandLine).testConnection},
	}
}

// Run выполняет одну подкоманду.
func (c *commandLine) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.usage()
		return errHelp
	}
	cmd, ok := commandTable()[args[0]]
	if !ok {
		if args[0] != "help" && args[0] != "-h" && args[0] != "--help" {
			fmt.Fprintf(c.stderr, "unknown command %q\n", args[0])
		}
		c.usage()
		return errHelp
	}
	return cmd.run(c, ctx, args[1:])
}

func (c *commandLine) usage() {
	table := commandTable()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(c.stderr, "usage: admin <command> [flags]")
	fmt.Fprintln(c.stderr, "commands:")
	for _, name := range names {
		fmt.Fprintf(c.stderr, "  %s\n", table[name].usage)
	}
}

// flags создаёт FlagSet подкоманды; ошибки разбора превращаются в errHelp.
func (c *commandLine) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: admin %s\n", commandTable()[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return errHelp
	}
	return nil
}

func required(fs *flag.FlagSet, values map[string]string) error {
	var missing []string
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	fmt.Fprintf(fs.Output(), "missing required flags: %s\n", strings.Join(missing, ", "))
	fs.Usage()
	return errHelp
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (c *commandLine) enroll(ctx context.Context, args []string) error {
	fs := c.flags("enroll")
	email := fs.String("email", "", "student email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "initial password (default "+admin.DefaultPassword+")")
	prompt := fs.Bool("prompt", false, "read the password from the terminal")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"email": *email, "name": *name}); err != nil {
		return err
	}

	if *prompt {
		p, err := c.readPassword("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}

	st, err := c.svc.Enroll(ctx, admin.EnrollRequest{Email: *email, Name: *name, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "enrolled %s (%s) on day %d\n", st.Email, st.Name, st.Day)
	if *password == "" {
		fmt.Fprintf(c.stdout, "default password assigned: %s\n", admin.DefaultPassword)
	}
	return nil
}

func (c *commandLine) remove(ctx context.Context, args []string) error {
	fs := c.flags("remove")
	email := fs.String("email", "", "student email")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"email": *email}); err != nil {
		return err
	}
	if err := c.svc.Remove(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "removed %s\n", *email)
	return nil
}

func (c *commandLine) list(ctx context.Context, args []string) error {
	if err := parse(c.flags("list"), args); err != nil {
		return err
	}
	all, err := c.svc.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tNAME\tDAY\tSTATUS")
	for _, st := range all {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", st.Email, st.Name, st.Day, st.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%d students\n", len(all))
	return nil
}

func (c *commandLine) resetCohort(ctx context.Context, args []string) error {
	fs := c.flags("reset-cohort")
	yes := fs.Bool("yes", false, "confirm resetting every student to day 1")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		fmt.Fprintln(c.stderr, "refusing to reset the cohort without -yes")
		return errHelp
	}

	res, err := c.svc.ResetCohort(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "reset %d of %d students\n", res.Reset, res.Total)
	for _, f := range res.Failures {
		fmt.Fprintf(c.stderr, "  %s: %v\n", f.Email, f.Err)
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d students could not be reset", len(res.Failures))
	}
	return nil
}

func (c *commandLine) skip(ctx context.Context, args []string) error {
	fs := c.flags("skip")
	email := fs.String("email", "", "student email")
	day := fs.Int("day", 0, "day to move the student to")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"email": *email}); err != nil {
		return err
	}
	if err := c.svc.Skip(ctx, *email, *day); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s moved to day %d\n", *email, *day)
	return nil
}

func emailCommand(name string, op func(adminService, context.Context, string) error) func(*commandLine, context.Context, []string) error {
	return func(c *commandLine, ctx context.Context, args []string) error {
		fs := c.flags(name)
		email := fs.String("email", "", "student email")
		if err := parse(fs, args); err != nil {
			return err
		}
		if err := required(fs, map[string]string{"email": *email}); err != nil {
			return err
		}
		if err := op(c.svc, ctx, *email); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%s: %s done\n", *email, name)
		return nil
	}
}

func (c *commandLine) password(ctx context.Context, args []string) error {
	fs := c.flags("password")
	email := fs.String("email", "", "student email")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"email": *email}); err != nil {
		return err
	}

	p, err := c.readPassword("New password: ")
	if err != nil {
		return err
	}
	if err := c.svc.SetPassword(ctx, admin.SetPasswordRequest{Email: *email, Password: p}); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "password updated for %s\n", *email)
	return nil
}

// readPassword читает пароль из терминала без эха либо первую строку stdin.
func (c *commandLine) readPassword(prompt string) (string, error) {
	fmt.Fprint(c.stderr, prompt)
	defer fmt.Fprintln(c.stderr)

	if c.stdinFd >= 0 {
		b, err := readPasswordFunc(c.stdinFd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT & TRANSPORT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (c *commandLine) invalidate(ctx context.Context, args []string) error {
	fs := c.flags("invalidate")
	rawKind := fs.String("kind", "", "artifact kind")
	day := fs.Int("day", 0, "lesson day (lesson, quiz, reminder)")
	date := fs.String("date", "", "calendar date YYYY-MM-DD (motivation)")
	if err := parse(fs, args); err != nil {
		return err
	}

	kind, err := content.ParseKind(*rawKind)
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		fs.Usage()
		return errHelp
	}
	key := content.Key{Kind: kind, Day: *day, Date: *date}
	if kind.IsDateKeyed() {
		key.Day = 0
	} else {
		key.Date = ""
	}
	if err := key.Validate(); err != nil {
		return err
	}

	if err := c.svc.InvalidateContent(ctx, key); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "invalidated %s\n", key)
	return nil
}

func (c *commandLine) wipeCache(ctx context.Context, args []string) error {
	fs := c.flags("wipe-cache")
	yes := fs.Bool("yes", false, "confirm deleting every cached artifact")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !*yes {
		fmt.Fprintln(c.stderr, "refusing to wipe the content cache without -yes")
		return errHelp
	}
	n, err := c.svc.WipeContent(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "deleted %d artifacts\n", n)
	return nil
}

func (c *commandLine) testConnection(ctx context.Context, args []string) error {
	if err := parse(c.flags("test-connection"), args); err != nil {
		return err
	}
	if err := c.svc.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Fprintln(c.stdout, "connection OK")
	return nil
}
