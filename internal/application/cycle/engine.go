// Package cycle contains the lesson cycle engine: one run selects the
// students a cycle applies to, groups them by day, fetches the artifact for
// each group once, dispatches it and advances progress only for groups that
// were fully delivered.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/student"
	"github.com/pydaily/lessonbot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MODE
// ══════════════════════════════════════════════════════════════════════════════

// Mode selects which cycle a run performs.
type Mode string

const (
	// ModeMorning sends the day's lesson (or quiz) to pending students.
	ModeMorning Mode = "morning"

	// ModeEvening sends the reminder to lesson_sent students and moves them
	// to the next day.
	ModeEvening Mode = "evening"

	// ModeMotivation sends the date's motivation note to every active
	// student without touching the roster.
	ModeMotivation Mode = "motivation"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeMorning, ModeEvening, ModeMotivation}

// ErrUnknownMode is returned by ParseMode.
var ErrUnknownMode = errors.New("unknown cycle mode")

// ParseMode parses a mode name, case-insensitively.
func ParseMode(raw string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want morning, evening or motivation)", ErrUnknownMode, raw)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// ContentProvider returns the artifact for a key, generating it when needed.
type ContentProvider interface {
	Fetch(ctx context.Context, key content.Key) (*content.Artifact, error)
}

// Recipient is one addressee of a group send.
type Recipient struct {
	Email string
	Name  string
}

// FailedRecipient is a recipient the sender could not deliver to.
type FailedRecipient struct {
	Email  string
	Reason string
}

// Delivery is the outcome of one group send.
type Delivery struct {
	Delivered []string
	Skipped   []string
	Failed    []FailedRecipient

	// Err is set when the send failed as a whole, e.g. the session could not
	// be opened.
	Err error
}

// OK reports whether nothing failed.
func (d Delivery) OK() bool {
	return d.Err == nil && len(d.Failed) == 0
}

// Reasons renders every failure as "email: reason".
func (d Delivery) Reasons() []string {
	var out []string
	if d.Err != nil {
		out = append(out, d.Err.Error())
	}
	for _, f := range d.Failed {
		out = append(out, f.Email+": "+f.Reason)
	}
	return out
}

// Sender delivers one subject/body to a group of recipients.
type Sender interface {
	Send(ctx context.Context, recipients []Recipient, subject, body string) Delivery
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Config configures the engine.
type Config struct {
	// GroupTimeout bounds content fetch plus dispatch for one group.
	GroupTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{GroupTimeout: 10 * time.Minute}
}

// Engine runs cycles. It holds no state between runs.
type Engine struct {
	roster  student.Roster
	content ContentProvider
	sender  Sender
	clock   timeutil.Clock
	logger  *slog.Logger
	config  Config
}

// NewEngine creates an engine. A nil clock means UTC wall time.
func NewEngine(
	roster student.Roster,
	provider ContentProvider,
	sender Sender,
	clock timeutil.Clock,
	logger *slog.Logger,
	config Config,
) *Engine {
	if clock == nil {
		clock = timeutil.NewLocalClock(time.UTC)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.GroupTimeout <= 0 {
		config = DefaultConfig()
	}
	return &Engine{
		roster:  roster,
		content: provider,
		sender:  sender,
		clock:   clock,
		logger:  logger,
		config:  config,
	}
}

// group is one unit of work: the members share a key and an update.
type group struct {
	day     int
	key     content.Key
	members []*student.Student
	// advance is the domain transition applied to each delivered member;
	// nil means the roster is not touched.
	advance func(*student.Student) error
}

// Run performs one cycle. The error is non-nil only when the run could not
// start (the roster could not be listed) or ctx was cancelled between groups;
// group failures are recorded in the report.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Report, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	report := newReport(uuid.NewString(), mode, e.clock.Now())
	log := e.logger.With("run_id", report.RunID, "mode", string(mode))
	log.Info("cycle started")

	students, err := e.roster.ListStudents(ctx)
	if err != nil {
		report.finish(e.clock.Now())
		log.Error("cycle aborted: roster unavailable", "error", err)
		return report, fmt.Errorf("cycle: failed to list students: %w", err)
	}

	groups := e.plan(mode, students)
	if len(groups) == 0 {
		log.Info("no students eligible for this cycle", "roster_size", len(students))
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			report.finish(e.clock.Now())
			return report, fmt.Errorf("cycle: interrupted: %w", err)
		}
		report.add(e.runGroup(ctx, log, g))
	}

	report.finish(e.clock.Now())
	log.Info("cycle finished",
		"sent", report.Sent,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"recipients", report.Recipients,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// plan builds the groups for mode in ascending day order.
func (e *Engine) plan(mode Mode, students []*student.Student) []group {
	switch mode {
	case ModeMorning:
		return byDay(student.FilterByStatus(students, student.StatusPending), content.MorningKey,
			(*student.Student).MarkLessonSent)

	case ModeEvening:
		return byDay(student.FilterByStatus(students, student.StatusLessonSent), content.ReminderKey,
			(*student.Student).Advance)

	case ModeMotivation:
		active := student.FilterByStatus(students, student.StatusPending, student.StatusLessonSent)
		if len(active) == 0 {
			return nil
		}
		return []group{{key: content.MotivationKey(e.clock.Now()), members: active}}
	}
	return nil
}

func byDay(students []*student.Student, keyFor func(int) content.Key, advance func(*student.Student) error) []group {
	grouped := student.GroupByDay(students)
	days := make([]int, 0, len(grouped))
	for d := range grouped {
		days = append(days, d)
	}
	sort.Ints(days)

	groups := make([]group, 0, len(days))
	for _, d := range days {
		groups = append(groups, group{day: d, key: keyFor(d), members: grouped[d], advance: advance})
	}
	return groups
}

// runGroup fetches, sends and, if every member was delivered, applies the
// progress update. Any failure leaves the whole group untouched.
func (e *Engine) runGroup(ctx context.Context, log *slog.Logger, g group) GroupOutcome {
	out := GroupOutcome{
		Day:        g.day,
		Key:        g.key.String(),
		Recipients: emails(g.members),
	}
	log = log.With("day", g.day, "key", out.Key, "group_size", len(g.members))

	// Transitions are applied to copies up front so a member that cannot
	// make the move fails the group before anything is sent.
	progressed, err := transitionAll(g)
	if err != nil {
		log.Error("illegal transition, group left untouched", "error", err)
		return out.fail(err.Error())
	}

	gctx, cancel := context.WithTimeout(ctx, e.config.GroupTimeout)
	defer cancel()

	artifact, err := e.content.Fetch(gctx, g.key)
	if err != nil {
		log.Error("content unavailable, group left untouched", "error", err)
		return out.fail(err.Error())
	}

	recipients := make([]Recipient, 0, len(g.members))
	for _, m := range g.members {
		recipients = append(recipients, Recipient{Email: m.Email, Name: m.Name})
	}

	delivery := e.sender.Send(gctx, recipients, content.Subject(g.key), artifact.Body)
	out.Delivered = delivery.Delivered
	if !delivery.OK() {
		log.Error("dispatch failed, group left untouched", "reasons", strings.Join(delivery.Reasons(), "; "))
		return out.fail(delivery.Reasons()...)
	}
	if len(delivery.Delivered) == 0 {
		log.Warn("nothing delivered, group skipped", "skipped", len(delivery.Skipped))
		out.Status = OutcomeSkipped
		return out
	}

	if progressed == nil {
		log.Info("group sent")
		out.Status = OutcomeSent
		return out
	}

	delivered := make(map[string]bool, len(delivery.Delivered))
	for _, email := range delivery.Delivered {
		delivered[email] = true
	}

	var reasons []string
	for _, m := range progressed {
		if !delivered[m.Email] {
			continue
		}
		if err := e.roster.UpdateStudent(ctx, m.Email, m.Progress()); err != nil {
			log.Error("roster update failed after send", "recipient", m.Email, "error", err)
			reasons = append(reasons, fmt.Sprintf("%s: update failed: %v", m.Email, err))
		}
	}
	if len(reasons) > 0 {
		return out.fail(reasons...)
	}

	log.Info("group sent and advanced")
	out.Status = OutcomeSent
	return out
}

// transitionAll applies g.advance to a copy of every member. It returns nil
// when the group does not touch the roster.
func transitionAll(g group) ([]*student.Student, error) {
	if g.advance == nil {
		return nil, nil
	}
	out := make([]*student.Student, 0, len(g.members))
	for _, m := range g.members {
		next := *m
		if err := g.advance(&next); err != nil {
			return nil, err
		}
		out = append(out, &next)
	}
	return out, nil
}

func emails(members []*student.Student) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Email)
	}
	return out
}
