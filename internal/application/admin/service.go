// Package admin implements operator overrides on the roster and the
// content cache: enrollment, progress resets and skips, pausing, password
// resets and cache invalidation.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pydaily/lessonbot/internal/domain/content"
	"github.com/pydaily/lessonbot/internal/domain/student"
)

// DefaultPassword is assigned when enrollment does not provide one.
const DefaultPassword = "ChangeMe123!"

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// ContentCache is the part of the lesson cache the operator may clear.
type ContentCache interface {
	Invalidate(ctx context.Context, key content.Key) error
	Wipe(ctx context.Context) (int, error)
}

// ConnectionTester checks mail transport credentials.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUESTS & RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// EnrollRequest adds a student.
type EnrollRequest struct {
	Email    string `name:"email" validate:"required,email"`
	Name     string `name:"name" validate:"notblank,max=100"`
	Password string `name:"password" validate:"omitempty,min=8,max=72"`
}

// SetPasswordRequest replaces a student's password.
type SetPasswordRequest struct {
	Email    string `name:"email" validate:"required,email"`
	Password string `name:"password" validate:"required,min=8,max=72"`
}

// ResetFailure is one student ResetCohort could not reset.
type ResetFailure struct {
	Email string
	Err   error
}

// ResetResult is returned by ResetCohort.
type ResetResult struct {
	Total    int
	Reset    int
	Failures []ResetFailure
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Config configures the Service.
type Config struct {
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Service applies admin overrides.
type Service struct {
	roster    student.Roster
	cache     ContentCache
	tester    ConnectionTester
	validator *requestValidator
	logger    *slog.Logger
	cost      int
}

// NewService creates a Service. cache and tester may be nil when the caller
// does not need the corresponding operations.
func NewService(roster student.Roster, cache ContentCache, tester ConnectionTester, logger *slog.Logger, config Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		roster:    roster,
		cache:     cache,
		tester:    tester,
		validator: newRequestValidator(),
		logger:    logger,
		cost:      config.BcryptCost,
	}
}

// Enroll creates a student on day 1, pending. An empty password is replaced
// by DefaultPassword.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*student.Student, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	password := req.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	st, err := student.NewStudent(student.NewStudentParams{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	if err := s.roster.CreateStudent(ctx, st); err != nil {
		return nil, fmt.Errorf("admin: enroll %s: %w", st.Email, err)
	}

	s.logger.Info("student enrolled", "recipient", st.Email, "default_password", req.Password == "")
	return st, nil
}

// Remove deletes a student.
func (s *Service) Remove(ctx context.Context, email string) error {
	email, err := student.NormalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.roster.DeleteStudent(ctx, email); err != nil {
		return fmt.Errorf("admin: remove %s: %w", email, err)
	}
	s.logger.Info("student removed", "recipient", email)
	return nil
}

// List returns every student ordered by email.
func (s *Service) List(ctx context.Context) ([]*student.Student, error) {
	return s.roster.ListStudents(ctx)
}

// ResetCohort moves every student back to day 1, pending. It continues past
// individual failures and reports them.
func (s *Service) ResetCohort(ctx context.Context) (*ResetResult, error) {
	all, err := s.roster.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin: reset cohort: %w", err)
	}

	res := &ResetResult{Total: len(all)}
	for _, st := range all {
		err := st.ResetTo(student.FirstDay)
		if err == nil {
			err = s.roster.UpdateStudent(ctx, st.Email, st.Progress())
		}
		if err != nil {
			s.logger.Error("reset failed", "recipient", st.Email, "error", err)
			res.Failures = append(res.Failures, ResetFailure{Email: st.Email, Err: err})
			continue
		}
		res.Reset++
	}

	s.logger.Info("cohort reset", "reset", res.Reset, "failed", len(res.Failures))
	return res, nil
}

// Skip moves a student to day, pending.
func (s *Service) Skip(ctx context.Context, email string, day int) error {
	return s.transition(ctx, email, "skip", func(st *student.Student) error { return st.SkipTo(day) })
}

// Pause stops a student from receiving cycles.
func (s *Service) Pause(ctx context.Context, email string) error {
	return s.transition(ctx, email, "pause", (*student.Student).Pause)
}

// Resume puts a paused student back to pending on the same day.
func (s *Service) Resume(ctx context.Context, email string) error {
	return s.transition(ctx, email, "resume", (*student.Student).Resume)
}

// Complete marks a student as having finished the program.
func (s *Service) Complete(ctx context.Context, email string) error {
	return s.transition(ctx, email, "complete", (*student.Student).Complete)
}

// transition loads the student, applies fn on the entity so the domain
// rules decide legality, then persists the resulting progress.
func (s *Service) transition(ctx context.Context, email, op string, fn func(*student.Student) error) error {
	email, err := student.NormalizeEmail(email)
	if err != nil {
		return err
	}
	st, err := s.roster.GetStudent(ctx, email)
	if err != nil {
		return fmt.Errorf("admin: %s %s: %w", op, email, err)
	}
	if err := fn(st); err != nil {
		return fmt.Errorf("admin: %s %s: %w", op, email, err)
	}
	if err := s.roster.UpdateStudent(ctx, email, st.Progress()); err != nil {
		return fmt.Errorf("admin: %s %s: %w", op, email, err)
	}
	s.logger.Info("student updated", "op", op, "recipient", email, "day", st.Day, "status", st.Status.String())
	return nil
}

// SetPassword replaces a student's password hash.
func (s *Service) SetPassword(ctx context.Context, req SetPasswordRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	email, err := student.NormalizeEmail(req.Email)
	if err != nil {
		return err
	}
	hash, err := s.hash(req.Password)
	if err != nil {
		return err
	}
	if err := s.roster.SetPasswordHash(ctx, email, hash); err != nil {
		return fmt.Errorf("admin: set password %s: %w", email, err)
	}
	s.logger.Info("password reset", "recipient", email)
	return nil
}

// ErrNotConfigured is returned when an operation's collaborator is missing.
var ErrNotConfigured = errors.New("admin: operation not configured")

// InvalidateContent removes one cached artifact so it is generated again.
func (s *Service) InvalidateContent(ctx context.Context, key content.Key) error {
	if s.cache == nil {
		return ErrNotConfigured
	}
	if err := s.cache.Invalidate(ctx, key); err != nil {
		return fmt.Errorf("admin: invalidate %s: %w", key, err)
	}
	s.logger.Info("content invalidated", "key", key.String())
	return nil
}

// WipeContent removes every cached artifact and topic record.
func (s *Service) WipeContent(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, ErrNotConfigured
	}
	n, err := s.cache.Wipe(ctx)
	if err != nil {
		return n, fmt.Errorf("admin: wipe content: %w", err)
	}
	s.logger.Info("content wiped", "artifacts", n)
	return n, nil
}

// TestConnection checks the mail transport.
func (s *Service) TestConnection(ctx context.Context) error {
	if s.tester == nil {
		return ErrNotConfigured
	}
	return s.tester.TestConnection(ctx)
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("admin: hash password: %w", err)
	}
	return string(b), nil
}
