package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pydaily/lessonbot/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Roster for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `id, email, name, day, status, password_hash, created_at, updated_at`

// ListStudents returns every student ordered by email.
func (r *StudentRepository) ListStudents(ctx context.Context) ([]*student.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []*student.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return out, nil
}

// GetStudent returns a student by email.
func (r *StudentRepository) GetStudent(ctx context.Context, email string) (*student.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE email = $1`, email)
	s, err := scanStudent(row)
	if IsNoRows(err) {
		return nil, student.ErrStudentNotFound
	}
	return s, err
}

// CreateStudent inserts a new student.
func (r *StudentRepository) CreateStudent(ctx context.Context, s *student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	created, updated := s.CreatedAt, s.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Email, s.Name, s.Day, string(s.Status), s.PasswordHash, created, updated)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// UpdateStudent applies a partial day/status update.
func (r *StudentRepository) UpdateStudent(ctx context.Context, email string, upd student.Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var status *string
	if upd.Status != nil {
		v := string(*upd.Status)
		status = &v
	}

	tag, err := r.conn.Exec(ctx, `
		UPDATE students SET
			day = COALESCE($1::integer, day),
			status = COALESCE($2::varchar, status)
		WHERE email = $3
	`, upd.Day, status, email)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored bcrypt hash.
func (r *StudentRepository) SetPasswordHash(ctx context.Context, email, hash string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `UPDATE students SET password_hash = $1 WHERE email = $2`, hash, email)
	if err != nil {
		return fmt.Errorf("failed to set password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}
	return nil
}

// DeleteStudent removes a student.
func (r *StudentRepository) DeleteStudent(ctx context.Context, email string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := r.conn.Exec(ctx, `DELETE FROM students WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		s      student.Student
		status string
	)
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Day, &status, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.Status, err = student.ParseStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, fmt.Errorf("student %s: %w", s.Email, err)
	}
	return &s, nil
}
