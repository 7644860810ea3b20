package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/student"
)

type studentRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	Name         string `db:"name"`
	Day          int    `db:"day"`
	Status       string `db:"status"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r studentRow) toDomain() (*student.Student, error) {
	status, err := student.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("student %s: %w", r.Email, err)
	}
	return &student.Student{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		Day:          r.Day,
		Status:       status,
		PasswordHash: r.PasswordHash,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:    time.UnixMilli(r.UpdatedAt).UTC(),
	}, nil
}

const studentColumns = `id, email, name, day, status, password_hash, created_at, updated_at`

// ListStudents returns every student ordered by email.
func (s *Store) ListStudents(ctx context.Context) ([]*student.Student, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var rows []studentRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+studentColumns+` FROM students ORDER BY email`); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	out := make([]*student.Student, 0, len(rows))
	for _, row := range rows {
		st, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// GetStudent returns the student with email.
func (s *Store) GetStudent(ctx context.Context, email string) (*student.Student, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var row studentRow
	err := s.db.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM students WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, student.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return row.toDomain()
}

// CreateStudent inserts st; an existing email yields ErrStudentAlreadyExists.
func (s *Store) CreateStudent(ctx context.Context, st *student.Student) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	created, updated := st.CreatedAt, st.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO students (`+studentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING
`,
		st.ID, st.Email, st.Name, st.Day, string(st.Status), st.PasswordHash,
		created.UnixMilli(), updated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	if n == 0 {
		return student.ErrStudentAlreadyExists
	}
	return nil
}

// UpdateStudent applies the non-nil fields of upd.
func (s *Store) UpdateStudent(ctx context.Context, email string, upd student.Update) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := upd.Validate(); err != nil {
		return err
	}

	var day sql.NullInt64
	if upd.Day != nil {
		day = sql.NullInt64{Int64: int64(*upd.Day), Valid: true}
	}
	var status sql.NullString
	if upd.Status != nil {
		status = sql.NullString{String: string(*upd.Status), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE students
SET day = COALESCE(?, day),
    status = COALESCE(?, status),
    updated_at = ?
WHERE email = ?
`, day, status, time.Now().UTC().UnixMilli(), email)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireOneRow(res, "update student")
}

// SetPasswordHash replaces the password hash.
func (s *Store) SetPasswordHash(ctx context.Context, email, hash string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET password_hash = ?, updated_at = ? WHERE email = ?`,
		hash, time.Now().UTC().UnixMilli(), email)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return requireOneRow(res, "set password hash")
}

// DeleteStudent removes the student.
func (s *Store) DeleteStudent(ctx context.Context, email string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireOneRow(res, "delete student")
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return student.ErrStudentNotFound
	}
	return nil
}
