// Package memory implements the roster and content stores in process memory.
// It backs tests and single-shot dry runs; nothing survives the process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/student"
)

// Roster is a concurrency-safe in-memory student.Roster.
type Roster struct {
	mu       sync.RWMutex
	students map[string]*student.Student
}

// NewRoster creates a roster seeded with copies of students.
func NewRoster(students ...*student.Student) *Roster {
	r := &Roster{students: make(map[string]*student.Student)}
	for _, s := range students {
		c := *s
		r.students[s.Email] = &c
	}
	return r
}

// ListStudents returns copies ordered by email.
func (r *Roster) ListStudents(ctx context.Context) ([]*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*student.Student, 0, len(r.students))
	for _, s := range r.students {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// GetStudent returns a copy of the student with email.
func (r *Roster) GetStudent(ctx context.Context, email string) (*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.students[email]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	c := *s
	return &c, nil
}

// CreateStudent stores a copy of s.
func (r *Roster) CreateStudent(ctx context.Context, s *student.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[s.Email]; ok {
		return student.ErrStudentAlreadyExists
	}
	c := *s
	r.students[s.Email] = &c
	return nil
}

// UpdateStudent applies upd to the stored student.
func (r *Roster) UpdateStudent(ctx context.Context, email string, upd student.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := upd.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[email]
	if !ok {
		return student.ErrStudentNotFound
	}
	upd.Apply(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetPasswordHash replaces the stored hash.
func (r *Roster) SetPasswordHash(ctx context.Context, email, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[email]
	if !ok {
		return student.ErrStudentNotFound
	}
	s.PasswordHash = hash
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteStudent removes the student with email.
func (r *Roster) DeleteStudent(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[email]; !ok {
		return student.ErrStudentNotFound
	}
	delete(r.students, email)
	return nil
}
