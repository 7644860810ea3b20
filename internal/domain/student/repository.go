package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракт ростера. Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Roster - долговременное хранилище студентов.
type Roster interface {
	// ListStudents возвращает всех студентов, упорядоченных по email.
	ListStudents(ctx context.Context) ([]*Student, error)

	// GetStudent возвращает студента по email.
	// Возвращает ErrStudentNotFound, если студент не найден.
	GetStudent(ctx context.Context, email string) (*Student, error)

	// CreateStudent сохраняет нового студента.
	// Возвращает ErrStudentAlreadyExists, если email занят.
	CreateStudent(ctx context.Context, student *Student) error

	// UpdateStudent применяет частичное обновление дня и/или статуса.
	// Возвращает ErrStudentNotFound, если студент не найден.
	UpdateStudent(ctx context.Context, email string, upd Update) error

	// SetPasswordHash заменяет хэш пароля.
	SetPasswordHash(ctx context.Context, email, hash string) error

	// DeleteStudent удаляет студента.
	// Возвращает ErrStudentNotFound, если студент не найден.
	DeleteStudent(ctx context.Context, email string) error
}

// Update - частичное обновление прогресса. Nil-поля не меняются.
type Update struct {
	Day    *int
	Status *Status
}

// IsEmpty возвращает true, если ни одно поле не задано.
func (u Update) IsEmpty() bool {
	return u.Day == nil && u.Status == nil
}

// Validate проверяет значения обновления.
func (u Update) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Day != nil && *u.Day < FirstDay {
		return ErrInvalidDay
	}
	if u.Status != nil && !u.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Apply применяет обновление к сущности.
func (u Update) Apply(s *Student) {
	if u.Day != nil {
		s.Day = *u.Day
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
}

// StatusUpdate - обновление только статуса.
func StatusUpdate(status Status) Update {
	return Update{Status: &status}
}

// ProgressUpdate - обновление дня и статуса.
func ProgressUpdate(day int, status Status) Update {
	return Update{Day: &day, Status: &status}
}

// GroupByDay разбивает студентов на группы по текущему дню.
// Порядок внутри группы сохраняется.
func GroupByDay(students []*Student) map[int][]*Student {
	groups := make(map[int][]*Student)
	for _, s := range students {
		groups[s.Day] = append(groups[s.Day], s)
	}
	return groups
}

// FilterByStatus возвращает студентов с одним из указанных статусов.
func FilterByStatus(students []*Student, statuses ...Status) []*Student {
	var out []*Student
	for _, s := range students {
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
