// Package student содержит доменную модель студента PyDaily.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package student

import (
	"net/mail"
	"strings"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет положение студента в дневном цикле уроков.
type Status string

const (
	// StatusPending - студент ждёт урок текущего дня.
	StatusPending Status = "pending"
	// StatusLessonSent - урок текущего дня доставлен, ждём вечернее напоминание.
	StatusLessonSent Status = "lesson_sent"
	// StatusComplete - студент прошёл программу.
	StatusComplete Status = "complete"
	// StatusPaused - рассылка приостановлена администратором.
	StatusPaused Status = "paused"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusLessonSent, StatusComplete, StatusPaused:
		return true
	default:
		return false
	}
}

// IsActive возвращает true, если студент участвует в циклах рассылки.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusLessonSent
}

// String возвращает строковое представление статуса.
func (s Status) String() string {
	return string(s)
}

// ParseStatus разбирает строку из хранилища.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", shared.WrapError("student", "ParseStatus", shared.ErrInvalidInput, "unknown status "+raw, ErrInvalidStatus)
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// FirstDay - день, с которого начинается программа.
const FirstDay = 1

// Student - центральная сущность системы: подписчик на ежедневные уроки.
type Student struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID string

	// Email - уникальный ключ студента (нормализованный).
	Email string

	// Name - отображаемое имя, подставляется в письма.
	Name string

	// Day - текущий день программы (>= 1).
	Day int

	// Status - положение в дневном цикле.
	Status Status

	// PasswordHash - bcrypt-хэш пароля для портала (может быть пустым).
	PasswordHash string

	// CreatedAt - время создания записи.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidEmail - невалидный email.
	ErrInvalidEmail = shared.NewDomainError("student", "Validate", shared.ErrInvalidInput, "invalid email address")

	// ErrInvalidName - невалидное имя.
	ErrInvalidName = shared.NewDomainError("student", "Validate", shared.ErrInvalidInput, "invalid name: must be 1-100 chars")

	// ErrInvalidDay - день вне допустимого диапазона.
	ErrInvalidDay = shared.NewDomainError("student", "Validate", shared.ErrValueOutOfRange, "invalid day: must be >= 1")

	// ErrInvalidStatus - невалидный статус.
	ErrInvalidStatus = shared.NewDomainError("student", "Validate", shared.ErrInvalidInput, "invalid student status")

	// ErrInvalidTransition - недопустимый переход статуса.
	ErrInvalidTransition = shared.NewDomainError("student", "Transition", shared.ErrStateTransition, "invalid status transition")

	// ErrEmptyUpdate - обновление без полей.
	ErrEmptyUpdate = shared.NewDomainError("student", "Update", shared.ErrEmptyValue, "update has no fields")

	// ErrStudentNotFound - студент не найден.
	ErrStudentNotFound = shared.NewDomainError("student", "Find", shared.ErrNotFound, "student not found")

	// ErrStudentAlreadyExists - студент уже существует.
	ErrStudentAlreadyExists = shared.NewDomainError("student", "Create", shared.ErrAlreadyExists, "student already exists")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams содержит параметры для создания нового студента.
type NewStudentParams struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
}

// NewStudent создаёт нового студента: день 1, статус pending.
func NewStudent(params NewStudentParams) (*Student, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, shared.NewDomainError("student", "Validate", shared.ErrEmptyValue, "student id is required")
	}

	email, err := NormalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidName
	}

	now := time.Now().UTC()

	return &Student{
		ID:           params.ID,
		Email:        email,
		Name:         name,
		Day:          FirstDay,
		Status:       StatusPending,
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail приводит адрес к каноническому виду и проверяет формат.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Validate проверяет инварианты сущности.
func (s *Student) Validate() error {
	if _, err := NormalizeEmail(s.Email); err != nil {
		return err
	}
	if s.Day < FirstDay {
		return ErrInvalidDay
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// MarkLessonSent фиксирует доставку утреннего урока: pending → lesson_sent.
// День не меняется.
func (s *Student) MarkLessonSent() error {
	if s.Status != StatusPending {
		return s.transitionError(StatusLessonSent)
	}
	s.Status = StatusLessonSent
	s.touch()
	return nil
}

// Advance фиксирует доставку вечернего напоминания: lesson_sent → pending, день + 1.
func (s *Student) Advance() error {
	if s.Status != StatusLessonSent {
		return s.transitionError(StatusPending)
	}
	s.Status = StatusPending
	s.Day++
	s.touch()
	return nil
}

// Pause приостанавливает рассылку для активного студента.
func (s *Student) Pause() error {
	if !s.Status.IsActive() {
		return s.transitionError(StatusPaused)
	}
	s.Status = StatusPaused
	s.touch()
	return nil
}

// Resume возвращает приостановленного студента в цикл с того же дня.
func (s *Student) Resume() error {
	if s.Status != StatusPaused {
		return s.transitionError(StatusPending)
	}
	s.Status = StatusPending
	s.touch()
	return nil
}

// Complete отмечает окончание программы.
func (s *Student) Complete() error {
	if s.Status == StatusComplete {
		return s.transitionError(StatusComplete)
	}
	s.Status = StatusComplete
	s.touch()
	return nil
}

// ResetTo ставит студента на указанный день в статусе pending.
// Используется для сброса когорты (день 1).
func (s *Student) ResetTo(day int) error {
	if day < FirstDay {
		return ErrInvalidDay
	}
	s.Day = day
	s.Status = StatusPending
	s.touch()
	return nil
}

// SkipTo переносит студента вперёд на указанный день.
func (s *Student) SkipTo(day int) error {
	if day <= s.Day {
		return shared.WrapError("student", "SkipTo", shared.ErrValueOutOfRange, "skip target must be after the current day", ErrInvalidDay)
	}
	return s.ResetTo(day)
}

// Progress возвращает частичное обновление с текущими днём и статусом.
func (s *Student) Progress() Update {
	day, status := s.Day, s.Status
	return Update{Day: &day, Status: &status}
}

func (s *Student) transitionError(to Status) error {
	return shared.WrapError("student", "Transition", shared.ErrStateTransition,
		string(s.Status)+" -> "+string(to)+" for "+s.Email, ErrInvalidTransition)
}

func (s *Student) touch() {
	s.UpdatedAt = time.Now().UTC()
}
