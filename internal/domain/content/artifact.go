// Package content models generated lesson material: artifacts keyed by
// (kind, day) or by calendar date, and the topic index built from lessons.
package content

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pydaily/lessonbot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// KIND
// ══════════════════════════════════════════════════════════════════════════════

// Kind is the type of a generated artifact.
type Kind string

const (
	KindLesson     Kind = "lesson"
	KindQuiz       Kind = "quiz"
	KindReminder   Kind = "reminder"
	KindMotivation Kind = "motivation"
)

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindLesson, KindQuiz, KindReminder, KindMotivation:
		return true
	default:
		return false
	}
}

// IsDateKeyed reports whether artifacts of this kind are keyed by calendar date.
func (k Kind) IsDateKeyed() bool {
	return k == KindMotivation
}

// ParseKind parses a kind name.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.IsValid() {
		return "", shared.WrapError("content", "ParseKind", shared.ErrInvalidInput, "unknown kind "+raw, ErrInvalidKey)
	}
	return k, nil
}

// IsQuizDay reports whether the morning artifact for day is a quiz.
func IsQuizDay(day int) bool {
	return day > 0 && day%3 == 0
}

// ══════════════════════════════════════════════════════════════════════════════
// KEY
// ══════════════════════════════════════════════════════════════════════════════

// DateLayout is the calendar date format used for date-keyed artifacts.
const DateLayout = "2006-01-02"

// Key identifies one artifact. Day is set for day-keyed kinds, Date for
// date-keyed kinds.
type Key struct {
	Kind Kind
	Day  int
	Date string
}

// LessonKey returns the key of the lesson for day.
func LessonKey(day int) Key { return Key{Kind: KindLesson, Day: day} }

// QuizKey returns the key of the quiz for day.
func QuizKey(day int) Key { return Key{Kind: KindQuiz, Day: day} }

// ReminderKey returns the key of the evening reminder for day.
func ReminderKey(day int) Key { return Key{Kind: KindReminder, Day: day} }

// MotivationKey returns the key of the motivation artifact for the calendar
// date of t in t's location.
func MotivationKey(t time.Time) Key {
	return Key{Kind: KindMotivation, Date: t.Format(DateLayout)}
}

// MorningKey selects the quiz or lesson key for day.
func MorningKey(day int) Key {
	if IsQuizDay(day) {
		return QuizKey(day)
	}
	return LessonKey(day)
}

// String returns the storage form, e.g. "lesson:5" or "motivation:2026-10-15".
func (k Key) String() string {
	if k.Kind.IsDateKeyed() {
		return string(k.Kind) + ":" + k.Date
	}
	return string(k.Kind) + ":" + strconv.Itoa(k.Day)
}

// Validate checks that the key is well formed for its kind.
func (k Key) Validate() error {
	if !k.Kind.IsValid() {
		return ErrInvalidKey
	}
	if k.Kind.IsDateKeyed() {
		if _, err := time.Parse(DateLayout, k.Date); err != nil {
			return shared.WrapError("content", "Validate", shared.ErrInvalidInput, "bad date "+k.Date, ErrInvalidKey)
		}
		return nil
	}
	if k.Day < 1 {
		return shared.WrapError("content", "Validate", shared.ErrValueOutOfRange, fmt.Sprintf("bad day %d", k.Day), ErrInvalidKey)
	}
	return nil
}

// ParseKey parses the String form of a key.
func ParseKey(raw string) (Key, error) {
	kindPart, rest, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Key{}, ErrInvalidKey
	}
	kind, err := ParseKind(kindPart)
	if err != nil {
		return Key{}, err
	}

	key := Key{Kind: kind}
	if kind.IsDateKeyed() {
		key.Date = rest
	} else {
		day, err := strconv.Atoi(rest)
		if err != nil {
			return Key{}, ErrInvalidKey
		}
		key.Day = day
	}
	return key, key.Validate()
}

// ══════════════════════════════════════════════════════════════════════════════
// ARTIFACT & TOPIC
// ══════════════════════════════════════════════════════════════════════════════

// Artifact is a generated text body. Once stored it is treated as immutable
// until explicitly invalidated.
type Artifact struct {
	Key       Key
	Body      string
	Topic     string
	CreatedAt time.Time
}

// TopicRecord is the topic label of the lesson taught on Day.
type TopicRecord struct {
	Day   int
	Topic string
}

// DefaultTopic is recorded when a lesson carries no topic marker.
const DefaultTopic = "General Python"

var topicMarker = regexp.MustCompile(`(?i)<!--\s*TOPIC:\s*(.*?)\s*-->`)

// ExtractTopic returns the label from the first <!-- TOPIC: ... --> marker.
// The second result is false when no usable marker exists and DefaultTopic
// was returned instead.
func ExtractTopic(body string) (string, bool) {
	m := topicMarker.FindStringSubmatch(body)
	if m == nil {
		return DefaultTopic, false
	}
	topic := strings.TrimSpace(m[1])
	if topic == "" {
		return DefaultTopic, false
	}
	return topic, true
}

// FormatHistory renders topic records as "Day 1: Intro; Day 2: Variables".
// Records must already be in ascending day order.
func FormatHistory(records []TopicRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, fmt.Sprintf("Day %d: %s", r.Day, r.Topic))
	}
	return strings.Join(parts, "; ")
}

// Subject returns the email subject line for an artifact.
func Subject(key Key) string {
	switch key.Kind {
	case KindQuiz:
		return fmt.Sprintf("🎯 PyDaily Challenge: Day %d", key.Day)
	case KindLesson:
		return fmt.Sprintf("🐍 PyDaily: Day %d", key.Day)
	case KindReminder:
		return fmt.Sprintf("🌙 PyDaily Check-in: Day %d", key.Day)
	default:
		return "⚡ PyDaily: Mid-Day Boost"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrArtifactNotFound is returned on a cache miss.
	ErrArtifactNotFound = shared.NewDomainError("content", "Get", shared.ErrNotFound, "artifact not found")

	// ErrInvalidKey is returned for malformed keys.
	ErrInvalidKey = shared.NewDomainError("content", "Validate", shared.ErrInvalidInput, "invalid artifact key")

	// ErrEmptyBody is returned when saving an artifact with no body.
	ErrEmptyBody = shared.NewDomainError("content", "Save", shared.ErrEmptyValue, "artifact body is empty")
)
