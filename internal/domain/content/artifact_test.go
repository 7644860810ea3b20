package content

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsQuizDay(t *testing.T) {
	want := map[int]bool{0: false, 1: false, 2: false, 3: true, 4: false, 6: true, 9: true, 10: false}
	for day, quiz := range want {
		assert.Equal(t, quiz, IsQuizDay(day), "day %d", day)
	}
	assert.False(t, IsQuizDay(-3))
}

func TestMorningKey(t *testing.T) {
	assert.Equal(t, QuizKey(6), MorningKey(6))
	assert.Equal(t, LessonKey(5), MorningKey(5))
}

func TestKey_StringAndParse(t *testing.T) {
	date := time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC)
	keys := []Key{LessonKey(5), QuizKey(6), ReminderKey(7), MotivationKey(date)}
	want := []string{"lesson:5", "quiz:6", "reminder:7", "motivation:2026-10-15"}

	for i, k := range keys {
		assert.Equal(t, want[i], k.String())
		parsed, err := ParseKey(want[i])
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	for _, bad := range []string{"lesson", "lesson:0", "lesson:x", "essay:1", "motivation:15-10-2026"} {
		_, err := ParseKey(bad)
		assert.True(t, errors.Is(err, ErrInvalidKey), bad)
	}
}

func TestMotivationKey_UsesLocation(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)
	utc := time.Date(2026, 10, 15, 21, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-10-15", MotivationKey(utc).Date)
	assert.Equal(t, "2026-10-16", MotivationKey(utc.In(almaty)).Date)
}

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		body  string
		topic string
		found bool
	}{
		{"<!-- TOPIC: Variables -->\n<div>...</div>", "Variables", true},
		{"<!--topic:   List Comprehensions   -->", "List Comprehensions", true},
		{"<div>intro</div><!-- TOPIC: First --><!-- TOPIC: Second -->", "First", true},
		{"<!-- TOPIC: -->", DefaultTopic, false},
		{"<div>no marker</div>", DefaultTopic, false},
	}
	for _, tt := range tests {
		topic, found := ExtractTopic(tt.body)
		assert.Equal(t, tt.topic, topic, tt.body)
		assert.Equal(t, tt.found, found, tt.body)
	}
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "", FormatHistory(nil))
	assert.Equal(t, "Day 1: Intro; Day 2: Variables", FormatHistory([]TopicRecord{
		{Day: 1, Topic: "Intro"},
		{Day: 2, Topic: "Variables"},
	}))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "🎯 PyDaily Challenge: Day 3", Subject(MorningKey(3)))
	assert.Equal(t, "🐍 PyDaily: Day 4", Subject(MorningKey(4)))
	assert.Equal(t, "🌙 PyDaily Check-in: Day 4", Subject(ReminderKey(4)))
	assert.Equal(t, "⚡ PyDaily: Mid-Day Boost", Subject(MotivationKey(time.Now())))
}

func TestPhaseFor(t *testing.T) {
	cases := map[int]int{1: 1, 20: 1, 21: 2, 45: 2, 46: 3, 60: 3, 61: 4, 90: 4, 91: 5, 105: 5, 106: 6, 120: 6, 121: 1, 0: 1}
	for day, phase := range cases {
		assert.Equal(t, phase, PhaseFor(day).Number, "day %d", day)
	}
	assert.NotEmpty(t, PhaseFor(50).Goal)
}
