package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	ref := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	loc, err = LoadLocation("UTC+5")
	require.NoError(t, err)
	_, offset := ref.In(loc).Zone()
	assert.Equal(t, 5*3600, offset)

	loc, err = LoadLocation("utc-03:30")
	require.NoError(t, err)
	_, offset = ref.In(loc).Zone()
	assert.Equal(t, -(3*3600 + 30*60), offset)

	for _, bad := range []string{"Mars/Olympus", "UTC+x", "UTC+15", "UTC+5:75", "UTC*5"} {
		_, err := LoadLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestClocks(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, FixedClock{T: fixed}.Now())

	loc := time.FixedZone("UTC+5", 5*3600)
	assert.Equal(t, loc, NewLocalClock(loc).Now().Location())
	assert.Equal(t, time.UTC, NewLocalClock(nil).Now().Location())
}
