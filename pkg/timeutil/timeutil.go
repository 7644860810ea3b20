// Package timeutil provides timezone-aware clocks. Date-keyed content (the
// mid-day motivation) depends on which calendar day it is for the cohort,
// not for the server.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// LocalClock returns the wall time in a fixed location.
type LocalClock struct {
	Location *time.Location
}

// NewLocalClock returns a clock for loc; nil means UTC.
func NewLocalClock(loc *time.Location) LocalClock {
	if loc == nil {
		loc = time.UTC
	}
	return LocalClock{Location: loc}
}

// Now returns the current time in the clock's location.
func (c LocalClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// FixedClock always returns T. Used in tests and for backfills.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// LoadLocation resolves a timezone name. Besides IANA names it accepts fixed
// offsets like "UTC+5" or "UTC-03:30", which work on hosts without tzdata.
// An empty name means UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc, nil
	}

	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "UTC") || len(upper) < 5 {
		return nil, fmt.Errorf("unknown timezone %q", name)
	}
	sign := 1
	switch upper[3] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("unknown timezone %q", name)
	}

	hh, mm, _ := strings.Cut(upper[4:], ":")
	hours, err := strconv.Atoi(hh)
	if err != nil || hours > 14 {
		return nil, fmt.Errorf("invalid offset in timezone %q", name)
	}
	minutes := 0
	if mm != "" {
		if minutes, err = strconv.Atoi(mm); err != nil || minutes >= 60 {
			return nil, fmt.Errorf("invalid offset in timezone %q", name)
		}
	}
	return time.FixedZone(upper, sign*(hours*3600+minutes*60)), nil
}
