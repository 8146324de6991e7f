// Package clock provides current-time and civil-day computations in the
// fixed campus timezone, independent of how dates are stored.
package clock

import (
	"fmt"
	"time"
)

// Clock is the time source every service consults. Day boundaries are
// always computed in the civil timezone, never in the storage timezone.
type Clock interface {
	Now() time.Time
	// TodayStart returns midnight of the current civil day.
	TodayStart() time.Time
	// CivilDate truncates a timestamp to its civil calendar date (midnight).
	CivilDate(t time.Time) time.Time
	// DayRange returns the inclusive start and exclusive end of the civil
	// day containing t.
	DayRange(t time.Time) (start, end time.Time)
	// IsPastCutoff reports whether the current civil wall-clock time is at
	// or past the given "HH:MM" cutoff.
	IsPastCutoff(cutoff string) bool
}

type civilClock struct {
	loc *time.Location
}

// New creates a Clock fixed to the named IANA timezone.
func New(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &civilClock{loc: loc}, nil
}

func (c *civilClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *civilClock) TodayStart() time.Time {
	return c.CivilDate(c.Now())
}

func (c *civilClock) CivilDate(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

func (c *civilClock) DayRange(t time.Time) (time.Time, time.Time) {
	start := c.CivilDate(t)
	return start, start.AddDate(0, 0, 1)
}

func (c *civilClock) IsPastCutoff(cutoff string) bool {
	hhmm, err := ParseWallClock(cutoff)
	if err != nil {
		return false
	}
	now := c.Now()
	mark := time.Date(now.Year(), now.Month(), now.Day(), hhmm.Hour, hhmm.Minute, 0, 0, c.loc)
	return !now.Before(mark)
}

// WallClock is a timezone-less "HH:MM" time of day.
type WallClock struct {
	Hour   int
	Minute int
}

// ParseWallClock parses an "HH:MM" string.
func ParseWallClock(s string) (WallClock, error) {
	var w WallClock
	if _, err := fmt.Sscanf(s, "%d:%d", &w.Hour, &w.Minute); err != nil {
		return WallClock{}, fmt.Errorf("parse wall clock %q: %w", s, err)
	}
	if w.Hour < 0 || w.Hour > 23 || w.Minute < 0 || w.Minute > 59 {
		return WallClock{}, fmt.Errorf("wall clock %q out of range", s)
	}
	return w, nil
}

// String renders the zero-padded "HH:MM" form.
func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// AddHours returns the wall-clock time n hours later, clamped to the same day.
func (w WallClock) AddHours(n int) WallClock {
	h := w.Hour + n
	if h > 23 {
		h = 23
	}
	return WallClock{Hour: h, Minute: w.Minute}
}
