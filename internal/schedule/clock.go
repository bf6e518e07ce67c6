package schedule

import (
	"fmt"
	"strings"
	"time"
)

// OperatingClock reads the current time in the coach's fixed operating offset.
type OperatingClock struct {
	loc *time.Location
	now func() time.Time
}

// NewOperatingClock returns a clock that reports time.Now in loc.
func NewOperatingClock(loc *time.Location) *OperatingClock {
	if loc == nil {
		loc = time.UTC
	}
	return &OperatingClock{loc: loc, now: time.Now}
}

// WithNow returns a copy of the clock driven by fn. Used by tests and the CLI.
func (c *OperatingClock) WithNow(fn func() time.Time) *OperatingClock {
	return &OperatingClock{loc: c.loc, now: fn}
}

// Now is the current instant in the operating location.
func (c *OperatingClock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today is the current calendar day in the operating location.
func (c *OperatingClock) Today() Date {
	return DateOf(c.Now())
}

func (c *OperatingClock) Location() *time.Location {
	return c.loc
}

// Normalize expresses t in the operating location.
func (c *OperatingClock) Normalize(t time.Time) time.Time {
	return t.In(c.loc)
}

// At builds the instant for a slot on a given day.
func (c *OperatingClock) At(d Date, t TimeOfDay) time.Time {
	return t.On(d, c.loc)
}

// ParseUTCOffset turns "+05:30", "-05:00", "Z" or "UTC" into a fixed zone.
func ParseUTCOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "Z", "UTC", "+00:00", "-00:00":
		return time.UTC, nil
	}
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return nil, fmt.Errorf("invalid utc offset %q, expected ±HH:MM", s)
	}
	t, err := time.Parse("15:04", s[1:])
	if err != nil {
		return nil, fmt.Errorf("invalid utc offset %q: %w", s, err)
	}
	seconds := (t.Hour()*60 + t.Minute()) * 60
	if seconds > 14*3600 {
		return nil, fmt.Errorf("utc offset %q out of range", s)
	}
	if s[0] == '-' {
		seconds = -seconds
	}
	return time.FixedZone("UTC"+s, seconds), nil
}
