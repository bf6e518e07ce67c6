package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrOffGrid       = errors.New("time is not on the slot grid")
	ErrOutsideHours  = errors.New("time is outside business hours")
	ErrSlotInThePast = errors.New("slot is in the past")
)

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOf builds a TimeOfDay from hours and minutes.
func TimeOf(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf returns the wall-clock time of t in t's location and whether
// t sits exactly on a minute boundary.
func TimeOfDayOf(t time.Time) (TimeOfDay, bool) {
	exact := t.Second() == 0 && t.Nanosecond() == 0
	return TimeOfDay(t.Hour()*60 + t.Minute()), exact
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On anchors the time of day to date d in loc.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, loc)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Grid is the fixed, ordered set of bookable times of day.
type Grid struct {
	slots []TimeOfDay
	index map[TimeOfDay]struct{}
}

// DefaultGrid is the coach's calendar: every 30 minutes from 08:00 through 17:30,
// plus a trailing 18:00 slot (21 slots).
func DefaultGrid() Grid {
	return NewGrid(TimeOf(8, 0), TimeOf(17, 30), 30*time.Minute, TimeOf(18, 0))
}

// NewGrid builds the evenly spaced slots first..last (inclusive) every step,
// then appends any extra slots in order.
func NewGrid(first, last TimeOfDay, step time.Duration, extra ...TimeOfDay) Grid {
	stepMin := int(step / time.Minute)
	if stepMin <= 0 {
		stepMin = 30
	}
	g := Grid{index: make(map[TimeOfDay]struct{})}
	for t := first; t <= last; t += TimeOfDay(stepMin) {
		g.add(t)
	}
	for _, t := range extra {
		g.add(t)
	}
	return g
}

func (g *Grid) add(t TimeOfDay) {
	if _, dup := g.index[t]; dup {
		return
	}
	g.index[t] = struct{}{}
	g.slots = append(g.slots, t)
}

// Slots returns a copy of the grid in order.
func (g Grid) Slots() []TimeOfDay {
	out := make([]TimeOfDay, len(g.slots))
	copy(out, g.slots)
	return out
}

func (g Grid) Len() int { return len(g.slots) }

// Opens is the first bookable time of day.
func (g Grid) Opens() TimeOfDay {
	if len(g.slots) == 0 {
		return 0
	}
	return g.slots[0]
}

// Closes is the last bookable time of day.
func (g Grid) Closes() TimeOfDay {
	if len(g.slots) == 0 {
		return 0
	}
	return g.slots[len(g.slots)-1]
}

// Contains reports whether t is a bookable slot.
func (g Grid) Contains(t TimeOfDay) bool {
	_, ok := g.index[t]
	return ok
}

// Validate explains why t is not bookable, or returns nil.
func (g Grid) Validate(t TimeOfDay) error {
	if t < g.Opens() || t > g.Closes() {
		return fmt.Errorf("%w: %s not within %s-%s", ErrOutsideHours, t, g.Opens(), g.Closes())
	}
	if !g.Contains(t) {
		return fmt.Errorf("%w: %s", ErrOffGrid, t)
	}
	return nil
}

// ValidateInstant checks that at (already in the operating location) lies on
// the grid and strictly after now.
func (g Grid) ValidateInstant(at, now time.Time) error {
	if !at.After(now) {
		return fmt.Errorf("%w: %s", ErrSlotInThePast, at.Format(time.RFC3339))
	}
	tod, exact := TimeOfDayOf(at)
	if !exact {
		return fmt.Errorf("%w: %s has seconds", ErrOffGrid, at.Format(time.RFC3339))
	}
	return g.Validate(tod)
}
