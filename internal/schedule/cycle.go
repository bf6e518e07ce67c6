package schedule

import "time"

// Cycle is one billing cycle, both ends inclusive at day granularity.
type Cycle struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether d falls inside the cycle.
func (c Cycle) Contains(d Date) bool {
	return !d.Before(c.Start) && !d.After(c.End)
}

// ResetsOn is the first day of the following cycle.
func (c Cycle) ResetsOn() Date {
	return c.End.AddDays(1)
}

// Window returns the half-open instant range [Start 00:00, ResetsOn 00:00) in loc.
func (c Cycle) Window(loc *time.Location) (from, to time.Time) {
	return c.Start.Midnight(loc), c.ResetsOn().Midnight(loc)
}

// CurrentCycle computes the billing cycle that contains now.
//
// The cycle starts on the most recent day <= now whose day-of-month matches the
// anchor's, clamped to the last day of shorter months (anchor 31 -> Feb 28/29),
// and ends the day before the next such start. With no anchor the cycle is the
// calendar month. now is read in its own location, the anchor as a civil date.
func CurrentCycle(anchor *time.Time, now time.Time) Cycle {
	today := DateOf(now)
	if anchor == nil || anchor.IsZero() {
		return Cycle{
			Start: Date{Year: today.Year, Month: today.Month, Day: 1},
			End:   Date{Year: today.Year, Month: today.Month, Day: daysIn(today.Year, today.Month)},
		}
	}

	day := anchor.Day()
	start := clampedDate(today.Year, today.Month, day)
	if start.After(today) {
		y, m := shiftMonth(today.Year, today.Month, -1)
		start = clampedDate(y, m, day)
	}
	ny, nm := shiftMonth(start.Year, start.Month, 1)
	next := clampedDate(ny, nm, day)

	return Cycle{Start: start, End: next.AddDays(-1)}
}
