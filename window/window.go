// Package window computes the reporting intervals used for contact center
// queries. Connect only accepts end times on five minute boundaries.
package window

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const Granularity = 5 * time.Minute

type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("%s/%s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// Floor rounds t down to the previous five minute boundary in its location
// and drops sub-second precision.
func Floor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()-t.Minute()%5, 0, 0, t.Location())
}

// StartOfDay is midnight of the day containing t, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Today spans from midnight to now floored. Right after midnight the window
// would be empty, so it falls back to the previous day.
func Today(now time.Time) Window {
	end := Floor(now)
	start := StartOfDay(end)
	if !start.Before(end) {
		start = start.AddDate(0, 0, -1)
	}
	return Window{Start: start, End: end}
}

// LastHour is the hour ending at now floored.
func LastHour(now time.Time) Window {
	end := Floor(now)
	return Window{Start: end.Add(-time.Hour), End: end}
}

// Snapshot is a zero length window at now floored, used for realtime
// metrics which are not queried over an interval.
func Snapshot(now time.Time) Window {
	end := Floor(now)
	return Window{Start: end, End: end}
}

// Clock returns the current time in a fixed location.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func NewClock(tz string) (Clock, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Clock{}, fmt.Errorf("load time zone %q: %w", tz, err)
	}
	return Clock{Location: loc, Now: time.Now}, nil
}

func (c Clock) Current() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	if c.Location != nil {
		t = t.In(c.Location)
	}
	return t
}
