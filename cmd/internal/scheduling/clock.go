package scheduling

import "time"

// Clock converts between named-timezone wall-clock values and canonical UTC
// instants. The current time is injectable so tests can pin "now".
type Clock struct {
	now func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt returns a clock frozen at the given instant.
func NewClockAt(fixed time.Time) *Clock {
	return &Clock{now: func() time.Time { return fixed }}
}

// Location resolves an IANA timezone name. Unrecognized names fall back to
// UTC rather than failing: a meeting with a bad zone string still renders.
func (c *Clock) Location(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Instant returns the current canonical instant.
func (c *Clock) Instant() time.Time {
	return c.now().UTC()
}

// Now projects the current instant onto the timezone's calendar and
// time of day.
func (c *Clock) Now(tz string) WallClock {
	return c.render(c.now(), tz)
}

// ToInstant canonicalizes a wall-clock value in the given timezone into an
// absolute UTC instant.
func (c *Clock) ToInstant(w WallClock, tz string) time.Time {
	loc := c.Location(tz)
	return time.Date(w.Date.Year, w.Date.Month, w.Date.Day,
		w.Time.Hour(), w.Time.Minute(), 0, 0, loc).UTC()
}

// Reproject re-renders a wall-clock selection made in one timezone as the
// equivalent wall-clock in another: the absolute instant is preserved and
// the displayed date/time update to match the new zone.
func (c *Clock) Reproject(w WallClock, fromTZ, toTZ string) WallClock {
	return c.render(c.ToInstant(w, fromTZ), toTZ)
}

func (c *Clock) render(t time.Time, tz string) WallClock {
	local := t.In(c.Location(tz))
	return WallClock{
		Date: Date{Year: local.Year(), Month: local.Month(), Day: local.Day()},
		Time: NewTimeOfDay(local.Hour(), local.Minute()),
	}
}
