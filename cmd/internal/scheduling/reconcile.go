package scheduling

import "time"

// Mode records which of the two derived fields the user edited last, and
// therefore which one drives recomputation of the other.
type Mode string

const (
	// ModeDuration means durationMinutes is authoritative and endTime is
	// derived from it.
	ModeDuration Mode = "duration-driven"
	// ModeEndTime means endTime is authoritative and durationMinutes is
	// derived from it.
	ModeEndTime Mode = "endTime-driven"
)

// EditField identifies which time field the user changed.
type EditField string

const (
	EditStart    EditField = "start"
	EditEnd      EditField = "end"
	EditDuration EditField = "duration"
)

// Edit is a single user change to one of the three time fields. Time is
// read for start/end edits, Minutes for duration edits.
type Edit struct {
	Field   EditField
	Time    TimeOfDay
	Minutes int
}

// TimeFields holds the three mutually-derived meeting time fields plus the
// active mode. It is a value: Apply returns a new TimeFields and never
// mutates shared state.
type TimeFields struct {
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	DurationMinutes int
	Mode            Mode
}

// Apply reconciles the fields after one user edit:
//   - start change: endTime is re-derived from the current duration,
//     regardless of prior mode, since moving the anchor keeps the duration.
//   - duration change: mode becomes duration-driven, endTime = start +
//     duration, wrapping past midnight.
//   - end change: mode becomes endTime-driven, duration = end - start with
//     a non-positive raw difference read as crossing midnight, so an end
//     numerically at or before the start means "ends tomorrow", never an
//     error. End equal to start therefore means a full 1440-minute day.
func (f TimeFields) Apply(e Edit) TimeFields {
	switch e.Field {
	case EditStart:
		f.StartTime = e.Time
		f.Mode = ModeDuration
		f.EndTime = f.StartTime.Add(f.DurationMinutes)

	case EditDuration:
		f.DurationMinutes = e.Minutes
		f.Mode = ModeDuration
		f.EndTime = f.StartTime.Add(f.DurationMinutes)

	case EditEnd:
		f.EndTime = e.Time
		f.Mode = ModeEndTime
		raw := int(f.EndTime) - int(f.StartTime)
		if raw <= 0 {
			raw += minutesPerDay
		}
		f.DurationMinutes = raw
	}
	return f
}

// ResolveInstants canonicalizes a chosen date plus start and end times of
// day into the half-open [start, end) instant interval. When the end time
// of day is numerically at or before the start, the end falls on the next
// calendar day in the chosen timezone.
func ResolveInstants(clock *Clock, date Date, start, end TimeOfDay, tz string) (time.Time, time.Time) {
	startInstant := clock.ToInstant(WallClock{Date: date, Time: start}, tz)

	endDate := date
	if end <= start {
		endDate = date.AddDays(1)
	}
	endInstant := clock.ToInstant(WallClock{Date: endDate, Time: end}, tz)

	return startInstant, endInstant
}
