package scheduling

// SlotGranularityMinutes is the fixed spacing between offerable start times.
const SlotGranularityMinutes = 15

// SlotCatalog generates the offerable start-time choices for a meeting.
type SlotCatalog struct {
	clock *Clock
}

func NewSlotCatalog(clock *Clock) *SlotCatalog {
	return &SlotCatalog{clock: clock}
}

// AllSlots returns every offerable time of day: a full day at quarter-hour
// granularity, 96 values, independent of timezone.
func (s *SlotCatalog) AllSlots() []TimeOfDay {
	slots := make([]TimeOfDay, 0, minutesPerDay/SlotGranularityMinutes)
	for m := 0; m < minutesPerDay; m += SlotGranularityMinutes {
		slots = append(slots, TimeOfDay(m))
	}
	return slots
}

// AvailableSlots filters AllSlots for a chosen date. A future date keeps
// every slot; today keeps only slots strictly later than the current
// wall-clock minute in the timezone, so a meeting cannot start "now" and be
// in the past by the time the user confirms; a past date offers nothing.
func (s *SlotCatalog) AvailableSlots(date Date, tz string) []TimeOfDay {
	today := s.clock.Now(tz)

	switch date.Compare(today.Date) {
	case 1:
		return s.AllSlots()
	case -1:
		return []TimeOfDay{}
	}

	slots := []TimeOfDay{}
	for _, slot := range s.AllSlots() {
		if slot > today.Time {
			slots = append(slots, slot)
		}
	}
	return slots
}
