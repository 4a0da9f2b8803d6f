package scheduling

// Booking is an existing meeting reduced to the interval the conflict check
// needs. Instants are epoch milliseconds, UTC.
type Booking struct {
	ID       int
	BeginsAt int64
	EndsAt   int64
}

// Overlaps reports whether two half-open intervals [s1,e1) and [s2,e2)
// intersect: s1 < e2 && s2 < e1. Back-to-back intervals do not overlap.
func Overlaps(s1, e1, s2, e2 int64) bool {
	return s1 < e2 && s2 < e1
}

// FindConflicts returns the existing bookings that overlap the candidate
// interval, excluding the booking being edited by id. The result is
// advisory: callers surface it as a warning and never block a save on it.
func FindConflicts(candidateStart, candidateEnd int64, excludeID int, existing []Booking) []Booking {
	conflicts := []Booking{}
	for _, b := range existing {
		if b.ID == excludeID {
			continue
		}
		if Overlaps(candidateStart, candidateEnd, b.BeginsAt, b.EndsAt) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}
