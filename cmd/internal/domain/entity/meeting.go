package entity

// MeetingStatus is derived from the meeting's interval, its cancellation
// flag and the current instant. Only the flag is stored.
type MeetingStatus string

const (
	StatusScheduled MeetingStatus = "scheduled"
	StatusOngoing   MeetingStatus = "ongoing"
	StatusCompleted MeetingStatus = "completed"
	StatusCancelled MeetingStatus = "cancelled"
)

type Meeting struct {
	ID          int    `gorm:"primaryKey"`
	Subject     string `gorm:"not null"`
	BeginsAt    int64  `gorm:"not null"`
	EndsAt      int64  `gorm:"not null"`
	Timezone    string `gorm:"not null"`
	UserID      int    `gorm:"not null"` // References: users(id)
	LeadID      *int   // References: leads(id)
	ContactID   *int   // References: contacts(id)
	JoinURL     *string
	ExternalID  *string
	IsCancelled bool  `gorm:"not null"`
	Description string
	Outcome     string
	Notes       string
	CreatedAt   int64 `gorm:"not null"`
	UpdatedAt   int64 `gorm:"not null"`

	// Relations
	Participants []Participant `gorm:"foreignKey:MeetingID;references:ID"`
	Owner        User          `gorm:"foreignKey:UserID;references:ID"`
}

// Participant is one attendee of a meeting, deduplicated by email.
type Participant struct {
	ID          int    `gorm:"primaryKey"`
	MeetingID   int    `gorm:"not null"` // References: meetings(id)
	Email       string `gorm:"not null"`
	DisplayName string
}

// HasJoinURL reports whether the meeting has ever been synchronized to the
// external provider.
func (m *Meeting) HasJoinURL() bool {
	return m.JoinURL != nil && *m.JoinURL != ""
}

// StatusAt derives the effective status at the given instant (epoch
// millis). Cancellation is terminal and wins over everything else.
func (m *Meeting) StatusAt(now int64) MeetingStatus {
	switch {
	case m.IsCancelled:
		return StatusCancelled
	case now >= m.EndsAt:
		return StatusCompleted
	case now >= m.BeginsAt:
		return StatusOngoing
	default:
		return StatusScheduled
	}
}
