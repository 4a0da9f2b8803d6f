package repository

import (
	"errors"
	"pipevine/cmd/internal/domain/entity"

	"gorm.io/gorm"
)

type DefaultMeetingRepository struct {
	db *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) *DefaultMeetingRepository {
	return &DefaultMeetingRepository{db: db}
}

func (m *DefaultMeetingRepository) FindByID(id int) (*entity.Meeting, error) {
	var meeting entity.Meeting
	err := m.db.Preload("Participants").First(&meeting, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &meeting, err
}

func (m *DefaultMeetingRepository) FindByUserID(id int) ([]*entity.Meeting, error) {
	var meetings []*entity.Meeting
	err := m.db.Preload("Participants").
		Where("user_id = ?", id).
		Order("begins_at asc").
		Find(&meetings).Error
	return meetings, err
}

// FindOverlapping returns the user's non-cancelled meetings whose half-open
// [begins_at, ends_at) interval intersects [begin, end).
func (m *DefaultMeetingRepository) FindOverlapping(userID int, begin, end int64) ([]*entity.Meeting, error) {
	if begin >= end {
		return nil, errors.New("start time must be before end time")
	}

	var meetings []*entity.Meeting
	err := m.db.
		Where("user_id = ?", userID).
		Where("is_cancelled = ?", false).
		Where("begins_at < ?", end).
		Where("ends_at > ?", begin).
		Order("begins_at asc").
		Find(&meetings).Error

	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// Insert always creates a new row, even when the meeting value originated
// from an existing record. Rebooking a cancelled meeting depends on this.
func (m *DefaultMeetingRepository) Insert(meeting *entity.Meeting) error {
	meeting.ID = 0
	for i := range meeting.Participants {
		meeting.Participants[i].ID = 0
		meeting.Participants[i].MeetingID = 0
	}
	return m.db.Create(meeting).Error
}

// Update rewrites an existing meeting and replaces its participant set.
func (m *DefaultMeetingRepository) Update(meeting *entity.Meeting) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meeting_id = ?", meeting.ID).Delete(&entity.Participant{}).Error; err != nil {
			return err
		}
		for i := range meeting.Participants {
			meeting.Participants[i].ID = 0
			meeting.Participants[i].MeetingID = meeting.ID
		}
		return tx.Save(meeting).Error
	})
}
