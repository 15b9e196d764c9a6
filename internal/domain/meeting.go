package domain

import (
	"errors"
	"time"
)

// ErrInvalidTimeRange is returned when a meeting ends before it starts.
var ErrInvalidTimeRange = errors.New("meeting end time must be after start time")

// Meeting is a scheduled call inside one company. The provider fields hold the
// external handle once the outbox has synced it.
type Meeting struct {
	ID                int64
	Title             string
	Description       string
	StartTime         time.Time
	EndTime           time.Time
	OrganizerID       int64
	CompanyID         int64
	ProviderMeetingID *string
	ProviderPassword  *string
	ProviderJoinURL   *string
	CreatedAt         time.Time
}

// Validate checks the time range.
func (m *Meeting) Validate() error {
	if !m.EndTime.After(m.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Duration returns the meeting length rounded down to whole minutes.
func (m *Meeting) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime).Truncate(time.Minute)
}

// MeetingParticipant links a user to a meeting.
type MeetingParticipant struct {
	ID        int64
	MeetingID int64
	UserID    int64
	Attended  bool
}
