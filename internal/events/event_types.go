package events

import (
	"time"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMessageCreated   EventType = "message_created"
	EventMeetingInvite    EventType = "meeting_invite"
	EventMeetingUpdated   EventType = "meeting_updated"
	EventMeetingCancelled EventType = "meeting_cancelled"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MessageCreatedPayload carries the persisted message. Source records which
// surface accepted it.
type MessageCreatedPayload struct {
	Message domain.Message `json:"message"`
	Source  string         `json:"source"`
}

const (
	SourceREST  = "rest"
	SourceRelay = "relay"
)

// MeetingAction describes what happened to a participant's meeting.
type MeetingAction string

const (
	MeetingActionAdded     MeetingAction = "added"
	MeetingActionRemoved   MeetingAction = "removed"
	MeetingActionCancelled MeetingAction = "cancelled"
)

// MeetingPayload notifies a set of users about one meeting.
type MeetingPayload struct {
	Meeting    domain.Meeting `json:"meeting"`
	Recipients []int64        `json:"recipients"`
	Action     MeetingAction  `json:"action"`
}
