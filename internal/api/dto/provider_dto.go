package dto

import "time"

// ProviderMeetingRequest creates or patches a provider meeting directly.
type ProviderMeetingRequest struct {
	Topic     string     `json:"topic" validate:"max=200"`
	Agenda    string     `json:"agenda" validate:"max=2000"`
	StartTime *time.Time `json:"startTime"`
	Duration  int        `json:"duration" validate:"gte=0,lte=1440"`
	Password  string     `json:"password" validate:"max=10"`
}

// ChannelRequest creates (name required) or renames a channel. Type follows
// the provider numbering.
type ChannelRequest struct {
	Name    string   `json:"name" validate:"max=128"`
	Type    int      `json:"type" validate:"omitempty,oneof=1 2 3 4"`
	Members []string `json:"members" validate:"omitempty,max=20,dive,email"`
}

type ChannelMembersRequest struct {
	Members []string `json:"members" validate:"required,min=1,max=20,dive,email"`
}

// ChatMessageRequest posts or edits a provider chat message. Exactly one
// target is expected.
type ChatMessageRequest struct {
	Message            string `json:"message" validate:"required,notblank,max=4096"`
	ToJID              string `json:"toJid"`
	ToContact          string `json:"toContact" validate:"omitempty,email"`
	ToChannel          string `json:"toChannel"`
	ReplyMainMessageID string `json:"replyMainMessageId"`
}

// HasTarget reports whether any recipient is set.
func (r ChatMessageRequest) HasTarget() bool {
	return r.ToJID != "" || r.ToContact != "" || r.ToChannel != ""
}
