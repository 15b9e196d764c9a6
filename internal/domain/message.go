package domain

import "time"

// MessageType distinguishes text bodies from voice-note references.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
)

// Valid reports whether t is a supported message type.
func (t MessageType) Valid() bool {
	return t == MessageTypeText || t == MessageTypeVoice
}

// Message is a direct message between two users.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Type       MessageType
	Content    string
	IsRead     bool
	CreatedAt  time.Time
}

// PartnerOf returns the other side of the message relative to userID.
func (m *Message) PartnerOf(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation summarizes all messages exchanged with one partner.
type Conversation struct {
	PartnerID   int64
	Partner     *User
	LastMessage Message
	UnreadCount int
}
