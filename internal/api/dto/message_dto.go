package dto

import (
	"time"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// SendMessageRequest posts a direct message. For voice messages content is
// the base64-encoded audio clip; length limits are checked per type.
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Type       string `json:"type" validate:"omitempty,oneof=text voice"`
	Content    string `json:"content" validate:"required,notblank"`
}

type MessageResponse struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Type:       string(m.Type),
		Content:    m.Content,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

func NewMessageList(msgs []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, NewMessageResponse(&msgs[i]))
	}
	return out
}

// ConversationResponse summarizes one partner. Partner is nil when the
// partner's account no longer exists.
type ConversationResponse struct {
	PartnerID   int64           `json:"partnerId"`
	Partner     *UserResponse   `json:"partner"`
	LastMessage MessageResponse `json:"lastMessage"`
	UnreadCount int             `json:"unreadCount"`
}

func NewConversationList(convs []domain.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(convs))
	for i := range convs {
		c := convs[i]
		resp := ConversationResponse{
			PartnerID:   c.PartnerID,
			LastMessage: NewMessageResponse(&c.LastMessage),
			UnreadCount: c.UnreadCount,
		}
		if c.Partner != nil {
			partner := NewUserResponse(c.Partner)
			resp.Partner = &partner
		}
		out = append(out, resp)
	}
	return out
}
