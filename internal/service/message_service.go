package service

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/access"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/events"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

const (
	// maxMessageRunes bounds a text body.
	maxMessageRunes = 10000
	// maxVoiceBytes bounds the encoded voice payload to one relay frame.
	maxVoiceBytes = 1 << 20
)

// MessageService persists direct messages and announces them. REST and the
// relay both send through it so the permission matrix has one enforcement
// point.
type MessageService struct {
	messages   repository.MessageRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MessageDependencies bundles repositories for the message service.
type MessageDependencies struct {
	MessageRepo repository.MessageRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	return &MessageService{
		messages:   deps.MessageRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     orNop(deps.Logger),
	}
}

// Send is the relay entry point. senderID is the socket's authenticated user.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID int64, msgType domain.MessageType, content string) (*domain.Message, error) {
	return s.send(ctx, senderID, receiverID, msgType, content, events.SourceRelay)
}

// Post is the REST entry point.
func (s *MessageService) Post(ctx context.Context, principal *domain.Principal, receiverID int64, msgType domain.MessageType, content string) (*domain.Message, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return s.send(ctx, principal.UserID, receiverID, msgType, content, events.SourceREST)
}

func (s *MessageService) send(ctx context.Context, senderID, receiverID int64, msgType domain.MessageType, content, source string) (*domain.Message, error) {
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !msgType.Valid() {
		return nil, apperrors.NewValidationError("type must be text or voice", map[string]any{"type": msgType})
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}
	if err := checkContent(msgType, content); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, apperrors.NewValidationError("cannot send a message to yourself", nil)
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, notFoundAs(err, "sender")
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, notFoundAs(err, "receiver")
	}
	if !access.CanCommunicate(sender, receiver) {
		s.logger.Info("message denied",
			zap.Int64("sender_id", senderID),
			zap.Int64("receiver_id", receiverID),
			zap.String("sender_role", string(sender.Role)),
			zap.String("receiver_role", string(receiver.Role)))
		return nil, apperrors.NewForbidden("Communication not allowed between these users")
	}

	msg := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Type:       msgType,
		Content:    content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, s.logger, newEvent(events.EventMessageCreated, senderID, events.MessageCreatedPayload{
		Message: *msg,
		Source:  source,
	}))
	return msg, nil
}

func notFoundAs(err error, what string) error {
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(what, nil)
	}
	return err
}

// ListForUser returns every message the caller sent or received, newest first.
func (s *MessageService) ListForUser(ctx context.Context, principal *domain.Principal) ([]domain.Message, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return s.messages.ListForUser(ctx, principal.UserID)
}

// Conversation returns the thread between the caller and partnerID, oldest
// first. Reading requires the same permission as writing.
func (s *MessageService) Conversation(ctx context.Context, principal *domain.Principal, partnerID int64) ([]domain.Message, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	partner, err := loadUser(ctx, s.users, partnerID)
	if err != nil {
		return nil, err
	}
	if !access.CanCommunicate(actor, partner) {
		return nil, apperrors.NewForbidden("Communication not allowed between these users")
	}
	return s.messages.ListBetween(ctx, actor.ID, partner.ID)
}

// Conversations groups the caller's messages by partner with the latest
// message and the number of unread messages from that partner.
func (s *MessageService) Conversations(ctx context.Context, principal *domain.Principal) ([]domain.Conversation, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	msgs, err := s.messages.ListForUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	byPartner := map[int64]*domain.Conversation{}
	for _, m := range msgs {
		partnerID := m.PartnerOf(principal.UserID)
		conv, ok := byPartner[partnerID]
		if !ok {
			conv = &domain.Conversation{PartnerID: partnerID, LastMessage: m}
			byPartner[partnerID] = conv
		}
		if newer(m, conv.LastMessage) {
			conv.LastMessage = m
		}
		if m.ReceiverID == principal.UserID && !m.IsRead {
			conv.UnreadCount++
		}
	}

	out := make([]domain.Conversation, 0, len(byPartner))
	for _, conv := range byPartner {
		partner, err := s.users.GetByID(ctx, conv.PartnerID)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		conv.Partner = partner
		out = append(out, *conv)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].LastMessage, out[j].LastMessage) })
	return out, nil
}

func newer(a, b domain.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// MarkRead marks a received message as read. Repeating it is harmless.
func (s *MessageService) MarkRead(ctx context.Context, principal *domain.Principal, id int64) (*domain.Message, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "message")
	}
	if msg.ReceiverID != principal.UserID {
		return nil, apperrors.NewForbidden("only the receiver can mark a message as read")
	}
	if !msg.IsRead {
		if err := s.messages.MarkRead(ctx, id); err != nil {
			return nil, apperrors.MapError(err)
		}
		msg.IsRead = true
	}
	return msg, nil
}

// checkContent bounds text by runes. Voice content is a base64 audio clip
// bounded by its encoded size.
func checkContent(msgType domain.MessageType, content string) error {
	if msgType != domain.MessageTypeVoice {
		if utf8.RuneCountInString(content) > maxMessageRunes {
			return apperrors.NewValidationError("content too long", map[string]any{"max": maxMessageRunes})
		}
		return nil
	}
	if len(content) > maxVoiceBytes {
		return apperrors.NewValidationError("voice message too large", map[string]any{"maxBytes": maxVoiceBytes})
	}
	if _, err := base64.StdEncoding.DecodeString(content); err != nil {
		return apperrors.NewValidationError("voice content must be base64 audio", map[string]any{"field": "content"})
	}
	return nil
}
