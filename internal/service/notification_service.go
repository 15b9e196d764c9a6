package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/events"
	"github.com/spec-kit/orgchat-service/internal/relay"
)

// Deliverer pushes a frame to a connected user. It reports false when the
// user has no live connection.
type Deliverer interface {
	Deliver(userID int64, frame relay.OutboundFrame) bool
}

// NotificationService turns domain events into realtime frames. It is the
// only path by which a persisted message reaches its receiver's socket.
type NotificationService struct {
	dispatcher events.Dispatcher
	deliverer  Deliverer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, deliverer Deliverer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		deliverer:  deliverer,
		logger:     orNop(logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.deliverer == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventMessageCreated, n.handleMessageCreated)
	n.dispatcher.Subscribe(events.EventMeetingInvite, n.handleMeetingInvite)
	n.dispatcher.Subscribe(events.EventMeetingUpdated, n.handleMeetingChanged)
	n.dispatcher.Subscribe(events.EventMeetingCancelled, n.handleMeetingChanged)
}

func (n *NotificationService) handleMessageCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessageCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	msg := payload.Message
	at := msg.CreatedAt
	delivered := n.deliverer.Deliver(msg.ReceiverID, relay.OutboundFrame{
		Type:      relay.FrameType(msg.Type),
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		MessageID: msg.ID,
		Timestamp: &at,
	})
	n.logger.Debug("message notification",
		zap.Int64("message_id", msg.ID),
		zap.Int64("receiver_id", msg.ReceiverID),
		zap.String("source", payload.Source),
		zap.Bool("delivered", delivered))
	return nil
}

func (n *NotificationService) handleMeetingInvite(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MeetingPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	start := payload.Meeting.StartTime
	frame := relay.OutboundFrame{
		Type:      relay.FrameMeetingInvite,
		SenderID:  event.ActorID,
		MeetingID: payload.Meeting.ID,
		Title:     payload.Meeting.Title,
		StartTime: &start,
	}
	n.fanOut(payload.Recipients, frame, event.Type)
	return nil
}

func (n *NotificationService) handleMeetingChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MeetingPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	frame := relay.OutboundFrame{
		Type:      relay.FrameMeetingUpdate,
		SenderID:  event.ActorID,
		MeetingID: payload.Meeting.ID,
		Title:     payload.Meeting.Title,
		Action:    string(payload.Action),
	}
	if payload.Action == events.MeetingActionAdded {
		start := payload.Meeting.StartTime
		frame.StartTime = &start
	}
	n.fanOut(payload.Recipients, frame, event.Type)
	return nil
}

func (n *NotificationService) fanOut(recipients []int64, frame relay.OutboundFrame, eventType events.EventType) {
	delivered := 0
	for _, uid := range recipients {
		if n.deliverer.Deliver(uid, frame) {
			delivered++
		}
	}
	n.logger.Debug("meeting notification",
		zap.String("event_type", string(eventType)),
		zap.Int64("meeting_id", frame.MeetingID),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", delivered))
}
