package relay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/domain"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// MessageSender persists a direct message after checking the permission
// matrix. Delivery to the receiver happens through the event notifier once
// the row exists.
type MessageSender interface {
	Send(ctx context.Context, senderID, receiverID int64, msgType domain.MessageType, content string) (*domain.Message, error)
}

// FrameCounter receives one call per frame handled. *observability.Metrics
// satisfies it.
type FrameCounter interface {
	RecordFrame(direction, frameType string)
}

type nopCounter struct{}

func (nopCounter) RecordFrame(string, string) {}

// Options tunes socket behavior.
type Options struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	MaxFrameBytes  int64
	SendBufferSize int
	// HandleTimeout bounds the storage work done for one inbound frame.
	HandleTimeout time.Duration
	Counter       FrameCounter
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = 1 << 20
	}
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	if o.HandleTimeout <= 0 {
		o.HandleTimeout = 10 * time.Second
	}
	if o.Counter == nil {
		o.Counter = nopCounter{}
	}
	return o
}

// Hub owns the registry, the liveness sweep and inbound frame handling.
type Hub struct {
	registry *Registry
	messages MessageSender
	presence Presence
	logger   *zap.Logger
	opts     Options
}

// NewHub wires a hub. presence may be nil.
func NewHub(registry *Registry, messages MessageSender, presence Presence, logger *zap.Logger, opts Options) *Hub {
	if presence == nil {
		presence = NopPresence{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		registry: registry,
		messages: messages,
		presence: presence,
		logger:   logger,
		opts:     opts.withDefaults(),
	}
}

// Registry exposes the live connection map.
func (h *Hub) Registry() *Registry { return h.registry }

// Attach binds an upgraded socket to userID and starts its pumps. An older
// connection of the same user is closed.
func (h *Hub) Attach(conn *websocket.Conn, userID int64) *Client {
	c := newClient(h, conn, userID, h.opts.SendBufferSize)
	if previous := h.registry.Bind(c); previous != nil {
		h.logger.Info("relay connection replaced", zap.Int64("user_id", userID))
		previous.close()
	}
	if err := h.presence.Online(context.Background(), userID); err != nil {
		h.logger.Warn("presence update failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	h.logger.Info("relay connected", zap.Int64("user_id", userID))

	go c.writePump()
	go c.readPump()
	return c
}

func (h *Hub) detach(c *Client) {
	c.close()
	if h.registry.Unbind(c) {
		if err := h.presence.Offline(context.Background(), c.userID); err != nil {
			h.logger.Warn("presence update failed", zap.Int64("user_id", c.userID), zap.Error(err))
		}
		h.logger.Info("relay disconnected", zap.Int64("user_id", c.userID))
	}
}

// Deliver sends a frame to userID if they have a live connection. It reports
// whether the frame was queued.
func (h *Hub) Deliver(userID int64, frame OutboundFrame) bool {
	c, ok := h.registry.Lookup(userID)
	if !ok || !c.Live() {
		return false
	}
	return h.write(c, frame)
}

// Online reports whether userID has a live connection on this instance.
func (h *Hub) Online(userID int64) bool {
	c, ok := h.registry.Lookup(userID)
	return ok && c.Live()
}

func (h *Hub) write(c *Client, frame OutboundFrame) bool {
	payload, err := encodeFrame(frame)
	if err != nil {
		h.logger.Error("encode relay frame", zap.Error(err))
		return false
	}
	h.opts.Counter.RecordFrame("out", string(frame.Type))
	return c.enqueue(payload)
}

// Run sweeps connections every PingInterval until ctx is done, then closes
// everything.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.registry.Clients() {
				h.detach(c)
			}
			return nil
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep is one liveness pass: connections that have not answered since the
// previous pass are closed and removed, the rest are pinged.
func (h *Hub) Sweep() {
	clients := h.registry.Clients()
	closed := 0
	for _, c := range clients {
		if !c.alive.Swap(false) {
			h.detach(c)
			closed++
			continue
		}
		if err := c.ping(h.opts.WriteWait); err != nil {
			h.detach(c)
			closed++
		}
	}
	h.logger.Debug("relay sweep", zap.Int("connections", len(clients)), zap.Int("closed", closed))
}

func (h *Hub) handleFrame(c *Client, raw []byte) {
	frame, err := decodeFrame(raw)
	if err != nil {
		h.logger.Debug("malformed relay frame", zap.Int64("user_id", c.userID), zap.Error(err))
		h.write(c, errorFrame(ErrContentMalformed))
		return
	}
	h.opts.Counter.RecordFrame("in", string(frame.Type))

	if frame.SenderID != nil && *frame.SenderID != c.userID {
		h.logger.Warn("relay sender mismatch",
			zap.Int64("user_id", c.userID),
			zap.Int64("claimed_sender_id", *frame.SenderID))
		h.write(c, errorFrame(ErrContentSenderMismatch))
		return
	}

	switch frame.Type {
	case FrameStatus:
		h.write(c, OutboundFrame{Type: FrameStatus, Content: "connected", SenderID: c.userID})
	case FramePing:
		c.alive.Store(true)
		h.write(c, OutboundFrame{Type: FramePing})
	case FrameText, FrameVoice:
		h.handleChat(c, frame)
	default:
		h.write(c, errorFrame(ErrContentMalformed))
	}
}

func (h *Hub) handleChat(c *Client, frame InboundFrame) {
	if frame.ReceiverID <= 0 || frame.Content == "" {
		h.write(c, errorFrame(ErrContentIncomplete))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.HandleTimeout)
	defer cancel()

	_, err := h.messages.Send(ctx, c.userID, frame.ReceiverID, domain.MessageType(frame.Type), frame.Content)
	if err == nil {
		return
	}

	content := ErrContentFailed
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.HTTPStatus {
		case http.StatusNotFound:
			content = ErrContentNotFound
		case http.StatusForbidden:
			content = ErrContentNotAllowed
		case http.StatusBadRequest:
			content = domainErr.Message
		}
	}
	if content == ErrContentFailed {
		h.logger.Error("relay send failed", zap.Int64("user_id", c.userID), zap.Error(err))
	} else {
		h.logger.Debug("relay send rejected", zap.Int64("user_id", c.userID), zap.String("reason", content))
	}
	h.write(c, errorFrame(content))
}
