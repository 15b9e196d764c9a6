package relay

import (
	"encoding/json"
	"time"
)

// FrameType tags every frame on the socket.
type FrameType string

const (
	FrameStatus        FrameType = "status"
	FramePing          FrameType = "ping"
	FrameText          FrameType = "text"
	FrameVoice         FrameType = "voice"
	FrameError         FrameType = "error"
	FrameMeetingInvite FrameType = "meeting_invite"
	FrameMeetingUpdate FrameType = "meeting_update"
)

// InboundFrame is what clients send. SenderID is accepted for compatibility
// but never trusted: the connection's identity comes from its token.
type InboundFrame struct {
	Type       FrameType `json:"type"`
	SenderID   *int64    `json:"senderId,omitempty"`
	ReceiverID int64     `json:"receiverId,omitempty"`
	Content    string    `json:"content,omitempty"`
}

// OutboundFrame is what the server sends.
type OutboundFrame struct {
	Type      FrameType  `json:"type"`
	SenderID  int64      `json:"senderId,omitempty"`
	Content   string     `json:"content,omitempty"`
	MessageID int64      `json:"messageId,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	MeetingID int64      `json:"meetingId,omitempty"`
	Title     string     `json:"title,omitempty"`
	StartTime *time.Time `json:"startTime,omitempty"`
	Action    string     `json:"action,omitempty"`
	JoinURL   string     `json:"joinUrl,omitempty"`
}

// Error frame contents.
const (
	ErrContentMalformed      = "Invalid message format"
	ErrContentFailed         = "Failed to process message"
	ErrContentNotFound       = "Sender or receiver not found"
	ErrContentNotAllowed     = "Communication not allowed between these users"
	ErrContentSenderMismatch = "senderId does not match the authenticated user"
	ErrContentIncomplete     = "receiverId and content are required"
)

func errorFrame(content string) OutboundFrame {
	return OutboundFrame{Type: FrameError, Content: content}
}

func encodeFrame(f OutboundFrame) ([]byte, error) {
	return json.Marshal(f)
}

func decodeFrame(raw []byte) (InboundFrame, error) {
	var f InboundFrame
	err := json.Unmarshal(raw, &f)
	return f, err
}
