package provider

import (
	"io"
	"time"
)

// User is a provider account.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Type      int    `json:"type"`
	Status    string `json:"status,omitempty"`
}

// CreateUserInput provisions a basic provider account.
type CreateUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Meeting is a scheduled provider meeting.
type Meeting struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid,omitempty"`
	Topic     string    `json:"topic"`
	Agenda    string    `json:"agenda,omitempty"`
	Type      int       `json:"type"`
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"`
	Timezone  string    `json:"timezone,omitempty"`
	Password  string    `json:"password,omitempty"`
	JoinURL   string    `json:"join_url,omitempty"`
	StartURL  string    `json:"start_url,omitempty"`
}

// MeetingInput creates or patches a meeting. Zero fields are left out of
// updates.
type MeetingInput struct {
	Topic     string    `json:"topic,omitempty"`
	Agenda    string    `json:"agenda,omitempty"`
	StartTime time.Time `json:"-"`
	Duration  int       `json:"duration,omitempty"`
	Password  string    `json:"password,omitempty"`
}

// Contact is an entry in the service account's chat contact list.
type Contact struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PresenceStatus string `json:"presence_status,omitempty"`
}

// Channel is a team-chat channel. Type follows the provider: 1 IM, 2 private,
// 3 public, 4 cross organization.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
	JID  string `json:"jid,omitempty"`
}

// ChannelInput creates or renames a channel.
type ChannelInput struct {
	Name    string   `json:"name,omitempty"`
	Type    int      `json:"type,omitempty"`
	Members []string `json:"-"`
}

// ChannelMember is a member of a chat channel.
type ChannelMember struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

// ChatMessage is a provider chat message.
type ChatMessage struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	DateTime  string `json:"date_time"`
	Timestamp int64  `json:"timestamp"`
	ToJID     string `json:"to_jid,omitempty"`
	ToContact string `json:"to_contact,omitempty"`
	ToChannel string `json:"to_channel,omitempty"`
}

// Target addresses a chat message at one JID, contact or channel.
type Target struct {
	ToJID     string `json:"to_jid,omitempty"`
	ToContact string `json:"to_contact,omitempty"`
	ToChannel string `json:"to_channel,omitempty"`
}

// SendMessageInput posts a chat message.
type SendMessageInput struct {
	Target
	Message            string `json:"message"`
	ReplyMainMessageID string `json:"reply_main_message_id,omitempty"`
}

// MessageQuery pages through chat history.
type MessageQuery struct {
	Target
	From          string
	To            string
	PageSize      int
	NextPageToken string
}

// MessagePage is one page of chat history.
type MessagePage struct {
	Messages      []ChatMessage `json:"messages"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

// FileUpload forwards a file to a chat target.
type FileUpload struct {
	Target
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadResult identifies an uploaded file.
type UploadResult struct {
	ID string `json:"id"`
}
