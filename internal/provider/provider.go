// Package provider talks to the external meeting and team-chat provider.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrDisabled is returned by every operation when credentials are missing.
var ErrDisabled = errors.New("meeting provider is not configured")

// Provider is the set of provider operations the service uses.
type Provider interface {
	Enabled() bool

	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (*User, error)

	CreateMeeting(ctx context.Context, in MeetingInput) (*Meeting, error)
	GetMeeting(ctx context.Context, meetingID string) (*Meeting, error)
	ListMeetings(ctx context.Context) ([]Meeting, error)
	UpdateMeeting(ctx context.Context, meetingID string, in MeetingInput) error
	DeleteMeeting(ctx context.Context, meetingID string) error

	ListContacts(ctx context.Context) ([]Contact, error)
	ListChannels(ctx context.Context, userID string) ([]Channel, error)
	CreateChannel(ctx context.Context, in ChannelInput) (*Channel, error)
	UpdateChannel(ctx context.Context, channelID string, in ChannelInput) error
	ListChannelMembers(ctx context.Context, channelID string) ([]ChannelMember, error)
	AddChannelMembers(ctx context.Context, channelID string, emails []string) error
	RemoveChannelMember(ctx context.Context, channelID, memberID string) error

	SendChatMessage(ctx context.Context, in SendMessageInput) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, q MessageQuery) (*MessagePage, error)
	UpdateChatMessage(ctx context.Context, messageID string, in SendMessageInput) error
	DeleteChatMessage(ctx context.Context, messageID string, target Target) error
	UploadFile(ctx context.Context, upload FileUpload) (*UploadResult, error)
}

// APIError is a non-2xx provider response.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned %d", e.Status)
	}
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// IsPermanent reports whether retrying err cannot succeed: the provider is
// disabled or rejected the request itself.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrDisabled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500 &&
			apiErr.Status != http.StatusTooManyRequests && apiErr.Status != http.StatusRequestTimeout
	}
	return false
}

// IsNotFound reports a provider 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Disabled satisfies Provider when no credentials are configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) GetUserByEmail(context.Context, string) (*User, error)      { return nil, ErrDisabled }
func (Disabled) CreateUser(context.Context, CreateUserInput) (*User, error) { return nil, ErrDisabled }

func (Disabled) CreateMeeting(context.Context, MeetingInput) (*Meeting, error)     { return nil, ErrDisabled }
func (Disabled) GetMeeting(context.Context, string) (*Meeting, error)              { return nil, ErrDisabled }
func (Disabled) ListMeetings(context.Context) ([]Meeting, error)                   { return nil, ErrDisabled }
func (Disabled) UpdateMeeting(context.Context, string, MeetingInput) error         { return ErrDisabled }
func (Disabled) DeleteMeeting(context.Context, string) error                       { return ErrDisabled }
func (Disabled) ListContacts(context.Context) ([]Contact, error)                   { return nil, ErrDisabled }
func (Disabled) ListChannels(context.Context, string) ([]Channel, error)           { return nil, ErrDisabled }
func (Disabled) CreateChannel(context.Context, ChannelInput) (*Channel, error)     { return nil, ErrDisabled }
func (Disabled) UpdateChannel(context.Context, string, ChannelInput) error         { return ErrDisabled }
func (Disabled) AddChannelMembers(context.Context, string, []string) error         { return ErrDisabled }
func (Disabled) RemoveChannelMember(context.Context, string, string) error         { return ErrDisabled }
func (Disabled) UpdateChatMessage(context.Context, string, SendMessageInput) error { return ErrDisabled }
func (Disabled) DeleteChatMessage(context.Context, string, Target) error           { return ErrDisabled }

func (Disabled) ListChannelMembers(context.Context, string) ([]ChannelMember, error) {
	return nil, ErrDisabled
}

func (Disabled) SendChatMessage(context.Context, SendMessageInput) (*ChatMessage, error) {
	return nil, ErrDisabled
}

func (Disabled) ListChatMessages(context.Context, MessageQuery) (*MessagePage, error) {
	return nil, ErrDisabled
}

func (Disabled) UploadFile(context.Context, FileUpload) (*UploadResult, error) {
	return nil, ErrDisabled
}
