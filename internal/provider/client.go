package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/spec-kit/orgchat-service/internal/config"
)

// New returns an HTTP provider client, or Disabled when credentials are
// missing. cache may be nil.
func New(cfg config.ProviderConfig, cache TokenCache, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled() {
		logger.Warn("provider credentials not configured; provider features disabled")
		return Disabled{}
	}
	return NewClient(cfg, cache, logger)
}

// Client calls the provider REST API with an account-credentials token.
// GET responses honor the provider's cache headers.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client regardless of Enabled; callers normally use New.
func NewClient(cfg config.ProviderConfig, cache TokenCache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	source := newTokenSource(tokenCtx, accountCredentials(cfg.ClientID, cfg.ClientSecret, cfg.AccountID, cfg.TokenURL), cache, logger)

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logger,
		http: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: source,
				Base:   httpcache.NewTransport(httpcache.NewMemoryCache()),
			},
		},
	}
}

func (c *Client) Enabled() bool { return true }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode provider request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("provider call",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 && json.Unmarshal(raw, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email), nil, nil, &user)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	type userInfo struct {
		Email     string `json:"email"`
		Type      int    `json:"type"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password,omitempty"`
	}
	body := struct {
		Action   string   `json:"action"`
		UserInfo userInfo `json:"user_info"`
	}{
		Action: "create",
		UserInfo: userInfo{
			Email:     in.Email,
			Type:      1,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Password:  in.Password,
		},
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/users", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type meetingSettings struct {
	HostVideo        bool   `json:"host_video"`
	ParticipantVideo bool   `json:"participant_video"`
	JoinBeforeHost   bool   `json:"join_before_host"`
	MuteUponEntry    bool   `json:"mute_upon_entry"`
	Watermark        bool   `json:"watermark"`
	UsePMI           bool   `json:"use_pmi"`
	ApprovalType     int    `json:"approval_type"`
	Audio            string `json:"audio"`
	AutoRecording    string `json:"auto_recording"`
}

type meetingBody struct {
	Topic     string           `json:"topic,omitempty"`
	Agenda    string           `json:"agenda,omitempty"`
	Type      int              `json:"type,omitempty"`
	StartTime string           `json:"start_time,omitempty"`
	Duration  int              `json:"duration,omitempty"`
	Timezone  string           `json:"timezone,omitempty"`
	Password  string           `json:"password,omitempty"`
	Settings  *meetingSettings `json:"settings,omitempty"`
}

func (in MeetingInput) body() meetingBody {
	b := meetingBody{
		Topic:    in.Topic,
		Agenda:   in.Agenda,
		Duration: in.Duration,
		Password: in.Password,
	}
	if !in.StartTime.IsZero() {
		b.StartTime = in.StartTime.UTC().Format(time.RFC3339)
		b.Timezone = "UTC"
	}
	return b
}

func (c *Client) CreateMeeting(ctx context.Context, in MeetingInput) (*Meeting, error) {
	body := in.body()
	body.Type = 2
	if body.Topic == "" {
		body.Topic = "New Meeting"
	}
	if body.Duration <= 0 {
		body.Duration = 60
	}
	if body.StartTime == "" {
		body.StartTime = time.Now().UTC().Format(time.RFC3339)
		body.Timezone = "UTC"
	}
	body.Settings = &meetingSettings{
		HostVideo:        true,
		ParticipantVideo: true,
		MuteUponEntry:    true,
		Audio:            "both",
		AutoRecording:    "none",
	}

	var meeting Meeting
	if err := c.do(ctx, http.MethodPost, "/users/me/meetings", nil, body, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (c *Client) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	var meeting Meeting
	if err := c.do(ctx, http.MethodGet, "/meetings/"+url.PathEscape(meetingID), nil, nil, &meeting); err != nil {
		return nil, err
	}
	return &meeting, nil
}

func (c *Client) ListMeetings(ctx context.Context) ([]Meeting, error) {
	var out struct {
		Meetings []Meeting `json:"meetings"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/me/meetings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Meetings, nil
}

func (c *Client) UpdateMeeting(ctx context.Context, meetingID string, in MeetingInput) error {
	return c.do(ctx, http.MethodPatch, "/meetings/"+url.PathEscape(meetingID), nil, in.body(), nil)
}

func (c *Client) DeleteMeeting(ctx context.Context, meetingID string) error {
	return c.do(ctx, http.MethodDelete, "/meetings/"+url.PathEscape(meetingID), nil, nil, nil)
}

func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var out struct {
		Contacts []Contact `json:"contacts"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/users/me/contacts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}

func (c *Client) ListChannels(ctx context.Context, userID string) ([]Channel, error) {
	path := "/chat/channels"
	if userID != "" {
		path = "/chat/users/" + url.PathEscape(userID) + "/channels"
	}
	var out struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

type memberEmail struct {
	Email string `json:"email"`
}

func memberEmails(emails []string) []memberEmail {
	out := make([]memberEmail, 0, len(emails))
	for _, e := range emails {
		out = append(out, memberEmail{Email: e})
	}
	return out
}

func (c *Client) CreateChannel(ctx context.Context, in ChannelInput) (*Channel, error) {
	if in.Type == 0 {
		in.Type = 3
	}
	body := struct {
		Name    string        `json:"name"`
		Type    int           `json:"type"`
		Members []memberEmail `json:"members,omitempty"`
	}{Name: in.Name, Type: in.Type, Members: memberEmails(in.Members)}

	var channel Channel
	if err := c.do(ctx, http.MethodPost, "/chat/channels", nil, body, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

func (c *Client) UpdateChannel(ctx context.Context, channelID string, in ChannelInput) error {
	body := struct {
		Name string `json:"name,omitempty"`
	}{Name: in.Name}
	return c.do(ctx, http.MethodPatch, "/chat/channels/"+url.PathEscape(channelID), nil, body, nil)
}

func (c *Client) ListChannelMembers(ctx context.Context, channelID string) ([]ChannelMember, error) {
	var out struct {
		Members []ChannelMember `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/channels/"+url.PathEscape(channelID)+"/members", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

func (c *Client) AddChannelMembers(ctx context.Context, channelID string, emails []string) error {
	body := struct {
		Members []memberEmail `json:"members"`
	}{Members: memberEmails(emails)}
	return c.do(ctx, http.MethodPost, "/chat/channels/"+url.PathEscape(channelID)+"/members", nil, body, nil)
}

func (c *Client) RemoveChannelMember(ctx context.Context, channelID, memberID string) error {
	path := "/chat/channels/" + url.PathEscape(channelID) + "/members/" + url.PathEscape(memberID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) SendChatMessage(ctx context.Context, in SendMessageInput) (*ChatMessage, error) {
	var msg ChatMessage
	if err := c.do(ctx, http.MethodPost, "/chat/users/me/messages", nil, in, &msg); err != nil {
		return nil, err
	}
	if msg.Message == "" {
		msg.Message = in.Message
		msg.ToJID, msg.ToContact, msg.ToChannel = in.ToJID, in.ToContact, in.ToChannel
	}
	return &msg, nil
}

func (t Target) values() url.Values {
	q := url.Values{}
	if t.ToJID != "" {
		q.Set("to_jid", t.ToJID)
	}
	if t.ToContact != "" {
		q.Set("to_contact", t.ToContact)
	}
	if t.ToChannel != "" {
		q.Set("to_channel", t.ToChannel)
	}
	return q
}

func (c *Client) ListChatMessages(ctx context.Context, q MessageQuery) (*MessagePage, error) {
	params := q.Target.values()
	if q.From != "" {
		params.Set("from", q.From)
	}
	if q.To != "" {
		params.Set("to", q.To)
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 30
	}
	params.Set("page_size", strconv.Itoa(pageSize))
	if q.NextPageToken != "" {
		params.Set("next_page_token", q.NextPageToken)
	}

	page := &MessagePage{}
	if err := c.do(ctx, http.MethodGet, "/chat/users/me/messages", params, nil, page); err != nil {
		return nil, err
	}
	if page.Messages == nil {
		page.Messages = []ChatMessage{}
	}
	return page, nil
}

func (c *Client) UpdateChatMessage(ctx context.Context, messageID string, in SendMessageInput) error {
	return c.do(ctx, http.MethodPatch, "/chat/users/me/messages/"+url.PathEscape(messageID), nil, in, nil)
}

func (c *Client) DeleteChatMessage(ctx context.Context, messageID string, target Target) error {
	return c.do(ctx, http.MethodDelete, "/chat/users/me/messages/"+url.PathEscape(messageID), target.values(), nil, nil)
}

func (c *Client) UploadFile(ctx context.Context, upload FileUpload) (*UploadResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, upload.Name))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, upload.Body); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	for key, vals := range upload.Target.values() {
		if err := form.WriteField(key, vals[0]); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/users/me/files", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var result UploadResult
	if err := c.send(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
