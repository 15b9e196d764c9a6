package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/dto"
	"github.com/spec-kit/orgchat-service/internal/provider"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// ProviderHandler proxies authenticated callers to the meeting/chat provider.
type ProviderHandler struct {
	provider    provider.Provider
	uploadLimit int64
}

// NewProviderHandler constructs handler. uploadLimit caps voice notes.
func NewProviderHandler(p provider.Provider, uploadLimit int) *ProviderHandler {
	if p == nil {
		p = provider.Disabled{}
	}
	if uploadLimit <= 0 {
		uploadLimit = 10 * 1024 * 1024
	}
	return &ProviderHandler{provider: p, uploadLimit: int64(uploadLimit)}
}

func providerError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, provider.ErrDisabled) {
		return apperrors.NewDomainError("PROVIDER_DISABLED", err.Error(), http.StatusServiceUnavailable, nil)
	}
	if provider.IsNotFound(err) {
		return apperrors.NewNotFound("provider resource", nil)
	}
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		return apperrors.NewValidationError(apiErr.Message, map[string]any{"providerCode": apiErr.Code})
	}
	return apperrors.NewUpstreamError("provider request failed", err)
}

func chatTarget(toJID, toContact, toChannel string) provider.Target {
	return provider.Target{ToJID: toJID, ToContact: toContact, ToChannel: toChannel}
}

func meetingInput(req dto.ProviderMeetingRequest) provider.MeetingInput {
	in := provider.MeetingInput{
		Topic:    strings.TrimSpace(req.Topic),
		Agenda:   req.Agenda,
		Duration: req.Duration,
		Password: req.Password,
	}
	if req.StartTime != nil {
		in.StartTime = req.StartTime.UTC()
	}
	return in
}

// ListMeetings GET /api/provider/meetings.
func (h *ProviderHandler) ListMeetings(c *fiber.Ctx) error {
	meetings, err := h.provider.ListMeetings(c.UserContext())
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusOK, meetings)
}

// CreateMeeting POST /api/provider/meetings.
func (h *ProviderHandler) CreateMeeting(c *fiber.Ctx) error {
	var req dto.ProviderMeetingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	in := meetingInput(req)
	if in.Topic == "" || in.StartTime.IsZero() {
		return apperrors.NewValidationError("topic and startTime are required", nil)
	}
	m, err := h.provider.CreateMeeting(c.UserContext(), in)
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusCreated, m)
}

// GetMeeting GET /api/provider/meetings/:meetingId.
func (h *ProviderHandler) GetMeeting(c *fiber.Ctx) error {
	m, err := h.provider.GetMeeting(c.UserContext(), c.Params("meetingId"))
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusOK, m)
}

// UpdateMeeting PATCH /api/provider/meetings/:meetingId.
func (h *ProviderHandler) UpdateMeeting(c *fiber.Ctx) error {
	var req dto.ProviderMeetingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.provider.UpdateMeeting(c.UserContext(), c.Params("meetingId"), meetingInput(req)); err != nil {
		return providerError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// DeleteMeeting DELETE /api/provider/meetings/:meetingId.
func (h *ProviderHandler) DeleteMeeting(c *fiber.Ctx) error {
	if err := h.provider.DeleteMeeting(c.UserContext(), c.Params("meetingId")); err != nil {
		return providerError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Contacts GET /api/provider/contacts.
func (h *ProviderHandler) Contacts(c *fiber.Ctx) error {
	contacts, err := h.provider.ListContacts(c.UserContext())
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusOK, contacts)
}

// ListChannels GET /api/provider/channels?userId=.
func (h *ProviderHandler) ListChannels(c *fiber.Ctx) error {
	channels, err := h.provider.ListChannels(c.UserContext(), c.Query("userId", "me"))
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusOK, channels)
}

// CreateChannel POST /api/provider/channels.
func (h *ProviderHandler) CreateChannel(c *fiber.Ctx) error {
	var req dto.ChannelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("channel name is required", map[string]any{"name": "required"})
	}
	channelType := req.Type
	if channelType == 0 {
		channelType = 2
	}
	ch, err := h.provider.CreateChannel(c.UserContext(), provider.ChannelInput{Name: req.Name, Type: channelType, Members: req.Members})
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusCreated, ch)
}

// UpdateChannel PATCH /api/provider/channels/:channelId.
func (h *ProviderHandler) UpdateChannel(c *fiber.Ctx) error {
	var req dto.ChannelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.provider.UpdateChannel(c.UserContext(), c.Params("channelId"), provider.ChannelInput{Name: req.Name, Type: req.Type}); err != nil {
		return providerError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMembers GET /api/provider/channels/:channelId/members.
func (h *ProviderHandler) ListMembers(c *fiber.Ctx) error {
	members, err := h.provider.ListChannelMembers(c.UserContext(), c.Params("channelId"))
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusOK, members)
}

// AddMembers POST /api/provider/channels/:channelId/members.
func (h *ProviderHandler) AddMembers(c *fiber.Ctx) error {
	var req dto.ChannelMembersRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.provider.AddChannelMembers(c.UserContext(), c.Params("channelId"), req.Members); err != nil {
		return providerError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// RemoveMember DELETE /api/provider/channels/:channelId/members/:memberId.
func (h *ProviderHandler) RemoveMember(c *fiber.Ctx) error {
	if err := h.provider.RemoveChannelMember(c.UserContext(), c.Params("channelId"), c.Params("memberId")); err != nil {
		return providerError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMessages GET /api/provider/messages?toJid=&toContact=&toChannel=&from=&to=&pageSize=&nextPageToken=.
func (h *ProviderHandler) ListMessages(c *fiber.Ctx) error {
	q := provider.MessageQuery{
		Target:        chatTarget(c.Query("toJid"), c.Query("toContact"), c.Query("toChannel")),
		From:          c.Query("from"),
		To:            c.Query("to"),
		PageSize:      c.QueryInt("pageSize", 50),
		NextPageToken: c.Query("nextPageToken"),
	}
	if q.ToJID == "" && q.ToContact == "" && q.ToChannel == "" {
		return apperrors.NewValidationError("one of toJid, toContact or toChannel is required", nil)
	}
	page, err := h.provider.ListChatMessages(c.UserContext(), q)
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusOK, page)
}

// SendMessage POST /api/provider/messages.
func (h *ProviderHandler) SendMessage(c *fiber.Ctx) error {
	var req dto.ChatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !req.HasTarget() {
		return apperrors.NewValidationError("one of toJid, toContact or toChannel is required", nil)
	}
	msg, err := h.provider.SendChatMessage(c.UserContext(), provider.SendMessageInput{
		Target:             chatTarget(req.ToJID, req.ToContact, req.ToChannel),
		Message:            req.Message,
		ReplyMainMessageID: req.ReplyMainMessageID,
	})
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusCreated, msg)
}

// UpdateMessage PATCH /api/provider/messages/:messageId.
func (h *ProviderHandler) UpdateMessage(c *fiber.Ctx) error {
	var req dto.ChatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !req.HasTarget() {
		return apperrors.NewValidationError("one of toJid, toContact or toChannel is required", nil)
	}
	err := h.provider.UpdateChatMessage(c.UserContext(), c.Params("messageId"), provider.SendMessageInput{
		Target:  chatTarget(req.ToJID, req.ToContact, req.ToChannel),
		Message: req.Message,
	})
	if err != nil {
		return providerError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// DeleteMessage DELETE /api/provider/messages/:messageId?toJid=&toContact=&toChannel=.
func (h *ProviderHandler) DeleteMessage(c *fiber.Ctx) error {
	target := chatTarget(c.Query("toJid"), c.Query("toContact"), c.Query("toChannel"))
	if err := h.provider.DeleteChatMessage(c.UserContext(), c.Params("messageId"), target); err != nil {
		return providerError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Upload POST /api/provider/upload with multipart field "file".
func (h *ProviderHandler) Upload(c *fiber.Ctx) error {
	return h.forward(c, "file", false)
}

// Voice POST /api/provider/voice with multipart field "voice". Only audio is accepted.
func (h *ProviderHandler) Voice(c *fiber.Ctx) error {
	return h.forward(c, "voice", true)
}

func (h *ProviderHandler) forward(c *fiber.Ctx, field string, audioOnly bool) error {
	fh, err := c.FormFile(field)
	if err != nil {
		return apperrors.NewValidationError("missing multipart field", map[string]any{field: "required"})
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if audioOnly {
		if !strings.HasPrefix(contentType, "audio/") {
			return apperrors.NewValidationError("voice uploads must be audio", map[string]any{"contentType": contentType})
		}
		if fh.Size > h.uploadLimit {
			return apperrors.NewValidationError("voice upload too large", map[string]any{"limit": h.uploadLimit})
		}
	}
	target := chatTarget(c.FormValue("toJid"), c.FormValue("toContact"), c.FormValue("toChannel"))
	if target.ToJID == "" && target.ToContact == "" && target.ToChannel == "" {
		return apperrors.NewValidationError("one of toJid, toContact or toChannel is required", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer f.Close()

	res, err := h.provider.UploadFile(c.UserContext(), provider.FileUpload{
		Target:      target,
		Name:        fh.Filename,
		ContentType: contentType,
		Body:        f,
	})
	if err != nil {
		return providerError(err)
	}
	return data(c, http.StatusCreated, res)
}
