package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/dto"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/service"
)

// MessagesHandler exposes direct messages over REST. Messages posted here
// reach online receivers through the relay like socket-sent ones.
type MessagesHandler struct {
	messages *service.MessageService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messages *service.MessageService) *MessagesHandler {
	return &MessagesHandler{messages: messages}
}

// List GET /api/messages.
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	msgs, err := h.messages.ListForUser(c.UserContext(), p)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewMessageList(msgs))
}

// Send POST /api/messages.
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.messages.Post(c.UserContext(), p, req.ReceiverID, domain.MessageType(req.Type), req.Content)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewMessageResponse(msg))
}

// Conversations GET /api/messages/conversations.
func (h *MessagesHandler) Conversations(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	convs, err := h.messages.Conversations(c.UserContext(), p)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewConversationList(convs))
}

// Conversation GET /api/messages/conversation/:userId.
func (h *MessagesHandler) Conversation(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	partnerID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	msgs, err := h.messages.Conversation(c.UserContext(), p, partnerID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewMessageList(msgs))
}

// MarkRead PUT /api/messages/:id/read.
func (h *MessagesHandler) MarkRead(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	msg, err := h.messages.MarkRead(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewMessageResponse(msg))
}
