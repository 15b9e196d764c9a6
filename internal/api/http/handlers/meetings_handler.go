package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/dto"
	"github.com/spec-kit/orgchat-service/internal/service"
)

// MeetingsHandler schedules meetings.
type MeetingsHandler struct {
	meetings *service.MeetingService
}

// NewMeetingsHandler constructs handler.
func NewMeetingsHandler(meetings *service.MeetingService) *MeetingsHandler {
	return &MeetingsHandler{meetings: meetings}
}

func meetingDetail(d *service.MeetingDetail) dto.MeetingResponse {
	return dto.NewMeetingDetailResponse(d.Meeting, d.Participants, d.ProviderSync)
}

// List GET /api/meetings?companyId=.
func (h *MeetingsHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := queryID(c, "companyId")
	if err != nil {
		return err
	}
	meetings, err := h.meetings.List(c.UserContext(), p, companyID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewMeetingList(meetings))
}

// Get GET /api/meetings/:id.
func (h *MeetingsHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.meetings.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, meetingDetail(detail))
}

// Create POST /api/meetings.
func (h *MeetingsHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMeetingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.meetings.Create(c.UserContext(), p, service.CreateMeetingInput{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		CompanyID:      req.CompanyID,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, meetingDetail(detail))
}

// Update PUT /api/meetings/:id.
func (h *MeetingsHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateMeetingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.meetings.Update(c.UserContext(), p, id, service.UpdateMeetingInput{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, meetingDetail(detail))
}

// Delete DELETE /api/meetings/:id.
func (h *MeetingsHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.meetings.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddParticipant POST /api/meetings/:id/participants.
func (h *MeetingsHandler) AddParticipant(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ParticipantRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.meetings.AddParticipant(c.UserContext(), p, id, req.UserID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, meetingDetail(detail))
}

// RemoveParticipant DELETE /api/meetings/:id/participants/:userId.
func (h *MeetingsHandler) RemoveParticipant(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	if err := h.meetings.RemoveParticipant(c.UserContext(), p, id, userID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
