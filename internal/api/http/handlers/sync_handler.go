package handlers

import (
	"net/http"
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/dto"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/relay"
	"github.com/spec-kit/orgchat-service/internal/service"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// SyncHandler reports provider outbox state and who is online.
type SyncHandler struct {
	sync     *service.SyncService
	users    *service.UserService
	presence relay.Presence
}

// NewSyncHandler constructs handler. presence may be nil.
func NewSyncHandler(sync *service.SyncService, users *service.UserService, presence relay.Presence) *SyncHandler {
	if presence == nil {
		presence = relay.NopPresence{}
	}
	return &SyncHandler{sync: sync, users: users, presence: presence}
}

// Tasks GET /api/sync/tasks?entity_type=&entity_id=&status=&limit=.
func (h *SyncHandler) Tasks(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	q := service.SyncTaskQuery{Limit: c.QueryInt("limit", 100)}
	if raw := c.Query("entity_type"); raw != "" {
		et := domain.EntityType(raw)
		if et != domain.EntityUser && et != domain.EntityMeeting {
			return apperrors.NewValidationError("entity_type must be user or meeting", map[string]any{"entity_type": raw})
		}
		q.EntityType = &et
	}
	if q.EntityID, err = queryID(c, "entity_id"); err != nil {
		return err
	}
	if raw := c.Query("status"); raw != "" {
		st := domain.SyncTaskStatus(raw)
		q.Status = &st
	}
	tasks, err := h.sync.List(c.UserContext(), p, q)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewSyncTaskList(tasks))
}

// Presence GET /api/presence lists the caller's contacts that are online.
func (h *SyncHandler) Presence(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	online, err := h.presence.List(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	contacts, err := h.users.Contacts(c.UserContext(), p)
	if err != nil {
		return err
	}
	visible := make([]int64, 0, len(online))
	for _, u := range contacts {
		if slices.Contains(online, u.ID) {
			visible = append(visible, u.ID)
		}
	}
	return data(c, http.StatusOK, fiber.Map{"online": visible})
}
