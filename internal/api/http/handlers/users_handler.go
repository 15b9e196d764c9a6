package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/dto"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/service"
)

// UsersHandler manages the user directory.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List GET /api/users?companyId=.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companyID, err := queryID(c, "companyId")
	if err != nil {
		return err
	}
	users, err := h.users.List(c.UserContext(), p, companyID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserList(users))
}

// Contacts GET /api/users/contacts.
func (h *UsersHandler) Contacts(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	users, err := h.users.Contacts(c.UserContext(), p)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserList(users))
}

// Get GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.users.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserDetailResponse(detail.User, detail.ProviderSync))
}

// Subordinates GET /api/users/:id/subordinates.
func (h *UsersHandler) Subordinates(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	users, err := h.users.Subordinates(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserList(users))
}

// Create POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.users.Create(c.UserContext(), p, service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
		CompanyID: req.CompanyID,
		ManagerID: req.ManagerID,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewUserDetailResponse(detail.User, detail.ProviderSync))
}

// Update PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	in := service.UpdateUserInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Password:     req.Password,
		CompanyID:    req.CompanyID,
		ManagerID:    req.ManagerID,
		ClearManager: req.ClearManager,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}
	detail, err := h.users.Update(c.UserContext(), p, id, in)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserDetailResponse(detail.User, detail.ProviderSync))
}

// ChangeRole PUT /api/users/:id/role.
func (h *UsersHandler) ChangeRole(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := h.users.ChangeRole(c.UserContext(), p, id, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserDetailResponse(detail.User, detail.ProviderSync))
}

// Delete DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
