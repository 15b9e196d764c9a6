package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/dto"
	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/domain"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (*domain.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func queryID(c *fiber.Ctx, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	return &id, nil
}

func data(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(fiber.Map{"data": v})
}
