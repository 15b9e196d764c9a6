package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/dto"
	"github.com/spec-kit/orgchat-service/internal/service"
)

// CompaniesHandler manages tenants and their org charts.
type CompaniesHandler struct {
	companies *service.CompanyService
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(companies *service.CompanyService) *CompaniesHandler {
	return &CompaniesHandler{companies: companies}
}

// List GET /api/companies.
func (h *CompaniesHandler) List(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	companies, err := h.companies.List(c.UserContext(), p)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCompanyList(companies))
}

// Get GET /api/companies/:id.
func (h *CompaniesHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	company, err := h.companies.Get(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCompanyResponse(company))
}

// Create POST /api/companies.
func (h *CompaniesHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Create(c.UserContext(), p, service.CompanyInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewCompanyResponse(company))
}

// Update PUT /api/companies/:id.
func (h *CompaniesHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	company, err := h.companies.Update(c.UserContext(), p, id, service.CompanyInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCompanyResponse(company))
}

// Delete DELETE /api/companies/:id.
func (h *CompaniesHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.companies.Delete(c.UserContext(), p, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// OrgChart GET /api/companies/:id/org-chart.
func (h *CompaniesHandler) OrgChart(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	chart, err := h.companies.OrgChart(c.UserContext(), p, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewOrgChartResponse(chart))
}
