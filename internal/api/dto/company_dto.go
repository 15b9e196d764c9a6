package dto

import (
	"time"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// CompanyRequest creates or edits a company.
type CompanyRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type CompanyResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}

func NewCompanyList(companies []domain.Company) []CompanyResponse {
	out := make([]CompanyResponse, 0, len(companies))
	for i := range companies {
		out = append(out, NewCompanyResponse(&companies[i]))
	}
	return out
}

type OrgChartManagerResponse struct {
	Manager UserResponse   `json:"manager"`
	Reports []UserResponse `json:"reports"`
}

type OrgChartResponse struct {
	Company    CompanyResponse           `json:"company"`
	Admins     []UserResponse            `json:"admins"`
	Managers   []OrgChartManagerResponse `json:"managers"`
	Unassigned []UserResponse            `json:"unassigned"`
}

func NewOrgChartResponse(chart *domain.OrgChart) OrgChartResponse {
	resp := OrgChartResponse{
		Company:    NewCompanyResponse(&chart.Company),
		Admins:     NewUserList(chart.Admins),
		Managers:   make([]OrgChartManagerResponse, 0, len(chart.Managers)),
		Unassigned: NewUserList(chart.Unassigned),
	}
	for i := range chart.Managers {
		resp.Managers = append(resp.Managers, OrgChartManagerResponse{
			Manager: NewUserResponse(&chart.Managers[i].Manager),
			Reports: NewUserList(chart.Managers[i].Reports),
		})
	}
	return resp
}
