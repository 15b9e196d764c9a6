package access

import "github.com/spec-kit/orgchat-service/internal/domain"

// CanManageCompany reports whether actor may edit company details.
func CanManageCompany(actor *domain.User, companyID int64) bool {
	if actor == nil {
		return false
	}
	if actor.Role == domain.RoleSuperAdmin {
		return true
	}
	return actor.Role == domain.RoleCompanyAdmin && actor.InCompany(companyID)
}

// CanViewOrgChart reports whether viewer may see the reporting tree.
func CanViewOrgChart(viewer *domain.User, companyID int64) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role == domain.RoleSuperAdmin || viewer.InCompany(companyID)
}
