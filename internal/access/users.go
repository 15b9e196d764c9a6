package access

import (
	"github.com/spec-kit/orgchat-service/internal/domain"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// UserChange describes the hierarchy-relevant fields of an update. Nil means
// unchanged.
type UserChange struct {
	Role         *domain.Role
	CompanyID    *int64
	ManagerID    *int64
	ClearManager bool
}

func (c UserChange) changesRole(target *domain.User) bool {
	return c.Role != nil && *c.Role != target.Role
}

func (c UserChange) changesCompany(target *domain.User) bool {
	if c.CompanyID == nil {
		return false
	}
	return target.CompanyID == nil || *target.CompanyID != *c.CompanyID
}

func (c UserChange) changesManager(target *domain.User) bool {
	if c.ClearManager {
		return target.ManagerID != nil
	}
	if c.ManagerID == nil {
		return false
	}
	return target.ManagerID == nil || *target.ManagerID != *c.ManagerID
}

func isMemberRole(r domain.Role) bool {
	return r == domain.RoleManager || r == domain.RoleEmployee
}

// CanViewUserProfile reports whether viewer may read target's full record.
func CanViewUserProfile(viewer, target *domain.User) bool {
	if viewer == nil || target == nil {
		return false
	}
	switch {
	case viewer.ID == target.ID:
		return true
	case viewer.Role == domain.RoleSuperAdmin:
		return true
	case viewer.Role == domain.RoleCompanyAdmin:
		return viewer.SameCompany(target)
	case viewer.Role == domain.RoleManager:
		return target.ManagedBy(viewer.ID)
	}
	return false
}

// CheckUserUpdate decides whether actor may apply change to target.
func CheckUserUpdate(actor, target *domain.User, change UserChange) error {
	if actor == nil || target == nil {
		return apperrors.NewForbidden("not allowed to update this user")
	}

	if actor.ID == target.ID {
		if change.changesRole(target) {
			return apperrors.NewForbidden("cannot change your own role")
		}
		if actor.Role != domain.RoleSuperAdmin && (change.changesCompany(target) || change.changesManager(target)) {
			return apperrors.NewForbidden("cannot change your own company or manager")
		}
		return nil
	}

	switch actor.Role {
	case domain.RoleSuperAdmin:
		return nil
	case domain.RoleCompanyAdmin:
		if !actor.SameCompany(target) || !isMemberRole(target.Role) {
			return apperrors.NewForbidden("company admins can only update managers and employees in their company")
		}
		if change.changesCompany(target) {
			return apperrors.NewForbidden("cannot move users to another company")
		}
		if change.Role != nil && !isMemberRole(*change.Role) {
			return apperrors.NewForbidden("company admins can only assign manager or employee roles")
		}
		return nil
	case domain.RoleManager:
		if target.Role != domain.RoleEmployee || !target.ManagedBy(actor.ID) {
			return apperrors.NewForbidden("managers can only update their own employees")
		}
		if change.changesRole(target) || change.changesCompany(target) || change.changesManager(target) {
			return apperrors.NewForbidden("managers cannot change role, company or manager")
		}
		return nil
	}
	return apperrors.NewForbidden("not allowed to update this user")
}

// CheckRoleChange guards the dedicated role endpoint. Nobody changes their own
// role, including super admins.
func CheckRoleChange(actor, target *domain.User, newRole domain.Role) error {
	if actor == nil || target == nil {
		return apperrors.NewForbidden("not allowed to change roles")
	}
	if actor.ID == target.ID {
		return apperrors.NewForbidden("cannot change your own role")
	}
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return nil
	case domain.RoleCompanyAdmin:
		if !actor.SameCompany(target) || !isMemberRole(target.Role) {
			return apperrors.NewForbidden("company admins can only change roles of managers and employees in their company")
		}
		if !isMemberRole(newRole) {
			return apperrors.NewForbidden("company admins can only assign manager or employee roles")
		}
		return nil
	}
	return apperrors.NewForbidden("not allowed to change roles")
}

// CheckUserCreate decides whether actor may create a user with role in
// companyID.
func CheckUserCreate(actor *domain.User, role domain.Role, companyID *int64) error {
	if actor == nil {
		return apperrors.NewForbidden("not allowed to create users")
	}
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return nil
	case domain.RoleCompanyAdmin:
		if !isMemberRole(role) {
			return apperrors.NewForbidden("company admins can only create managers and employees")
		}
		if companyID == nil || !actor.InCompany(*companyID) {
			return apperrors.NewForbidden("company admins can only create users in their own company")
		}
		return nil
	}
	return apperrors.NewForbidden("not allowed to create users")
}

// CheckUserDelete decides whether actor may delete target.
func CheckUserDelete(actor, target *domain.User) error {
	if actor == nil || target == nil {
		return apperrors.NewForbidden("not allowed to delete users")
	}
	if actor.ID == target.ID {
		return apperrors.NewForbidden("cannot delete your own account")
	}
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return nil
	case domain.RoleCompanyAdmin:
		if !actor.SameCompany(target) || !isMemberRole(target.Role) {
			return apperrors.NewForbidden("company admins can only delete managers and employees in their company")
		}
		return nil
	}
	return apperrors.NewForbidden("not allowed to delete users")
}
