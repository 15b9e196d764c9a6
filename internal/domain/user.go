package domain

import (
	"errors"
	"time"
)

// Role is the position of a user in the corporate hierarchy.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleCompanyAdmin Role = "company_admin"
	RoleManager      Role = "manager"
	RoleEmployee     Role = "employee"
)

// Roles lists every role, highest first.
var Roles = []Role{RoleSuperAdmin, RoleCompanyAdmin, RoleManager, RoleEmployee}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User is a member of the hierarchy. CompanyID is nil only for super admins;
// ManagerID is only meaningful for employees.
type User struct {
	ID             int64
	Username       string
	Email          string
	FirstName      string
	LastName       string
	PasswordHash   string
	Role           Role
	CompanyID      *int64
	ManagerID      *int64
	ProviderUserID *string
	ProviderEmail  *string
	CreatedAt      time.Time
}

var (
	ErrCompanyRequired     = errors.New("company is required for this role")
	ErrSuperAdminCompany   = errors.New("super admins cannot belong to a company")
	ErrManagerOnlyEmployee = errors.New("only employees can have a manager")
	ErrManagerNotManager   = errors.New("assigned manager must have the manager role")
	ErrManagerOtherCompany = errors.New("assigned manager belongs to a different company")
	ErrManagerSelf         = errors.New("user cannot manage themselves")
)

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Username
}

// SameCompany reports whether both users belong to the same non-null company.
func (u *User) SameCompany(other *User) bool {
	if u == nil || other == nil || u.CompanyID == nil || other.CompanyID == nil {
		return false
	}
	return *u.CompanyID == *other.CompanyID
}

// InCompany reports whether the user belongs to companyID.
func (u *User) InCompany(companyID int64) bool {
	return u != nil && u.CompanyID != nil && *u.CompanyID == companyID
}

// ManagedBy reports whether managerID is the user's manager.
func (u *User) ManagedBy(managerID int64) bool {
	return u != nil && u.ManagerID != nil && *u.ManagerID == managerID
}

// ValidateHierarchy checks the structural invariants of the user against its
// (optional) manager record.
func (u *User) ValidateHierarchy(manager *User) error {
	if u.Role == RoleSuperAdmin && u.CompanyID != nil {
		return ErrSuperAdminCompany
	}
	if u.Role != RoleSuperAdmin && u.CompanyID == nil {
		return ErrCompanyRequired
	}
	if u.ManagerID == nil {
		return nil
	}
	if u.Role != RoleEmployee {
		return ErrManagerOnlyEmployee
	}
	if u.ID != 0 && *u.ManagerID == u.ID {
		return ErrManagerSelf
	}
	if manager == nil {
		return nil
	}
	if manager.Role != RoleManager {
		return ErrManagerNotManager
	}
	if !u.SameCompany(manager) {
		return ErrManagerOtherCompany
	}
	return nil
}
