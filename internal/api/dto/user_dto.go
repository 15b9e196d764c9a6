package dto

import (
	"time"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// CreateUserRequest is an admin-created account.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=100"`
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
	Role      string `json:"role" validate:"omitempty,oneof=super_admin company_admin manager employee"`
	CompanyID *int64 `json:"companyId"`
	ManagerID *int64 `json:"managerId"`
}

// UpdateUserRequest changes selected fields. clearManager detaches the user
// from their manager.
type UpdateUserRequest struct {
	Email        *string `json:"email" validate:"omitempty,email,max=100"`
	FirstName    *string `json:"firstName" validate:"omitempty,max=50"`
	LastName     *string `json:"lastName" validate:"omitempty,max=50"`
	Password     *string `json:"password" validate:"omitempty,min=6,max=100"`
	Role         *string `json:"role" validate:"omitempty,oneof=super_admin company_admin manager employee"`
	CompanyID    *int64  `json:"companyId"`
	ManagerID    *int64  `json:"managerId"`
	ClearManager bool    `json:"clearManager"`
}

// RoleRequest is the body of PUT /api/users/:id/role.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=super_admin company_admin manager employee"`
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	FullName       string    `json:"fullName"`
	Role           string    `json:"role"`
	CompanyID      *int64    `json:"companyId"`
	ManagerID      *int64    `json:"managerId"`
	ProviderUserID *string   `json:"providerUserId,omitempty"`
	ProviderEmail  *string   `json:"providerEmail,omitempty"`
	ProviderSync   string    `json:"providerSync,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		Role:           string(u.Role),
		CompanyID:      u.CompanyID,
		ManagerID:      u.ManagerID,
		ProviderUserID: u.ProviderUserID,
		ProviderEmail:  u.ProviderEmail,
		CreatedAt:      u.CreatedAt,
	}
}

// NewUserDetailResponse maps a user together with its provider sync state.
func NewUserDetailResponse(u *domain.User, sync domain.ProviderSync) UserResponse {
	resp := NewUserResponse(u)
	resp.ProviderSync = string(sync)
	return resp
}

// NewUserList maps a slice of users.
func NewUserList(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
