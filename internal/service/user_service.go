package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/access"
	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// UserService manages accounts within the hierarchy.
type UserService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	sync       *SyncService
	passwords  auth.PasswordHasher
	logger     *zap.Logger
}

// UserDependencies bundles repositories for the user service.
type UserDependencies struct {
	UserRepo    repository.UserRepository
	CompanyRepo repository.CompanyRepository
	Sync        *SyncService
	Logger      *zap.Logger
}

// UserDetail is a user with their provider sync state.
type UserDetail struct {
	User         *domain.User
	ProviderSync domain.ProviderSync
}

// CreateUserInput is an admin-created account.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	CompanyID *int64
	ManagerID *int64
}

// UpdateUserInput changes selected fields; nil means unchanged.
type UpdateUserInput struct {
	Email        *string
	FirstName    *string
	LastName     *string
	Password     *string
	Role         *domain.Role
	CompanyID    *int64
	ManagerID    *int64
	ClearManager bool
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		companies:  deps.CompanyRepo,
		sync:       deps.Sync,
		passwords:  auth.NewPasswordHasher(cfg.Auth),
		logger:     orNop(deps.Logger),
	}
}

// List returns the directory for the caller. Admins see everyone in their
// scope; managers and employees see exactly the users they may message.
// companyID narrows a super admin's listing.
func (s *UserService) List(ctx context.Context, principal *domain.Principal, companyID *int64) ([]domain.User, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case domain.RoleSuperAdmin:
		return s.users.List(ctx, repository.UserFilter{CompanyID: companyID})
	case domain.RoleCompanyAdmin:
		if actor.CompanyID == nil {
			return nil, apperrors.NewForbidden("company admin without a company")
		}
		return s.users.List(ctx, repository.UserFilter{CompanyID: actor.CompanyID})
	}
	return s.Contacts(ctx, principal)
}

// Contacts returns the users the caller may message.
func (s *UserService) Contacts(ctx context.Context, principal *domain.Principal) ([]domain.User, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	filter := repository.UserFilter{}
	if actor.Role != domain.RoleSuperAdmin {
		if actor.CompanyID == nil {
			return []domain.User{}, nil
		}
		filter.CompanyID = actor.CompanyID
	}
	candidates, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return access.VisibleUsers(actor, candidates), nil
}

// Get returns one user if the caller may see their profile or message them.
func (s *UserService) Get(ctx context.Context, principal *domain.Principal, id int64) (*UserDetail, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	target, err := loadUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}
	if !access.CanViewUserProfile(actor, target) && !access.CanSeeUser(actor, target) {
		return nil, apperrors.NewForbidden("not allowed to view this user")
	}
	return s.detail(ctx, target)
}

// Subordinates lists the direct reports of managerID.
func (s *UserService) Subordinates(ctx context.Context, principal *domain.Principal, managerID int64) ([]domain.User, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	manager, err := loadUser(ctx, s.users, managerID)
	if err != nil {
		return nil, err
	}
	if actor.ID != manager.ID && !access.CanViewUserProfile(actor, manager) {
		return nil, apperrors.NewForbidden("not allowed to view this team")
	}
	return s.users.List(ctx, repository.UserFilter{ManagerID: &manager.ID})
}

// Create adds a user on behalf of an admin and enqueues provider
// provisioning. A company admin's users default to their own company.
func (s *UserService) Create(ctx context.Context, principal *domain.Principal, in CreateUserInput) (*UserDetail, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = domain.RoleEmployee
	}
	if in.CompanyID == nil && actor.Role == domain.RoleCompanyAdmin {
		in.CompanyID = actor.CompanyID
	}
	if err := access.CheckUserCreate(actor, in.Role, in.CompanyID); err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
		CompanyID: in.CompanyID,
		ManagerID: in.ManagerID,
	}
	if err := ensureUnique(ctx, s.users, user); err != nil {
		return nil, err
	}
	if err := validateHierarchy(ctx, s.users, s.companies, user); err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.Int64("actor_id", actor.ID),
		zap.String("role", string(user.Role)))

	return &UserDetail{User: user, ProviderSync: provisionUser(ctx, s.sync, s.logger, user)}, nil
}

// Update applies a partial update after the hierarchy checks.
func (s *UserService) Update(ctx context.Context, principal *domain.Principal, id int64, in UpdateUserInput) (*UserDetail, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	target, err := loadUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}

	change := access.UserChange{Role: in.Role, CompanyID: in.CompanyID, ManagerID: in.ManagerID, ClearManager: in.ClearManager}
	if err := access.CheckUserUpdate(actor, target, change); err != nil {
		return nil, err
	}

	updated := *target
	if in.Email != nil {
		updated.Email = strings.TrimSpace(*in.Email)
	}
	if in.FirstName != nil {
		updated.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		updated.LastName = *in.LastName
	}
	if in.Role != nil {
		updated.Role = *in.Role
	}
	switch {
	case in.CompanyID != nil:
		updated.CompanyID = in.CompanyID
	case updated.Role == domain.RoleSuperAdmin:
		updated.CompanyID = nil
	}
	switch {
	case in.ClearManager:
		updated.ManagerID = nil
	case in.ManagerID != nil:
		updated.ManagerID = in.ManagerID
	case updated.Role != domain.RoleEmployee:
		updated.ManagerID = nil
	}
	if in.Password != nil {
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}

	if err := ensureUnique(ctx, s.users, &updated); err != nil {
		return nil, err
	}
	if err := validateHierarchy(ctx, s.users, s.companies, &updated); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.releaseReports(ctx, target, &updated); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.Int64("user_id", updated.ID), zap.Int64("actor_id", actor.ID))
	return s.detail(ctx, &updated)
}

// ChangeRole is the dedicated role endpoint. Nobody changes their own role.
func (s *UserService) ChangeRole(ctx context.Context, principal *domain.Principal, id int64, role domain.Role) (*UserDetail, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	target, err := loadUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}
	if err := access.CheckRoleChange(actor, target, role); err != nil {
		return nil, err
	}

	updated := *target
	updated.Role = role
	if role != domain.RoleEmployee {
		updated.ManagerID = nil
	}
	if role == domain.RoleSuperAdmin {
		updated.CompanyID = nil
	}
	if err := validateHierarchy(ctx, s.users, s.companies, &updated); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.releaseReports(ctx, target, &updated); err != nil {
		return nil, err
	}
	s.logger.Info("user role changed",
		zap.Int64("user_id", updated.ID),
		zap.Int64("actor_id", actor.ID),
		zap.String("from", string(target.Role)),
		zap.String("to", string(role)))
	return s.detail(ctx, &updated)
}

// Delete removes a user; their messages, organized meetings and
// participations go with them.
func (s *UserService) Delete(ctx context.Context, principal *domain.Principal, id int64) error {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return err
	}
	target, err := loadUser(ctx, s.users, id)
	if err != nil {
		return err
	}
	if err := access.CheckUserDelete(actor, target); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}

// releaseReports detaches the direct reports of a user who stopped being a
// manager or moved company, keeping every manager link valid.
func (s *UserService) releaseReports(ctx context.Context, before, after *domain.User) error {
	if before.Role != domain.RoleManager {
		return nil
	}
	if after.Role == domain.RoleManager && after.SameCompany(before) {
		return nil
	}
	reports, err := s.users.List(ctx, repository.UserFilter{ManagerID: &before.ID})
	if err != nil {
		return err
	}
	for i := range reports {
		report := reports[i]
		report.ManagerID = nil
		if err := s.users.Update(ctx, &report); err != nil {
			return apperrors.MapError(err)
		}
	}
	if len(reports) > 0 {
		s.logger.Info("direct reports released", zap.Int64("manager_id", before.ID), zap.Int("count", len(reports)))
	}
	return nil
}

func (s *UserService) detail(ctx context.Context, user *domain.User) (*UserDetail, error) {
	status := domain.ProviderSyncNone
	if s.sync != nil {
		st, err := s.sync.Status(ctx, domain.EntityUser, user.ID)
		if err != nil {
			return nil, err
		}
		status = st
	}
	if status == domain.ProviderSyncNone && user.ProviderUserID != nil {
		status = domain.ProviderSyncSynced
	}
	return &UserDetail{User: user, ProviderSync: status}, nil
}
