package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	sync       *SyncService
	tokenMgr   *auth.TokenManager
	passwords  auth.PasswordHasher
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	CompanyRepo repository.CompanyRepository
	Sync        *SyncService
	Logger      *zap.Logger
}

// RegisterInput is a self-service signup.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	CompanyID *int64
	ManagerID *int64
}

// AuthResult is a signed-in user with their token.
type AuthResult struct {
	User         *domain.User
	Token        string
	ExpiresAt    time.Time
	ProviderSync domain.ProviderSync
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		companies:  deps.CompanyRepo,
		sync:       deps.Sync,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		passwords:  auth.NewPasswordHasher(cfg.Auth),
		logger:     orNop(deps.Logger),
	}
}

// Register creates an account. Super admins cannot be self-registered; they
// are created from the command line.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Role == "" {
		in.Role = domain.RoleEmployee
	}
	if in.Role == domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("super admin accounts cannot be registered")
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
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	result.ProviderSync = provisionUser(ctx, s.sync, s.logger, user)
	return result, nil
}

// Login verifies username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// Me returns the caller's current record.
func (s *AuthService) Me(ctx context.Context, principal *domain.Principal) (*domain.User, error) {
	return loadActor(ctx, s.users, principal)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp, ProviderSync: domain.ProviderSyncNone}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// ensureUnique reports duplicate usernames and emails as validation errors.
func ensureUnique(ctx context.Context, users repository.UserRepository, user *domain.User) error {
	if existing, err := users.GetByUsername(ctx, user.Username); err == nil && existing.ID != user.ID {
		return apperrors.NewValidationError("Username already exists", map[string]any{"field": "username"})
	} else if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	if existing, err := users.GetByEmail(ctx, user.Email); err == nil && existing.ID != user.ID {
		return apperrors.NewValidationError("Email already exists", map[string]any{"field": "email"})
	} else if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	return nil
}

// validateHierarchy loads the company and manager referenced by user and
// checks the structural rules.
func validateHierarchy(ctx context.Context, users repository.UserRepository, companies repository.CompanyRepository, user *domain.User) error {
	if user.CompanyID != nil {
		if _, err := companies.GetByID(ctx, *user.CompanyID); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("company does not exist", map[string]any{"companyId": *user.CompanyID})
			}
			return err
		}
	}

	var manager *domain.User
	if user.ManagerID != nil {
		m, err := users.GetByID(ctx, *user.ManagerID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("manager does not exist", map[string]any{"managerId": *user.ManagerID})
			}
			return err
		}
		manager = m
	}
	if err := user.ValidateHierarchy(manager); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return nil
}

// provisionUser enqueues the provider account for a new user. A failure to
// enqueue never fails the signup; the user simply stays unsynced.
func provisionUser(ctx context.Context, sync *SyncService, logger *zap.Logger, user *domain.User) domain.ProviderSync {
	if sync == nil {
		return domain.ProviderSyncNone
	}
	task, err := sync.Enqueue(ctx, domain.SyncUserProvision, domain.EntityUser, user.ID, domain.SyncPayload{Email: user.Email})
	if err != nil {
		logger.Warn("provider provisioning not enqueued", zap.Int64("user_id", user.ID), zap.Error(err))
		return domain.ProviderSyncNone
	}
	if task == nil {
		return domain.ProviderSyncNone
	}
	return domain.ProviderSyncPending
}
