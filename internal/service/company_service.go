package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/access"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// CompanyService manages tenants and their org charts.
type CompanyService struct {
	companies repository.CompanyRepository
	users     repository.UserRepository
	logger    *zap.Logger
}

// CompanyDependencies bundles repositories for the company service.
type CompanyDependencies struct {
	CompanyRepo repository.CompanyRepository
	UserRepo    repository.UserRepository
	Logger      *zap.Logger
}

// CompanyInput creates or updates a company; nil fields are unchanged.
type CompanyInput struct {
	Name        *string
	Description *string
}

// NewCompanyService constructs the service.
func NewCompanyService(deps CompanyDependencies) *CompanyService {
	return &CompanyService{
		companies: deps.CompanyRepo,
		users:     deps.UserRepo,
		logger:    orNop(deps.Logger),
	}
}

// List returns every company for super admins and the caller's own otherwise.
func (s *CompanyService) List(ctx context.Context, principal *domain.Principal) ([]domain.Company, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleSuperAdmin {
		return s.companies.List(ctx)
	}
	if actor.CompanyID == nil {
		return []domain.Company{}, nil
	}
	company, err := s.get(ctx, *actor.CompanyID)
	if err != nil {
		return nil, err
	}
	return []domain.Company{*company}, nil
}

// Get returns one company the caller belongs to.
func (s *CompanyService) Get(ctx context.Context, principal *domain.Principal, id int64) (*domain.Company, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	company, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleSuperAdmin && !actor.InCompany(id) {
		return nil, apperrors.NewForbidden("not allowed to view this company")
	}
	return company, nil
}

// Create adds a company. Super admins only.
func (s *CompanyService) Create(ctx context.Context, principal *domain.Principal, in CompanyInput) (*domain.Company, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("only super admins can create companies")
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	company := &domain.Company{Name: strings.TrimSpace(*in.Name)}
	if in.Description != nil {
		company.Description = *in.Description
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("company created", zap.Int64("company_id", company.ID), zap.Int64("actor_id", actor.ID))
	return company, nil
}

// Update edits a company. Super admins, or the company's own admins.
func (s *CompanyService) Update(ctx context.Context, principal *domain.Principal, id int64, in CompanyInput) (*domain.Company, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	company, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanManageCompany(actor, id) {
		return nil, apperrors.NewForbidden("not allowed to update this company")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
		}
		company.Name = name
	}
	if in.Description != nil {
		company.Description = *in.Description
	}
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	return company, nil
}

// Delete removes a company and, with it, its users. Super admins only.
func (s *CompanyService) Delete(ctx context.Context, principal *domain.Principal, id int64) error {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleSuperAdmin {
		return apperrors.NewForbidden("only super admins can delete companies")
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.companies.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("company deleted", zap.Int64("company_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}

// OrgChart builds the reporting tree: admins, then managers with their
// direct reports, then employees without a manager.
func (s *CompanyService) OrgChart(ctx context.Context, principal *domain.Principal, id int64) (*domain.OrgChart, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	company, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanViewOrgChart(actor, id) {
		return nil, apperrors.NewForbidden("not allowed to view this org chart")
	}
	members, err := s.users.List(ctx, repository.UserFilter{CompanyID: &id})
	if err != nil {
		return nil, err
	}
	return buildOrgChart(*company, members), nil
}

func buildOrgChart(company domain.Company, members []domain.User) *domain.OrgChart {
	chart := &domain.OrgChart{
		Company:    company,
		Admins:     []domain.User{},
		Managers:   []domain.OrgChartManager{},
		Unassigned: []domain.User{},
	}
	managerIndex := map[int64]int{}
	for _, u := range members {
		switch u.Role {
		case domain.RoleCompanyAdmin:
			chart.Admins = append(chart.Admins, u)
		case domain.RoleManager:
			managerIndex[u.ID] = len(chart.Managers)
			chart.Managers = append(chart.Managers, domain.OrgChartManager{Manager: u, Reports: []domain.User{}})
		}
	}
	for _, u := range members {
		if u.Role != domain.RoleEmployee {
			continue
		}
		if u.ManagerID != nil {
			if idx, ok := managerIndex[*u.ManagerID]; ok {
				chart.Managers[idx].Reports = append(chart.Managers[idx].Reports, u)
				continue
			}
		}
		chart.Unassigned = append(chart.Unassigned, u)
	}

	byName := func(users []domain.User) {
		sort.SliceStable(users, func(i, j int) bool { return users[i].FullName() < users[j].FullName() })
	}
	byName(chart.Admins)
	byName(chart.Unassigned)
	sort.SliceStable(chart.Managers, func(i, j int) bool {
		return chart.Managers[i].Manager.FullName() < chart.Managers[j].Manager.FullName()
	})
	for i := range chart.Managers {
		byName(chart.Managers[i].Reports)
	}
	return chart
}

func (s *CompanyService) get(ctx context.Context, id int64) (*domain.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("company", map[string]any{"id": id})
		}
		return nil, err
	}
	return company, nil
}
