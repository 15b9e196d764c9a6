package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
)

type companyRepo struct{ s *Store }

func (r *companyRepo) Create(_ context.Context, company *domain.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	company.ID = r.s.id("companies")
	company.CreatedAt = r.s.now()
	r.s.companies[company.ID] = *company
	return nil
}

func (r *companyRepo) Update(_ context.Context, company *domain.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.companies[company.ID]
	if !ok {
		return repository.ErrNotFound
	}
	company.CreatedAt = existing.CreatedAt
	r.s.companies[company.ID] = *company
	return nil
}

func (r *companyRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.companies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.companies, id)
	for mid, m := range r.s.meetings {
		if m.CompanyID == id {
			r.s.deleteMeetingLocked(mid)
		}
	}
	for uid, u := range r.s.users {
		if u.InCompany(id) {
			r.s.deleteUserLocked(uid)
		}
	}
	return nil
}

func (r *companyRepo) GetByID(_ context.Context, id int64) (*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *companyRepo) List(_ context.Context) ([]domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	companies := make([]domain.Company, 0, len(r.s.companies))
	for _, c := range r.s.companies {
		companies = append(companies, c)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, nil
}
