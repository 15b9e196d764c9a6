package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) uniqueLocked(u *domain.User) error {
	for id, existing := range r.s.users {
		if id == u.ID {
			continue
		}
		if existing.Username == u.Username || existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	return nil
}

func (r *userRepo) refsLocked(u *domain.User) error {
	if u.CompanyID != nil {
		if _, ok := r.s.companies[*u.CompanyID]; !ok {
			return repository.ErrNotFound
		}
	}
	if u.ManagerID != nil {
		if _, ok := r.s.users[*u.ManagerID]; !ok {
			return repository.ErrNotFound
		}
	}
	return nil
}

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.uniqueLocked(user); err != nil {
		return err
	}
	if err := r.refsLocked(user); err != nil {
		return err
	}
	user.ID = r.s.id("users")
	user.CreatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.uniqueLocked(user); err != nil {
		return err
	}
	if err := r.refsLocked(user); err != nil {
		return err
	}
	user.CreatedAt = existing.CreatedAt
	user.ProviderUserID = existing.ProviderUserID
	user.ProviderEmail = existing.ProviderEmail
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	r.s.deleteUserLocked(id)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if filter.Matches(&u) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *userRepo) SetProviderIdentity(_ context.Context, id int64, providerUserID, providerEmail string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ProviderUserID = &providerUserID
	u.ProviderEmail = &providerEmail
	r.s.users[id] = u
	return nil
}
