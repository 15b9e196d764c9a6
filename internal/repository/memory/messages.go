package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
)

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[msg.SenderID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.users[msg.ReceiverID]; !ok {
		return repository.ErrNotFound
	}
	msg.ID = r.s.id("messages")
	msg.CreatedAt = r.s.now()
	r.s.messages[msg.ID] = *msg
	return nil
}

func (r *messageRepo) GetByID(_ context.Context, id int64) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *messageRepo) collect(match func(domain.Message) bool) []domain.Message {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Message
	for _, m := range r.s.messages {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *messageRepo) ListForUser(_ context.Context, userID int64) ([]domain.Message, error) {
	return r.collect(func(m domain.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	}), nil
}

func (r *messageRepo) ListBetween(_ context.Context, userA, userB int64) ([]domain.Message, error) {
	return r.collect(func(m domain.Message) bool {
		return (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA)
	}), nil
}

func (r *messageRepo) MarkRead(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.IsRead = true
	r.s.messages[id] = m
	return nil
}
