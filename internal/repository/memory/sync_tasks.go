package memory

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
)

type syncTaskRepo struct{ s *Store }

func (r *syncTaskRepo) Enqueue(_ context.Context, task *domain.SyncTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	task.ID = r.s.id("sync_tasks")
	task.Status = domain.SyncStatusPending
	task.Attempts = 0
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = now
	}
	if len(task.Payload) == 0 {
		task.Payload = []byte("{}")
	}
	r.s.syncTasks[task.ID] = *task
	return nil
}

func (r *syncTaskRepo) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]domain.SyncTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var due []domain.SyncTask
	for _, t := range r.s.syncTasks {
		if t.Status == domain.SyncStatusPending && !t.NextAttemptAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for i := range due {
		due[i].NextAttemptAt = now.Add(lease)
		due[i].UpdatedAt = now
		r.s.syncTasks[due[i].ID] = due[i]
	}
	return due, nil
}

func (r *syncTaskRepo) update(id int64, fn func(*domain.SyncTask)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.syncTasks[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&t)
	t.UpdatedAt = r.s.now()
	r.s.syncTasks[id] = t
	return nil
}

func (r *syncTaskRepo) MarkDone(_ context.Context, id int64) error {
	return r.update(id, func(t *domain.SyncTask) {
		t.Status = domain.SyncStatusDone
		t.Attempts++
		t.LastError = ""
	})
}

func (r *syncTaskRepo) MarkRetry(_ context.Context, id int64, attempts int, lastErr string, next time.Time) error {
	return r.update(id, func(t *domain.SyncTask) {
		t.Attempts = attempts
		t.LastError = lastErr
		t.NextAttemptAt = next
	})
}

func (r *syncTaskRepo) MarkFailed(_ context.Context, id int64, attempts int, lastErr string) error {
	return r.update(id, func(t *domain.SyncTask) {
		t.Status = domain.SyncStatusFailed
		t.Attempts = attempts
		t.LastError = lastErr
	})
}

func (r *syncTaskRepo) ListByEntity(_ context.Context, entityType domain.EntityType, entityID int64) ([]domain.SyncTask, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.SyncTask
	for _, t := range r.s.syncTasks {
		if t.EntityType == entityType && t.EntityID == entityID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *syncTaskRepo) List(_ context.Context, filter repository.SyncTaskFilter) ([]domain.SyncTask, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.SyncTask
	for _, t := range r.s.syncTasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
