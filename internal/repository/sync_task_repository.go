package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// SyncTaskRepository is the provider outbox.
type SyncTaskRepository interface {
	Enqueue(ctx context.Context, task *domain.SyncTask) error
	// ClaimDue returns up to limit pending tasks whose next attempt is due and
	// pushes their next attempt out by lease so concurrent workers skip them.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.SyncTask, error)
	MarkDone(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, attempts int, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastErr string) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]domain.SyncTask, error)
	List(ctx context.Context, filter SyncTaskFilter) ([]domain.SyncTask, error)
}

// SyncTaskFilter narrows outbox listings.
type SyncTaskFilter struct {
	Status *domain.SyncTaskStatus
	Limit  int
}

const syncTaskColumns = `id, kind, entity_type, entity_id, payload, status, attempts, last_error,
        next_attempt_at, created_at, updated_at`

type syncTaskRepository struct {
	pool *pgxpool.Pool
}

// NewSyncTaskRepository returns a Postgres-backed implementation.
func NewSyncTaskRepository(pool *pgxpool.Pool) SyncTaskRepository {
	return &syncTaskRepository{pool: pool}
}

func (r *syncTaskRepository) Enqueue(ctx context.Context, task *domain.SyncTask) error {
	const query = `
        INSERT INTO sync_tasks (kind, entity_type, entity_id, payload, status, next_attempt_at)
        VALUES ($1, $2, $3, $4, 'pending', $5)
        RETURNING id, status, attempts, created_at, updated_at`

	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = time.Now().UTC()
	}
	payload := []byte(task.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return mapPostgresError(r.pool.QueryRow(ctx, query,
		task.Kind,
		task.EntityType,
		task.EntityID,
		payload,
		task.NextAttemptAt,
	).Scan(&task.ID, &task.Status, &task.Attempts, &task.CreatedAt, &task.UpdatedAt))
}

func (r *syncTaskRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.SyncTask, error) {
	const query = `
        UPDATE sync_tasks SET next_attempt_at = $2, updated_at = NOW()
        WHERE id IN (
            SELECT id FROM sync_tasks
            WHERE status = 'pending' AND next_attempt_at <= $1
            ORDER BY id
            LIMIT $3
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + syncTaskColumns

	rows, err := r.pool.Query(ctx, query, now, now.Add(lease), limit)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collectSyncTasks(rows)
}

func (r *syncTaskRepository) MarkDone(ctx context.Context, id int64) error {
	const query = `
        UPDATE sync_tasks SET status='done', attempts=attempts+1, last_error='', updated_at=NOW()
        WHERE id=$1`
	return requireAffected(r.pool.Exec(ctx, query, id))
}

func (r *syncTaskRepository) MarkRetry(ctx context.Context, id int64, attempts int, lastErr string, next time.Time) error {
	const query = `
        UPDATE sync_tasks SET attempts=$1, last_error=$2, next_attempt_at=$3, updated_at=NOW()
        WHERE id=$4`
	return requireAffected(r.pool.Exec(ctx, query, attempts, lastErr, next, id))
}

func (r *syncTaskRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastErr string) error {
	const query = `
        UPDATE sync_tasks SET status='failed', attempts=$1, last_error=$2, updated_at=NOW()
        WHERE id=$3`
	return requireAffected(r.pool.Exec(ctx, query, attempts, lastErr, id))
}

func (r *syncTaskRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]domain.SyncTask, error) {
	const query = `SELECT ` + syncTaskColumns + `
        FROM sync_tasks WHERE entity_type=$1 AND entity_id=$2 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collectSyncTasks(rows)
}

func (r *syncTaskRepository) List(ctx context.Context, filter SyncTaskFilter) ([]domain.SyncTask, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + syncTaskColumns + ` FROM sync_tasks`
	args := []any{limit}
	if filter.Status != nil {
		query += ` WHERE status=$2`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collectSyncTasks(rows)
}

func collectSyncTasks(rows pgx.Rows) ([]domain.SyncTask, error) {
	defer rows.Close()

	var tasks []domain.SyncTask
	for rows.Next() {
		var t domain.SyncTask
		if err := rows.Scan(
			&t.ID,
			&t.Kind,
			&t.EntityType,
			&t.EntityID,
			&t.Payload,
			&t.Status,
			&t.Attempts,
			&t.LastError,
			&t.NextAttemptAt,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, mapPostgresError(err)
		}
		tasks = append(tasks, t)
	}
	return tasks, mapPostgresError(rows.Err())
}
