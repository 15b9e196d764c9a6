package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// MessageRepository persists direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Message, error)
	ListBetween(ctx context.Context, userA, userB int64) ([]domain.Message, error)
	// MarkRead sets is_read; marking an already read message is a no-op.
	MarkRead(ctx context.Context, id int64) error
}

const messageColumns = `id, sender_id, receiver_id, type, content, is_read, created_at`

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository returns a Postgres-backed implementation.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (sender_id, receiver_id, type, content, is_read)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	return mapPostgresError(r.pool.QueryRow(ctx, query,
		msg.SenderID,
		msg.ReceiverID,
		msg.Type,
		msg.Content,
		msg.IsRead,
	).Scan(&msg.ID, &msg.CreatedAt))
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrNotFound
	}
	return &msgs[0], nil
}

func (r *messageRepository) ListForUser(ctx context.Context, userID int64) ([]domain.Message, error) {
	const query = `SELECT ` + messageColumns + `
        FROM messages WHERE sender_id=$1 OR receiver_id=$1
        ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collectMessages(rows)
}

func (r *messageRepository) ListBetween(ctx context.Context, userA, userB int64) ([]domain.Message, error) {
	const query = `SELECT ` + messageColumns + `
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	return collectMessages(rows)
}

func (r *messageRepository) MarkRead(ctx context.Context, id int64) error {
	return requireAffected(r.pool.Exec(ctx, `UPDATE messages SET is_read=TRUE WHERE id=$1`, id))
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Type,
			&msg.Content,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, mapPostgresError(err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, mapPostgresError(rows.Err())
}
