package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// MeetingRepository persists meetings and their participants.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *domain.Meeting) error
	Update(ctx context.Context, meeting *domain.Meeting) error
	// Delete removes the meeting and, with it, every participant row.
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Meeting, error)
	List(ctx context.Context, filter MeetingFilter) ([]domain.Meeting, error)
	SetProviderHandle(ctx context.Context, id int64, providerMeetingID, password, joinURL string) error

	// AddParticipant is idempotent per (meeting, user).
	AddParticipant(ctx context.Context, meetingID, userID int64) error
	RemoveParticipant(ctx context.Context, meetingID, userID int64) error
	ListParticipants(ctx context.Context, meetingID int64) ([]domain.MeetingParticipant, error)
}

// MeetingFilter narrows meeting listings. UserID matches meetings the user
// organizes or participates in.
type MeetingFilter struct {
	CompanyID *int64
	UserID    *int64
}

const meetingColumns = `m.id, m.title, m.description, m.start_time, m.end_time, m.organizer_id, m.company_id,
        m.provider_meeting_id, m.provider_password, m.provider_join_url, m.created_at`

type meetingRepository struct {
	pool *pgxpool.Pool
}

// NewMeetingRepository returns a Postgres-backed implementation.
func NewMeetingRepository(pool *pgxpool.Pool) MeetingRepository {
	return &meetingRepository{pool: pool}
}

func scanMeeting(row pgx.Row) (*domain.Meeting, error) {
	var m domain.Meeting
	if err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.StartTime,
		&m.EndTime,
		&m.OrganizerID,
		&m.CompanyID,
		&m.ProviderMeetingID,
		&m.ProviderPassword,
		&m.ProviderJoinURL,
		&m.CreatedAt,
	); err != nil {
		return nil, mapPostgresError(err)
	}
	return &m, nil
}

func (r *meetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	const query = `
        INSERT INTO meetings (title, description, start_time, end_time, organizer_id, company_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	return mapPostgresError(r.pool.QueryRow(ctx, query,
		meeting.Title,
		meeting.Description,
		meeting.StartTime,
		meeting.EndTime,
		meeting.OrganizerID,
		meeting.CompanyID,
	).Scan(&meeting.ID, &meeting.CreatedAt))
}

func (r *meetingRepository) Update(ctx context.Context, meeting *domain.Meeting) error {
	const query = `
        UPDATE meetings SET title=$1, description=$2, start_time=$3, end_time=$4
        WHERE id=$5`

	return requireAffected(r.pool.Exec(ctx, query,
		meeting.Title,
		meeting.Description,
		meeting.StartTime,
		meeting.EndTime,
		meeting.ID,
	))
}

func (r *meetingRepository) Delete(ctx context.Context, id int64) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM meetings WHERE id=$1`, id))
}

func (r *meetingRepository) GetByID(ctx context.Context, id int64) (*domain.Meeting, error) {
	return scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings m WHERE m.id=$1`, id))
}

func (r *meetingRepository) List(ctx context.Context, filter MeetingFilter) ([]domain.Meeting, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("m.company_id = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf(
			"(m.organizer_id = $%[1]d OR EXISTS (SELECT 1 FROM meeting_participants p WHERE p.meeting_id = m.id AND p.user_id = $%[1]d))",
			len(args)))
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings m`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.start_time, m.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	var meetings []domain.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, *m)
	}
	return meetings, mapPostgresError(rows.Err())
}

func (r *meetingRepository) SetProviderHandle(ctx context.Context, id int64, providerMeetingID, password, joinURL string) error {
	const query = `
        UPDATE meetings SET provider_meeting_id=$1, provider_password=$2, provider_join_url=$3
        WHERE id=$4`
	return requireAffected(r.pool.Exec(ctx, query, providerMeetingID, password, joinURL, id))
}

func (r *meetingRepository) AddParticipant(ctx context.Context, meetingID, userID int64) error {
	const query = `
        INSERT INTO meeting_participants (meeting_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (meeting_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, meetingID, userID)
	return mapPostgresError(err)
}

func (r *meetingRepository) RemoveParticipant(ctx context.Context, meetingID, userID int64) error {
	const query = `DELETE FROM meeting_participants WHERE meeting_id=$1 AND user_id=$2`
	return requireAffected(r.pool.Exec(ctx, query, meetingID, userID))
}

func (r *meetingRepository) ListParticipants(ctx context.Context, meetingID int64) ([]domain.MeetingParticipant, error) {
	const query = `
        SELECT id, meeting_id, user_id, attended
        FROM meeting_participants WHERE meeting_id=$1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	var participants []domain.MeetingParticipant
	for rows.Next() {
		var p domain.MeetingParticipant
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.UserID, &p.Attended); err != nil {
			return nil, mapPostgresError(err)
		}
		participants = append(participants, p)
	}
	return participants, mapPostgresError(rows.Err())
}
