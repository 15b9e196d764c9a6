package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	SetProviderIdentity(ctx context.Context, id int64, providerUserID, providerEmail string) error
}

// UserFilter narrows user listings. Zero value lists everyone.
type UserFilter struct {
	CompanyID *int64
	ManagerID *int64
	Role      *domain.Role
}

// Matches applies the filter to a single user; shared by in-memory stores.
func (f UserFilter) Matches(u *domain.User) bool {
	if f.CompanyID != nil && !u.InCompany(*f.CompanyID) {
		return false
	}
	if f.ManagerID != nil && !u.ManagedBy(*f.ManagerID) {
		return false
	}
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	return true
}

const userColumns = `id, username, email, first_name, last_name, password_hash, role,
        company_id, manager_id, provider_user_id, provider_email, created_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.Role,
		&user.CompanyID,
		&user.ManagerID,
		&user.ProviderUserID,
		&user.ProviderEmail,
		&user.CreatedAt,
	); err != nil {
		return nil, mapPostgresError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, first_name, last_name, password_hash, role, company_id, manager_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role,
		user.CompanyID,
		user.ManagerID,
	).Scan(&user.ID, &user.CreatedAt)
	return mapPostgresError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users
        SET username=$1, email=$2, first_name=$3, last_name=$4, password_hash=$5, role=$6, company_id=$7, manager_id=$8
        WHERE id=$9`

	return requireAffected(r.pool.Exec(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role,
		user.CompanyID,
		user.ManagerID,
		user.ID,
	))
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.ManagerID != nil {
		args = append(args, *filter.ManagerID)
		conditions = append(conditions, fmt.Sprintf("manager_id = $%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, mapPostgresError(rows.Err())
}

func (r *userRepository) SetProviderIdentity(ctx context.Context, id int64, providerUserID, providerEmail string) error {
	const query = `UPDATE users SET provider_user_id=$1, provider_email=$2 WHERE id=$3`
	return requireAffected(r.pool.Exec(ctx, query, providerUserID, providerEmail, id))
}
