package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// CompanyRepository persists tenants.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	Update(ctx context.Context, company *domain.Company) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository returns a Postgres-backed implementation.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (name, description)
        VALUES ($1, $2)
        RETURNING id, created_at`

	return mapPostgresError(r.pool.QueryRow(ctx, query, company.Name, company.Description).
		Scan(&company.ID, &company.CreatedAt))
}

func (r *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	const query = `UPDATE companies SET name=$1, description=$2 WHERE id=$3`
	return requireAffected(r.pool.Exec(ctx, query, company.Name, company.Description, company.ID))
}

// Delete removes the company; users go with it through ON DELETE CASCADE.
func (r *companyRepository) Delete(ctx context.Context, id int64) error {
	return requireAffected(r.pool.Exec(ctx, `DELETE FROM companies WHERE id=$1`, id))
}

func (r *companyRepository) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	const query = `SELECT id, name, description, created_at FROM companies WHERE id=$1`

	var company domain.Company
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.Description,
		&company.CreatedAt,
	); err != nil {
		return nil, mapPostgresError(err)
	}
	return &company, nil
}

func (r *companyRepository) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM companies ORDER BY name`)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(&company.ID, &company.Name, &company.Description, &company.CreatedAt); err != nil {
			return nil, mapPostgresError(err)
		}
		companies = append(companies, company)
	}
	return companies, mapPostgresError(rows.Err())
}
