// Package repository provides PostgreSQL persistence for clients.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyeadmin82/strata-guard-stack-sub003/internal/clients/domain"
	"github.com/skyeadmin82/strata-guard-stack-sub003/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, tenant_id, company_name, contact_name, email, phone,
	industry, company_size, territory, value_tier, created_at, updated_at`

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.TenantID, &c.CompanyName, &c.ContactName,
		&c.Email, &c.Phone, &c.Industry, &c.CompanySize, &c.Territory,
		&c.ValueTier, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a new client. Duplicate email within a tenant maps to a
// conflict error via the unique constraint.
func (r *Repository) Create(ctx context.Context, c domain.Client) (domain.Client, error) {
	const op = "clients.Repository.Create"
	const q = `
		INSERT INTO clients (id, tenant_id, company_name, contact_name, email,
			phone, industry, company_size, territory, value_tier, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt

	_, err := r.pool.Exec(ctx, q, c.ID, c.TenantID, c.CompanyName, c.ContactName,
		c.Email, c.Phone, c.Industry, c.CompanySize, c.Territory, c.ValueTier, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Client{}, apperr.Conflict("a client with this email already exists").WithOp(op)
		}
		return domain.Client{}, apperr.Wrap(apperr.KindInternal, "failed to create client", err).WithOp(op)
	}
	return c, nil
}

// GetByID fetches one client scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (domain.Client, error) {
	const op = "clients.Repository.GetByID"
	const q = `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND tenant_id = $2`

	c, err := scanClient(r.pool.QueryRow(ctx, q, clientID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Client{}, apperr.NotFound("client not found").WithOp(op)
	}
	if err != nil {
		return domain.Client{}, apperr.Wrap(apperr.KindInternal, "failed to fetch client", err).WithOp(op)
	}
	return c, nil
}

// List returns the tenant's clients, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]domain.Client, error) {
	const op = "clients.Repository.List"
	const q = `SELECT ` + clientColumns + ` FROM clients WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list clients", err).WithOp(op)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan client", err).WithOp(op)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
