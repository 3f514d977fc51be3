package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crescendolabs/identity/internal/domain"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
	"github.com/crescendolabs/identity/pkg/database"
)

// TenantRepository implements repository.TenantRepository using PostgreSQL.
type TenantRepository struct {
	db database.DBTX
}

// NewTenantRepository creates a new PostgreSQL-backed tenant repository.
func NewTenantRepository(db database.DBTX) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create inserts a new tenant and fills in the generated ID.
func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO tenants (name, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, t.Name, t.Address, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by its ID.
func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	var t domain.Tenant
	err := r.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("tenant", id)
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}

	return &t, nil
}

// List returns all tenants, newest first.
func (r *TenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	query := `
		SELECT id, name, address, created_at, updated_at
		FROM tenants
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant row: %w", err)
		}
		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenant rows: %w", err)
	}

	if tenants == nil {
		tenants = []domain.Tenant{}
	}

	return tenants, nil
}

// Update modifies an existing tenant.
func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	t.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tenants
		SET name = $1, address = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.db.Exec(ctx, query, t.Name, t.Address, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tenant", t.ID)
	}

	return nil
}

// Delete removes a tenant by its ID.
func (r *TenantRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tenant", id)
	}

	return nil
}
