package repository

import (
	"context"

	"github.com/crescendolabs/identity/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user and fills in its generated ID.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns all users, newest first.
	List(ctx context.Context) ([]domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id int64) error
}

// TenantRepository defines the interface for tenant persistence operations.
type TenantRepository interface {
	// Create inserts a new tenant and fills in its generated ID.
	Create(ctx context.Context, tenant *domain.Tenant) error

	// GetByID retrieves a tenant by its unique identifier.
	GetByID(ctx context.Context, id int64) (*domain.Tenant, error)

	// List returns all tenants, newest first.
	List(ctx context.Context) ([]domain.Tenant, error)

	// Update modifies an existing tenant in the store.
	Update(ctx context.Context, tenant *domain.Tenant) error

	// Delete removes a tenant from the store by its identifier.
	Delete(ctx context.Context, id int64) error
}

// RefreshTokenRepository defines the interface for refresh token record
// persistence. Rows are never updated in place; deletion is the sole
// revocation primitive.
type RefreshTokenRepository interface {
	// Create inserts a new record and fills in its generated ID.
	Create(ctx context.Context, record *domain.RefreshTokenRecord) error

	// Delete removes a record by ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id int64) error

	// DeleteByUserID removes every record owned by the user.
	DeleteByUserID(ctx context.Context, userID int64) error

	// Rotate atomically deletes the record identified by oldID and inserts
	// replacement, filling in its generated ID. If oldID no longer exists
	// the rotation fails with an unauthorized error and nothing is
	// inserted.
	Rotate(ctx context.Context, oldID int64, replacement *domain.RefreshTokenRecord) error
}
