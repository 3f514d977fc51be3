// Package service implements the business logic for sessions, users, and
// tenants.
package service

import (
	"context"

	"github.com/crescendolabs/identity/internal/domain"
)

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// TokenIssuer mints signed session tokens.
type TokenIssuer interface {
	GenerateAccessToken(principal domain.Principal) (string, error)
	GenerateRefreshToken(principal domain.Principal, recordID int64) (string, error)
}

// EventPublisher publishes identity domain events. Publish failures never
// fail the triggering request; callers log and move on.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserCreated(ctx context.Context, user *domain.User) error
	PublishUserUpdated(ctx context.Context, user *domain.User) error
	PublishUserDeleted(ctx context.Context, user *domain.User) error
	PublishTenantCreated(ctx context.Context, tenant *domain.Tenant) error
	PublishTenantDeleted(ctx context.Context, tenant *domain.Tenant) error
}
