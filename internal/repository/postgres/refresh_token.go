package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/crescendolabs/identity/internal/domain"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
	"github.com/crescendolabs/identity/pkg/database"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// PostgreSQL. Records are only ever inserted and deleted; revocation is row
// deletion, so a signed artifact whose jti has no row is dead.
type RefreshTokenRepository struct {
	db database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create inserts a new record and fills in the generated ID.
func (r *RefreshTokenRepository) Create(ctx context.Context, record *domain.RefreshTokenRecord) error {
	record.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO refresh_tokens (user_id, expires_at, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.db.QueryRow(ctx, query, record.UserID, record.ExpiresAt, record.CreatedAt).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// Delete removes a record by ID. Missing rows are ignored so logout stays
// idempotent.
func (r *RefreshTokenRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

// DeleteByUserID removes every record owned by the user.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh tokens by user: %w", err)
	}

	return nil
}

// Rotate deletes the old record and inserts the replacement in one
// transaction. When two rotations race on the same artifact, exactly one
// sees the delete hit a row; the loser gets an unauthorized error and
// inserts nothing.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldID int64, replacement *domain.RefreshTokenRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, oldID)
	if err != nil {
		return fmt.Errorf("delete rotated refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.Unauthorized("refresh token no longer valid")
	}

	replacement.CreatedAt = time.Now().UTC()
	err = tx.QueryRow(ctx,
		`INSERT INTO refresh_tokens (user_id, expires_at, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		replacement.UserID, replacement.ExpiresAt, replacement.CreatedAt,
	).Scan(&replacement.ID)
	if err != nil {
		return fmt.Errorf("insert replacement refresh token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}

	return nil
}
