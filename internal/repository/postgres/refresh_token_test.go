package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crescendolabs/identity/internal/domain"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
)

func newRefreshTokenTestFixture(t *testing.T) (*RefreshTokenRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository(mock)
	return repo, mock
}

func TestRefreshTokenRepository_Create_Success(t *testing.T) {
	repo, mock := newRefreshTokenTestFixture(t)
	defer mock.Close()

	record := &domain.RefreshTokenRecord{
		UserID:    42,
		ExpiresAt: time.Now().UTC().Add(365 * 24 * time.Hour),
	}

	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(record.UserID, record.ExpiresAt, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, int64(7), record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Delete_MissingRowIsNotAnError(t *testing.T) {
	repo, mock := newRefreshTokenTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs(int64(999)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), 999)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_DeleteByUserID(t *testing.T) {
	repo, mock := newRefreshTokenTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err := repo.DeleteByUserID(context.Background(), 42)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Rotate
// ---------------------------------------------------------------------------

func TestRefreshTokenRepository_Rotate_Success(t *testing.T) {
	repo, mock := newRefreshTokenTestFixture(t)
	defer mock.Close()

	replacement := &domain.RefreshTokenRecord{
		UserID:    42,
		ExpiresAt: time.Now().UTC().Add(365 * 24 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(replacement.UserID, replacement.ExpiresAt, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectCommit()

	err := repo.Rotate(context.Background(), 7, replacement)
	require.NoError(t, err)
	assert.Equal(t, int64(8), replacement.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Rotate_OldRecordGone(t *testing.T) {
	// A second rotation with the same artifact finds the row already
	// deleted and must fail without inserting a replacement.
	repo, mock := newRefreshTokenTestFixture(t)
	defer mock.Close()

	replacement := &domain.RefreshTokenRecord{
		UserID:    42,
		ExpiresAt: time.Now().UTC().Add(365 * 24 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := repo.Rotate(context.Background(), 7, replacement)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized), "expected ErrUnauthorized, got: %v", err)
	assert.Equal(t, int64(0), replacement.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
