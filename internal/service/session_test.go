package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crescendolabs/identity/internal/domain"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
)

type sessionFixture struct {
	userRepo  *mockUserRepository
	tokenRepo *mockRefreshTokenRepository
	issuer    *mockTokenIssuer
	producer  *mockEventPublisher
	svc       *SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		userRepo:  new(mockUserRepository),
		tokenRepo: new(mockRefreshTokenRepository),
		issuer:    new(mockTokenIssuer),
		producer:  new(mockEventPublisher),
	}
	f.svc = NewSessionService(
		f.userRepo, f.tokenRepo, newTestHasher(t), f.issuer, f.producer,
		365*24*time.Hour, newTestLogger(),
	)
	return f
}

// --- Register ---

func TestSessionRegister_Success(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 42
		}).
		Return(nil)
	f.tokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshTokenRecord")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.RefreshTokenRecord).ID = 7
		}).
		Return(nil)
	f.issuer.On("GenerateAccessToken", domain.Principal{UserID: 42, Role: domain.RoleCustomer}).
		Return("access-token", nil)
	f.issuer.On("GenerateRefreshToken", domain.Principal{UserID: 42, Role: domain.RoleCustomer}, int64(7)).
		Return("refresh-token", nil)
	f.producer.On("PublishUserRegistered", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, tokens, err := f.svc.Register(ctx, RegisterInput{
		FirstName: "A",
		LastName:  "B",
		Email:     "a@b.com",
		Password:  "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.Equal(t, "access-token", tokens.AccessToken)
	assert.Equal(t, "refresh-token", tokens.RefreshToken)

	f.userRepo.AssertExpectations(t)
	f.tokenRepo.AssertExpectations(t)
	f.issuer.AssertExpectations(t)
}

func TestSessionRegister_DuplicateEmail(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.Conflict("email already exists"))

	user, tokens, err := f.svc.Register(ctx, RegisterInput{
		FirstName: "A",
		LastName:  "B",
		Email:     "a@b.com",
		Password:  "password123",
	})

	assert.Nil(t, user)
	assert.Nil(t, tokens)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	f.tokenRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSessionRegister_MissingFields(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, RegisterInput{LastName: "B", Email: "a@b.com", Password: "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, _, err = f.svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.com"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- Login ---

func TestSessionLogin_Success(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	stored := &domain.User{
		ID:           42,
		Email:        "a@b.com",
		PasswordHash: hashForTest(t, "password123"),
		Role:         domain.RoleCustomer,
	}

	f.userRepo.On("GetByEmail", ctx, "a@b.com").Return(stored, nil)
	f.tokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshTokenRecord")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.RefreshTokenRecord).ID = 9
		}).
		Return(nil)
	f.issuer.On("GenerateAccessToken", domain.Principal{UserID: 42, Role: domain.RoleCustomer}).
		Return("access-token", nil)
	f.issuer.On("GenerateRefreshToken", domain.Principal{UserID: 42, Role: domain.RoleCustomer}, int64(9)).
		Return("refresh-token", nil)

	user, tokens, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.NotNil(t, tokens)

	f.userRepo.AssertExpectations(t)
	f.tokenRepo.AssertExpectations(t)
}

func TestSessionLogin_WrongPassword(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	stored := &domain.User{
		ID:           42,
		Email:        "a@b.com",
		PasswordHash: hashForTest(t, "password123"),
		Role:         domain.RoleCustomer,
	}

	f.userRepo.On("GetByEmail", ctx, "a@b.com").Return(stored, nil)

	user, tokens, err := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-password"})

	assert.Nil(t, user)
	assert.Nil(t, tokens)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	// No session material is minted on a failed login.
	f.tokenRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSessionLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	stored := &domain.User{
		ID:           42,
		Email:        "a@b.com",
		PasswordHash: hashForTest(t, "password123"),
		Role:         domain.RoleCustomer,
	}

	f.userRepo.On("GetByEmail", ctx, "missing@b.com").Return(nil, apperrors.ErrNotFound)
	f.userRepo.On("GetByEmail", ctx, "a@b.com").Return(stored, nil)

	_, _, unknownErr := f.svc.Login(ctx, LoginInput{Email: "missing@b.com", Password: "password123"})
	_, _, mismatchErr := f.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong-password"})

	require.Error(t, unknownErr)
	require.Error(t, mismatchErr)

	// Both failure modes must be indistinguishable to the caller.
	var unknownApp, mismatchApp *apperrors.AppError
	require.ErrorAs(t, unknownErr, &unknownApp)
	require.ErrorAs(t, mismatchErr, &mismatchApp)
	assert.Equal(t, mismatchApp.Code, unknownApp.Code)
	assert.Equal(t, mismatchApp.Message, unknownApp.Message)
	assert.Equal(t, mismatchApp.Status, unknownApp.Status)
}

// --- Refresh ---

func TestSessionRefresh_RotatesRecord(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	stored := &domain.User{ID: 42, Role: domain.RoleManager}
	principal := domain.Principal{UserID: 42, Role: domain.RoleManager}

	f.userRepo.On("GetByID", ctx, int64(42)).Return(stored, nil)
	f.tokenRepo.On("Rotate", ctx, int64(7), mock.AnythingOfType("*domain.RefreshTokenRecord")).
		Run(func(args mock.Arguments) {
			args.Get(2).(*domain.RefreshTokenRecord).ID = 8
		}).
		Return(nil)
	f.issuer.On("GenerateAccessToken", principal).Return("new-access", nil)
	f.issuer.On("GenerateRefreshToken", principal, int64(8)).Return("new-refresh", nil)

	user, tokens, err := f.svc.Refresh(ctx, principal, 7)

	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "new-access", tokens.AccessToken)
	assert.Equal(t, "new-refresh", tokens.RefreshToken)

	f.tokenRepo.AssertExpectations(t)
}

func TestSessionRefresh_RotatedOutArtifactFails(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	stored := &domain.User{ID: 42, Role: domain.RoleCustomer}
	principal := domain.Principal{UserID: 42, Role: domain.RoleCustomer}

	f.userRepo.On("GetByID", ctx, int64(42)).Return(stored, nil)
	f.tokenRepo.On("Rotate", ctx, int64(7), mock.AnythingOfType("*domain.RefreshTokenRecord")).
		Return(apperrors.Unauthorized("refresh token no longer valid"))

	user, tokens, err := f.svc.Refresh(ctx, principal, 7)

	assert.Nil(t, user)
	assert.Nil(t, tokens)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	f.issuer.AssertNotCalled(t, "GenerateAccessToken", mock.Anything)
}

func TestSessionRefresh_DeletedUser(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.userRepo.On("GetByID", ctx, int64(42)).Return(nil, apperrors.ErrNotFound)

	_, _, err := f.svc.Refresh(ctx, domain.Principal{UserID: 42, Role: domain.RoleCustomer}, 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- Logout ---

func TestSessionLogout_DeletesRecord(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.tokenRepo.On("Delete", ctx, int64(7)).Return(nil)

	err := f.svc.Logout(ctx, domain.Principal{UserID: 42, Role: domain.RoleCustomer}, 7)

	assert.NoError(t, err)
	f.tokenRepo.AssertExpectations(t)
}

// --- Self ---

func TestSessionSelf_Success(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	stored := &domain.User{ID: 42, Email: "a@b.com", Role: domain.RoleCustomer}
	f.userRepo.On("GetByID", ctx, int64(42)).Return(stored, nil)

	user, err := f.svc.Self(ctx, 42)

	require.NoError(t, err)
	assert.Equal(t, stored, user)
}

func TestSessionSelf_DeletedUser(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	f.userRepo.On("GetByID", ctx, int64(42)).Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.Self(ctx, 42)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
