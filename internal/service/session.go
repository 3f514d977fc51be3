package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crescendolabs/identity/internal/domain"
	"github.com/crescendolabs/identity/internal/repository"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
)

// SessionService coordinates register, login, refresh, and logout by
// combining the user store, the password hasher, the refresh token store,
// and the token issuer.
type SessionService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.RefreshTokenRepository
	hasher     PasswordHasher
	issuer     TokenIssuer
	producer   EventPublisher
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewSessionService creates a new session service. refreshTTL bounds both
// the signed artifact and the persisted record.
func NewSessionService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	hasher PasswordHasher,
	issuer TokenIssuer,
	producer EventPublisher,
	refreshTTL time.Duration,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		hasher:     hasher,
		issuer:     issuer,
		producer:   producer,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// RegisterInput holds the parameters for self-registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput holds the parameters for login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a customer account, persists a refresh token record, and
// issues a token pair. A duplicate email surfaces as a conflict from the
// store's unique constraint.
func (s *SessionService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, nil, apperrors.InvalidInput("last name is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: digest,
		Role:         domain.RoleCustomer,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password report the same error so callers cannot probe which
// addresses are registered.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidCredentials()
		}
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, apperrors.InvalidCredentials()
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.Int64("user_id", user.ID),
	)

	return user, tokens, nil
}

// Refresh rotates the refresh token record identified by oldTokenID and
// issues a new pair. The rotation is atomic; when two calls race on the
// same artifact the loser fails with an authentication error.
func (s *SessionService) Refresh(ctx context.Context, principal domain.Principal, oldTokenID int64) (*domain.User, *domain.TokenPair, error) {
	user, err := s.userRepo.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("user no longer exists")
		}
		return nil, nil, fmt.Errorf("get user for refresh: %w", err)
	}

	record := &domain.RefreshTokenRecord{
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(s.refreshTTL),
	}
	if err := s.tokenRepo.Rotate(ctx, oldTokenID, record); err != nil {
		return nil, nil, err
	}

	tokens, err := s.generatePair(user, record.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.Int64("user_id", user.ID),
	)

	return user, tokens, nil
}

// Logout deletes the refresh token record. Deleting an already-dead record
// is a no-op so repeated logouts succeed.
func (s *SessionService) Logout(ctx context.Context, principal domain.Principal, tokenID int64) error {
	if err := s.tokenRepo.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.Int64("user_id", principal.UserID),
	)

	return nil
}

// Self returns the profile of the authenticated user.
func (s *SessionService) Self(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// issueSession persists a new refresh token record and mints both tokens.
func (s *SessionService) issueSession(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	record := &domain.RefreshTokenRecord{
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(s.refreshTTL),
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return s.generatePair(user, record.ID)
}

func (s *SessionService) generatePair(user *domain.User, recordID int64) (*domain.TokenPair, error) {
	principal := domain.Principal{UserID: user.ID, Role: user.Role}

	accessToken, err := s.issuer.GenerateAccessToken(principal)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.issuer.GenerateRefreshToken(principal, recordID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
