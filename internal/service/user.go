package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crescendolabs/identity/internal/domain"
	"github.com/crescendolabs/identity/internal/repository"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
)

// UserService implements the admin-facing user management operations.
type UserService struct {
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
	hasher     PasswordHasher
	producer   EventPublisher
	logger     *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	hasher PasswordHasher,
	producer EventPublisher,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		hasher:     hasher,
		producer:   producer,
		logger:     logger,
	}
}

// CreateUserInput holds the parameters for privileged user creation.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
	TenantID  *int64
}

// UpdateUserInput holds the parameters for updating a user. Nil fields are
// left unchanged.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *domain.Role
	TenantID  *int64
}

// Create adds a user on behalf of an administrator. The role defaults to
// manager, matching how tenant staff accounts are provisioned.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, apperrors.InvalidInput("last name is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	role := input.Role
	if role == "" {
		role = domain.RoleManager
	}
	if !role.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", role))
	}

	if input.TenantID != nil {
		if _, err := s.tenantRepo.GetByID(ctx, *input.TenantID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidInput(fmt.Sprintf("tenant %d does not exist", *input.TenantID))
			}
			return nil, fmt.Errorf("check tenant: %w", err)
		}
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: digest,
		Role:         role,
		TenantID:     input.TenantID,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.producer.PublishUserCreated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.created event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user created",
		slog.Int64("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)

	return user, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Update applies the non-nil fields of input to the user.
func (s *UserService) Update(ctx context.Context, id int64, input UpdateUserInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.InvalidInput("last name must not be empty")
		}
		user.LastName = *input.LastName
	}
	if input.Email != nil {
		if *input.Email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		user.Email = *input.Email
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", *input.Role))
		}
		user.Role = *input.Role
	}
	if input.TenantID != nil {
		if _, err := s.tenantRepo.GetByID(ctx, *input.TenantID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.InvalidInput(fmt.Sprintf("tenant %d does not exist", *input.TenantID))
			}
			return nil, fmt.Errorf("check tenant: %w", err)
		}
		user.TenantID = input.TenantID
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.producer.PublishUserUpdated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.updated event",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.Int64("user_id", user.ID),
	)

	return user, nil
}

// Delete removes a user. Refresh token records go with the user via the
// store's foreign key cascade, so any outstanding sessions die too.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", id)
		}
		return fmt.Errorf("get user for delete: %w", err)
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.producer.PublishUserDeleted(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.Int64("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.Int64("user_id", id),
	)

	return nil
}
