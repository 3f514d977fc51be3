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

// TenantService implements the admin-facing tenant management operations.
type TenantService struct {
	tenantRepo repository.TenantRepository
	producer   EventPublisher
	logger     *slog.Logger
}

// NewTenantService creates a new tenant service.
func NewTenantService(
	tenantRepo repository.TenantRepository,
	producer EventPublisher,
	logger *slog.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		producer:   producer,
		logger:     logger,
	}
}

// CreateTenantInput holds the parameters for creating a tenant.
type CreateTenantInput struct {
	Name    string
	Address string
}

// UpdateTenantInput holds the parameters for updating a tenant. Nil fields
// are left unchanged.
type UpdateTenantInput struct {
	Name    *string
	Address *string
}

// Create adds a tenant.
func (s *TenantService) Create(ctx context.Context, input CreateTenantInput) (*domain.Tenant, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Address == "" {
		return nil, apperrors.InvalidInput("address is required")
	}

	tenant := &domain.Tenant{
		Name:    input.Name,
		Address: input.Address,
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	if err := s.producer.PublishTenantCreated(ctx, tenant); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tenant.created event",
			slog.Int64("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tenant created",
		slog.Int64("tenant_id", tenant.ID),
		slog.String("name", tenant.Name),
	)

	return tenant, nil
}

// Get retrieves a tenant by ID.
func (s *TenantService) Get(ctx context.Context, id int64) (*domain.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("tenant", id)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return tenant, nil
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := s.tenantRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// Update applies the non-nil fields of input to the tenant.
func (s *TenantService) Update(ctx context.Context, id int64, input UpdateTenantInput) (*domain.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("tenant", id)
		}
		return nil, fmt.Errorf("get tenant for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		tenant.Name = *input.Name
	}
	if input.Address != nil {
		if *input.Address == "" {
			return nil, apperrors.InvalidInput("address must not be empty")
		}
		tenant.Address = *input.Address
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tenant updated",
		slog.Int64("tenant_id", tenant.ID),
	)

	return tenant, nil
}

// Delete removes a tenant. Users assigned to it keep their accounts; the
// store nulls their tenant reference.
func (s *TenantService) Delete(ctx context.Context, id int64) error {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("tenant", id)
		}
		return fmt.Errorf("get tenant for delete: %w", err)
	}

	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.producer.PublishTenantDeleted(ctx, tenant); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tenant.deleted event",
			slog.Int64("tenant_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tenant deleted",
		slog.Int64("tenant_id", id),
	)

	return nil
}
