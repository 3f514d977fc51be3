package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crescendolabs/identity/internal/domain"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
)

func newTenantFixture(t *testing.T) (*TenantService, *mockTenantRepository, *mockEventPublisher) {
	t.Helper()
	tenantRepo := new(mockTenantRepository)
	producer := new(mockEventPublisher)
	svc := NewTenantService(tenantRepo, producer, newTestLogger())
	return svc, tenantRepo, producer
}

func TestTenantCreate_Success(t *testing.T) {
	svc, tenantRepo, producer := newTenantFixture(t)
	ctx := context.Background()

	tenantRepo.On("Create", ctx, mock.AnythingOfType("*domain.Tenant")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Tenant).ID = 3
		}).
		Return(nil)
	producer.On("PublishTenantCreated", ctx, mock.AnythingOfType("*domain.Tenant")).Return(nil)

	tenant, err := svc.Create(ctx, CreateTenantInput{Name: "Acme", Address: "1 Main St"})

	require.NoError(t, err)
	assert.Equal(t, int64(3), tenant.ID)
	assert.Equal(t, "Acme", tenant.Name)

	tenantRepo.AssertExpectations(t)
}

func TestTenantCreate_MissingName(t *testing.T) {
	svc, tenantRepo, _ := newTenantFixture(t)

	_, err := svc.Create(context.Background(), CreateTenantInput{Address: "1 Main St"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	tenantRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTenantUpdate_PartialFields(t *testing.T) {
	svc, tenantRepo, _ := newTenantFixture(t)
	ctx := context.Background()

	stored := &domain.Tenant{ID: 3, Name: "Acme", Address: "1 Main St"}

	tenantRepo.On("GetByID", ctx, int64(3)).Return(stored, nil)
	tenantRepo.On("Update", ctx, mock.AnythingOfType("*domain.Tenant")).Return(nil)

	tenant, err := svc.Update(ctx, 3, UpdateTenantInput{Name: strPtr("Acme Corp")})

	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", tenant.Name)
	assert.Equal(t, "1 Main St", tenant.Address)
}

func TestTenantDelete_NotFound(t *testing.T) {
	svc, tenantRepo, _ := newTenantFixture(t)
	ctx := context.Background()

	tenantRepo.On("GetByID", ctx, int64(99)).Return(nil, apperrors.ErrNotFound)

	err := svc.Delete(ctx, 99)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	tenantRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestTenantList(t *testing.T) {
	svc, tenantRepo, _ := newTenantFixture(t)
	ctx := context.Background()

	tenantRepo.On("List", ctx).Return([]domain.Tenant{{ID: 1}, {ID: 2}}, nil)

	tenants, err := svc.List(ctx)

	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}
