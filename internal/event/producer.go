package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/crescendolabs/identity/internal/domain"
	pkgkafka "github.com/crescendolabs/identity/pkg/kafka"
)

// Kafka topics for identity domain events.
const (
	TopicUserRegistered = "identity.user.registered"
	TopicUserCreated    = "identity.user.created"
	TopicUserUpdated    = "identity.user.updated"
	TopicUserDeleted    = "identity.user.deleted"
	TopicTenantCreated  = "identity.tenant.created"
	TopicTenantDeleted  = "identity.tenant.deleted"
)

const (
	aggregateTypeUser   = "user"
	aggregateTypeTenant = "tenant"
	sourceService       = "identity-service"
)

// UserEventData is the payload for user lifecycle events. Password material
// never appears here.
type UserEventData struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	TenantID  *int64 `json:"tenant_id,omitempty"`
}

// TenantEventData is the payload for tenant lifecycle events.
type TenantEventData struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Producer publishes identity domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes the self-registration event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publishUser(ctx, TopicUserRegistered, user)
}

// PublishUserCreated publishes the admin-created-user event.
func (p *Producer) PublishUserCreated(ctx context.Context, user *domain.User) error {
	return p.publishUser(ctx, TopicUserCreated, user)
}

// PublishUserUpdated publishes the user-updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	return p.publishUser(ctx, TopicUserUpdated, user)
}

// PublishUserDeleted publishes the user-deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, user *domain.User) error {
	return p.publishUser(ctx, TopicUserDeleted, user)
}

// PublishTenantCreated publishes the tenant-created event.
func (p *Producer) PublishTenantCreated(ctx context.Context, tenant *domain.Tenant) error {
	return p.publishTenant(ctx, TopicTenantCreated, tenant)
}

// PublishTenantDeleted publishes the tenant-deleted event.
func (p *Producer) PublishTenantDeleted(ctx context.Context, tenant *domain.Tenant) error {
	return p.publishTenant(ctx, TopicTenantDeleted, tenant)
}

func (p *Producer) publishUser(ctx context.Context, topic string, user *domain.User) error {
	data := UserEventData{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role.String(),
		TenantID:  user.TenantID,
	}

	aggregateID := strconv.FormatInt(user.ID, 10)
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateTypeUser, sourceService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published user event",
		slog.String("topic", topic),
		slog.Int64("user_id", user.ID),
	)

	return nil
}

func (p *Producer) publishTenant(ctx context.Context, topic string, tenant *domain.Tenant) error {
	data := TenantEventData{
		ID:   tenant.ID,
		Name: tenant.Name,
	}

	aggregateID := strconv.FormatInt(tenant.ID, 10)
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateTypeTenant, sourceService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published tenant event",
		slog.String("topic", topic),
		slog.Int64("tenant_id", tenant.ID),
	)

	return nil
}
