package service

import (
	"context"
	"fmt"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/logger"
	"time"

	"go.uber.org/zap"
)

type TenantRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Tenant, error)
	FindActive(ctx context.Context) ([]*entity.Tenant, error)
	SetActive(ctx context.Context, id string, active bool, updatedAt int64) (bool, error)
}

// DefaultTenantResolver maps tenant ids to namespaces. The registry is read on
// every call so a suspension takes effect on the very next request.
type DefaultTenantResolver struct {
	TenantRepo TenantRepository
	Now        func() time.Time
}

func NewTenantResolver(tenantRepo TenantRepository) *DefaultTenantResolver {
	return &DefaultTenantResolver{TenantRepo: tenantRepo, Now: time.Now}
}

func (r *DefaultTenantResolver) Resolve(ctx context.Context, tenantID string) (entity.Namespace, error) {
	if tenantID == "" {
		return entity.Namespace{}, fmt.Errorf("%w: empty tenant id", ErrTenantNotFound)
	}

	tenant, err := r.TenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return entity.Namespace{}, fmt.Errorf("load tenant %s: %w", tenantID, err)
	}
	if tenant == nil {
		return entity.Namespace{}, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}

	if !entity.ValidNamespaceName(tenant.Namespace) {
		logger.FromContext(ctx).Error("tenant has an invalid namespace",
			zap.String("tenant", tenantID), zap.String("namespace", tenant.Namespace))
		return entity.Namespace{}, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}

	if !tenant.Active {
		return entity.Namespace{}, fmt.Errorf("%w: %s", ErrTenantSuspended, tenantID)
	}
	if tenant.SubscriptionExpiresAt != nil && *tenant.SubscriptionExpiresAt <= r.Now().UnixMilli() {
		return entity.Namespace{}, fmt.Errorf("%w: %s subscription expired", ErrTenantSuspended, tenantID)
	}

	return entity.NewNamespace(tenant.ID, tenant.Namespace, tenant.IsolationMode), nil
}

// ResolveActive resolves every active tenant, skipping those that fail.
func (r *DefaultTenantResolver) ResolveActive(ctx context.Context) ([]entity.Namespace, error) {
	tenants, err := r.TenantRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	namespaces := make([]entity.Namespace, 0, len(tenants))
	for _, t := range tenants {
		ns, err := r.Resolve(ctx, t.ID)
		if err != nil {
			continue
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, nil
}

// SetActive is the hook the billing system uses to suspend or reinstate a tenant.
func (r *DefaultTenantResolver) SetActive(ctx context.Context, tenantID string, active bool) error {
	found, err := r.TenantRepo.SetActive(ctx, tenantID, active, r.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", tenantID, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}

	logger.FromContext(ctx).Info("tenant status changed",
		zap.String("tenant", tenantID), zap.Bool("active", active))
	return nil
}
