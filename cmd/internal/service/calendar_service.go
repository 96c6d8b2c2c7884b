package service

import (
	"context"
	"slotbook/cmd/internal/domain/entity"
)

// DefaultCalendarService exposes the policy store to administrators by tenant
// id, resolving the namespace on every call.
type DefaultCalendarService struct {
	Tenants TenantResolver
	Policy  *DefaultPolicyService
}

func NewCalendarService(tenants TenantResolver, policy *DefaultPolicyService) *DefaultCalendarService {
	return &DefaultCalendarService{Tenants: tenants, Policy: policy}
}

func (c *DefaultCalendarService) GetPolicy(ctx context.Context, tenantID string) (*entity.BookingPolicy, error) {
	ns, err := c.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Policy.Policy(ctx, ns)
}

func (c *DefaultCalendarService) SavePolicy(ctx context.Context, tenantID string, policy *entity.BookingPolicy) error {
	ns, err := c.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	return c.Policy.SavePolicy(ctx, ns, policy)
}

func (c *DefaultCalendarService) SetWorkingHours(ctx context.Context, tenantID string, wh *entity.WorkingHours) error {
	ns, err := c.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	return c.Policy.SetWorkingHours(ctx, ns, wh)
}

func (c *DefaultCalendarService) ListWorkingHours(ctx context.Context, tenantID string) ([]*entity.WorkingHours, error) {
	ns, err := c.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Policy.ListWorkingHours(ctx, ns)
}

func (c *DefaultCalendarService) SetException(ctx context.Context, tenantID string, exc *entity.CalendarException) error {
	ns, err := c.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	return c.Policy.SetException(ctx, ns, exc)
}

func (c *DefaultCalendarService) RemoveException(ctx context.Context, tenantID, date string) error {
	ns, err := c.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	return c.Policy.RemoveException(ctx, ns, date)
}

func (c *DefaultCalendarService) ListExceptions(ctx context.Context, tenantID, from, to string) ([]*entity.CalendarException, error) {
	ns, err := c.Tenants.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.Policy.ListExceptions(ctx, ns, from, to)
}
