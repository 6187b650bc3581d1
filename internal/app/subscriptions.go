package app

import (
	"context"
	"fmt"
	"time"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

// SubscriptionService records billing periods for tenants. Payment-provider
// integration happens elsewhere; this only keeps the ledger.
type SubscriptionService struct {
	subs    domain.SubscriptionRepository
	tenants domain.TenantRepository
	plans   domain.PlanRepository
}

// NewSubscriptionService creates a subscription service.
func NewSubscriptionService(subs domain.SubscriptionRepository, tenants domain.TenantRepository, plans domain.PlanRepository) *SubscriptionService {
	return &SubscriptionService{subs: subs, tenants: tenants, plans: plans}
}

// SubscriptionInput carries the fields for a new billing period.
type SubscriptionInput struct {
	PlanID      int64
	Quantity    int
	TrialEndsAt *time.Time
}

// Create opens a new billing period for the tenant on the given plan.
func (s *SubscriptionService) Create(ctx context.Context, tenantID string, in SubscriptionInput) (domain.Subscription, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return domain.Subscription{}, err
	}
	if _, err := s.plans.GetPlan(ctx, in.PlanID); err != nil {
		return domain.Subscription{}, err
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	sub, err := s.subs.CreateSubscription(ctx, domain.Subscription{
		TenantID:    tenantID,
		PlanID:      in.PlanID,
		Quantity:    quantity,
		TrialEndsAt: in.TrialEndsAt,
	})
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("creating subscription: %w", err)
	}

	return sub, nil
}

// List returns the tenant's subscriptions, newest first.
func (s *SubscriptionService) List(ctx context.Context, tenantID string) ([]domain.Subscription, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.subs.ListSubscriptions(ctx, tenantID)
}

// Current returns the tenant's most recent subscription.
func (s *SubscriptionService) Current(ctx context.Context, tenantID string) (domain.Subscription, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return domain.Subscription{}, err
	}
	return s.subs.CurrentSubscription(ctx, tenantID)
}
