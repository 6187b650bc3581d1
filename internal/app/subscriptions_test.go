package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/app"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

// --- Catalog mocks ---

type mockCatalog struct {
	plans  map[int64]domain.Plan
	subs   []domain.Subscription
	nextID int64
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{plans: make(map[int64]domain.Plan)}
}

func (m *mockCatalog) CreatePlan(_ context.Context, p domain.Plan, _ []domain.FeatureValue) (domain.Plan, error) {
	m.nextID++
	p.ID = m.nextID
	m.plans[p.ID] = p
	return p, nil
}

func (m *mockCatalog) GetPlan(_ context.Context, id int64) (domain.Plan, error) {
	p, ok := m.plans[id]
	if !ok {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	return p, nil
}

func (m *mockCatalog) ListPlans(_ context.Context, _ domain.PlanFilter) ([]domain.Plan, error) {
	out := make([]domain.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) UpdatePlan(_ context.Context, p domain.Plan, _ []domain.FeatureValue) (domain.Plan, error) {
	if _, ok := m.plans[p.ID]; !ok {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	m.plans[p.ID] = p
	return p, nil
}

func (m *mockCatalog) DeletePlan(_ context.Context, id int64) error {
	if _, ok := m.plans[id]; !ok {
		return domain.ErrPlanNotFound
	}
	delete(m.plans, id)
	return nil
}

func (m *mockCatalog) CreateFeature(_ context.Context, f domain.Feature) (domain.Feature, error) {
	return f, nil
}

func (m *mockCatalog) GetFeature(_ context.Context, _ int64) (domain.Feature, error) {
	return domain.Feature{}, domain.ErrFeatureNotFound
}

func (m *mockCatalog) ListFeatures(_ context.Context) ([]domain.Feature, error) { return nil, nil }

func (m *mockCatalog) UpdateFeature(_ context.Context, f domain.Feature) (domain.Feature, error) {
	return f, nil
}

func (m *mockCatalog) DeleteFeature(_ context.Context, _ int64) error { return nil }

func (m *mockCatalog) CreateSubscription(_ context.Context, s domain.Subscription) (domain.Subscription, error) {
	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = time.Now().UTC()
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *mockCatalog) ListSubscriptions(_ context.Context, tenantID string) ([]domain.Subscription, error) {
	var out []domain.Subscription
	for i := len(m.subs) - 1; i >= 0; i-- {
		if m.subs[i].TenantID == tenantID {
			out = append(out, m.subs[i])
		}
	}
	return out, nil
}

func (m *mockCatalog) CurrentSubscription(_ context.Context, tenantID string) (domain.Subscription, error) {
	for i := len(m.subs) - 1; i >= 0; i-- {
		if m.subs[i].TenantID == tenantID {
			return m.subs[i], nil
		}
	}
	return domain.Subscription{}, domain.ErrSubscriptionNotFound
}

func newSubscriptionFixture() (*app.SubscriptionService, *mockCatalog, *mockRepo) {
	catalog := newMockCatalog()
	repo := newMockRepo()
	svc := app.NewSubscriptionService(catalog, repo, catalog)
	return svc, catalog, repo
}

// --- Tests ---

func TestSubscriptionCreate(t *testing.T) {
	svc, catalog, repo := newSubscriptionFixture()
	ctx := context.Background()

	repo.tenants["t-1"] = domain.NewTenant("t-1", "Acme", "Owner", "o@t", "hash", nil, domain.StatusActive)
	plan, _ := catalog.CreatePlan(ctx, domain.Plan{Name: "Starter", Slug: "starter"}, nil)

	sub, err := svc.Create(ctx, "t-1", app.SubscriptionInput{PlanID: plan.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if sub.TenantID != "t-1" || sub.PlanID != plan.ID {
		t.Errorf("subscription = %+v, want tenant t-1 on plan %d", sub, plan.ID)
	}
	if sub.Quantity != 1 {
		t.Errorf("Quantity = %d, want default 1", sub.Quantity)
	}
}

func TestSubscriptionCreate_UnknownTenant(t *testing.T) {
	svc, catalog, _ := newSubscriptionFixture()
	ctx := context.Background()

	plan, _ := catalog.CreatePlan(ctx, domain.Plan{Name: "Starter", Slug: "starter"}, nil)

	_, err := svc.Create(ctx, "ghost", app.SubscriptionInput{PlanID: plan.ID})
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
	if len(catalog.subs) != 0 {
		t.Error("no subscription should be recorded for an unknown tenant")
	}
}

func TestSubscriptionCreate_UnknownPlan(t *testing.T) {
	svc, catalog, repo := newSubscriptionFixture()
	ctx := context.Background()

	repo.tenants["t-1"] = domain.NewTenant("t-1", "Acme", "Owner", "o@t", "hash", nil, domain.StatusActive)

	_, err := svc.Create(ctx, "t-1", app.SubscriptionInput{PlanID: 404})
	if !errors.Is(err, domain.ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
	if len(catalog.subs) != 0 {
		t.Error("no subscription should be recorded for an unknown plan")
	}
}

func TestSubscriptionCurrent_IsLatest(t *testing.T) {
	svc, catalog, repo := newSubscriptionFixture()
	ctx := context.Background()

	repo.tenants["t-1"] = domain.NewTenant("t-1", "Acme", "Owner", "o@t", "hash", nil, domain.StatusActive)
	starter, _ := catalog.CreatePlan(ctx, domain.Plan{Name: "Starter", Slug: "starter"}, nil)
	pro, _ := catalog.CreatePlan(ctx, domain.Plan{Name: "Pro", Slug: "pro"}, nil)

	if _, err := svc.Create(ctx, "t-1", app.SubscriptionInput{PlanID: starter.ID}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, "t-1", app.SubscriptionInput{PlanID: pro.ID, Quantity: 3}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	current, err := svc.Current(ctx, "t-1")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if current.PlanID != pro.ID || current.Quantity != 3 {
		t.Errorf("current = plan %d qty %d, want plan %d qty 3", current.PlanID, current.Quantity, pro.ID)
	}

	list, err := svc.List(ctx, "t-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("got %d subscriptions, want 2", len(list))
	}
}

func TestSubscriptionCurrent_None(t *testing.T) {
	svc, _, repo := newSubscriptionFixture()
	ctx := context.Background()

	repo.tenants["t-1"] = domain.NewTenant("t-1", "Acme", "Owner", "o@t", "hash", nil, domain.StatusActive)

	if _, err := svc.Current(ctx, "t-1"); !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Errorf("expected ErrSubscriptionNotFound, got %v", err)
	}
}
