package domain

import (
	"context"
	"database/sql"
)

// TenantRepository defines the persistence contract for tenants and their
// domain bindings in the control-plane catalog.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetByName(ctx context.Context, name string) (Tenant, error)
	GetByDomain(ctx context.Context, domain string) (Tenant, error)
	List(ctx context.Context, filter TenantFilter) ([]Tenant, error)
	// Update persists tenant fields guarded by the version the caller read;
	// it returns a ConcurrentModificationError if the stored version moved.
	Update(ctx context.Context, tenant Tenant) (Tenant, error)
	Delete(ctx context.Context, id string) error

	AddDomain(ctx context.Context, tenantID, domain string) (Domain, error)
	RemoveDomains(ctx context.Context, tenantID string) error
}

// TenantFilter holds optional criteria for listing tenants.
type TenantFilter struct {
	Search   string
	Status   *Status
	PlanID   *int64
	IsActive *bool
	Limit    int
	Offset   int
}

// PlanRepository defines the persistence contract for plans and features.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan Plan, features []FeatureValue) (Plan, error)
	GetPlan(ctx context.Context, id int64) (Plan, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]Plan, error)
	UpdatePlan(ctx context.Context, plan Plan, features []FeatureValue) (Plan, error)
	// DeletePlan soft-deletes the plan and detaches its features.
	DeletePlan(ctx context.Context, id int64) error

	CreateFeature(ctx context.Context, feature Feature) (Feature, error)
	GetFeature(ctx context.Context, id int64) (Feature, error)
	ListFeatures(ctx context.Context) ([]Feature, error)
	UpdateFeature(ctx context.Context, feature Feature) (Feature, error)
	DeleteFeature(ctx context.Context, id int64) error
}

// PlanFilter holds optional criteria for listing plans.
type PlanFilter struct {
	Search   string
	IsActive *bool
	IsFree   *bool
}

// SubscriptionRepository defines the persistence contract for subscriptions.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID string) ([]Subscription, error)
	CurrentSubscription(ctx context.Context, tenantID string) (Subscription, error)
}

// WorkUnit is a unit of work executed inside a tenant's isolated database.
type WorkUnit func(ctx context.Context, db *sql.DB) error

// TenantContext executes work against a tenant's isolated database.
type TenantContext interface {
	Run(ctx context.Context, databaseName string, fn WorkUnit) error
}

// Provisioner creates and destroys the physical resources backing a tenant:
// the isolated database and the records inside it.
type Provisioner interface {
	TenantContext
	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	// SeedAdmin creates the first administrative user inside the tenant's
	// database. Password is the original plaintext; the tenant-local user
	// store performs its own hashing.
	SeedAdmin(ctx context.Context, databaseName, name, email, password string) error
}

// EventPublisher defines the contract for emitting lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, tenant Tenant) error
}

// TransitionValidator checks whether an event is permitted from a state and
// resolves the destination state.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
