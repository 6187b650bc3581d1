package domain

import "time"

// Plan is a subscription tier. Prices are stored as integer cents to avoid
// floating-point money. Plans are soft-deleted so historical subscriptions
// keep a valid reference.
type Plan struct {
	ID           int64
	Name         string
	Slug         string
	Description  string
	PriceCents   int64
	Currency     string
	DurationDays int
	IsFree       bool
	IsActive     bool
	Features     []PlanFeature
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Feature is a named capability identified by a unique code.
type Feature struct {
	ID          int64
	Name        string
	Code        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PlanFeature is a feature attached to a plan, optionally carrying a
// per-pairing value such as a numeric limit.
type PlanFeature struct {
	Feature
	Value *string
}

// FeatureValue pairs a feature id with its per-plan value when syncing the
// plan/feature relation.
type FeatureValue struct {
	FeatureID int64
	Value     *string
}

// Subscription is one billing period for a tenant on a plan. Provider fields
// are opaque identifiers from an external payment provider. The current
// subscription for a tenant is the most recently created one.
type Subscription struct {
	ID             int64
	TenantID       string
	PlanID         int64
	ProviderID     string
	ProviderStatus string
	ProviderPrice  string
	Quantity       int
	TrialEndsAt    *time.Time
	EndsAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
