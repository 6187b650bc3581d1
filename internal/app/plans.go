package app

import (
	"context"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

// PlanService manages the plan catalog and the per-plan feature values.
type PlanService struct {
	repo domain.PlanRepository
}

// NewPlanService creates a plan service over the given repository.
func NewPlanService(repo domain.PlanRepository) *PlanService {
	return &PlanService{repo: repo}
}

// PlanInput carries plan fields plus the features to sync onto the plan.
type PlanInput struct {
	Name         string
	Slug         string
	Description  string
	PriceCents   int64
	Currency     string
	DurationDays int
	IsFree       bool
	IsActive     bool
	Features     []domain.FeatureValue
}

func (in PlanInput) plan() domain.Plan {
	return domain.Plan{
		Name:         in.Name,
		Slug:         in.Slug,
		Description:  in.Description,
		PriceCents:   in.PriceCents,
		Currency:     in.Currency,
		DurationDays: in.DurationDays,
		IsFree:       in.IsFree,
		IsActive:     in.IsActive,
	}
}

// Create stores a plan and attaches its features with their values.
func (s *PlanService) Create(ctx context.Context, in PlanInput) (domain.Plan, error) {
	return s.repo.CreatePlan(ctx, in.plan(), in.Features)
}

// Get returns a plan with its features.
func (s *PlanService) Get(ctx context.Context, id int64) (domain.Plan, error) {
	return s.repo.GetPlan(ctx, id)
}

// List returns plans matching the filter, cheapest first.
func (s *PlanService) List(ctx context.Context, filter domain.PlanFilter) ([]domain.Plan, error) {
	return s.repo.ListPlans(ctx, filter)
}

// Update replaces the plan's fields and re-syncs its feature set.
func (s *PlanService) Update(ctx context.Context, id int64, in PlanInput) (domain.Plan, error) {
	plan := in.plan()
	plan.ID = id
	return s.repo.UpdatePlan(ctx, plan, in.Features)
}

// Delete soft-deletes a plan. Historical subscriptions keep referencing it.
func (s *PlanService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeletePlan(ctx, id)
}

// FeatureService manages the feature registry.
type FeatureService struct {
	repo domain.PlanRepository
}

// NewFeatureService creates a feature service over the given repository.
func NewFeatureService(repo domain.PlanRepository) *FeatureService {
	return &FeatureService{repo: repo}
}

func (s *FeatureService) Create(ctx context.Context, feature domain.Feature) (domain.Feature, error) {
	return s.repo.CreateFeature(ctx, feature)
}

func (s *FeatureService) Get(ctx context.Context, id int64) (domain.Feature, error) {
	return s.repo.GetFeature(ctx, id)
}

func (s *FeatureService) List(ctx context.Context) ([]domain.Feature, error) {
	return s.repo.ListFeatures(ctx)
}

func (s *FeatureService) Update(ctx context.Context, feature domain.Feature) (domain.Feature, error) {
	return s.repo.UpdateFeature(ctx, feature)
}

// Delete removes a feature and detaches it from every plan.
func (s *FeatureService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteFeature(ctx, id)
}
