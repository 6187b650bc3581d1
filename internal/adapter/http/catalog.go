package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/app"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

// PlanFeatureResponse is a feature attached to a plan, with its per-plan value.
type PlanFeatureResponse struct {
	ID    int64   `json:"id" doc:"Feature ID"`
	Name  string  `json:"name" doc:"Display name"`
	Code  string  `json:"code" doc:"Unique machine-readable code"`
	Value *string `json:"value,omitempty" doc:"Per-plan value, e.g. a quota"`
}

// PlanResponse is the API representation of a plan.
type PlanResponse struct {
	ID           int64                 `json:"id" doc:"Unique identifier"`
	Name         string                `json:"name" doc:"Display name"`
	Slug         string                `json:"slug" doc:"URL-friendly identifier"`
	Description  string                `json:"description" doc:"Marketing description"`
	PriceCents   int64                 `json:"price_cents" doc:"Price per billing period, in cents"`
	Currency     string                `json:"currency" doc:"ISO 4217 currency code"`
	DurationDays int                   `json:"duration_days" doc:"Billing period length in days"`
	IsFree       bool                  `json:"is_free" doc:"Whether this is the free tier"`
	IsActive     bool                  `json:"is_active" doc:"Whether the plan is open for new subscriptions"`
	Features     []PlanFeatureResponse `json:"features" doc:"Features included in the plan"`
	CreatedAt    string                `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt    string                `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toPlanResponse(p domain.Plan) PlanResponse {
	features := make([]PlanFeatureResponse, len(p.Features))
	for i, f := range p.Features {
		features[i] = PlanFeatureResponse{ID: f.ID, Name: f.Name, Code: f.Code, Value: f.Value}
	}

	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		PriceCents:   p.PriceCents,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		IsFree:       p.IsFree,
		IsActive:     p.IsActive,
		Features:     features,
		CreatedAt:    p.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:    p.UpdatedAt.UTC().Format(timeFormat),
	}
}

// FeatureResponse is the API representation of a feature.
type FeatureResponse struct {
	ID          int64  `json:"id" doc:"Unique identifier"`
	Name        string `json:"name" doc:"Display name"`
	Code        string `json:"code" doc:"Unique machine-readable code"`
	Description string `json:"description" doc:"Description"`
	CreatedAt   string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt   string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toFeatureResponse(f domain.Feature) FeatureResponse {
	return FeatureResponse{
		ID:          f.ID,
		Name:        f.Name,
		Code:        f.Code,
		Description: f.Description,
		CreatedAt:   f.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   f.UpdatedAt.UTC().Format(timeFormat),
	}
}

// SubscriptionResponse is the API representation of a subscription.
type SubscriptionResponse struct {
	ID          int64   `json:"id" doc:"Unique identifier"`
	TenantID    string  `json:"tenant_id" doc:"Owning tenant"`
	PlanID      int64   `json:"plan_id" doc:"Subscribed plan"`
	Quantity    int     `json:"quantity" doc:"Number of seats"`
	TrialEndsAt *string `json:"trial_ends_at,omitempty" doc:"Trial expiry (ISO 8601)"`
	EndsAt      *string `json:"ends_at,omitempty" doc:"Period end (ISO 8601)"`
	CreatedAt   string  `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toSubscriptionResponse(s domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:          s.ID,
		TenantID:    s.TenantID,
		PlanID:      s.PlanID,
		Quantity:    s.Quantity,
		TrialEndsAt: formatNullable(s.TrialEndsAt),
		EndsAt:      formatNullable(s.EndsAt),
		CreatedAt:   s.CreatedAt.UTC().Format(timeFormat),
	}
}

// --- Plans ---

type planBody struct {
	Name         string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	Slug         string `json:"slug" minLength:"1" maxLength:"100" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"URL-friendly identifier (lowercase, hyphens)"`
	Description  string `json:"description,omitempty" doc:"Marketing description"`
	PriceCents   int64  `json:"price_cents" minimum:"0" doc:"Price per billing period, in cents"`
	Currency     string `json:"currency,omitempty" default:"USD" doc:"ISO 4217 currency code"`
	DurationDays int    `json:"duration_days,omitempty" default:"30" minimum:"1" doc:"Billing period length in days"`
	IsFree       bool   `json:"is_free,omitempty" doc:"Whether this is the free tier"`
	IsActive     bool   `json:"is_active,omitempty" default:"true" doc:"Whether the plan is open for new subscriptions"`
	Features     []struct {
		FeatureID int64   `json:"feature_id" doc:"Feature to attach"`
		Value     *string `json:"value,omitempty" doc:"Per-plan value, e.g. a quota"`
	} `json:"features,omitempty" doc:"Features included in the plan"`
}

func (b planBody) toInput() app.PlanInput {
	features := make([]domain.FeatureValue, len(b.Features))
	for i, f := range b.Features {
		features[i] = domain.FeatureValue{FeatureID: f.FeatureID, Value: f.Value}
	}

	return app.PlanInput{
		Name:         b.Name,
		Slug:         b.Slug,
		Description:  b.Description,
		PriceCents:   b.PriceCents,
		Currency:     b.Currency,
		DurationDays: b.DurationDays,
		IsFree:       b.IsFree,
		IsActive:     b.IsActive,
		Features:     features,
	}
}

type CreatePlanInput struct {
	Body planBody
}

type PlanOutput struct {
	Body PlanResponse
}

type GetPlanInput struct {
	ID int64 `path:"id" doc:"Plan ID"`
}

type ListPlansInput struct {
	Search   string `query:"search" required:"false" doc:"Match against name or description"`
	IsActive string `query:"is_active" required:"false" enum:"true,false" doc:"Filter by availability"`
	IsFree   string `query:"is_free" required:"false" enum:"true,false" doc:"Filter by free tier"`
}

type ListPlansOutput struct {
	Body []PlanResponse
}

type UpdatePlanInput struct {
	ID   int64 `path:"id" doc:"Plan ID"`
	Body planBody
}

type DeletePlanInput struct {
	ID int64 `path:"id" doc:"Plan ID"`
}

// --- Features ---

type featureBody struct {
	Name        string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	Code        string `json:"code" minLength:"1" maxLength:"100" pattern:"^[a-z0-9]+(?:_[a-z0-9]+)*$" doc:"Unique machine-readable code (lowercase, underscores)"`
	Description string `json:"description,omitempty" doc:"Description"`
}

type CreateFeatureInput struct {
	Body featureBody
}

type FeatureOutput struct {
	Body FeatureResponse
}

type GetFeatureInput struct {
	ID int64 `path:"id" doc:"Feature ID"`
}

type ListFeaturesOutput struct {
	Body []FeatureResponse
}

type UpdateFeatureInput struct {
	ID   int64 `path:"id" doc:"Feature ID"`
	Body featureBody
}

type DeleteFeatureInput struct {
	ID int64 `path:"id" doc:"Feature ID"`
}

// --- Subscriptions ---

type CreateSubscriptionInput struct {
	TenantID string `path:"id" doc:"Tenant ID"`
	Body     struct {
		PlanID      int64   `json:"plan_id" doc:"Plan to subscribe to"`
		Quantity    int     `json:"quantity,omitempty" minimum:"0" doc:"Number of seats (defaults to 1)"`
		TrialEndsAt *string `json:"trial_ends_at,omitempty" format:"date-time" doc:"Trial expiry"`
	}
}

type SubscriptionOutput struct {
	Body SubscriptionResponse
}

type ListSubscriptionsInput struct {
	TenantID string `path:"id" doc:"Tenant ID"`
}

type ListSubscriptionsOutput struct {
	Body []SubscriptionResponse
}

func registerCatalog(api huma.API, plans *app.PlanService, features *app.FeatureService, subs *app.SubscriptionService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-plan",
		Method:      http.MethodPost,
		Path:        "/api/v1/plans",
		Summary:     "Create a plan",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, input *CreatePlanInput) (*PlanOutput, error) {
		plan, err := plans.Create(ctx, input.Body.toInput())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PlanOutput{Body: toPlanResponse(plan)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan",
		Method:      http.MethodGet,
		Path:        "/api/v1/plans/{id}",
		Summary:     "Get a plan by ID",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, input *GetPlanInput) (*PlanOutput, error) {
		plan, err := plans.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PlanOutput{Body: toPlanResponse(plan)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-plans",
		Method:      http.MethodGet,
		Path:        "/api/v1/plans",
		Summary:     "List plans",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, input *ListPlansInput) (*ListPlansOutput, error) {
		filter := domain.PlanFilter{Search: input.Search}
		if input.IsActive != "" {
			active := input.IsActive == "true"
			filter.IsActive = &active
		}
		if input.IsFree != "" {
			free := input.IsFree == "true"
			filter.IsFree = &free
		}

		list, err := plans.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]PlanResponse, len(list))
		for i, p := range list {
			resp[i] = toPlanResponse(p)
		}
		return &ListPlansOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-plan",
		Method:      http.MethodPut,
		Path:        "/api/v1/plans/{id}",
		Summary:     "Update a plan and resync its features",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, input *UpdatePlanInput) (*PlanOutput, error) {
		plan, err := plans.Update(ctx, input.ID, input.Body.toInput())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PlanOutput{Body: toPlanResponse(plan)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-plan",
		Method:      http.MethodDelete,
		Path:        "/api/v1/plans/{id}",
		Summary:     "Retire a plan",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, input *DeletePlanInput) (*struct{}, error) {
		if err := plans.Delete(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-feature",
		Method:      http.MethodPost,
		Path:        "/api/v1/features",
		Summary:     "Create a feature",
		Tags:        []string{"Features"},
	}, func(ctx context.Context, input *CreateFeatureInput) (*FeatureOutput, error) {
		feature, err := features.Create(ctx, domain.Feature{
			Name:        input.Body.Name,
			Code:        input.Body.Code,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &FeatureOutput{Body: toFeatureResponse(feature)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-feature",
		Method:      http.MethodGet,
		Path:        "/api/v1/features/{id}",
		Summary:     "Get a feature by ID",
		Tags:        []string{"Features"},
	}, func(ctx context.Context, input *GetFeatureInput) (*FeatureOutput, error) {
		feature, err := features.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &FeatureOutput{Body: toFeatureResponse(feature)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-features",
		Method:      http.MethodGet,
		Path:        "/api/v1/features",
		Summary:     "List features",
		Tags:        []string{"Features"},
	}, func(ctx context.Context, _ *struct{}) (*ListFeaturesOutput, error) {
		list, err := features.List(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]FeatureResponse, len(list))
		for i, f := range list {
			resp[i] = toFeatureResponse(f)
		}
		return &ListFeaturesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-feature",
		Method:      http.MethodPut,
		Path:        "/api/v1/features/{id}",
		Summary:     "Update a feature",
		Tags:        []string{"Features"},
	}, func(ctx context.Context, input *UpdateFeatureInput) (*FeatureOutput, error) {
		feature, err := features.Update(ctx, domain.Feature{
			ID:          input.ID,
			Name:        input.Body.Name,
			Code:        input.Body.Code,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &FeatureOutput{Body: toFeatureResponse(feature)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-feature",
		Method:      http.MethodDelete,
		Path:        "/api/v1/features/{id}",
		Summary:     "Delete a feature, detaching it from all plans",
		Tags:        []string{"Features"},
	}, func(ctx context.Context, input *DeleteFeatureInput) (*struct{}, error) {
		if err := features.Delete(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/subscriptions",
		Summary:     "Open a new subscription for a tenant",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *CreateSubscriptionInput) (*SubscriptionOutput, error) {
		in := app.SubscriptionInput{
			PlanID:   input.Body.PlanID,
			Quantity: input.Body.Quantity,
		}
		var err error
		if in.TrialEndsAt, err = parseNullable(input.Body.TrialEndsAt); err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid trial_ends_at")
		}

		sub, err := subs.Create(ctx, input.TenantID, in)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-subscriptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}/subscriptions",
		Summary:     "List a tenant's subscriptions, newest first",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *ListSubscriptionsInput) (*ListSubscriptionsOutput, error) {
		list, err := subs.List(ctx, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]SubscriptionResponse, len(list))
		for i, s := range list {
			resp[i] = toSubscriptionResponse(s)
		}
		return &ListSubscriptionsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "current-subscription",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}/subscriptions/current",
		Summary:     "Get a tenant's current subscription",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *ListSubscriptionsInput) (*SubscriptionOutput, error) {
		sub, err := subs.Current(ctx, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})
}
