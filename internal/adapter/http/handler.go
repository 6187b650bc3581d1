package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/app"
	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID                 string   `json:"id" doc:"Unique identifier"`
	Name               string   `json:"name" doc:"Display name"`
	DatabaseName       string   `json:"database_name" doc:"Name of the tenant's isolated database"`
	PlanID             *int64   `json:"plan_id,omitempty" doc:"Subscription plan"`
	OwnerName          string   `json:"owner_name" doc:"Owner's display name"`
	OwnerEmail         string   `json:"owner_email" doc:"Owner's email address"`
	Status             string   `json:"status" doc:"Lifecycle state"`
	IsActive           bool     `json:"is_active" doc:"Whether the tenant is currently serviceable"`
	Domains            []string `json:"domains" doc:"Hostnames bound to this tenant"`
	TrialEndsAt        *string  `json:"trial_ends_at,omitempty" doc:"Trial expiry (ISO 8601)"`
	SubscriptionEndsAt *string  `json:"subscription_ends_at,omitempty" doc:"Subscription expiry (ISO 8601)"`
	CanceledAt         *string  `json:"canceled_at,omitempty" doc:"Cancellation timestamp (ISO 8601)"`
	GraceDeadline      *string  `json:"grace_deadline,omitempty" doc:"Instant the post-cancellation grace period ends (ISO 8601)"`
	GraceDaysRemaining int      `json:"grace_days_remaining" doc:"Whole days left to restore a canceled tenant"`
	Restorable         bool     `json:"restorable" doc:"Whether the tenant can still be restored"`
	Deletable          bool     `json:"deletable" doc:"Whether the grace period has elapsed and the tenant may be purged"`
	Version            int64    `json:"version" doc:"Optimistic concurrency version"`
	CreatedAt          string   `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt          string   `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func formatNullable(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	domains := make([]string, len(t.Domains))
	for i, d := range t.Domains {
		domains[i] = d.Domain
	}

	now := time.Now().UTC()
	resp := TenantResponse{
		ID:                 t.ID,
		Name:               t.Name,
		DatabaseName:       t.DatabaseName,
		PlanID:             t.PlanID,
		OwnerName:          t.OwnerName,
		OwnerEmail:         t.OwnerEmail,
		Status:             string(t.Status),
		IsActive:           t.IsActive,
		Domains:            domains,
		TrialEndsAt:        formatNullable(t.TrialEndsAt),
		SubscriptionEndsAt: formatNullable(t.SubscriptionEndsAt),
		CanceledAt:         formatNullable(t.CanceledAt),
		GraceDaysRemaining: t.GraceDaysRemaining(now),
		Restorable:         t.Restorable(now),
		Deletable:          t.Deletable(now),
		Version:            t.Version,
		CreatedAt:          t.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:          t.UpdatedAt.UTC().Format(timeFormat),
	}

	if deadline, ok := t.GraceDeadline(); ok {
		resp.GraceDeadline = formatNullable(&deadline)
	}

	return resp
}

// --- Create Tenant ---

type CreateTenantInput struct {
	Body struct {
		Name          string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		OwnerName     string `json:"owner_name" minLength:"1" maxLength:"255" doc:"Owner's display name"`
		OwnerEmail    string `json:"owner_email" format:"email" doc:"Owner's email address"`
		OwnerPassword string `json:"owner_password" minLength:"8" maxLength:"72" doc:"Owner's initial password"`
		Domain        string `json:"domain" minLength:"1" maxLength:"63" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"Subdomain label under the platform's base domain"`
		PlanID        *int64 `json:"plan_id,omitempty" doc:"Subscription plan"`
		Status        string `json:"status,omitempty" enum:"trial,active" default:"trial" doc:"Initial lifecycle state"`
	}
}

type CreateTenantOutput struct {
	Body TenantResponse
}

// --- Get Tenant ---

type GetTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body TenantResponse
}

// --- List Tenants ---

type ListTenantsInput struct {
	Search   string `query:"search" required:"false" doc:"Match against name, owner, or bound domains"`
	Status   string `query:"status" required:"false" doc:"Filter by status"`
	PlanID   int64  `query:"plan_id" required:"false" doc:"Filter by plan"`
	IsActive string `query:"is_active" required:"false" enum:"true,false" doc:"Filter by serviceability"`
	Limit    int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset   int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body []TenantResponse
}

// --- Update Tenant ---

type UpdateTenantInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		OwnerName          *string `json:"owner_name,omitempty" doc:"Owner's display name"`
		OwnerEmail         *string `json:"owner_email,omitempty" format:"email" doc:"Owner's email address"`
		PlanID             *int64  `json:"plan_id,omitempty" doc:"Subscription plan"`
		Status             *string `json:"status,omitempty" enum:"trial,active,suspended,canceled" doc:"Lifecycle state override"`
		TrialEndsAt        *string `json:"trial_ends_at,omitempty" format:"date-time" doc:"Trial expiry"`
		SubscriptionEndsAt *string `json:"subscription_ends_at,omitempty" format:"date-time" doc:"Subscription expiry"`
		IsActive           *bool   `json:"is_active,omitempty" doc:"Serviceability flag"`
	}
}

type UpdateTenantOutput struct {
	Body TenantResponse
}

// --- Lifecycle ---

type LifecycleInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type LifecycleOutput struct {
	Body TenantResponse
}

type TransitionInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"suspend,activate"`
	}
}

type TransitionOutput struct {
	Body TenantResponse
}

type DeleteTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

// --- Resolve ---

type ResolveInput struct {
	Domain string `query:"domain" minLength:"1" doc:"Hostname to resolve"`
}

type ResolveOutput struct {
	Body TenantResponse
}

// Register adds all API routes to the Huma API.
func Register(api huma.API, tenants *app.TenantService, plans *app.PlanService, features *app.FeatureService, subs *app.SubscriptionService) {
	registerTenants(api, tenants)
	registerCatalog(api, plans, features, subs)
}

func registerTenants(api huma.API, svc *app.TenantService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants",
		Summary:     "Create and provision a new tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
		tenant, err := svc.Create(ctx, app.CreateTenantInput{
			Name:          input.Body.Name,
			OwnerName:     input.Body.OwnerName,
			OwnerEmail:    input.Body.OwnerEmail,
			OwnerPassword: input.Body.OwnerPassword,
			DomainLabel:   input.Body.Domain,
			PlanID:        input.Body.PlanID,
			Status:        domain.Status(input.Body.Status),
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		tenant, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.TenantFilter{
			Search: input.Search,
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}
		if input.PlanID != 0 {
			filter.PlanID = &input.PlanID
		}
		if input.IsActive != "" {
			active := input.IsActive == "true"
			filter.IsActive = &active
		}

		tenants, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TenantResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toTenantResponse(t)
		}
		return &ListTenantsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Update tenant fields",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *UpdateTenantInput) (*UpdateTenantOutput, error) {
		in := app.UpdateTenantInput{
			OwnerName:  input.Body.OwnerName,
			OwnerEmail: input.Body.OwnerEmail,
			PlanID:     input.Body.PlanID,
			IsActive:   input.Body.IsActive,
		}
		if input.Body.Status != nil {
			s := domain.Status(*input.Body.Status)
			in.Status = &s
		}
		var err error
		if in.TrialEndsAt, err = parseNullable(input.Body.TrialEndsAt); err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid trial_ends_at")
		}
		if in.SubscriptionEndsAt, err = parseNullable(input.Body.SubscriptionEndsAt); err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid subscription_ends_at")
		}

		tenant, err := svc.Update(ctx, input.ID, in)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &UpdateTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/cancel",
		Summary:     "Cancel a tenant, starting its grace period",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *LifecycleInput) (*LifecycleOutput, error) {
		tenant, err := svc.Cancel(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LifecycleOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "restore-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/restore",
		Summary:     "Restore a canceled tenant within its grace period",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *LifecycleInput) (*LifecycleOutput, error) {
		tenant, err := svc.Restore(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &LifecycleOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-tenant",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Permanently delete a tenant after its grace period",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *DeleteTenantInput) (*struct{}, error) {
		if err := svc.Delete(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/events",
		Summary:     "Trigger a lifecycle event",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		tenant, err := svc.Transition(ctx, input.ID, domain.Event(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-domain",
		Method:      http.MethodGet,
		Path:        "/api/v1/resolve",
		Summary:     "Resolve a hostname to its tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ResolveInput) (*ResolveOutput, error) {
		tenant, err := svc.Resolve(ctx, input.Domain)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ResolveOutput{Body: toTenantResponse(tenant)}, nil
	})
}

func parseNullable(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrDomainNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrFeatureNotFound),
		errors.Is(err, domain.ErrSubscriptionNotFound):
		return huma.Error404NotFound(err.Error())
	}

	var nameErr *domain.NameConflictError
	if errors.As(err, &nameErr) {
		return huma.Error409Conflict(nameErr.Error())
	}

	var domErr *domain.DomainConflictError
	if errors.As(err, &domErr) {
		return huma.Error409Conflict(domErr.Error())
	}

	var slugErr *domain.SlugConflictError
	if errors.As(err, &slugErr) {
		return huma.Error409Conflict(slugErr.Error())
	}

	var conErr *domain.ConcurrentModificationError
	if errors.As(err, &conErr) {
		return huma.Error409Conflict(conErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var expErr *domain.GracePeriodExpiredError
	if errors.As(err, &expErr) {
		return huma.Error422UnprocessableEntity(expErr.Error())
	}

	var notExpErr *domain.GracePeriodNotExpiredError
	if errors.As(err, &notExpErr) {
		return huma.Error422UnprocessableEntity(notExpErr.Error())
	}

	var provErr *domain.ProvisioningError
	if errors.As(err, &provErr) {
		return huma.Error500InternalServerError("tenant provisioning failed")
	}

	return huma.Error500InternalServerError("internal server error")
}
