package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

const tracerName = "github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/otel"

// TracingRepository wraps a domain.TenantRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.TenantRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.TenantRepository.
var _ domain.TenantRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.TenantRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, tenant domain.Tenant) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Create",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID),
			attribute.String("tenant.db", tenant.DatabaseName),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, tenant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByID",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	tenant, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return tenant, err
}

func (r *TracingRepository) GetByName(ctx context.Context, name string) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByName",
		trace.WithAttributes(attribute.String("tenant.name", name)),
	)
	defer span.End()

	tenant, err := r.next.GetByName(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return tenant, err
}

func (r *TracingRepository) GetByDomain(ctx context.Context, domainName string) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.GetByDomain",
		trace.WithAttributes(attribute.String("tenant.domain", domainName)),
	)
	defer span.End()

	tenant, err := r.next.GetByDomain(ctx, domainName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return tenant, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.TenantFilter) ([]domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	tenants, err := r.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(tenants)))
	}
	return tenants, err
}

func (r *TracingRepository) Update(ctx context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Update",
		trace.WithAttributes(
			attribute.String("tenant.id", tenant.ID),
			attribute.String("tenant.status", string(tenant.Status)),
			attribute.Int64("tenant.version", tenant.Version),
		),
	)
	defer span.End()

	updated, err := r.next.Update(ctx, tenant)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return updated, err
}

func (r *TracingRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.Delete",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	err := r.next.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) AddDomain(ctx context.Context, tenantID, domainName string) (domain.Domain, error) {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.AddDomain",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("tenant.domain", domainName),
		),
	)
	defer span.End()

	bound, err := r.next.AddDomain(ctx, tenantID, domainName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return bound, err
}

func (r *TracingRepository) RemoveDomains(ctx context.Context, tenantID string) error {
	ctx, span := r.tracer.Start(ctx, "TenantRepository.RemoveDomains",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
	defer span.End()

	err := r.next.RemoveDomains(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
