package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

const defaultProvisionTimeout = 30 * time.Second

// TenantService orchestrates the tenant lifecycle: provisioning, state
// transitions, and grace-period bookkeeping.
type TenantService struct {
	repo        domain.TenantRepository
	provisioner domain.Provisioner
	publisher   domain.EventPublisher
	validator   domain.TransitionValidator

	baseDomain       string
	provisionTimeout time.Duration
	now              func() time.Time
}

// Option configures a TenantService.
type Option func(*TenantService)

// WithClock overrides the time source. Used by tests to place a tenant at a
// precise point in its grace period.
func WithClock(now func() time.Time) Option {
	return func(s *TenantService) { s.now = now }
}

// WithProvisionTimeout bounds each call into the resource provisioner so a
// hung database creation cannot block a Create forever.
func WithProvisionTimeout(d time.Duration) Option {
	return func(s *TenantService) { s.provisionTimeout = d }
}

// NewTenantService creates a service with the given adapters. baseDomain is
// the suffix composed with a tenant's domain label, e.g. "saas.test".
func NewTenantService(
	repo domain.TenantRepository,
	provisioner domain.Provisioner,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	baseDomain string,
	opts ...Option,
) *TenantService {
	s := &TenantService{
		repo:             repo,
		provisioner:      provisioner,
		publisher:        publisher,
		validator:        validator,
		baseDomain:       baseDomain,
		provisionTimeout: defaultProvisionTimeout,
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTenantInput carries everything needed to provision a tenant.
type CreateTenantInput struct {
	Name          string
	OwnerName     string
	OwnerEmail    string
	OwnerPassword string
	DomainLabel   string
	PlanID        *int64
	Status        domain.Status // trial or active; empty defaults to trial
}

// Create provisions a tenant: the catalog record, its isolated database, a
// bound domain, and the first admin account inside the tenant database. The
// steps run as a saga; any failure after the record is written rolls back
// everything already created and re-surfaces the original error.
func (s *TenantService) Create(ctx context.Context, in CreateTenantInput) (domain.Tenant, error) {
	status := in.Status
	if status == "" {
		status = domain.StatusTrial
	}
	if status != domain.StatusTrial && status != domain.StatusActive {
		return domain.Tenant{}, fmt.Errorf("invalid initial status %q", in.Status)
	}

	// Uniqueness pre-checks so an obvious conflict fails before any side effect.
	if _, err := s.repo.GetByName(ctx, in.Name); err == nil {
		return domain.Tenant{}, &domain.NameConflictError{Name: in.Name}
	} else if !errors.Is(err, domain.ErrTenantNotFound) {
		return domain.Tenant{}, fmt.Errorf("checking name: %w", err)
	}

	fullDomain := in.DomainLabel + "." + s.baseDomain
	if _, err := s.repo.GetByDomain(ctx, fullDomain); err == nil {
		return domain.Tenant{}, &domain.DomainConflictError{Domain: fullDomain}
	} else if !errors.Is(err, domain.ErrTenantNotFound) {
		return domain.Tenant{}, fmt.Errorf("checking domain: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("hashing owner password: %w", err)
	}

	tenant := domain.NewTenant(uuid.NewString(), in.Name, in.OwnerName, in.OwnerEmail, string(hash), in.PlanID, status)

	steps := []sagaStep{
		{
			name: "persist tenant record",
			run: func(ctx context.Context) error {
				return s.repo.Create(ctx, tenant)
			},
			undo: func(ctx context.Context) error {
				return s.repo.Delete(ctx, tenant.ID)
			},
		},
		{
			name: "provision database",
			run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, s.provisionTimeout)
				defer cancel()
				return s.provisioner.CreateDatabase(ctx, tenant.DatabaseName)
			},
			undo: func(ctx context.Context) error {
				return s.provisioner.DropDatabase(ctx, tenant.DatabaseName)
			},
		},
		{
			name: "bind domain",
			run: func(ctx context.Context) error {
				bound, err := s.repo.AddDomain(ctx, tenant.ID, fullDomain)
				if err != nil {
					return err
				}
				tenant.Domains = []domain.Domain{bound}
				return nil
			},
			undo: func(ctx context.Context) error {
				return s.repo.RemoveDomains(ctx, tenant.ID)
			},
		},
		{
			// The tenant-local user store hashes the password itself, so it
			// receives the original plaintext. Passing the catalog hash here
			// would double-hash and lock the owner out.
			name: "seed admin user",
			run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, s.provisionTimeout)
				defer cancel()
				return s.provisioner.SeedAdmin(ctx, tenant.DatabaseName, in.OwnerName, in.OwnerEmail, in.OwnerPassword)
			},
		},
	}

	if err := runSaga(ctx, steps); err != nil {
		return domain.Tenant{}, err
	}

	if err := s.publisher.Publish(ctx, domain.EventCreate, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("publishing create event: %w", err)
	}

	return tenant, nil
}

// Cancel marks a tenant as canceled and starts the grace period. Resources
// are retained; permanent deletion only becomes possible once the grace
// period elapses. Canceling an already-canceled tenant resets the grace
// period anchor to now.
func (s *TenantService) Cancel(ctx context.Context, id string) (domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	if tenant.Status != domain.StatusCanceled {
		next, err := s.validator.Apply(ctx, tenant.Status, domain.EventCancel)
		if err != nil {
			return domain.Tenant{}, err
		}
		tenant.Status = next
	}

	now := s.now()
	tenant.IsActive = false
	tenant.CanceledAt = &now

	tenant, err = s.repo.Update(ctx, tenant)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("updating tenant: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventCancel, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("publishing cancel event: %w", err)
	}

	return tenant, nil
}

// Restore reactivates a canceled tenant inside its grace period. Restoring a
// tenant that is not canceled is a no-op returning the tenant unchanged.
func (s *TenantService) Restore(ctx context.Context, id string) (domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	if tenant.Status != domain.StatusCanceled {
		return tenant, nil
	}

	if !tenant.Restorable(s.now()) {
		return domain.Tenant{}, &domain.GracePeriodExpiredError{CanceledAt: *tenant.CanceledAt}
	}

	next, err := s.validator.Apply(ctx, tenant.Status, domain.EventRestore)
	if err != nil {
		return domain.Tenant{}, err
	}

	tenant.Status = next
	tenant.IsActive = true
	tenant.CanceledAt = nil

	tenant, err = s.repo.Update(ctx, tenant)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("updating tenant: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventRestore, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("publishing restore event: %w", err)
	}

	return tenant, nil
}

// Delete permanently removes a canceled tenant whose grace period has
// elapsed: its domains, its isolated database, and the catalog record.
// Irreversible.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if tenant.Status != domain.StatusCanceled {
		return &domain.TransitionError{Event: domain.EventDelete, Current: tenant.Status}
	}

	now := s.now()
	if !tenant.Deletable(now) {
		deadline, _ := tenant.GraceDeadline()
		return &domain.GracePeriodNotExpiredError{
			CanceledAt: *tenant.CanceledAt,
			Remaining:  deadline.Sub(now),
		}
	}

	if err := s.repo.RemoveDomains(ctx, tenant.ID); err != nil {
		return fmt.Errorf("removing domains: %w", err)
	}

	dropCtx, cancel := context.WithTimeout(ctx, s.provisionTimeout)
	defer cancel()
	if err := s.provisioner.DropDatabase(dropCtx, tenant.DatabaseName); err != nil {
		return fmt.Errorf("dropping tenant database: %w", err)
	}

	if err := s.repo.Delete(ctx, tenant.ID); err != nil {
		return fmt.Errorf("deleting tenant record: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventDelete, tenant); err != nil {
		return fmt.Errorf("publishing delete event: %w", err)
	}

	return nil
}

// UpdateTenantInput holds optional field corrections. Nil fields are left
// untouched.
type UpdateTenantInput struct {
	OwnerName          *string
	OwnerEmail         *string
	PlanID             *int64
	Status             *domain.Status
	TrialEndsAt        *time.Time
	SubscriptionEndsAt *time.Time
	IsActive           *bool
}

// Update applies administrative field corrections directly, without running
// the state machine or re-provisioning anything.
func (s *TenantService) Update(ctx context.Context, id string, in UpdateTenantInput) (domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	if in.OwnerName != nil {
		tenant.OwnerName = *in.OwnerName
	}
	if in.OwnerEmail != nil {
		tenant.OwnerEmail = *in.OwnerEmail
	}
	if in.PlanID != nil {
		tenant.PlanID = in.PlanID
	}
	if in.TrialEndsAt != nil {
		tenant.TrialEndsAt = in.TrialEndsAt
	}
	if in.SubscriptionEndsAt != nil {
		tenant.SubscriptionEndsAt = in.SubscriptionEndsAt
	}
	if in.IsActive != nil {
		tenant.IsActive = *in.IsActive
	}
	if in.Status != nil && *in.Status != tenant.Status {
		tenant.Status = *in.Status
		// Keep canceled_at in step with status: non-null iff canceled.
		if tenant.Status == domain.StatusCanceled {
			now := s.now()
			tenant.CanceledAt = &now
		} else {
			tenant.CanceledAt = nil
		}
	}

	tenant, err = s.repo.Update(ctx, tenant)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("updating tenant: %w", err)
	}

	return tenant, nil
}

// Transition applies an administrative lifecycle event (suspend, activate)
// to a tenant, changing its state through the validator.
func (s *TenantService) Transition(ctx context.Context, id string, event domain.Event) (domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	next, err := s.validator.Apply(ctx, tenant.Status, event)
	if err != nil {
		return domain.Tenant{}, err
	}

	tenant.Status = next
	switch next {
	case domain.StatusActive, domain.StatusTrial:
		tenant.IsActive = true
		tenant.CanceledAt = nil
	case domain.StatusSuspended:
		tenant.IsActive = false
	case domain.StatusCanceled:
		now := s.now()
		tenant.IsActive = false
		tenant.CanceledAt = &now
	}

	tenant, err = s.repo.Update(ctx, tenant)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("updating tenant: %w", err)
	}

	if err := s.publisher.Publish(ctx, event, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("publishing event %q: %w", event, err)
	}

	return tenant, nil
}

// GetByID returns a tenant by its unique identifier.
func (s *TenantService) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve maps an inbound domain name to its tenant. This is the read
// contract consumed by the request router.
func (s *TenantService) Resolve(ctx context.Context, domainName string) (domain.Tenant, error) {
	return s.repo.GetByDomain(ctx, domainName)
}

// List returns tenants matching the given filter.
func (s *TenantService) List(ctx context.Context, filter domain.TenantFilter) ([]domain.Tenant, error) {
	return s.repo.List(ctx, filter)
}
