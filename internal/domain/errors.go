package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrDomainNotFound       = errors.New("domain not found")
	ErrPlanNotFound         = errors.New("plan not found")
	ErrFeatureNotFound      = errors.New("feature not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// NameConflictError is returned when a tenant name is already in use.
type NameConflictError struct {
	Name string
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("tenant name %q is already in use", e.Name)
}

// DomainConflictError is returned when a domain is already bound to a tenant.
type DomainConflictError struct {
	Domain string
}

func (e *DomainConflictError) Error() string {
	return fmt.Sprintf("domain %q is already in use", e.Domain)
}

// SlugConflictError is returned when a plan slug or feature code collides.
type SlugConflictError struct {
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q is already in use", e.Slug)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// GracePeriodExpiredError is returned when a restore is attempted after the
// grace period has elapsed.
type GracePeriodExpiredError struct {
	CanceledAt time.Time
}

func (e *GracePeriodExpiredError) Error() string {
	return fmt.Sprintf("grace period expired: tenant was canceled at %s", e.CanceledAt.Format(time.RFC3339))
}

// GracePeriodNotExpiredError is returned when a permanent delete is attempted
// while the tenant is still inside its grace period.
type GracePeriodNotExpiredError struct {
	CanceledAt time.Time
	Remaining  time.Duration
}

func (e *GracePeriodNotExpiredError) Error() string {
	return fmt.Sprintf("grace period still active: %s remaining", e.Remaining)
}

// ConcurrentModificationError is returned when a lifecycle write loses an
// optimistic-concurrency check against the stored tenant version.
type ConcurrentModificationError struct {
	TenantID string
	Version  int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("tenant %s was modified concurrently (version %d is stale)", e.TenantID, e.Version)
}

// ProvisioningError is returned when a provisioning step fails mid-create.
// Err is the original failure and unwraps for errors.Is/As. Cleanup is
// non-nil only when the compensating rollback itself also failed; that
// secondary failure needs operator attention and must not be swallowed.
type ProvisioningError struct {
	Step    string
	Err     error
	Cleanup error
}

func (e *ProvisioningError) Error() string {
	if e.Cleanup != nil {
		return fmt.Sprintf("provisioning step %q failed: %v (rollback also failed: %v)", e.Step, e.Err, e.Cleanup)
	}
	return fmt.Sprintf("provisioning step %q failed: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
