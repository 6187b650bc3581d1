package domain

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a tenant.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCanceled  Status = "canceled"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventActivate Event = "activate"
	EventSuspend  Event = "suspend"
	EventCancel   Event = "cancel"
	EventRestore  Event = "restore"

	// EventCreate and EventDelete are published when a tenant enters or
	// leaves the system. They are not state transitions.
	EventCreate Event = "create"
	EventDelete Event = "delete"
)

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the tenant lifecycle.
// This is domain knowledge consumed by the FSM adapter. Cancel on an
// already-canceled tenant is handled by the service (it only refreshes
// the cancellation timestamp) and is deliberately absent here.
var Transitions = []Transition{
	{Event: EventActivate, Src: StatusTrial, Dst: StatusActive},
	{Event: EventActivate, Src: StatusSuspended, Dst: StatusActive},
	{Event: EventSuspend, Src: StatusTrial, Dst: StatusSuspended},
	{Event: EventSuspend, Src: StatusActive, Dst: StatusSuspended},
	{Event: EventCancel, Src: StatusTrial, Dst: StatusCanceled},
	{Event: EventCancel, Src: StatusActive, Dst: StatusCanceled},
	{Event: EventCancel, Src: StatusSuspended, Dst: StatusCanceled},
	{Event: EventRestore, Src: StatusCanceled, Dst: StatusActive},
}

// GracePeriod is how long a canceled tenant remains restorable before it
// becomes eligible for permanent deletion.
const GracePeriod = 30 * 24 * time.Hour

// Tenant is the core domain entity: an isolated customer environment with
// its own database and domain.
type Tenant struct {
	ID                 string
	Name               string
	DatabaseName       string
	PlanID             *int64
	OwnerName          string
	OwnerEmail         string
	OwnerPasswordHash  string
	Status             Status
	SubscriptionEndsAt *time.Time
	TrialEndsAt        *time.Time
	CanceledAt         *time.Time
	IsActive           bool
	Version            int64
	Domains            []Domain
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Domain is a routable hostname bound to exactly one tenant.
type Domain struct {
	ID        int64
	Domain    string
	TenantID  string
	CreatedAt time.Time
}

// NewTenant creates a tenant in the given initial state with a derived
// database name. Only trial and active are valid initial states.
func NewTenant(id, name, ownerName, ownerEmail, ownerPasswordHash string, planID *int64, status Status) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:                id,
		Name:              name,
		DatabaseName:      DatabaseName(name),
		PlanID:            planID,
		OwnerName:         ownerName,
		OwnerEmail:        ownerEmail,
		OwnerPasswordHash: ownerPasswordHash,
		Status:            status,
		IsActive:          true,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// DatabaseName derives the isolated database identifier from a tenant name:
// lowercased, runs of non-alphanumerics collapsed to underscores, prefixed
// with "tenant_". "Acme Corp" becomes "tenant_acme_corp".
func DatabaseName(name string) string {
	var b strings.Builder
	b.WriteString("tenant_")

	lastUnderscore := true // swallow leading separators
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

// GraceDeadline returns the instant the grace period ends. The second
// return is false when the tenant has no cancellation timestamp.
func (t Tenant) GraceDeadline() (time.Time, bool) {
	if t.CanceledAt == nil {
		return time.Time{}, false
	}
	return t.CanceledAt.Add(GracePeriod), true
}

// Restorable reports whether the tenant can still be restored at the given
// instant. A tenant is restorable strictly before the grace deadline; at the
// exact deadline it is deletable instead, so Restorable and Deletable are
// complements for any canceled tenant.
func (t Tenant) Restorable(now time.Time) bool {
	deadline, ok := t.GraceDeadline()
	if t.Status != StatusCanceled || !ok {
		return false
	}
	return now.Before(deadline)
}

// Deletable reports whether the tenant's grace period has elapsed and it may
// be permanently deleted at the given instant.
func (t Tenant) Deletable(now time.Time) bool {
	deadline, ok := t.GraceDeadline()
	if t.Status != StatusCanceled || !ok {
		return false
	}
	return !now.Before(deadline)
}

// GraceDaysRemaining returns the whole days left in the grace period,
// rounded up so a tenant with any time remaining reports at least 1.
// Returns 0 for tenants that are not canceled or whose window has elapsed.
func (t Tenant) GraceDaysRemaining(now time.Time) int {
	deadline, ok := t.GraceDeadline()
	if !ok || !now.Before(deadline) {
		return 0
	}
	const day = 24 * time.Hour
	return int((deadline.Sub(now) + day - 1) / day)
}
