package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// TenantRepository implements domain.TenantRepository using SQLite.
type TenantRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*TenantRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite performs best with a single connection when sharing the DB
	// with an embedded job queue (River). This avoids SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite); domain and
	// subscription rows cascade on tenant delete.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*TenantRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &TenantRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *TenantRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (the catalog store and River share it).
func (r *TenantRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil
	}
	return &t
}

const tenantColumns = `id, name, tenancy_db_name, plan_id, owner_name, owner_email, owner_password,
	status, subscription_ends_at, trial_ends_at, canceled_at, is_active, version, created_at, updated_at`

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.DatabaseName, t.PlanID, t.OwnerName, t.OwnerEmail, t.OwnerPasswordHash,
		string(t.Status),
		formatNullableTime(t.SubscriptionEndsAt),
		formatNullableTime(t.TrialEndsAt),
		formatNullableTime(t.CanceledAt),
		t.IsActive, t.Version,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.NameConflictError{Name: t.Name}
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return r.getTenant(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
}

func (r *TenantRepository) GetByName(ctx context.Context, name string) (domain.Tenant, error) {
	return r.getTenant(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE name = ?`, name)
}

func (r *TenantRepository) GetByDomain(ctx context.Context, d string) (domain.Tenant, error) {
	return r.getTenant(ctx,
		`SELECT t.id, t.name, t.tenancy_db_name, t.plan_id, t.owner_name, t.owner_email, t.owner_password,
			t.status, t.subscription_ends_at, t.trial_ends_at, t.canceled_at, t.is_active, t.version,
			t.created_at, t.updated_at
		 FROM tenants t
		 JOIN domains d ON d.tenant_id = t.id
		 WHERE d.domain = ?`, d)
}

func (r *TenantRepository) getTenant(ctx context.Context, query string, args ...any) (domain.Tenant, error) {
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.Tenant{}, err
	}

	t.Domains, err = r.listDomains(ctx, t.ID)
	if err != nil {
		return domain.Tenant{}, err
	}

	return t, nil
}

func (r *TenantRepository) List(ctx context.Context, filter domain.TenantFilter) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var clauses []string
	var args []any

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		clauses = append(clauses, `(name LIKE ? OR owner_name LIKE ? OR owner_email LIKE ?
			OR EXISTS (SELECT 1 FROM domains d WHERE d.tenant_id = tenants.id AND d.domain LIKE ?))`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if filter.Status != nil {
		clauses = append(clauses, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if filter.PlanID != nil {
		clauses = append(clauses, `plan_id = ?`)
		args = append(args, *filter.PlanID)
	}
	if filter.IsActive != nil {
		clauses = append(clauses, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}

	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tenants {
		tenants[i].Domains, err = r.listDomains(ctx, tenants[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return tenants, nil
}

// Update persists the tenant guarded by the version the caller read. The
// version column is incremented on every successful write; a concurrent
// writer holding a stale snapshot loses.
func (r *TenantRepository) Update(ctx context.Context, t domain.Tenant) (domain.Tenant, error) {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET plan_id = ?, owner_name = ?, owner_email = ?, owner_password = ?,
			status = ?, subscription_ends_at = ?, trial_ends_at = ?, canceled_at = ?,
			is_active = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		t.PlanID, t.OwnerName, t.OwnerEmail, t.OwnerPasswordHash,
		string(t.Status),
		formatNullableTime(t.SubscriptionEndsAt),
		formatNullableTime(t.TrialEndsAt),
		formatNullableTime(t.CanceledAt),
		t.IsActive, formatTime(now),
		t.ID, t.Version,
	)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("updating tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Either the tenant is gone or the version moved underneath us.
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tenants WHERE id = ?`, t.ID).Scan(&exists)
		if err == sql.ErrNoRows {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		if err != nil {
			return domain.Tenant{}, fmt.Errorf("checking tenant existence: %w", err)
		}
		return domain.Tenant{}, &domain.ConcurrentModificationError{TenantID: t.ID, Version: t.Version}
	}

	return r.GetByID(ctx, t.ID)
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}

func (r *TenantRepository) AddDomain(ctx context.Context, tenantID, d string) (domain.Domain, error) {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO domains (domain, tenant_id, created_at) VALUES (?, ?, ?)`,
		d, tenantID, formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Domain{}, &domain.DomainConflictError{Domain: d}
		}
		return domain.Domain{}, fmt.Errorf("inserting domain: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Domain{}, fmt.Errorf("reading domain id: %w", err)
	}

	return domain.Domain{ID: id, Domain: d, TenantID: tenantID, CreatedAt: now}, nil
}

func (r *TenantRepository) RemoveDomains(ctx context.Context, tenantID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM domains WHERE tenant_id = ?`, tenantID); err != nil {
		return fmt.Errorf("removing domains: %w", err)
	}
	return nil
}

func (r *TenantRepository) listDomains(ctx context.Context, tenantID string) ([]domain.Domain, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, domain, tenant_id, created_at FROM domains WHERE tenant_id = ? ORDER BY id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}
	defer rows.Close()

	var domains []domain.Domain
	for rows.Next() {
		var d domain.Domain
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Domain, &d.TenantID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning domain: %w", err)
		}
		d.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		domains = append(domains, d)
	}

	return domains, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (domain.Tenant, error) {
	var t domain.Tenant
	var status, createdAt, updatedAt string
	var planID sql.NullInt64
	var subEndsAt, trialEndsAt, canceledAt sql.NullString

	err := row.Scan(&t.ID, &t.Name, &t.DatabaseName, &planID, &t.OwnerName, &t.OwnerEmail,
		&t.OwnerPasswordHash, &status, &subEndsAt, &trialEndsAt, &canceledAt,
		&t.IsActive, &t.Version, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	if planID.Valid {
		t.PlanID = &planID.Int64
	}
	t.Status = domain.Status(status)
	t.SubscriptionEndsAt = parseNullableTime(subEndsAt)
	t.TrialEndsAt = parseNullableTime(trialEndsAt)
	t.CanceledAt = parseNullableTime(canceledAt)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
