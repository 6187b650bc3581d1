package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"
)

// CatalogRepository implements domain.PlanRepository and
// domain.SubscriptionRepository over the same SQLite database as the tenant
// repository.
type CatalogRepository struct {
	db *sql.DB
}

// Compile-time checks.
var (
	_ domain.PlanRepository         = (*CatalogRepository)(nil)
	_ domain.SubscriptionRepository = (*CatalogRepository)(nil)
)

// NewCatalog wraps an already-migrated database connection. Migrations are
// owned by the tenant repository; construct that first.
func NewCatalog(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const planColumns = `id, name, slug, description, price_cents, currency, duration_in_days,
	is_free, is_active, created_at, updated_at, deleted_at`

// --- Plans ---

func (r *CatalogRepository) CreatePlan(ctx context.Context, p domain.Plan, features []domain.FeatureValue) (domain.Plan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO plans (name, slug, description, price_cents, currency, duration_in_days,
			is_free, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Slug, p.Description, p.PriceCents, p.Currency, p.DurationDays,
		p.IsFree, p.IsActive, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Plan{}, &domain.SlugConflictError{Slug: p.Slug}
		}
		return domain.Plan{}, fmt.Errorf("inserting plan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Plan{}, fmt.Errorf("reading plan id: %w", err)
	}

	if err := syncFeatures(ctx, tx, id, features); err != nil {
		return domain.Plan{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Plan{}, fmt.Errorf("committing plan: %w", err)
	}

	return r.GetPlan(ctx, id)
}

func (r *CatalogRepository) GetPlan(ctx context.Context, id int64) (domain.Plan, error) {
	p, err := scanPlan(r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return domain.Plan{}, err
	}

	p.Features, err = r.planFeatures(ctx, id)
	if err != nil {
		return domain.Plan{}, err
	}

	return p, nil
}

func (r *CatalogRepository) ListPlans(ctx context.Context, filter domain.PlanFilter) ([]domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans`
	clauses := []string{`deleted_at IS NULL`}
	var args []any

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		clauses = append(clauses, `(name LIKE ? OR description LIKE ?)`)
		args = append(args, pattern, pattern)
	}
	if filter.IsActive != nil {
		clauses = append(clauses, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	if filter.IsFree != nil {
		clauses = append(clauses, `is_free = ?`)
		args = append(args, *filter.IsFree)
	}

	query += ` WHERE ` + strings.Join(clauses, ` AND `) + ` ORDER BY price_cents, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range plans {
		plans[i].Features, err = r.planFeatures(ctx, plans[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return plans, nil
}

func (r *CatalogRepository) UpdatePlan(ctx context.Context, p domain.Plan, features []domain.FeatureValue) (domain.Plan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE plans SET name = ?, slug = ?, description = ?, price_cents = ?, currency = ?,
			duration_in_days = ?, is_free = ?, is_active = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		p.Name, p.Slug, p.Description, p.PriceCents, p.Currency,
		p.DurationDays, p.IsFree, p.IsActive, formatTime(time.Now().UTC()),
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Plan{}, &domain.SlugConflictError{Slug: p.Slug}
		}
		return domain.Plan{}, fmt.Errorf("updating plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Plan{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.Plan{}, domain.ErrPlanNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_plan WHERE plan_id = ?`, p.ID); err != nil {
		return domain.Plan{}, fmt.Errorf("detaching features: %w", err)
	}
	if err := syncFeatures(ctx, tx, p.ID, features); err != nil {
		return domain.Plan{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Plan{}, fmt.Errorf("committing plan: %w", err)
	}

	return r.GetPlan(ctx, p.ID)
}

// DeletePlan soft-deletes the plan so historical subscriptions keep a valid
// reference, and detaches its features.
func (r *CatalogRepository) DeletePlan(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE plans SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrPlanNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_plan WHERE plan_id = ?`, id); err != nil {
		return fmt.Errorf("detaching features: %w", err)
	}

	return tx.Commit()
}

func syncFeatures(ctx context.Context, tx *sql.Tx, planID int64, features []domain.FeatureValue) error {
	now := formatTime(time.Now().UTC())
	for _, f := range features {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_plan (plan_id, feature_id, value, created_at) VALUES (?, ?, ?, ?)`,
			planID, f.FeatureID, f.Value, now,
		); err != nil {
			return fmt.Errorf("attaching feature %d: %w", f.FeatureID, err)
		}
	}
	return nil
}

func (r *CatalogRepository) planFeatures(ctx context.Context, planID int64) ([]domain.PlanFeature, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.code, f.description, f.created_at, f.updated_at, fp.value
		 FROM features f
		 JOIN feature_plan fp ON fp.feature_id = f.id
		 WHERE fp.plan_id = ?
		 ORDER BY f.name`, planID)
	if err != nil {
		return nil, fmt.Errorf("listing plan features: %w", err)
	}
	defer rows.Close()

	var features []domain.PlanFeature
	for rows.Next() {
		var pf domain.PlanFeature
		var createdAt, updatedAt string
		var value sql.NullString
		if err := rows.Scan(&pf.ID, &pf.Name, &pf.Code, &pf.Description, &createdAt, &updatedAt, &value); err != nil {
			return nil, fmt.Errorf("scanning plan feature: %w", err)
		}
		if value.Valid {
			pf.Value = &value.String
		}
		pf.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		pf.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
		features = append(features, pf)
	}

	return features, rows.Err()
}

func scanPlan(row rowScanner) (domain.Plan, error) {
	var p domain.Plan
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceCents, &p.Currency,
		&p.DurationDays, &p.IsFree, &p.IsActive, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Plan{}, domain.ErrPlanNotFound
		}
		return domain.Plan{}, fmt.Errorf("scanning plan: %w", err)
	}

	p.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	p.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	p.DeletedAt = parseNullableTime(deletedAt)

	return p, nil
}

// --- Features ---

func (r *CatalogRepository) CreateFeature(ctx context.Context, f domain.Feature) (domain.Feature, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO features (name, code, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		f.Name, f.Code, f.Description, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Feature{}, &domain.SlugConflictError{Slug: f.Code}
		}
		return domain.Feature{}, fmt.Errorf("inserting feature: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Feature{}, fmt.Errorf("reading feature id: %w", err)
	}

	return r.GetFeature(ctx, id)
}

func (r *CatalogRepository) GetFeature(ctx context.Context, id int64) (domain.Feature, error) {
	var f domain.Feature
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, code, description, created_at, updated_at FROM features WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.Code, &f.Description, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Feature{}, domain.ErrFeatureNotFound
		}
		return domain.Feature{}, fmt.Errorf("scanning feature: %w", err)
	}

	f.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	f.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return f, nil
}

func (r *CatalogRepository) ListFeatures(ctx context.Context) ([]domain.Feature, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, code, description, created_at, updated_at FROM features ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing features: %w", err)
	}
	defer rows.Close()

	var features []domain.Feature
	for rows.Next() {
		var f domain.Feature
		var createdAt, updatedAt string
		if err := rows.Scan(&f.ID, &f.Name, &f.Code, &f.Description, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning feature: %w", err)
		}
		f.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		f.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
		features = append(features, f)
	}

	return features, rows.Err()
}

func (r *CatalogRepository) UpdateFeature(ctx context.Context, f domain.Feature) (domain.Feature, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE features SET name = ?, code = ?, description = ?, updated_at = ? WHERE id = ?`,
		f.Name, f.Code, f.Description, formatTime(time.Now().UTC()), f.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Feature{}, &domain.SlugConflictError{Slug: f.Code}
		}
		return domain.Feature{}, fmt.Errorf("updating feature: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Feature{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.Feature{}, domain.ErrFeatureNotFound
	}

	return r.GetFeature(ctx, f.ID)
}

// DeleteFeature removes a feature and detaches it from every plan.
func (r *CatalogRepository) DeleteFeature(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_plan WHERE feature_id = ?`, id); err != nil {
		return fmt.Errorf("detaching feature: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM features WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting feature: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrFeatureNotFound
	}

	return tx.Commit()
}

// --- Subscriptions ---

const subscriptionColumns = `id, tenant_id, plan_id, provider_id, provider_status, provider_price,
	quantity, trial_ends_at, ends_at, created_at, updated_at`

func (r *CatalogRepository) CreateSubscription(ctx context.Context, s domain.Subscription) (domain.Subscription, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (tenant_id, plan_id, provider_id, provider_status, provider_price,
			quantity, trial_ends_at, ends_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TenantID, s.PlanID, s.ProviderID, s.ProviderStatus, s.ProviderPrice,
		s.Quantity, formatNullableTime(s.TrialEndsAt), formatNullableTime(s.EndsAt),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("inserting subscription: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("reading subscription id: %w", err)
	}

	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return s, nil
}

func (r *CatalogRepository) ListSubscriptions(ctx context.Context, tenantID string) ([]domain.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE tenant_id = ?
		 ORDER BY created_at DESC, id DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}

	return subs, rows.Err()
}

// CurrentSubscription returns the tenant's most recent subscription.
func (r *CatalogRepository) CurrentSubscription(ctx context.Context, tenantID string) (domain.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE tenant_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, tenantID))
	if err != nil {
		return domain.Subscription{}, err
	}
	return s, nil
}

func scanSubscription(row rowScanner) (domain.Subscription, error) {
	var s domain.Subscription
	var createdAt, updatedAt string
	var trialEndsAt, endsAt sql.NullString

	err := row.Scan(&s.ID, &s.TenantID, &s.PlanID, &s.ProviderID, &s.ProviderStatus,
		&s.ProviderPrice, &s.Quantity, &trialEndsAt, &endsAt, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Subscription{}, domain.ErrSubscriptionNotFound
		}
		return domain.Subscription{}, fmt.Errorf("scanning subscription: %w", err)
	}

	s.TrialEndsAt = parseNullableTime(trialEndsAt)
	s.EndsAt = parseNullableTime(endsAt)
	s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	s.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return s, nil
}
