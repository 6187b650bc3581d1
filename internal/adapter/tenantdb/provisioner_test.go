package tenantdb_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/tenantdb"
)

func newProvisioner(t *testing.T) *tenantdb.Provisioner {
	t.Helper()

	p, err := tenantdb.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating provisioner: %v", err)
	}

	return p
}

func countUsers(t *testing.T, p *tenantdb.Provisioner, name string) int {
	t.Helper()

	var count int
	err := p.Run(context.Background(), name, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	})
	if err != nil {
		t.Fatalf("counting users in %s: %v", name, err)
	}

	return count
}

func TestCreateDatabase(t *testing.T) {
	p := newProvisioner(t)
	ctx := context.Background()

	if err := p.CreateDatabase(ctx, "tenant_acme"); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	// The schema is in place and empty.
	if count := countUsers(t, p, "tenant_acme"); count != 0 {
		t.Errorf("user count = %d, want 0", count)
	}
}

func TestCreateDatabase_AlreadyExists(t *testing.T) {
	p := newProvisioner(t)
	ctx := context.Background()

	if err := p.CreateDatabase(ctx, "tenant_acme"); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	if err := p.CreateDatabase(ctx, "tenant_acme"); !errors.Is(err, tenantdb.ErrDatabaseExists) {
		t.Errorf("expected ErrDatabaseExists, got %v", err)
	}
}

func TestCreateDatabase_InvalidName(t *testing.T) {
	p := newProvisioner(t)

	for _, name := range []string{"", "Tenant_Acme", "../escape", "tenant acme", "tenant/evil"} {
		if err := p.CreateDatabase(context.Background(), name); err == nil {
			t.Errorf("CreateDatabase(%q) should reject the name", name)
		}
	}
}

func TestSeedAdmin(t *testing.T) {
	p := newProvisioner(t)
	ctx := context.Background()

	if err := p.CreateDatabase(ctx, "tenant_acme"); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	if err := p.SeedAdmin(ctx, "tenant_acme", "Ada Lovelace", "ada@acme.test", "s3cret"); err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}

	var gotName, gotEmail, gotHash string
	var isAdmin int
	err := p.Run(ctx, "tenant_acme", func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT name, email, password_hash, is_admin FROM users`).
			Scan(&gotName, &gotEmail, &gotHash, &isAdmin)
	})
	if err != nil {
		t.Fatalf("reading seeded admin: %v", err)
	}

	if gotName != "Ada Lovelace" || gotEmail != "ada@acme.test" || isAdmin != 1 {
		t.Errorf("seeded admin = (%q, %q, admin=%d)", gotName, gotEmail, isAdmin)
	}

	// Stored as a bcrypt hash of the original password, never plaintext.
	if gotHash == "s3cret" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(gotHash), []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not verify against original password: %v", err)
	}
}

func TestSeedAdmin_UnprovisionedDatabase(t *testing.T) {
	p := newProvisioner(t)

	err := p.SeedAdmin(context.Background(), "tenant_ghost", "Ghost", "ghost@test", "pw")
	if !errors.Is(err, tenantdb.ErrDatabaseNotFound) {
		t.Errorf("expected ErrDatabaseNotFound, got %v", err)
	}
}

func TestDropDatabase(t *testing.T) {
	dir := t.TempDir()
	p, err := tenantdb.New(dir)
	if err != nil {
		t.Fatalf("creating provisioner: %v", err)
	}
	ctx := context.Background()

	if err := p.CreateDatabase(ctx, "tenant_acme"); err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	if err := p.DropDatabase(ctx, "tenant_acme"); err != nil {
		t.Fatalf("DropDatabase failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "tenant_acme.db")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("database file still on disk after drop: %v", err)
	}

	if err := p.Run(ctx, "tenant_acme", func(ctx context.Context, db *sql.DB) error { return nil }); !errors.Is(err, tenantdb.ErrDatabaseNotFound) {
		t.Errorf("expected ErrDatabaseNotFound after drop, got %v", err)
	}
}

func TestDropDatabase_Missing(t *testing.T) {
	p := newProvisioner(t)

	// Compensation after a partial provisioning must be able to run.
	if err := p.DropDatabase(context.Background(), "tenant_never_created"); err != nil {
		t.Errorf("dropping a missing database should be a no-op, got %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	p := newProvisioner(t)
	ctx := context.Background()

	for _, name := range []string{"tenant_acme", "tenant_globex"} {
		if err := p.CreateDatabase(ctx, name); err != nil {
			t.Fatalf("CreateDatabase(%s) failed: %v", name, err)
		}
	}

	if err := p.SeedAdmin(ctx, "tenant_acme", "Ada", "ada@acme.test", "pw-a"); err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}

	if got := countUsers(t, p, "tenant_acme"); got != 1 {
		t.Errorf("tenant_acme user count = %d, want 1", got)
	}
	if got := countUsers(t, p, "tenant_globex"); got != 0 {
		t.Errorf("tenant_globex user count = %d, want 0", got)
	}

	// Dropping one tenant leaves the other untouched.
	if err := p.DropDatabase(ctx, "tenant_acme"); err != nil {
		t.Fatalf("DropDatabase failed: %v", err)
	}
	if got := countUsers(t, p, "tenant_globex"); got != 0 {
		t.Errorf("tenant_globex user count after drop = %d, want 0", got)
	}
}
