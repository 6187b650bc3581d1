// Package tenantdb provisions the isolated per-tenant databases. Each tenant
// gets its own SQLite file under a data directory, with its own schema and
// its own users table, so tenant data never shares tables with the catalog.
package tenantdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"golang.org/x/crypto/bcrypt"

	"github.com/zrclouddev-oss/saas-starter-vue/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Database names are produced by domain.DatabaseName; anything else is
// rejected before it can touch the filesystem.
var validName = regexp.MustCompile(`^[a-z0-9_]+$`)

// ErrDatabaseExists is returned when provisioning a database that is
// already on disk.
var ErrDatabaseExists = errors.New("tenant database already exists")

// ErrDatabaseNotFound is returned when running work against a database
// that was never provisioned.
var ErrDatabaseNotFound = errors.New("tenant database not found")

const timeFormat = "2006-01-02T15:04:05Z"

// Provisioner implements domain.Provisioner with one SQLite file per tenant.
type Provisioner struct {
	dataDir string
}

var _ domain.Provisioner = (*Provisioner)(nil)

// New returns a Provisioner storing tenant databases under dataDir,
// creating the directory if needed.
func New(dataDir string) (*Provisioner, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating tenant data directory: %w", err)
	}

	return &Provisioner{dataDir: dataDir}, nil
}

// CreateDatabase creates the tenant's database file and applies the tenant
// schema. It fails if the database already exists.
func (p *Provisioner) CreateDatabase(ctx context.Context, name string) error {
	path, err := p.path(name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking tenant database: %w", err)
	}

	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate(ctx, db); err != nil {
		return fmt.Errorf("migrating tenant database %q: %w", name, err)
	}

	return nil
}

// DropDatabase removes the tenant's database file and its WAL sidecars.
// Dropping a database that does not exist is not an error, so compensation
// after a partial provisioning can always run.
func (p *Provisioner) DropDatabase(_ context.Context, name string) error {
	path, err := p.path(name)
	if err != nil {
		return err
	}

	for _, f := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing tenant database %q: %w", name, err)
		}
	}

	return nil
}

// Run opens the tenant's database and executes fn against it. The
// connection is closed when fn returns.
func (p *Provisioner) Run(ctx context.Context, name string, fn domain.WorkUnit) error {
	path, err := p.path(name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
	} else if err != nil {
		return fmt.Errorf("checking tenant database: %w", err)
	}

	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}

// SeedAdmin creates the first administrative user inside the tenant's
// database. The password arrives as plaintext and is hashed here; the
// control plane never stores it.
func (p *Provisioner) SeedAdmin(ctx context.Context, name, adminName, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	return p.Run(ctx, name, func(ctx context.Context, db *sql.DB) error {
		now := time.Now().UTC().Format(timeFormat)

		_, err := db.ExecContext(ctx,
			`INSERT INTO users (name, email, password_hash, is_admin, created_at, updated_at)
			 VALUES (?, ?, ?, 1, ?, ?)`,
			adminName, email, string(hash), now, now)
		if err != nil {
			return fmt.Errorf("seeding admin user: %w", err)
		}

		return nil
	})
}

func (p *Provisioner) path(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("invalid tenant database name %q", name)
	}

	return filepath.Join(p.dataDir, name+".db"), nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening tenant database: %w", err)
	}

	// One connection keeps the per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

// migrate applies the tenant schema through a goose provider. The provider
// API carries its own filesystem and dialect, so concurrent provisioning
// does not fight over goose's global state with the catalog migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("resolving migrations: %w", err)
	}

	provider, err := goose.NewProvider(database.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
