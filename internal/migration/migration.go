package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	pricingdomain "github.com/smallbiznis/milkseller/internal/pricing/domain"
	"gorm.io/gorm"
)

// Models lists every table the service owns, for dialects without SQL migrations.
func Models() []any {
	return []any{
		&pricingdomain.MilkPrice{},
		&billingdomain.BillingSnapshot{},
		&accesskeydomain.AccessKey{},
	}
}

// Result describes the schema state after Up.
type Result struct {
	Version uint
	Changed bool
}

func sqlSource() (source.Driver, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	return iofs.New(sub, ".")
}

// Up applies the embedded postgres migrations. The migrator is never closed
// since that would close the pool shared with gorm.
func Up(conn *sql.DB) (Result, error) {
	if conn == nil {
		return Result{}, errors.New("migration database handle is required")
	}
	src, err := sqlSource()
	if err != nil {
		return Result{}, err
	}
	target, err := postgres.WithInstance(conn, &postgres.Config{MigrationsTable: "milkseller_schema_migrations"})
	if err != nil {
		return Result{}, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return Result{}, fmt.Errorf("create migrator: %w", err)
	}

	res := Result{Changed: true}
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		res.Changed = false
	case err != nil:
		return Result{}, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Result{}, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return Result{}, fmt.Errorf("schema version %d is dirty", version)
	}
	res.Version = version
	return res, nil
}

// AutoMigrate creates the schema from the gorm models. Used for mysql and sqlite.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
