package db

import (
	"embed"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultTemplateIndex enforces at most one default template per tenant and
// document type. Both Postgres and SQLite support partial indexes.
const DefaultTemplateIndex = "idx_document_templates_one_default"

// Migrate runs AutoMigrate for all models, then creates the indexes gorm
// tags cannot express.
func Migrate(conn *gorm.DB) error {
	for _, m := range models.All() {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return ensureIndexes(conn)
}

func ensureIndexes(conn *gorm.DB) error {
	stmt := "CREATE UNIQUE INDEX IF NOT EXISTS " + DefaultTemplateIndex +
		" ON document_templates (user_id, document_type) WHERE is_default AND deleted_at IS NULL"
	if err := conn.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", DefaultTemplateIndex, err)
	}
	return nil
}

// RunSQLMigrations applies the embedded SQL migrations with golang-migrate.
// Postgres only.
func RunSQLMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Seed initializes the permissions and system profiles. Idempotent.
func Seed(conn *gorm.DB) error {
	return SeedProfiles(conn)
}
