// Package migration applies the embedded schema migrations on startup.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/billable/internal/config"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// Run applies all pending migrations. sqlite deployments are expected to
// migrate through gorm AutoMigrate instead, so they are skipped here.
func Run(cfg config.Config, log *zap.Logger) error {
	if cfg.DBType == "sqlite" {
		log.Info("skipping sql migrations for sqlite")
		return nil
	}

	src, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	dsn, err := migrateDSN(cfg)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("migrations applied",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

func migrateDSN(cfg config.Config) (string, error) {
	switch cfg.DBType {
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			url.QueryEscape(cfg.DBUser), url.QueryEscape(cfg.DBPassword),
			cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode,
		), nil
	case "mysql":
		return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		), nil
	default:
		return "", fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

// Module runs migrations before the rest of the app starts.
var Module = fx.Module("migration",
	fx.Invoke(Run),
)
