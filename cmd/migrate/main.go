package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ManuelReschke/AccessPass/internal/pkg/database"
	"github.com/ManuelReschke/AccessPass/internal/pkg/env"
	"github.com/ManuelReschke/AccessPass/migrations"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	cfg := database.ConfigFromEnv()

	dbURL, sourceDir, err := migrationTarget(cfg)
	if err != nil {
		fiberlog.Fatalf("[Migrate] %v", err)
	}
	fiberlog.Infof("[Migrate] Connecting to %s database: %s", cfg.Driver, describeTarget(cfg))

	source, err := iofs.New(migrations.FS, sourceDir)
	if err != nil {
		fiberlog.Fatalf("[Migrate] Failed to load migrations: %v", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		fiberlog.Fatalf("[Migrate] Failed to initialize migration: %v", err)
	}

	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			fiberlog.Errorf("[Migrate] Failed to close migration resources: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		// Run all pending migrations
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fiberlog.Fatalf("[Migrate] Failed to run migrations: %v", err)
		} else if errors.Is(err, migrate.ErrNoChange) {
			fiberlog.Info("[Migrate] No changes: database is up to date")
		} else {
			fiberlog.Info("[Migrate] Migrations applied")
		}

	case "down":
		// Roll back the last migration
		if err := m.Steps(-1); err != nil {
			fiberlog.Fatalf("[Migrate] Failed to roll back the last migration: %v", err)
		}
		fiberlog.Info("[Migrate] Last migration rolled back")

	case "goto":
		if len(os.Args) < 3 {
			fiberlog.Fatal("[Migrate] Please provide a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			fiberlog.Fatalf("[Migrate] Invalid version number: %v", err)
		}

		if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fiberlog.Fatalf("[Migrate] Failed to migrate to version %d: %v", version, err)
		} else if errors.Is(err, migrate.ErrNoChange) {
			fiberlog.Infof("[Migrate] No changes: database is already at version %d", version)
		} else {
			fiberlog.Infof("[Migrate] Migrated to version %d", version)
		}

	case "status":
		version, dirty, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				fiberlog.Info("[Migrate] No migrations have been applied yet")
				return
			}
			fiberlog.Fatalf("[Migrate] Failed to read migration version: %v", err)
		}
		dirtyStatus := ""
		if dirty {
			dirtyStatus = " (dirty)"
		}
		fiberlog.Infof("[Migrate] Current version: %d%s", version, dirtyStatus)

	default:
		printUsage()
		os.Exit(1)
	}
}

// migrationTarget returns the golang-migrate database URL and the embedded
// migrations directory for the configured driver.
func migrationTarget(cfg database.Config) (string, string, error) {
	switch cfg.Driver {
	case database.DriverSQLite, "":
		return "sqlite3://" + cfg.Path + "?_foreign_keys=on", "sqlite", nil
	case database.DriverMySQL:
		return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name), "mysql", nil
	default:
		return "", "", fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

func describeTarget(cfg database.Config) string {
	if cfg.Driver == database.DriverMySQL {
		return fmt.Sprintf("%s@%s:%s/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
	}
	return cfg.Path
}

func printUsage() {
	fmt.Println("Usage: go run cmd/migrate/main.go [command]")
	fmt.Println("Commands:")
	fmt.Println("  up          - apply all pending migrations")
	fmt.Println("  down        - roll back the last migration")
	fmt.Println("  goto <ver>  - migrate to a specific version")
	fmt.Println("  status      - show the current migration version")
}
