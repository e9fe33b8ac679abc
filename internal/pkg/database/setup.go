package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AccessPass/app/models"
	"github.com/ManuelReschke/AccessPass/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var DB *gorm.DB

// Config selects the store backend. SQLite keeps everything in one file next
// to the binary; MySQL is used when a database server is available.
type Config struct {
	Driver   string
	Path     string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// ConfigFromEnv reads DB_* settings.
func ConfigFromEnv() Config {
	return Config{
		Driver:   strings.ToLower(strings.TrimSpace(env.GetEnv("DB_DRIVER", DriverSQLite))),
		Path:     env.GetEnv("DB_PATH", "payments.db"),
		User:     env.GetEnv("DB_USER", ""),
		Password: env.GetEnv("DB_PASSWORD", ""),
		Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
		Port:     env.GetEnv("DB_PORT", "3306"),
		Name:     env.GetEnv("DB_NAME", ""),
	}
}

// SetupDatabase connects using the environment, ensures the schema and
// stores the handle in DB. It panics when the store stays unreachable,
// since no request can be served without it.
func SetupDatabase() {
	db, err := Connect(ConfigFromEnv())
	if err != nil {
		panic(err)
	}
	if err := EnsureSchema(db); err != nil {
		panic(err)
	}
	DB = db
}

// GetDB returns the handle created by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// Connect opens the configured store, retrying while a database server is
// still starting up.
func Connect(cfg Config) (*gorm.DB, error) {
	if cfg.Driver != DriverSQLite && cfg.Driver != DriverMySQL && cfg.Driver != "" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < maxRetries; i++ {
		db, err = open(cfg)
		if err == nil {
			return db, nil
		}
		if cfg.Driver != DriverMySQL {
			// a local file either opens or it doesn't
			break
		}

		fiberlog.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			fiberlog.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}
	return nil, err
}

// OpenSQLite opens a SQLite file store. Used by Connect and by tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	// foreign keys are off by default in SQLite; busy_timeout makes writers
	// queue instead of failing with SQLITE_BUSY
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func open(cfg Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return OpenSQLite(cfg.Path)
	case DriverMySQL:
		// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)
		return gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{TranslateError: true})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// EnsureSchema creates the payments and accesses tables if needed. Safe to
// run on every start.
func EnsureSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Payment{}, &models.AccessGrant{}); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping checks that the store answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
