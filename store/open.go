package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config describes how to open the record store database.
type Config struct {
	// DSN is the sqlite data source name. ":memory:" opens an in-memory
	// database for tests.
	DSN string

	// WAL enables write-ahead logging. Ignored for in-memory databases.
	WAL bool

	// BusyTimeoutMs is how long a writer waits on a locked database before
	// failing. Zero leaves the driver default.
	BusyTimeoutMs int
}

// DefaultConfig returns the production defaults for a file-backed store.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:           dsn,
		WAL:           true,
		BusyTimeoutMs: 5000,
	}
}

// Open opens the sqlite database, applies pragmas, and migrates the schema.
func Open(cfg Config, log *slog.Logger) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("empty sqlite DSN")
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Sqlite allows a single writer, and every pooled connection to an
	// in-memory DSN would otherwise open its own empty database.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := applyPragmas(gdb, cfg); err != nil {
		return nil, err
	}

	if err := gdb.AutoMigrate(
		&pendingPolicyRow{},
		&decisionRow{},
		&committedPolicyRow{},
		&auditRow{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Debug("Record store opened", slog.String("dsn", dsn))

	return &Store{db: gdb, log: log}, nil
}

func applyPragmas(gdb *gorm.DB, cfg Config) error {
	if cfg.WAL && cfg.DSN != ":memory:" {
		if err := gdb.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if cfg.BusyTimeoutMs > 0 {
		if err := gdb.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeoutMs)).Error; err != nil {
			return fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}
	if err := gdb.Exec("PRAGMA foreign_keys=ON;").Error; err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}
