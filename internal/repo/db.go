// Package repo implements the data persistence layer for the streak ledger,
// backed by GORM. This file contains database bootstrapping for the supported
// drivers (pure-Go SQLite, MySQL, Postgres), schema migrations, and the error
// values shared by every repository function.
//
// All repository functions are context-aware and accept a *gorm.DB handle so
// they can run inside a caller's transaction. They hold no business rules.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound so callers can use either with errors.Is.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a primary-key or unique constraint violation.
var ErrDuplicate = errors.New("duplicate")

// Supported DB_DRIVER values.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options configures Open.
type Options struct {
	Driver string // sqlite|mysql|postgres
	DSN    string // file path for sqlite, DSN otherwise
	// Tracing installs the OpenTelemetry GORM plugin.
	Tracing bool
	// LogLevel controls the GORM logger; zero means Silent.
	LogLevel logger.LogLevel
}

// Open connects to the configured database, applies driver specific tuning
// and optionally installs the tracing plugin.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	gcfg := gormConfig(opts.LogLevel)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		db, err = openSQLite(opts.DSN, gcfg)
	case DriverMySQL:
		db, err = gorm.Open(mysql.Open(opts.DSN), gcfg)
	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(opts.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("install tracing plugin: %w", err)
		}
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	return Open(Options{Driver: DriverSQLite, DSN: path})
}

func openSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")
	return db, nil
}

func gormConfig(level logger.LogLevel) *gorm.Config {
	if level == 0 {
		level = logger.Silent
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// AutoMigrate creates or updates every table used by the bot.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.StreakRecord{},
		&domain.DailyLogEntry{},
		&domain.FreezeBalance{},
		&domain.ChannelCursor{},
		&domain.GuildSettings{},
		&domain.UserSettings{},
		&domain.GuildMarker{},
		&domain.UserProfile{},
	)
}

// isDuplicate reports whether err is a unique/primary-key violation. The
// pure-Go SQLite driver reports these as plain text, so the message is
// inspected as well as gorm's translated error.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "constraint failed: primary key") ||
		strings.Contains(low, "duplicate entry") ||
		strings.Contains(low, "duplicate key value")
}
