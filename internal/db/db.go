package db

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqlitePrefix = "sqlite:"

// Options tunes the connection pool and query logging.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SlowThreshold logs statements slower than this at WARN. Zero disables.
	SlowThreshold time.Duration
	// LogLevel is one of silent|error|warn|info.
	LogLevel string
	Logger   *slog.Logger
}

// DefaultOptions returns pool settings sized for a single API process.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    20,
		MaxIdleConns:    20,
		ConnMaxLifetime: 30 * time.Minute,
		SlowThreshold:   100 * time.Millisecond,
		LogLevel:        "warn",
	}
}

// Open connects to the database named by url. Postgres URLs use the pgx-backed
// postgres dialect; "sqlite:<path>" opens a local SQLite file.
// The returned handle is owned by the caller and released with Close.
func Open(url string, opts Options) (*gorm.DB, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("database url is empty")
	}

	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg = lg.With("component", "db")

	dialector, isSQLite := dialectorFor(url)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(lg, opts.SlowThreshold, opts.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if isSQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
		} {
			if err := gdb.Exec(pragma).Error; err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("execute %q: %w", pragma, err)
			}
		}
	} else {
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	lg.Info("connected to database", "dialect", gdb.Dialector.Name())
	return gdb, nil
}

// Close releases the pool behind gdb.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsPostgres reports whether gdb talks to PostgreSQL.
func IsPostgres(gdb *gorm.DB) bool {
	return gdb.Dialector.Name() == "postgres"
}

func dialectorFor(url string) (gorm.Dialector, bool) {
	if path, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		return sqlite.Open(path), true
	}
	return postgres.Open(url), false
}
