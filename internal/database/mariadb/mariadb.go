// Package mariadb implements the identity store and attendance ledger on MariaDB/MySQL.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db  *sql.DB
	log *logger.Logger
}

var (
	globalPool *Pool
	poolMu     sync.RWMutex
)

// normalizeDSN forces the driver options the repositories rely on.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// Rows affected must count inserted rows only, see SweepAbsent.
	cfg.ClientFoundRows = false
	return cfg.FormatDSN(), nil
}

// NewPool creates a new MariaDB connection pool.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.MariaDBDSN == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := normalizeDSN(cfg.MariaDBDSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db, log: logger.Named("mariadb")}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// Ping reports whether the database is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	return database.Unavailable("ping", p.db.PingContext(ctx))
}

// GetGlobalPool returns the pool registered by Initialize.
func GetGlobalPool() *Pool {
	poolMu.RLock()
	defer poolMu.RUnlock()
	return globalPool
}

// Initialize connects, creates the schema and registers MariaDB as the active backend.
func Initialize(cfg *config.DatabaseConfig) error {
	pool, err := NewPool(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MariaDB pool: %w", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	poolMu.Lock()
	globalPool = pool
	poolMu.Unlock()

	database.RegisterBackend(config.DriverMariaDB,
		func() database.IdentityWriter { return NewIdentityRepository(pool) },
		func() database.AttendanceStore { return NewAttendanceRepository(pool) },
		func() database.FacultyStore { return NewFacultyRepository(pool) },
	)
	return nil
}

// Shutdown closes the global pool and unregisters the backend.
func Shutdown() error {
	poolMu.Lock()
	pool := globalPool
	globalPool = nil
	poolMu.Unlock()

	database.ResetBackend()
	if pool == nil {
		return nil
	}
	return pool.Close()
}
