// Package postgres implements the identity store and attendance ledger on PostgreSQL with pgvector.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
	_ "github.com/lib/pq"
)

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db  *sql.DB
	log *logger.Logger
}

var (
	globalPool *Pool
	poolMu     sync.RWMutex
)

// NewPool opens and verifies a PostgreSQL connection pool.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db, log: logger.Named("postgres")}, nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
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

// Initialize connects, applies migrations and registers PostgreSQL as the active backend.
func Initialize(cfg *config.DatabaseConfig) error {
	if cfg == nil || cfg.URL == "" {
		return errors.New("database URL is required")
	}

	pool, err := NewPool(cfg)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		pool.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	poolMu.Lock()
	globalPool = pool
	poolMu.Unlock()

	database.RegisterBackend(config.DriverPostgres,
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
