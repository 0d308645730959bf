package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// initBackend connects the configured database driver and registers it.
// The returned function closes the connection pool.
func initBackend(cfg *config.Config) (func(), error) {
	if !cfg.Database.Configured() {
		return nil, errors.New("DATABASE_URL (or MARIADB_DSN with DATABASE_DRIVER=mariadb) environment variable is required")
	}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if err := postgres.Initialize(&cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return func() { _ = postgres.Shutdown() }, nil
	case config.DriverMariaDB:
		if err := mariadb.Initialize(&cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return func() { _ = mariadb.Shutdown() }, nil
	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q (want %s or %s)", cfg.Database.Driver, config.DriverPostgres, config.DriverMariaDB)
	}
}

// newService wires the attendance service over the registered backend.
func newService(ctx context.Context, cfg *config.Config) (*attendance.Service, error) {
	identities, err := database.GetIdentityReader(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := database.GetAttendanceStore(ctx)
	if err != nil {
		return nil, err
	}

	g := gallery.New(identities, cfg.Embedding.Dim, logger.Named("gallery"))
	matcher := facematch.NewMatcher(facematch.NewScorer(cfg.Embedding.Dim), logger.Named("matcher"))
	return attendance.New(g, identities, ledger, matcher, logger.Named("attendance")), nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
