package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/satheeshds/garage/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func newProvider(s *Store) (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	dialect := database.DialectSQLite3
	if s.driver == config.DriverPostgres {
		dialect = database.DialectPostgres
	}

	p, err := goose.NewProvider(dialect, s.db, fsys)
	if err != nil {
		return nil, fmt.Errorf("creating migration provider: %w", err)
	}
	return p, nil
}

// Migrate applies every pending migration. Safe to call on every start.
func Migrate(ctx context.Context, s *Store) error {
	slog.Info("running database migrations")

	p, err := newProvider(s)
	if err != nil {
		return err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "file", r.Source.Path, "duration", r.Duration)
	}

	slog.Info("database migrations complete", "applied", len(results))
	return nil
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, s *Store) error {
	p, err := newProvider(s)
	if err != nil {
		return err
	}
	r, err := p.Down(ctx)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	if r != nil && r.Source != nil {
		slog.Info("migration rolled back", "version", r.Source.Version, "file", r.Source.Path)
	}
	return nil
}

// MigrationState is one row of the migrate status report.
type MigrationState struct {
	Version int64
	File    string
	Applied bool
}

func MigrationStatus(ctx context.Context, s *Store) ([]MigrationState, error) {
	p, err := newProvider(s)
	if err != nil {
		return nil, err
	}
	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationState{
			Version: st.Source.Version,
			File:    st.Source.Path,
			Applied: st.State == goose.StateApplied,
		})
	}
	return out, nil
}
