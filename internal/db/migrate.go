// Package db owns the family read-model schema and the change listener that
// keeps tree sessions in step with it.
//
// Migrations live in internal/db/migrations and are embedded; goose tracks
// applied versions in goose_db_version.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/kinship/internal/db/migrations"
	"github.com/persistorai/kinship/internal/dbpool"
)

// MigrationState reports whether one schema migration has been applied.
type MigrationState struct {
	Version   int64     `json:"version"`
	File      string    `json:"file"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitzero"`
}

// withProvider opens a database/sql handle over the pool's connection string
// for the lifetime of fn. goose only speaks database/sql.
func withProvider(pool *dbpool.Pool, fsys fs.FS, fn func(*goose.Provider) error) error {
	if fsys == nil {
		fsys = migrations.FS
	}

	sqlDB, err := sql.Open("pgx", pool.ConnString())
	if err != nil {
		return fmt.Errorf("opening sql.DB for migrations: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	return fn(provider)
}

// RunMigrations applies all pending migrations from fsys, or from the
// embedded set when fsys is nil.
func RunMigrations(ctx context.Context, pool *dbpool.Pool, log *logrus.Logger, fsys fs.FS) error {
	return withProvider(pool, fsys, func(provider *goose.Provider) error {
		results, err := provider.Up(ctx)
		if err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}

		for _, r := range results {
			if r.Error != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
			}

			log.WithFields(logrus.Fields{
				"version":  r.Source.Version,
				"file":     r.Source.Path,
				"duration": r.Duration,
			}).Info("migration applied")
		}

		if len(results) == 0 {
			log.Debug("schema up to date")
		}

		return nil
	})
}

// MigrationStatus lists every known migration in version order with its
// applied state, without changing the schema.
func MigrationStatus(ctx context.Context, pool *dbpool.Pool, fsys fs.FS) ([]MigrationState, error) {
	var out []MigrationState

	err := withProvider(pool, fsys, func(provider *goose.Provider) error {
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("reading migration status: %w", err)
		}

		out = make([]MigrationState, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, MigrationState{
				Version:   st.Source.Version,
				File:      st.Source.Path,
				Applied:   st.State == goose.StateApplied,
				AppliedAt: st.AppliedAt,
			})
		}

		return nil
	})

	return out, err
}
