// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

/*
Package store is the pipeline's persistence layer: campaign-media discovery
records, their enrichment/vetting/match lifecycle, and the row-level locks
that let the scheduler's concurrent workers claim batches of work without
colliding.

Two pgx pools back every operation:
  - Foreground: short statement timeouts, used by the HTTP API for
    request-path reads and writes.
  - Background: longer statement timeouts, used by the scheduler-driven
    batch workers (discovery, enrichment, vetting, match creation) and by
    the lock-cleanup sweeps, which must not be starved by the foreground
    pool's tighter limits.

Work acquisition (AcquireVettingBatch, AcquireAIDescriptionBatch) uses a
`SELECT ... FOR UPDATE SKIP LOCKED` CTE feeding an `UPDATE ... RETURNING`,
so N concurrent workers can each claim a disjoint batch in one round trip
with no explicit advisory locking.
*/
package store

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patrhick1/pgl-pipeline/internal/config"
	"github.com/patrhick1/pgl-pipeline/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the two connection pools and exposes the pipeline's
// persistence operations.
type Store struct {
	Foreground *pgxpool.Pool
	Background *pgxpool.Pool
}

// Open connects both pools and validates them with a ping. It does not run
// migrations; call Migrate explicitly from main() so the operator controls
// when schema changes apply.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	fg, err := pgxpool.New(ctx, cfg.ForegroundDSN)
	if err != nil {
		return nil, fmt.Errorf("store: open foreground pool: %w", err)
	}
	if err := fg.Ping(ctx); err != nil {
		fg.Close()
		return nil, fmt.Errorf("store: ping foreground pool: %w", err)
	}

	bgConfig, err := pgxpool.ParseConfig(cfg.BackgroundDSN)
	if err != nil {
		fg.Close()
		return nil, fmt.Errorf("store: parse background dsn: %w", err)
	}
	if cfg.BackgroundStatementTimeout > 0 {
		timeout := cfg.BackgroundStatementTimeout
		bgConfig.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%dms", timeout.Milliseconds())
	}
	bg, err := pgxpool.NewWithConfig(ctx, bgConfig)
	if err != nil {
		fg.Close()
		return nil, fmt.Errorf("store: open background pool: %w", err)
	}
	if err := bg.Ping(ctx); err != nil {
		fg.Close()
		bg.Close()
		return nil, fmt.Errorf("store: ping background pool: %w", err)
	}

	return &Store{Foreground: fg, Background: bg}, nil
}

// Close releases both pools.
func (s *Store) Close() {
	s.Foreground.Close()
	s.Background.Close()
}

// Ping verifies the foreground pool can reach Postgres, for the API's
// readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.Foreground.Ping(ctx)
}

// Migrate applies any pending embedded schema migrations against the
// foreground DSN.
func (s *Store) Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: load migration source: %w", err)
	}
	// golang-migrate's pgx/v5 database driver registers itself under the
	// "pgx5" URL scheme, not "postgres"/"postgresql".
	migrateDSN := "pgx5://" + strings.TrimPrefix(strings.TrimPrefix(dsn, "postgres://"), "postgresql://")
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateDSN)
	if err != nil {
		return fmt.Errorf("store: build migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: apply migrations: %w", err)
	}
	logging.Info().Msg("schema migrations applied")
	return nil
}

// lockID builds the PROCESSING:<STAGE>:<nonce>:<timestamp> sentinel stored
// in a stage's lock column while a batch is claimed by a worker.
func lockID(stage string) string {
	return fmt.Sprintf("PROCESSING:%s:%s:%s", stage, randomHex8(), time.Now().UTC().Format(time.RFC3339Nano))
}
