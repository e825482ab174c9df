package migration

import (
	"context"

	"kpijoin/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.1.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL executed by Run, in order
func (r *MigrationRunner) Statements() []string {
	return []string{createAnalysisRunsTable, createAnalysisRunsIndexes}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createAnalysisRunsTable); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create analysis_runs table"))
	}

	if _, err := db.ExecContext(ctx, createAnalysisRunsIndexes); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create indexes"))
	}

	return nil
}

const createAnalysisRunsTable = `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id UUID PRIMARY KEY,
		session_tag VARCHAR(16) NOT NULL,
		source VARCHAR(16) NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		kpi_count INTEGER NOT NULL DEFAULT 0,
		tip_count INTEGER NOT NULL DEFAULT 0,
		trend_points INTEGER NOT NULL DEFAULT 0,
		kpi_snapshot JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const createAnalysisRunsIndexes = `
	CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_analysis_runs_session_tag ON analysis_runs(session_tag);
`
