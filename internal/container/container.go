package container

import (
	"context"
	"fmt"
	"log"

	"kpijoin/adapters/postgres"
	"kpijoin/internal/config"
	"kpijoin/internal/dataset"
	"kpijoin/internal/kpi"
	"kpijoin/internal/migration"
	"kpijoin/internal/profiling"
	"kpijoin/internal/session"
	"kpijoin/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer); nil when no database is configured
	RunRepo ports.RunRepository

	// Workflow components
	Sessions *session.Store
	Loader   *dataset.Loader
	Engine   *kpi.Engine
	Profiler *profiling.DataProfiler

	cancelBackground context.CancelFunc
}

// New creates a new dependency injection container with the in-memory components
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:   cfg,
		Sessions: session.NewStore(cfg.Session.TTL),
		Loader:   dataset.NewLoader(),
		Engine:   kpi.NewEngine(),
		Profiler: profiling.NewDataProfiler(),
	}

	return c, nil
}

// InitWithDatabase migrates the schema and wires the run ledger
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.RunRepo = postgres.NewRunRepository(db)

	log.Printf("Container initialized with database connection (schema %s)", runner.Version())
	return nil
}

// StartBackground launches the session janitor
func (c *Container) StartBackground(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelBackground = cancel
	go c.Sessions.Run(ctx, c.Config.Session.SweepInterval)
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.cancelBackground != nil {
		c.cancelBackground()
	}

	// Close database connection
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
