package ports

import (
	"context"

	"kpijoin/models"
)

// RunRepository persists the analysis run ledger
type RunRepository interface {
	// Record stores one analysis run
	Record(ctx context.Context, run *models.AnalysisRun) error

	// ListRecent returns the newest runs first
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRun, error)

	// CountBySession returns how many runs the session with the given tag has recorded
	CountBySession(ctx context.Context, sessionTag string) (int, error)
}
