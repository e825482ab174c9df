package postgres

import (
	"context"

	"kpijoin/internal/errors"
	"kpijoin/models"
	"kpijoin/ports"

	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL analysis run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// Record inserts an analysis run
func (r *RunRepositoryImpl) Record(ctx context.Context, run *models.AnalysisRun) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO analysis_runs (
			id, session_tag, source, row_count, kpi_count,
			tip_count, trend_points, kpi_snapshot, created_at
		) VALUES (
			:id, :session_tag, :source, :row_count, :kpi_count,
			:tip_count, :trend_points, :kpi_snapshot, :created_at
		)
	`, run)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to record analysis run"))
	}
	return nil
}

// ListRecent retrieves the newest runs
func (r *RunRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []*models.AnalysisRun{}
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, session_tag, source, row_count, kpi_count,
		       tip_count, trend_points, kpi_snapshot, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to list analysis runs"))
	}
	return runs, nil
}

// CountBySession counts the runs of one session tag
func (r *RunRepositoryImpl) CountBySession(ctx context.Context, sessionTag string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM analysis_runs WHERE session_tag = $1
	`, sessionTag)
	if err != nil {
		return 0, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to count analysis runs"))
	}
	return count, nil
}
