package models

import (
	"encoding/json"
	"fmt"
	"time"

	"kpijoin/domain/kpi"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// AnalysisRun is the ledger entry of one KPI analysis. Only metadata and the
// KPI values are kept; the analyzed table is never stored.
type AnalysisRun struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	SessionTag  string         `json:"session_tag" db:"session_tag"` // core.SessionID.Tag, never the raw ID
	Source      string         `json:"source" db:"source"`         // 'dataset1', 'dataset2' or 'joined'
	RowCount    int            `json:"row_count" db:"row_count"`   // rows in the analyzed table
	KPICount    int            `json:"kpi_count" db:"kpi_count"`
	TipCount    int            `json:"tip_count" db:"tip_count"`
	TrendPoints int            `json:"trend_points" db:"trend_points"`
	KPISnapshot types.JSONText `json:"kpis" db:"kpi_snapshot"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// NewAnalysisRun builds a ledger entry from an analysis result
func NewAnalysisRun(sessionTag string, result *kpi.Result) (*AnalysisRun, error) {
	if result == nil {
		return nil, fmt.Errorf("analysis result is required")
	}

	snapshot, err := json.Marshal(result.KPIs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode KPI snapshot: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	createdAt := result.AnalyzedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &AnalysisRun{
		ID:          id,
		SessionTag:  sessionTag,
		Source:      string(result.Source),
		RowCount:    result.RowCount,
		KPICount:    len(result.KPIs),
		TipCount:    len(result.Tips),
		TrendPoints: len(result.Trend),
		KPISnapshot: types.JSONText(snapshot),
		CreatedAt:   createdAt.UTC(),
	}, nil
}

// KPIs decodes the stored KPI snapshot
func (r *AnalysisRun) KPIs() ([]map[string]interface{}, error) {
	var kpis []map[string]interface{}
	if len(r.KPISnapshot) == 0 {
		return kpis, nil
	}
	if err := r.KPISnapshot.Unmarshal(&kpis); err != nil {
		return nil, fmt.Errorf("failed to decode KPI snapshot: %w", err)
	}
	return kpis, nil
}
