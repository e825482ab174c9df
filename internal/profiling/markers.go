package profiling

import (
	"kpijoin/domain/table"
)

// ColumnProfile summarizes one column of a table
type ColumnProfile struct {
	Name            string          `json:"name"`
	Kind            table.Kind      `json:"kind"`
	Count           int             `json:"count"`
	Missing         int             `json:"missing"`
	Unique          int             `json:"unique"`
	RecommendedType table.ValueType `json:"recommended_type"`
	Summary         *SummaryStats   `json:"summary,omitempty"`
}

// SummaryStats holds the distribution of a number column's non-missing cells
type SummaryStats struct {
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Sum      float64 `json:"sum"`
	Outliers int     `json:"outliers"`
}
