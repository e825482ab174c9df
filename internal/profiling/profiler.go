// Package profiling describes the columns of an uploaded table.
package profiling

import (
	"log"

	"kpijoin/adapters/datareadiness/coercer"
	"kpijoin/domain/table"
)

// DataProfiler produces per-column profiles
type DataProfiler struct {
	coercer      *coercer.TypeCoercer
	distribution *DistributionAnalyzer
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler() *DataProfiler {
	return &DataProfiler{
		coercer:      coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()),
		distribution: NewDistributionAnalyzer(),
	}
}

// ProfileColumn counts cells and, for number columns, summarizes their distribution
func (dp *DataProfiler) ProfileColumn(col *table.Column) ColumnProfile {
	analysis := dp.coercer.AnalyzeTypeDistribution(col.Values)
	profile := ColumnProfile{
		Name:            col.Name,
		Kind:            col.Kind,
		Count:           analysis.ValidCount,
		Missing:         analysis.TotalCount - analysis.ValidCount,
		RecommendedType: analysis.RecommendedType,
	}

	distinct := make(map[string]struct{}, len(col.Values))
	numbers := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		distinct[v.Key()] = struct{}{}
		if n, ok := v.Float(); ok {
			numbers = append(numbers, n)
		}
	}
	profile.Unique = len(distinct)

	if col.Kind == table.KindNumber && len(numbers) > 0 {
		summary, err := dp.distribution.Summarize(numbers)
		if err != nil {
			log.Printf("[DataProfiler] summary of %s failed: %v", col.Name, err)
		} else {
			profile.Summary = &summary
		}
	}
	return profile
}

// ProfileTable profiles every column in table order
func (dp *DataProfiler) ProfileTable(t *table.Table) []ColumnProfile {
	profiles := make([]ColumnProfile, t.Width())
	for i := 0; i < t.Width(); i++ {
		profiles[i] = dp.ProfileColumn(t.ColumnAt(i))
	}
	return profiles
}
