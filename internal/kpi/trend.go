package kpi

import (
	stderrors "errors"
	"fmt"
	"math"
	"sort"
	"time"

	"kpijoin/adapters/datareadiness/coercer"
	domainKPI "kpijoin/domain/kpi"
	"kpijoin/domain/table"

	"gonum.org/v1/gonum/stat"
)

// ErrUnparseableDates marks a date column holding a value that is not a date.
// The trend step is skipped when it occurs; every other error propagates.
var ErrUnparseableDates = stderrors.New("date column contains unparseable values")

const monthLayout = "2006-01"

// monthlyTrend sums units per calendar month in chronological order. Rows with
// a missing date are left out; missing units count as zero.
func monthlyTrend(dates, units *table.Column) ([]domainKPI.TrendPoint, error) {
	if len(dates.Values) != len(units.Values) {
		return nil, fmt.Errorf("date and units columns differ in length: %d vs %d", len(dates.Values), len(units.Values))
	}

	buckets := make(map[time.Time]float64)
	for i, v := range dates.Values {
		if v.IsMissing() {
			continue
		}
		ts, ok := coercer.TimestampFromValue(v)
		if !ok {
			return nil, fmt.Errorf("%w: row %d holds %q", ErrUnparseableDates, i, v.Text())
		}
		month := time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
		n, _ := units.Values[i].Float()
		buckets[month] += n
	}

	months := make([]time.Time, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	trend := make([]domainKPI.TrendPoint, len(months))
	for i, m := range months {
		trend[i] = domainKPI.TrendPoint{Month: m.Format(monthLayout), Count: buckets[m]}
	}
	return trend, nil
}

// averageChange is the mean month-over-month delta, NaN with fewer than two months
func averageChange(trend []domainKPI.TrendPoint) float64 {
	if len(trend) < 2 {
		return math.NaN()
	}
	deltas := make([]float64, len(trend)-1)
	for i := 1; i < len(trend); i++ {
		deltas[i-1] = trend[i].Count - trend[i-1].Count
	}
	return stat.Mean(deltas, nil)
}

// trendTip describes the direction of the average change, if any
func trendTip(change float64) (string, bool) {
	switch {
	case change > 0:
		return fmt.Sprintf(TipTrendUp, formatFloat(roundTo(change, 1))), true
	case change < 0:
		return fmt.Sprintf(TipTrendDown, formatFloat(math.Abs(roundTo(change, 1)))), true
	default:
		return "", false
	}
}
