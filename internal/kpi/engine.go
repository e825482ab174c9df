// Package kpi derives revenue, summary metrics, category leaders, a monthly
// unit trend and improvement tips from a single table.
package kpi

import (
	stderrors "errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	domainKPI "kpijoin/domain/kpi"
	"kpijoin/domain/table"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Recognised column names
const (
	ColUnitsSold = "Units_Sold"
	ColPrice     = "Price"
	ColDiscount  = "Discount"
	ColRevenue   = "Revenue"
	ColRating    = "Rating"
	ColBrand     = "Brand"
	ColRegion    = "Region"
	ColDate      = "Date"
)

// KPI names in emission order
const (
	NameTotalRevenue    = "Total Revenue (₹)"
	NameTotalUnits      = "Total Units Sold"
	NameAverageDiscount = "Average Discount (%)"
	NameAverageRating   = "Average Rating"
	NameTopBrand        = "Top Brand by Revenue"
	NameTopRegion       = "Top Region by Revenue"
)

// Tip texts. The trend tips take the rounded average change.
const (
	TipHighDiscount = "💸 High average discounts — consider optimizing pricing strategy."
	TipLowSales     = "🛒 Low total sales — increase marketing in underperforming regions."
	TipLowRating    = "⭐ Customer satisfaction below target — improve service quality."
	TipTrendUp      = "📈 Sales trend increasing by %s units/month — maintain stock levels."
	TipTrendDown    = "📉 Sales trend decreasing by %s units/month — investigate causes."
)

// Thresholds configures when tips fire
type Thresholds struct {
	HighDiscount float64 // mean discount above this
	LowUnits     float64 // total units below this
	LowRating    float64 // mean rating below this
}

// DefaultThresholds returns the standard tip thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighDiscount: 10,
		LowUnits:     200,
		LowRating:    4.3,
	}
}

// Engine computes analysis results
type Engine struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewEngine creates an engine with the default thresholds
func NewEngine() *Engine {
	return NewEngineWithThresholds(DefaultThresholds())
}

// NewEngineWithThresholds creates an engine with custom tip thresholds
func NewEngineWithThresholds(th Thresholds) *Engine {
	return &Engine{thresholds: th, now: time.Now}
}

// Analyze runs the full pipeline on a copy of t; t itself is never modified.
func (e *Engine) Analyze(t *table.Table) (*domainKPI.Result, error) {
	start := time.Now()
	work := t.Clone()

	result := &domainKPI.Result{
		RowCount:   work.Len(),
		KPIs:       []domainKPI.KPI{},
		Tips:       []string{},
		AnalyzedAt: e.now(),
	}

	if work.HasAll(ColUnitsSold, ColPrice, ColDiscount) {
		if err := deriveRevenue(work); err != nil {
			return nil, fmt.Errorf("failed to derive revenue: %w", err)
		}
	}

	if work.Has(ColRevenue) {
		result.KPIs = summaryKPIs(work)
	}

	result.Tips = append(result.Tips, e.thresholdTips(work)...)

	if work.HasAll(ColDate, ColUnitsSold) {
		dates, _ := work.Column(ColDate)
		units, _ := work.Column(ColUnitsSold)
		trend, err := monthlyTrend(dates, units)
		switch {
		case stderrors.Is(err, ErrUnparseableDates):
			log.Printf("[KPIEngine] trend skipped: %v", err)
		case err != nil:
			return nil, fmt.Errorf("failed to compute trend: %w", err)
		default:
			result.Trend = trend
			result.HasTrend = true
			if tip, ok := trendTip(averageChange(trend)); ok {
				result.Tips = append(result.Tips, tip)
			}
		}
	}

	log.Printf("[KPIEngine] analyzed %d rows in %v: %d KPIs, %d tips, %d trend points",
		result.RowCount, time.Since(start), len(result.KPIs), len(result.Tips), len(result.Trend))
	return result, nil
}

// deriveRevenue sets Revenue = Units_Sold * Price * (1 - Discount/100) row by
// row. A row missing any operand gets a missing revenue.
func deriveRevenue(t *table.Table) error {
	units, _ := t.Column(ColUnitsSold)
	price, _ := t.Column(ColPrice)
	discount, _ := t.Column(ColDiscount)

	revenue := make([]table.Value, t.Len())
	for i := range revenue {
		u, okU := units.Values[i].Float()
		p, okP := price.Values[i].Float()
		d, okD := discount.Values[i].Float()
		if !okU || !okP || !okD {
			revenue[i] = table.Missing()
			continue
		}
		revenue[i] = table.Number(u * p * (1 - d/100))
	}
	return t.SetColumn(ColRevenue, revenue)
}

func summaryKPIs(t *table.Table) []domainKPI.KPI {
	revenue, _ := t.Numbers(ColRevenue)

	totalUnits := 0.0
	if units, ok := t.Numbers(ColUnitsSold); ok {
		totalUnits = math.Trunc(floats.Sum(units))
	}
	avgDiscount := 0.0
	if discount, ok := t.Numbers(ColDiscount); ok {
		avgDiscount = mean(discount)
	}

	kpis := []domainKPI.KPI{
		{Name: NameTotalRevenue, Value: domainKPI.NumberValue(roundTo(floats.Sum(revenue), 2))},
		{Name: NameTotalUnits, Value: domainKPI.NumberValue(totalUnits)},
		{Name: NameAverageDiscount, Value: domainKPI.NumberValue(roundTo(avgDiscount, 2))},
	}

	// zero and undefined averages are reported as unavailable
	if rating, ok := t.Numbers(ColRating); ok {
		if avg := mean(rating); avg != 0 && !math.IsNaN(avg) {
			kpis = append(kpis, domainKPI.KPI{Name: NameAverageRating, Value: domainKPI.NumberValue(roundTo(avg, 2))})
		}
	}

	for _, group := range []struct{ column, name string }{
		{ColBrand, NameTopBrand},
		{ColRegion, NameTopRegion},
	} {
		if leader, ok := topGroup(t, group.column); ok {
			kpis = append(kpis, domainKPI.KPI{Name: group.name, Value: leader})
		}
	}
	return kpis
}

func (e *Engine) thresholdTips(t *table.Table) []string {
	var tips []string
	if discount, ok := t.Numbers(ColDiscount); ok && mean(discount) > e.thresholds.HighDiscount {
		tips = append(tips, TipHighDiscount)
	}
	if units, ok := t.Numbers(ColUnitsSold); ok && floats.Sum(units) < e.thresholds.LowUnits {
		tips = append(tips, TipLowSales)
	}
	if rating, ok := t.Numbers(ColRating); ok && mean(rating) < e.thresholds.LowRating {
		tips = append(tips, TipLowRating)
	}
	return tips
}

// topGroup sums revenue per distinct value of column and returns the value
// with the largest sum. Groups are visited in ascending key order and the
// first maximum wins. Rows with a missing key are ignored.
func topGroup(t *table.Table, column string) (domainKPI.Value, bool) {
	keys, ok := t.Column(column)
	if !ok {
		return domainKPI.Value{}, false
	}
	revenue, _ := t.Column(ColRevenue)

	sums := make(map[string]float64)
	representative := make(map[string]table.Value)
	for i, k := range keys.Values {
		if k.IsMissing() {
			continue
		}
		id := k.Key()
		if _, seen := representative[id]; !seen {
			representative[id] = k
		}
		if r, ok := revenue.Values[i].Float(); ok {
			sums[id] += r
		}
	}
	if len(representative) == 0 {
		return domainKPI.Value{}, false
	}

	groups := make([]table.Value, 0, len(representative))
	for _, v := range representative {
		groups = append(groups, v)
	}
	sort.Slice(groups, func(i, j int) bool { return table.Compare(groups[i], groups[j]) < 0 })

	totals := make([]float64, len(groups))
	for i, g := range groups {
		totals[i] = sums[g.Key()]
	}
	leader := groups[floats.MaxIdx(totals)]

	if n, ok := leader.Float(); ok {
		return domainKPI.NumberValue(n), true
	}
	return domainKPI.TextValue(leader.Text()), true
}

// mean of the non-missing values, NaN when there are none
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}
