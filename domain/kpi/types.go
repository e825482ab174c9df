package kpi

import (
	"encoding/json"
	"math"
	"time"
)

// Source selects which workspace table an analysis runs on
type Source string

const (
	SourceDataset1 Source = "dataset1"
	SourceDataset2 Source = "dataset2"
	SourceJoined   Source = "joined"
)

// Valid reports whether s names a known table
func (s Source) Valid() bool {
	switch s {
	case SourceDataset1, SourceDataset2, SourceJoined:
		return true
	}
	return false
}

// Value is a KPI value: either a number or a string label
type Value struct {
	Num    float64
	Str    string
	IsText bool
}

// NumberValue wraps a numeric KPI value
func NumberValue(n float64) Value { return Value{Num: n} }

// TextValue wraps a label KPI value such as a brand name
func TextValue(s string) Value { return Value{Str: s, IsText: true} }

// Interface returns the value as float64 or string
func (v Value) Interface() interface{} {
	if v.IsText {
		return v.Str
	}
	return v.Num
}

// MarshalJSON writes text as a string, numbers as numbers and NaN as null
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsText {
		return json.Marshal(v.Str)
	}
	if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Num)
}

// KPI is a single named summary metric
type KPI struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// TrendPoint is one calendar month of summed units
type TrendPoint struct {
	Month string  `json:"Month"`
	Count float64 `json:"Count"`
}

// Result is the outcome of one analysis run
type Result struct {
	Source     Source       `json:"-"`
	RowCount   int          `json:"-"`
	KPIs       []KPI        `json:"kpis"`
	Trend      []TrendPoint `json:"-"`
	HasTrend   bool         `json:"-"`
	Tips       []string     `json:"tips"`
	AnalyzedAt time.Time    `json:"-"`
}

// Lookup returns the KPI with the given name
func (r *Result) Lookup(name string) (KPI, bool) {
	for _, k := range r.KPIs {
		if k.Name == name {
			return k, true
		}
	}
	return KPI{}, false
}

// Category is the chart axis label, nil when no trend was computed
func (r *Result) Category() *string {
	if !r.HasTrend {
		return nil
	}
	month := "Month"
	return &month
}

// ChartData returns the trend series, never nil
func (r *Result) ChartData() []TrendPoint {
	if r.Trend == nil {
		return []TrendPoint{}
	}
	return r.Trend
}
