package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"kpijoin/domain/table"

	"github.com/araddon/dateparse"
)

// TypeCoercer turns raw cell text into typed table values
type TypeCoercer struct {
	config CoercionConfig
	na     map[string]struct{}
}

// CoercionConfig defines the coercion rules
type CoercionConfig struct {
	NAValues           []string `json:"na_values"`           // cell texts read as missing
	TrimSpace          bool     `json:"trim_space"`          // trim cells before parsing
	TimestampThreshold float64  `json:"timestamp_threshold"` // share of values that must parse as timestamps
}

// DefaultNAValues are the cell texts treated as missing, the same set
// spreadsheet tooling conventionally recognises.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NAValues:           DefaultNAValues,
		TrimSpace:          true,
		TimestampThreshold: 0.8,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	na := make(map[string]struct{}, len(config.NAValues))
	for _, v := range config.NAValues {
		na[v] = struct{}{}
	}
	return &TypeCoercer{config: config, na: na}
}

// IsMissing reports whether a raw cell is a missing-value marker
func (c *TypeCoercer) IsMissing(raw string) bool {
	_, ok := c.na[c.clean(raw)]
	return ok
}

// CoerceColumn converts one column of raw cells. The column becomes numeric
// only when every non-missing cell parses as a number; otherwise all
// non-missing cells are kept verbatim as strings.
func (c *TypeCoercer) CoerceColumn(raw []string) []table.Value {
	values := make([]table.Value, len(raw))
	numeric := true
	for i, cell := range raw {
		if c.IsMissing(cell) {
			values[i] = table.Missing()
			continue
		}
		if !numeric {
			continue
		}
		n, ok := ParseNumeric(c.clean(cell))
		if !ok {
			numeric = false
			continue
		}
		values[i] = table.Number(n)
	}

	if numeric {
		return values
	}
	for i, cell := range raw {
		if c.IsMissing(cell) {
			values[i] = table.Missing()
		} else {
			values[i] = table.String(c.clean(cell))
		}
	}
	return values
}

func (c *TypeCoercer) clean(raw string) string {
	if c.config.TrimSpace {
		return strings.TrimSpace(raw)
	}
	return raw
}

// ParseNumeric parses plain decimal or scientific notation. Hex floats,
// thousands separators and currency symbols are rejected so that identifiers
// and formatted text stay strings.
func ParseNumeric(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "0x") || strings.ContainsAny(s, "_, ") {
		return 0, false
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// timestampLayouts lists the exact formats tried before dateparse, in order of
// preference. Slashed dates are month first unless the month would be out of
// range, then day first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"1/2/06",
	"01-02-06", // excelize's rendering of the built-in short date format
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Jan 2006",
	"January 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp parses a date or datetime string. Values without a zone are
// read as UTC. Anything the fixed layouts miss is handed to dateparse, except
// bare digit runs which dateparse would take for Unix timestamps.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if isDigits(s) {
		return time.Time{}, false
	}
	return parseAny(s)
}

func parseAny(s string) (t time.Time, ok bool) {
	// dateparse panics on a few malformed inputs
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TimestampFromValue converts a typed cell to a timestamp. Numbers are read as
// nanoseconds since the Unix epoch.
func TimestampFromValue(v table.Value) (time.Time, bool) {
	switch v.Type {
	case table.ValueTypeTimestamp:
		return v.Time, true
	case table.ValueTypeString:
		return ParseTimestamp(v.Str)
	case table.ValueTypeNumeric:
		if math.IsInf(v.Num, 0) || math.Abs(v.Num) > math.MaxInt64 {
			return time.Time{}, false
		}
		return time.Unix(0, int64(v.Num)).UTC(), true
	}
	return time.Time{}, false
}

// AnalyzeTypeDistribution analyzes typed cells to describe what a column holds
func (c *TypeCoercer) AnalyzeTypeDistribution(values []table.Value) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		analysis.ValidCount++
		switch v.Type {
		case table.ValueTypeNumeric:
			analysis.NumericCount++
		case table.ValueTypeTimestamp:
			analysis.TimestampCount++
		case table.ValueTypeString:
			if _, ok := ParseTimestamp(v.Str); ok {
				analysis.TimestampCount++
			}
		}
	}

	if analysis.ValidCount > 0 {
		analysis.NumericRatio = float64(analysis.NumericCount) / float64(analysis.ValidCount)
		analysis.TimestampRatio = float64(analysis.TimestampCount) / float64(analysis.ValidCount)
	}
	analysis.RecommendedType = c.determineRecommendedType(analysis)

	return analysis
}

// determineRecommendedType chooses the best type based on analysis
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) table.ValueType {
	if analysis.ValidCount == 0 {
		return table.ValueTypeMissing
	}
	if analysis.NumericRatio == 1 {
		return table.ValueTypeNumeric
	}
	if analysis.TimestampRatio >= c.config.TimestampThreshold {
		return table.ValueTypeTimestamp
	}
	return table.ValueTypeString
}

// TypeAnalysis contains the results of type distribution analysis
type TypeAnalysis struct {
	TotalCount      int             `json:"total_count"`
	ValidCount      int             `json:"valid_count"`
	NumericCount    int             `json:"numeric_count"`
	TimestampCount  int             `json:"timestamp_count"`
	NumericRatio    float64         `json:"numeric_ratio"`
	TimestampRatio  float64         `json:"timestamp_ratio"`
	RecommendedType table.ValueType `json:"recommended_type"`
}
