package coercer

import (
	"testing"
	"time"

	"kpijoin/domain/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceColumnNumeric(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	values := c.CoerceColumn([]string{"10", " 2.5 ", "NA", "", "1e3"})

	require.Len(t, values, 5)
	assert.Equal(t, table.Number(10), values[0])
	assert.Equal(t, table.Number(2.5), values[1])
	assert.True(t, values[2].IsMissing())
	assert.True(t, values[3].IsMissing())
	assert.Equal(t, table.Number(1000), values[4])
	assert.Equal(t, table.KindNumber, table.InferKind(values))
}

func TestCoerceColumnFallsBackToStringsWholesale(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	values := c.CoerceColumn([]string{"001", "A-7", "null", "42"})

	assert.Equal(t, table.String("001"), values[0])
	assert.Equal(t, table.String("A-7"), values[1])
	assert.True(t, values[2].IsMissing())
	assert.Equal(t, table.String("42"), values[3])
	assert.Equal(t, table.KindString, table.InferKind(values))
}

func TestParseNumericRejectsFormattedText(t *testing.T) {
	for _, s := range []string{"1,000", "0x1p4", "1_000", "$5", "12 34", "abc", ""} {
		_, ok := ParseNumeric(s)
		assert.False(t, ok, s)
	}
	n, ok := ParseNumeric("-3.25")
	assert.True(t, ok)
	assert.Equal(t, -3.25, n)
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2024-01-15":          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"2024-01-15 08:30:00": time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC),
		"01/15/2024":          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"3/7/2024":            time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		"02-Feb-2024":         time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
		"2024-03":             time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),

		"15/01/2024":                time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"05/01/2024":                time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		"2024-01-15 10:30:00+05:30": time.Date(2024, 1, 15, 5, 0, 0, 0, time.UTC),
		"Jan 2024":                  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"2024.01.15":                time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		"01/15/2024 10:30":          time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		"2024-01-15T10:30:00.123":   time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC),
		"12 Feb 2006, 19:17":        time.Date(2006, 2, 12, 19, 17, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseTimestamp(in)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), "%s: got %v", in, got)
	}

	for _, bad := range []string{"yesterday", "2024-13-45", "not a date", "", "1700000000"} {
		_, ok := ParseTimestamp(bad)
		assert.False(t, ok, bad)
	}
}

func TestTimestampFromValue(t *testing.T) {
	ts, ok := TimestampFromValue(table.String("2024-05-01"))
	assert.True(t, ok)
	assert.Equal(t, time.May, ts.Month())

	ts, ok = TimestampFromValue(table.Number(0))
	assert.True(t, ok)
	assert.Equal(t, 1970, ts.Year())

	_, ok = TimestampFromValue(table.Missing())
	assert.False(t, ok)
}

func TestAnalyzeTypeDistribution(t *testing.T) {
	c := NewTypeCoercer(DefaultCoercionConfig())

	dates := []table.Value{table.String("2024-01-01"), table.String("2024-02-01"), table.Missing()}
	analysis := c.AnalyzeTypeDistribution(dates)
	assert.Equal(t, 3, analysis.TotalCount)
	assert.Equal(t, 2, analysis.ValidCount)
	assert.Equal(t, table.ValueTypeTimestamp, analysis.RecommendedType)

	nums := []table.Value{table.Number(1), table.Number(2)}
	assert.Equal(t, table.ValueTypeNumeric, c.AnalyzeTypeDistribution(nums).RecommendedType)

	empty := []table.Value{table.Missing()}
	assert.Equal(t, table.ValueTypeMissing, c.AnalyzeTypeDistribution(empty).RecommendedType)
}
