package kpi

import (
	"math"
	"strconv"
	"strings"
)

// roundTo rounds x to the given number of decimals, half-to-even on the exact
// binary value. FormatFloat rounds correctly, so the round trip through text
// gives the nearest representable result.
func roundTo(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// formatFloat renders x the way a float prints in generated tip text: the
// shortest round-tripping digits, always with a fractional part, switching to
// exponent form for very large and very small magnitudes.
func formatFloat(x float64) string {
	switch {
	case math.IsNaN(x):
		return "nan"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	abs := math.Abs(x)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(x, 'e', -1, 64)
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
