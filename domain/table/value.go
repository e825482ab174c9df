package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueType defines the storage type of a single cell
type ValueType string

const (
	ValueTypeMissing   ValueType = "missing"
	ValueTypeNumeric   ValueType = "numeric"
	ValueTypeString    ValueType = "string"
	ValueTypeTimestamp ValueType = "timestamp"
)

// TimeLayout is used whenever a timestamp cell is rendered as text
const TimeLayout = "2006-01-02T15:04:05"

// Value is a typed table cell. The zero Value is missing.
type Value struct {
	Type ValueType
	Num  float64
	Str  string
	Time time.Time
}

// Missing returns a missing cell
func Missing() Value { return Value{Type: ValueTypeMissing} }

// Number returns a numeric cell. NaN is stored as missing, matching how
// aggregations skip it.
func Number(n float64) Value {
	if math.IsNaN(n) {
		return Missing()
	}
	return Value{Type: ValueTypeNumeric, Num: n}
}

// String returns a string cell; the empty string is missing
func String(s string) Value {
	if s == "" {
		return Missing()
	}
	return Value{Type: ValueTypeString, Str: s}
}

// Timestamp returns a timestamp cell
func Timestamp(t time.Time) Value { return Value{Type: ValueTypeTimestamp, Time: t} }

// IsMissing reports whether the cell holds no value
func (v Value) IsMissing() bool {
	return v.Type == "" || v.Type == ValueTypeMissing
}

// Float returns the numeric content of the cell
func (v Value) Float() (float64, bool) {
	if v.Type != ValueTypeNumeric {
		return 0, false
	}
	return v.Num, true
}

// Interface returns the cell as a plain Go value: nil, float64, string or time.Time
func (v Value) Interface() interface{} {
	switch v.Type {
	case ValueTypeNumeric:
		return v.Num
	case ValueTypeString:
		return v.Str
	case ValueTypeTimestamp:
		return v.Time
	default:
		return nil
	}
}

// Text renders the cell the way it is written back to CSV
func (v Value) Text() string {
	switch v.Type {
	case ValueTypeNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueTypeString:
		return v.Str
	case ValueTypeTimestamp:
		return v.Time.Format(TimeLayout)
	default:
		return ""
	}
}

// MarshalJSON encodes missing and non-finite numbers as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueTypeNumeric:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Num)
	case ValueTypeString:
		return json.Marshal(v.Str)
	case ValueTypeTimestamp:
		return json.Marshal(v.Time.Format(TimeLayout))
	default:
		return []byte("null"), nil
	}
}

// Equal reports whether two cells hold the same value. Numbers compare
// numerically and two missing cells are equal, as relational merges treat them.
func Equal(a, b Value) bool {
	if a.IsMissing() || b.IsMissing() {
		return a.IsMissing() && b.IsMissing()
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case ValueTypeNumeric:
		return a.Num == b.Num
	case ValueTypeTimestamp:
		return a.Time.Equal(b.Time)
	default:
		return a.Str == b.Str
	}
}

func typeRank(t ValueType) int {
	switch t {
	case ValueTypeNumeric:
		return 0
	case ValueTypeString:
		return 1
	case ValueTypeTimestamp:
		return 2
	default:
		return 3
	}
}

// Compare orders cells ascending: numbers, then strings, then timestamps,
// with missing cells last.
func Compare(a, b Value) int {
	ra, rb := typeRank(a.Type), typeRank(b.Type)
	if a.IsMissing() {
		ra = 3
	}
	if b.IsMissing() {
		rb = 3
	}
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch {
	case ra == 0:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case ra == 1:
		return strings.Compare(a.Str, b.Str)
	case ra == 2:
		return a.Time.Compare(b.Time)
	}
	return 0
}

// Key returns a string usable as a map key such that Equal values share a key
func (v Value) Key() string {
	switch v.Type {
	case ValueTypeNumeric:
		n := v.Num
		if n == 0 {
			n = 0 // fold -0
		}
		return "n:" + strconv.FormatFloat(n, 'g', -1, 64)
	case ValueTypeString:
		return "s:" + v.Str
	case ValueTypeTimestamp:
		return "t:" + v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return "m:"
	}
}
