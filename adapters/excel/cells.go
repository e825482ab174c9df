package excel

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type styleKind int

const (
	styleGeneral styleKind = iota
	styleDate
	styleTime
)

// builtinDateFormats are the built-in number format IDs that render a
// calendar date, builtinTimeFormats those that only render a time of day
var (
	builtinDateFormats = map[int]bool{
		14: true, 15: true, 16: true, 17: true, 22: true,
		27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
		50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
	}
	builtinTimeFormats = map[int]bool{18: true, 19: true, 20: true, 21: true, 45: true, 46: true, 47: true}
)

const (
	isoDate     = "2006-01-02"
	isoDateTime = "2006-01-02 15:04:05"
	isoTime     = "15:04:05"
)

// cellTyper resolves raw worksheet values using the cell type and number format
type cellTyper struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]styleKind
}

func newCellTyper(f *excelize.File, sheet string) *cellTyper {
	typer := &cellTyper{f: f, sheet: sheet, styles: make(map[int]styleKind)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		typer.date1904 = *props.Date1904
	}
	return typer
}

// normalize returns the text to coerce for the raw value at (col, row), both
// zero based, and whether the cell holds a calendar date
func (c *cellTyper) normalize(col, row int, raw string) (string, bool) {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raw, false
	}

	cellType, err := c.f.GetCellType(c.sheet, axis)
	if err != nil {
		return raw, false
	}
	switch cellType {
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return "TRUE", false
		}
		return "FALSE", false
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return raw, false
	case excelize.CellTypeDate:
		// ISO 8601 text stored with t="d"
		return raw, true
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, false
	}
	kind := c.styleKind(axis)
	if kind == styleGeneral {
		return raw, false
	}
	ts, err := excelize.ExcelDateToTime(serial, c.date1904)
	if err != nil {
		return raw, false
	}
	if kind == styleTime {
		return ts.Format(isoTime), false
	}
	if ts.Hour() == 0 && ts.Minute() == 0 && ts.Second() == 0 {
		return ts.Format(isoDate), true
	}
	return ts.Format(isoDateTime), true
}

func (c *cellTyper) styleKind(axis string) styleKind {
	styleID, err := c.f.GetCellStyle(c.sheet, axis)
	if err != nil || styleID == 0 {
		return styleGeneral
	}
	if kind, ok := c.styles[styleID]; ok {
		return kind
	}

	kind := styleGeneral
	if style, err := c.f.GetStyle(styleID); err == nil && style != nil {
		switch {
		case style.CustomNumFmt != nil:
			kind = classifyNumFmt(*style.CustomNumFmt)
		case builtinDateFormats[style.NumFmt]:
			kind = styleDate
		case builtinTimeFormats[style.NumFmt]:
			kind = styleTime
		}
	}
	c.styles[styleID] = kind
	return kind
}

// classifyNumFmt inspects a custom format code, ignoring quoted literals,
// escaped characters and bracketed colour or locale sections
func classifyNumFmt(code string) styleKind {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			if r == ']' {
				inBracket = false
			} else if r == 'h' || r == 's' {
				// elapsed time such as [h]:mm
				b.WriteRune(r)
			}
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		case r == ';':
			// only the positive section decides
			return kindOf(b.String())
		default:
			b.WriteRune(r)
		}
	}
	return kindOf(b.String())
}

func kindOf(section string) styleKind {
	switch {
	case strings.ContainsAny(section, "yd"):
		return styleDate
	case strings.ContainsAny(section, "hs"):
		return styleTime
	default:
		return styleGeneral
	}
}
