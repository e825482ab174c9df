// Package table holds the in-memory, column-oriented dataset shared by the
// loader, the joiner and the KPI engine.
package table

import (
	"fmt"
)

// Kind is the inferred type of a whole column
type Kind string

const (
	KindNumber Kind = "number"
	KindString Kind = "string"
	KindTime   Kind = "timestamp"
	KindEmpty  Kind = "empty"
)

// Column is a named sequence of cells
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NewColumn builds a column and infers its kind from the cells it holds.
// A column mixing types is a string column.
func NewColumn(name string, values []Value) *Column {
	return &Column{Name: name, Kind: InferKind(values), Values: values}
}

// InferKind derives a column kind from its non-missing cells
func InferKind(values []Value) Kind {
	kind := KindEmpty
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		var k Kind
		switch v.Type {
		case ValueTypeNumeric:
			k = KindNumber
		case ValueTypeTimestamp:
			k = KindTime
		default:
			k = KindString
		}
		if kind == KindEmpty {
			kind = k
		} else if kind != k {
			return KindString
		}
	}
	return kind
}

// Table is an ordered set of equally long columns
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a table from columns. Names must be unique and lengths uniform.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		if i == 0 {
			t.rows = len(col.Values)
		} else if len(col.Values) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", col.Name, len(col.Values), t.rows)
		}
		t.index[col.Name] = i
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// Len returns the number of rows
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns
func (t *Table) Width() int { return len(t.columns) }

// Has reports whether a column exists
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// HasAll reports whether every named column exists
func (t *Table) HasAll(names ...string) bool {
	for _, name := range names {
		if !t.Has(name) {
			return false
		}
	}
	return true
}

// Column returns a column by name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnAt returns the i-th column
func (t *Table) ColumnAt(i int) *Column { return t.columns[i] }

// SetColumn replaces an existing column in place or appends a new one
func (t *Table) SetColumn(name string, values []Value) error {
	if len(t.columns) > 0 && len(values) != t.rows {
		return fmt.Errorf("column %q has %d rows, expected %d", name, len(values), t.rows)
	}
	col := NewColumn(name, values)
	if i, ok := t.index[name]; ok {
		t.columns[i] = col
		return nil
	}
	if len(t.columns) == 0 {
		t.rows = len(values)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// Row returns the cells of row i in column order
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, col := range t.columns {
		row[j] = col.Values[i]
	}
	return row
}

// Record returns row i keyed by column name
func (t *Table) Record(i int) map[string]Value {
	rec := make(map[string]Value, len(t.columns))
	for _, col := range t.columns {
		rec[col.Name] = col.Values[i]
	}
	return rec
}

// Preview returns the first n rows as records
func (t *Table) Preview(n int) []map[string]Value {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	out := make([]map[string]Value, n)
	for i := 0; i < n; i++ {
		out[i] = t.Record(i)
	}
	return out
}

// Clone returns a deep copy that can be mutated without touching t
func (t *Table) Clone() *Table {
	c := &Table{index: make(map[string]int, len(t.index)), rows: t.rows}
	for i, col := range t.columns {
		values := make([]Value, len(col.Values))
		copy(values, col.Values)
		c.columns = append(c.columns, &Column{Name: col.Name, Kind: col.Kind, Values: values})
		c.index[col.Name] = i
	}
	return c
}

// Numbers returns the numeric cells of a column, skipping missing and
// non-numeric ones. The second result is false when the column does not exist.
func (t *Table) Numbers(name string) ([]float64, bool) {
	col, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out, true
}
