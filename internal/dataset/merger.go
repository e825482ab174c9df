// Package dataset loads uploaded files and merges them relationally.
package dataset

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"kpijoin/domain/table"
	"kpijoin/internal/errors"
)

// JoinType defines the type of merge/join operation
type JoinType string

const (
	InnerJoin JoinType = "inner" // INNER JOIN - matching keys only
	LeftJoin  JoinType = "left"  // LEFT JOIN - all from left, matching from right
	RightJoin JoinType = "right" // RIGHT JOIN - all from right, matching from left
	OuterJoin JoinType = "outer" // FULL OUTER JOIN - all rows from both
)

// Suffixes for non-key columns present on both sides
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// Labels used in error messages
const (
	leftLabel  = "dataset1"
	rightLabel = "dataset2"
)

// ParseJoinType validates a join mode name
func ParseJoinType(s string) (JoinType, error) {
	switch jt := JoinType(strings.ToLower(strings.TrimSpace(s))); jt {
	case InnerJoin, LeftJoin, RightJoin, OuterJoin:
		return jt, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("Invalid join type '%s'", s))
	}
}

// rowPair references one row of each side; -1 means no row
type rowPair struct {
	left, right int
}

// Join merges a and b on the named key columns.
//
// inner and left keep a's row order, with matching rows of b in b's order;
// right keeps b's row order; outer is sorted by key. Missing keys match
// each other.
func Join(a, b *table.Table, keys []string, how JoinType) (*table.Table, error) {
	start := time.Now()

	keys = dedupe(keys)
	if err := validateJoin(a, b, keys, how); err != nil {
		return nil, err
	}

	var pairs []rowPair
	switch how {
	case InnerJoin, LeftJoin:
		index := indexRows(b, keys)
		for i := 0; i < a.Len(); i++ {
			matches := index[rowKey(a, keys, i)]
			if len(matches) == 0 {
				if how == LeftJoin {
					pairs = append(pairs, rowPair{i, -1})
				}
				continue
			}
			for _, j := range matches {
				pairs = append(pairs, rowPair{i, j})
			}
		}
	case RightJoin:
		index := indexRows(a, keys)
		for j := 0; j < b.Len(); j++ {
			matches := index[rowKey(b, keys, j)]
			if len(matches) == 0 {
				pairs = append(pairs, rowPair{-1, j})
				continue
			}
			for _, i := range matches {
				pairs = append(pairs, rowPair{i, j})
			}
		}
	case OuterJoin:
		pairs = outerPairs(a, b, keys)
	}

	joined, err := assemble(a, b, keys, pairs)
	if err != nil {
		return nil, err
	}

	log.Printf("[Merger] %s join on %v: %d x %d rows -> %d rows in %v",
		how, keys, a.Len(), b.Len(), joined.Len(), time.Since(start))
	return joined, nil
}

func validateJoin(a, b *table.Table, keys []string, how JoinType) error {
	if len(keys) == 0 {
		return errors.NoJoinKeys()
	}
	if _, err := ParseJoinType(string(how)); err != nil {
		return err
	}
	for _, key := range keys {
		colA, ok := a.Column(key)
		if !ok {
			return errors.KeyNotFound(key, leftLabel)
		}
		colB, ok := b.Column(key)
		if !ok {
			return errors.KeyNotFound(key, rightLabel)
		}
		if incompatibleKinds(colA.Kind, colB.Kind) {
			return errors.InvalidInput(fmt.Sprintf(
				"Cannot join on '%s': it holds %s values in %s and %s values in %s",
				key, colA.Kind, leftLabel, colB.Kind, rightLabel))
		}
	}
	return nil
}

// incompatibleKinds reports a number column meeting a string column. Empty
// columns join with anything.
func incompatibleKinds(x, y table.Kind) bool {
	if x == table.KindEmpty || y == table.KindEmpty || x == y {
		return false
	}
	return x == table.KindNumber || y == table.KindNumber
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func rowKey(t *table.Table, keys []string, row int) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		col, _ := t.Column(key)
		parts[i] = col.Values[row].Key()
	}
	return strings.Join(parts, "\x1f")
}

func keyTuple(t *table.Table, keys []string, row int) []table.Value {
	tuple := make([]table.Value, len(keys))
	for i, key := range keys {
		col, _ := t.Column(key)
		tuple[i] = col.Values[row]
	}
	return tuple
}

// indexRows maps each key to the rows holding it, in row order
func indexRows(t *table.Table, keys []string) map[string][]int {
	index := make(map[string][]int, t.Len())
	for i := 0; i < t.Len(); i++ {
		k := rowKey(t, keys, i)
		index[k] = append(index[k], i)
	}
	return index
}

func outerPairs(a, b *table.Table, keys []string) []rowPair {
	indexA := indexRows(a, keys)
	indexB := indexRows(b, keys)

	type group struct {
		key   string
		tuple []table.Value
	}
	var groups []group
	seen := make(map[string]bool, len(indexA)+len(indexB))
	collect := func(t *table.Table) {
		for i := 0; i < t.Len(); i++ {
			k := rowKey(t, keys, i)
			if seen[k] {
				continue
			}
			seen[k] = true
			groups = append(groups, group{key: k, tuple: keyTuple(t, keys, i)})
		}
	}
	collect(a)
	collect(b)

	sort.SliceStable(groups, func(i, j int) bool {
		return compareTuples(groups[i].tuple, groups[j].tuple) < 0
	})

	var pairs []rowPair
	for _, g := range groups {
		left, right := indexA[g.key], indexB[g.key]
		if len(left) == 0 {
			for _, j := range right {
				pairs = append(pairs, rowPair{-1, j})
			}
			continue
		}
		for _, i := range left {
			if len(right) == 0 {
				pairs = append(pairs, rowPair{i, -1})
				continue
			}
			for _, j := range right {
				pairs = append(pairs, rowPair{i, j})
			}
		}
	}
	return pairs
}

func compareTuples(x, y []table.Value) int {
	for i := range x {
		if c := table.Compare(x[i], y[i]); c != 0 {
			return c
		}
	}
	return 0
}

// assemble materializes the joined table: a's columns, then b's non-key
// columns, suffixing names both sides share.
func assemble(a, b *table.Table, keys []string, pairs []rowPair) (*table.Table, error) {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	columns := make([]*table.Column, 0, a.Width()+b.Width()-len(keys))
	for idx := 0; idx < a.Width(); idx++ {
		col := a.ColumnAt(idx)
		name := col.Name
		var fallback *table.Column
		switch {
		case isKey[name]:
			fallback, _ = b.Column(name)
		case b.Has(name):
			name += LeftSuffix
		}

		values := make([]table.Value, len(pairs))
		for r, p := range pairs {
			switch {
			case p.left >= 0:
				values[r] = col.Values[p.left]
			case fallback != nil:
				values[r] = fallback.Values[p.right]
			default:
				values[r] = table.Missing()
			}
		}
		columns = append(columns, table.NewColumn(name, values))
	}

	for idx := 0; idx < b.Width(); idx++ {
		col := b.ColumnAt(idx)
		if isKey[col.Name] {
			continue
		}
		name := col.Name
		if a.Has(name) {
			name += RightSuffix
		}

		values := make([]table.Value, len(pairs))
		for r, p := range pairs {
			if p.right >= 0 {
				values[r] = col.Values[p.right]
			} else {
				values[r] = table.Missing()
			}
		}
		columns = append(columns, table.NewColumn(name, values))
	}

	joined, err := table.New(columns...)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "Joined columns collide after suffixing"))
	}
	return joined, nil
}
