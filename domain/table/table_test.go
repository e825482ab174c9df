package table

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(xs ...float64) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = Number(x)
	}
	return out
}

func strs(xs ...string) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = String(x)
	}
	return out
}

func TestNewRejectsRaggedAndDuplicateColumns(t *testing.T) {
	_, err := New(NewColumn("a", numbers(1, 2)), NewColumn("b", numbers(1)))
	assert.Error(t, err)

	_, err = New(NewColumn("a", numbers(1)), NewColumn("a", numbers(2)))
	assert.Error(t, err)
}

func TestInferKind(t *testing.T) {
	assert.Equal(t, KindNumber, InferKind([]Value{Number(1), Missing(), Number(2.5)}))
	assert.Equal(t, KindString, InferKind([]Value{Number(1), String("x")}))
	assert.Equal(t, KindEmpty, InferKind([]Value{Missing(), Missing()}))
	assert.Equal(t, KindTime, InferKind([]Value{Timestamp(time.Now())}))
}

func TestSetColumnOverwritesInPlace(t *testing.T) {
	tbl, err := New(NewColumn("a", numbers(1, 2)), NewColumn("b", strs("x", "y")))
	require.NoError(t, err)

	require.NoError(t, tbl.SetColumn("a", strs("p", "q")))
	require.NoError(t, tbl.SetColumn("c", numbers(3, 4)))

	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns())
	col, _ := tbl.Column("a")
	assert.Equal(t, KindString, col.Kind)
	assert.Error(t, tbl.SetColumn("d", numbers(1)))
}

func TestCloneIsIndependent(t *testing.T) {
	tbl, err := New(NewColumn("a", numbers(1, 2)))
	require.NoError(t, err)

	clone := tbl.Clone()
	require.NoError(t, clone.SetColumn("Revenue", numbers(5, 6)))
	clone.ColumnAt(0).Values[0] = Number(99)

	assert.False(t, tbl.Has("Revenue"))
	col, _ := tbl.Column("a")
	assert.Equal(t, 1.0, col.Values[0].Num)
}

func TestPreviewAndNumbers(t *testing.T) {
	tbl, err := New(NewColumn("id", numbers(1, 2, 3)), NewColumn("v", []Value{Number(2), Missing(), String("x")}))
	require.NoError(t, err)

	preview := tbl.Preview(2)
	require.Len(t, preview, 2)
	assert.True(t, preview[1]["v"].IsMissing())
	assert.Len(t, tbl.Preview(50), 3)

	nums, ok := tbl.Numbers("v")
	assert.True(t, ok)
	assert.Equal(t, []float64{2}, nums)

	_, ok = tbl.Numbers("nope")
	assert.False(t, ok)
}

func TestValueJSON(t *testing.T) {
	row := map[string]Value{
		"n":   Number(800),
		"s":   String("Acme"),
		"m":   Missing(),
		"inf": {Type: ValueTypeNumeric, Num: math.Inf(1)},
		"t":   Timestamp(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
	}
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":800,"s":"Acme","m":null,"inf":null,"t":"2024-01-05T00:00:00"}`, string(out))
}

func TestEqualAndCompare(t *testing.T) {
	assert.True(t, Equal(Number(1), Number(1.0)))
	assert.True(t, Equal(Missing(), Value{}))
	assert.False(t, Equal(Number(1), String("1")))
	assert.Equal(t, Number(0).Key(), Number(math.Copysign(0, -1)).Key())

	assert.Equal(t, -1, Compare(Number(2), Number(10)))
	assert.Equal(t, -1, Compare(Number(10), String("a")))
	assert.Equal(t, 1, Compare(Missing(), String("z")))
	assert.Equal(t, 0, Compare(String("b"), String("b")))
}

func TestNumberNaNIsMissing(t *testing.T) {
	assert.True(t, Number(math.NaN()).IsMissing())
	assert.True(t, String("").IsMissing())
}
