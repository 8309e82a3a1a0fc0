package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/minghao2016/flashlight/pkg/errors"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := New(
		[]string{"a", "b", "y"},
		[][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	)
	require.NoError(t, err)
	return table
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	_, err = New([]string{"a", "a"}, [][]float64{{1}, {2}})
	assert.Error(t, err, "duplicate column names must be rejected")

	_, err = New([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr), "ragged columns must yield DimensionError")
}

func TestColumnMissing(t *testing.T) {
	table := newTestTable(t)
	_, err := table.Column("nope")
	var schemaErr *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestCloneIsIndependent(t *testing.T) {
	table := newTestTable(t)
	clone := table.Clone()
	col, err := clone.Column("a")
	require.NoError(t, err)
	col[0] = 99

	orig, err := table.Column("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, orig[0], "mutating a clone must not affect the original")
}

func TestWithColumnSharesOthers(t *testing.T) {
	table := newTestTable(t)
	replaced, err := table.WithColumn("a", []float64{9, 9, 9})
	require.NoError(t, err)

	a, _ := replaced.Column("a")
	assert.Equal(t, []float64{9, 9, 9}, a)

	origA, _ := table.Column("a")
	assert.Equal(t, []float64{1, 2, 3}, origA, "original column must stay intact")

	_, err = table.WithColumn("a", []float64{1})
	assert.Error(t, err)
}

func TestWithConstant(t *testing.T) {
	table := newTestTable(t)
	constant, err := table.WithConstant("b", 7)
	require.NoError(t, err)
	b, _ := constant.Column("b")
	assert.Equal(t, []float64{7, 7, 7}, b)
}

func TestSelect(t *testing.T) {
	table := newTestTable(t)
	sub, err := table.Select([]int{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, sub.NRows())
	a, _ := sub.Column("a")
	assert.Equal(t, []float64{3, 1, 3}, a)

	_, err = table.Select([]int{5})
	assert.Error(t, err)
}

func TestDrop(t *testing.T) {
	table := newTestTable(t)
	features := table.Drop("y", "unknown")
	assert.Equal(t, []string{"a", "b"}, features.Columns())
	assert.Equal(t, 3, features.NRows())
}

func TestRowAndMatrix(t *testing.T) {
	table := newTestTable(t)
	row, err := table.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5, 8}, row)

	m := table.Matrix()
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 6.0, m.At(2, 1))
}

func TestFromMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	table, err := FromMatrix([]string{"a", "b"}, m)
	require.NoError(t, err)
	b, _ := table.Column("b")
	assert.Equal(t, []float64{2, 4}, b)

	_, err = FromMatrix([]string{"a"}, m)
	assert.Error(t, err)
}

func TestLevels(t *testing.T) {
	table, err := New([]string{"f"}, [][]float64{{3, 1, 3, 2, 1}})
	require.NoError(t, err)
	levels, err := table.Levels("f")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, levels)
}
