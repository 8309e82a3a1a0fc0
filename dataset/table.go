// Package dataset provides the column-oriented evaluation table the
// interpretability analyses operate on. A Table is immutable during
// analysis; operations that need to modify a column (permutation, grid
// sweeps) work on private copies obtained via Clone or WithColumn.
package dataset

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/minghao2016/flashlight/pkg/errors"
)

// Table is a row-aligned collection of named float64 columns.
// Categorical features are represented by their encoded numeric levels.
type Table struct {
	names []string
	index map[string]int
	cols  [][]float64
	rows  int
}

// New builds a Table from column names and equally sized column slices.
// The slices are copied, so the caller may reuse its buffers.
func New(names []string, cols [][]float64) (*Table, error) {
	if len(names) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if len(names) != len(cols) {
		return nil, errors.NewDimensionError("dataset.New", len(names), len(cols), 1)
	}
	rows := len(cols[0])
	index := make(map[string]int, len(names))
	copied := make([][]float64, len(cols))
	for i, name := range names {
		if _, dup := index[name]; dup {
			return nil, errors.NewValueError("dataset.New", "duplicate column "+name)
		}
		if len(cols[i]) != rows {
			return nil, errors.NewDimensionError("dataset.New", rows, len(cols[i]), 0)
		}
		index[name] = i
		copied[i] = append([]float64(nil), cols[i]...)
	}
	return &Table{names: append([]string(nil), names...), index: index, cols: copied, rows: rows}, nil
}

// FromMatrix builds a Table from a dense matrix with one name per column.
func FromMatrix(names []string, m *mat.Dense) (*Table, error) {
	r, c := m.Dims()
	if len(names) != c {
		return nil, errors.NewDimensionError("dataset.FromMatrix", c, len(names), 1)
	}
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		col := make([]float64, r)
		mat.Col(col, j, m)
		cols[j] = col
	}
	return New(names, cols)
}

// NRows returns the number of rows.
func (t *Table) NRows() int { return t.rows }

// Columns returns the column names in their declared order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The returned slice is shared with the
// table and must not be written to; use WithColumn for modified views.
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NewSchemaMismatchError("dataset.Column", name, t.names)
	}
	return t.cols[i], nil
}

// Clone returns a deep copy whose columns may be modified freely.
func (t *Table) Clone() *Table {
	cols := make([][]float64, len(t.cols))
	for i, col := range t.cols {
		cols[i] = append([]float64(nil), col...)
	}
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &Table{names: append([]string(nil), t.names...), index: index, cols: cols, rows: t.rows}
}

// WithColumn returns a shallow copy of the table in which the named column
// is replaced by vals. All other columns stay shared with the receiver.
func (t *Table) WithColumn(name string, vals []float64) (*Table, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NewSchemaMismatchError("dataset.WithColumn", name, t.names)
	}
	if len(vals) != t.rows {
		return nil, errors.NewDimensionError("dataset.WithColumn", t.rows, len(vals), 0)
	}
	cols := append([][]float64(nil), t.cols...)
	cols[i] = append([]float64(nil), vals...)
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &Table{names: append([]string(nil), t.names...), index: index, cols: cols, rows: t.rows}, nil
}

// WithConstant returns a view of the table in which the named column is set
// to the same value in every row.
func (t *Table) WithConstant(name string, value float64) (*Table, error) {
	vals := make([]float64, t.rows)
	for i := range vals {
		vals[i] = value
	}
	return t.WithColumn(name, vals)
}

// Select returns a new table holding the given rows, in order. Row indices
// may repeat.
func (t *Table) Select(rows []int) (*Table, error) {
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, errors.NewValueError("dataset.Select", "row index out of range")
		}
	}
	cols := make([][]float64, len(t.cols))
	for i, col := range t.cols {
		sub := make([]float64, len(rows))
		for j, r := range rows {
			sub[j] = col[r]
		}
		cols[i] = sub
	}
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &Table{names: append([]string(nil), t.names...), index: index, cols: cols, rows: len(rows)}, nil
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	var keptNames []string
	var keptCols [][]float64
	for i, n := range t.names {
		if skip[n] {
			continue
		}
		keptNames = append(keptNames, n)
		keptCols = append(keptCols, t.cols[i])
	}
	index := make(map[string]int, len(keptNames))
	for i, n := range keptNames {
		index[n] = i
	}
	return &Table{names: keptNames, index: index, cols: keptCols, rows: t.rows}
}

// Row returns one row as a feature-order slice.
func (t *Table) Row(i int) ([]float64, error) {
	if i < 0 || i >= t.rows {
		return nil, errors.NewValueError("dataset.Row", "row index out of range")
	}
	row := make([]float64, len(t.cols))
	for j, col := range t.cols {
		row[j] = col[i]
	}
	return row, nil
}

// Matrix materializes the table as a dense row-major matrix in column
// declaration order.
func (t *Table) Matrix() *mat.Dense {
	m := mat.NewDense(t.rows, len(t.cols), nil)
	for j, col := range t.cols {
		for i, v := range col {
			m.Set(i, j, v)
		}
	}
	return m
}

// Levels returns the sorted distinct values of the named column.
func (t *Table) Levels(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[float64]bool, len(col))
	var levels []float64
	for _, v := range col {
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	sort.Float64s(levels)
	return levels, nil
}
