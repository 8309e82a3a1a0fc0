// Package profile computes feature-effect profiles: individual conditional
// expectation (ICE) curves, partial dependence, accumulated local effects
// (ALE), marginal prediction/response profiles and the combined effects
// table. Every profile can be computed per level of a grouping column.
//
// All profiles share one output schema (explainer label, profile type,
// group level, curve id, x, value, count) so the external plotting
// collaborator can treat them uniformly.
package profile

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/pkg/errors"
)

// Type tags the kind of profile a row belongs to.
type Type string

const (
	TypeICE               Type = "ice"
	TypePartialDependence Type = "partial dependence"
	TypeALE               Type = "ale"
	TypePredicted         Type = "predicted"
	TypeResponse          Type = "response"
	TypeResidual          Type = "residual"
	TypeEffects           Type = "effects"
)

// Options controls profile computation.
type Options struct {
	// NMax caps the rows sampled for the sweep; <= 0 means all rows.
	NMax int
	// Seed drives the row sample.
	Seed int64
	// GridSize bounds the number of grid points or bins for continuous
	// features (default 25).
	GridSize int
	// By names a grouping column; when set, one curve per group level is
	// produced.
	By string
	// Center shifts each ICE curve so it starts at zero (c-ICE).
	Center bool
}

func (o *Options) defaults() {
	if o.GridSize <= 0 {
		o.GridSize = 25
	}
}

// Row is one point of one profile curve.
type Row struct {
	// Label identifies the explainer.
	Label string
	// Type tags the profile kind; relevant for merged results.
	Type Type
	// Group is the level of the grouping column, NaN when ungrouped.
	Group float64
	// ID is the source dataset row a curve belongs to (ICE only, else -1).
	ID int
	// X is the grid value or bin representative.
	X float64
	// Value is the profile statistic at X.
	Value float64
	// Count is the number of observations behind the point, where the
	// profile type has a meaningful per-bin count (else 0).
	Count int
}

// Result is a profile table plus its identifying metadata.
type Result struct {
	Feature string
	By      string
	Type    Type
	Rows    []Row
}

// ungrouped marks rows that carry no group level.
var ungrouped = math.NaN()

// grid returns the evaluation grid for a feature column: the sorted
// distinct values when there are at most gridSize of them, otherwise
// gridSize quantile midpoints.
func grid(values []float64, gridSize int) []float64 {
	seen := make(map[float64]bool, len(values))
	var levels []float64
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	sort.Float64s(levels)
	if len(levels) <= gridSize {
		return levels
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	edges := quantileEdges(sorted, gridSize)
	mids := make([]float64, 0, len(edges)-1)
	for i := 1; i < len(edges); i++ {
		mids = append(mids, (edges[i-1]+edges[i])/2)
	}
	return mids
}

// quantileEdges returns nBins+1 deduplicated quantile edges over sorted
// values. Heavy ties can collapse edges, yielding fewer bins.
func quantileEdges(sorted []float64, nBins int) []float64 {
	edges := make([]float64, 0, nBins+1)
	for i := 0; i <= nBins; i++ {
		q := stat.Quantile(float64(i)/float64(nBins), stat.Empirical, sorted, nil)
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

// binning assigns rows of one feature column to grid cells.
type binning struct {
	// xs is the representative x per bin: the level itself for discrete
	// features, the bin midpoint for continuous ones.
	xs []float64
	// edges is nil for discrete features.
	edges []float64
	// assign maps each row to its bin index.
	assign []int
	counts []int
}

func makeBinning(values []float64, gridSize int) binning {
	seen := make(map[float64]bool, len(values))
	var levels []float64
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	sort.Float64s(levels)

	b := binning{assign: make([]int, len(values))}
	if len(levels) <= gridSize {
		b.xs = levels
		idx := make(map[float64]int, len(levels))
		for i, v := range levels {
			idx[v] = i
		}
		b.counts = make([]int, len(levels))
		for i, v := range values {
			b.assign[i] = idx[v]
			b.counts[idx[v]]++
		}
		return b
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	b.edges = quantileEdges(sorted, gridSize)
	nBins := len(b.edges) - 1
	b.xs = make([]float64, nBins)
	for i := 0; i < nBins; i++ {
		b.xs[i] = (b.edges[i] + b.edges[i+1]) / 2
	}
	b.counts = make([]int, nBins)
	for i, v := range values {
		b.assign[i] = binIndex(b.edges, v)
		b.counts[b.assign[i]]++
	}
	return b
}

// binIndex locates v within edges, assigning edge values to the lower bin
// and clamping at the extremes.
func binIndex(edges []float64, v float64) int {
	i := sort.SearchFloat64s(edges, v)
	if i > 0 {
		i--
	}
	if i > len(edges)-2 {
		i = len(edges) - 2
	}
	return i
}

// groupLevels resolves the By column into its levels and per-level row
// subsets over the given table. An empty By yields one nil subset with a
// NaN level.
func groupLevels(data *dataset.Table, by string) ([]float64, [][]int, error) {
	if by == "" {
		rows := make([]int, data.NRows())
		for i := range rows {
			rows[i] = i
		}
		return []float64{ungrouped}, [][]int{rows}, nil
	}
	col, err := data.Column(by)
	if err != nil {
		return nil, nil, err
	}
	levels, err := data.Levels(by)
	if err != nil {
		return nil, nil, err
	}
	subsets := make([][]int, len(levels))
	idx := make(map[float64]int, len(levels))
	for i, v := range levels {
		idx[v] = i
	}
	for i, v := range col {
		g := idx[v]
		subsets[g] = append(subsets[g], i)
	}
	return levels, subsets, nil
}

func checkProfileArgs(m *flashlight.Multi, op, feature, by string) error {
	if err := m.CheckFeature(op, feature); err != nil {
		return err
	}
	if by != "" {
		if !m.Data().HasColumn(by) {
			return errors.NewSchemaMismatchError(op, by, m.Data().Columns())
		}
		if by == feature {
			return errors.NewValueError(op, "grouping column equals profiled feature")
		}
	}
	return nil
}

// subsetWeights extracts the weights for a row subset, or nil when the
// Multi is unweighted.
func subsetWeights(weights []float64, rows []int) []float64 {
	if weights == nil {
		return nil
	}
	sub := make([]float64, len(rows))
	for i, r := range rows {
		sub[i] = weights[r]
	}
	return sub
}
