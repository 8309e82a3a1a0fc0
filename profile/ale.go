package profile

import (
	"math/rand"
	"sort"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/pkg/errors"
)

// ALE computes accumulated local effects (Apley & Zhu): the feature range
// is cut into quantile bins, the average prediction difference between each
// bin's upper and lower edge (other features at observed values) is
// accumulated across bins, and the result is centered so its weighted mean
// is zero. Observation weights enter both the within-bin averages and the
// centering. Unlike partial dependence, only rows native to a bin are
// evaluated at its edges, which avoids extrapolating into regions a
// correlated feature never visits.
func ALE(m *flashlight.Multi, feature string, opts Options) (*Result, error) {
	opts.defaults()
	if err := checkProfileArgs(m, "profile.ALE", feature, opts.By); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rows := m.SampleRows(opts.NMax, rng)
	data, err := m.Data().Select(rows)
	if err != nil {
		return nil, err
	}

	levels, subsets, err := groupLevels(data, opts.By)
	if err != nil {
		return nil, err
	}
	features := data.Drop(m.Target(), m.WeightColumn())
	weights := subsetWeights(m.Weights(), rows)

	result := &Result{Feature: feature, By: opts.By, Type: TypeALE}
	for gi, level := range levels {
		sub := subsets[gi]
		if len(sub) == 0 {
			continue
		}
		groupTable, err := features.Select(sub)
		if err != nil {
			return nil, err
		}
		groupWeights := subsetWeights(weights, sub)
		for _, e := range m.Explainers() {
			rows, err := aleCurve(e, groupTable, feature, opts.GridSize, level, groupWeights)
			if err != nil {
				return nil, err
			}
			result.Rows = append(result.Rows, rows...)
		}
	}
	return result, nil
}

func aleCurve(e *flashlight.Explainer, features *dataset.Table, feature string, gridSize int, level float64, weights []float64) ([]Row, error) {
	col, err := features.Column(feature)
	if err != nil {
		return nil, err
	}
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)
	edges := quantileEdges(sorted, gridSize)
	nBins := len(edges) - 1
	if nBins < 1 {
		return nil, errors.NewValueError("profile.ALE", "feature is constant, no bins to accumulate")
	}

	// Per-bin membership over the group's rows.
	members := make([][]int, nBins)
	for i, v := range col {
		b := binIndex(edges, v)
		members[b] = append(members[b], i)
	}

	localEffects := make([]float64, nBins)
	binWeights := make([]float64, nBins)
	counts := make([]int, nBins)
	for b := 0; b < nBins; b++ {
		if len(members[b]) == 0 {
			continue
		}
		binTable, err := features.Select(members[b])
		if err != nil {
			return nil, err
		}
		upper, err := binTable.WithConstant(feature, edges[b+1])
		if err != nil {
			return nil, err
		}
		lower, err := binTable.WithConstant(feature, edges[b])
		if err != nil {
			return nil, err
		}
		predUpper, err := e.Predict(upper)
		if err != nil {
			return nil, err
		}
		predLower, err := e.Predict(lower)
		if err != nil {
			return nil, err
		}
		var sum, wsum float64
		for i, r := range members[b] {
			w := 1.0
			if weights != nil {
				w = weights[r]
			}
			sum += w * (predUpper[i] - predLower[i])
			wsum += w
		}
		localEffects[b] = sum / wsum
		binWeights[b] = wsum
		counts[b] = len(members[b])
	}

	// Accumulate, then center to weighted mean zero.
	accumulated := make([]float64, nBins)
	running := 0.0
	for b := 0; b < nBins; b++ {
		running += localEffects[b]
		accumulated[b] = running
	}
	var weightedSum, total float64
	for b := 0; b < nBins; b++ {
		weightedSum += accumulated[b] * binWeights[b]
		total += binWeights[b]
	}
	center := weightedSum / total

	out := make([]Row, 0, nBins)
	for b := 0; b < nBins; b++ {
		out = append(out, Row{
			Label: e.Label(),
			Type:  TypeALE,
			Group: level,
			ID:    -1,
			X:     edges[b+1],
			Value: accumulated[b] - center,
			Count: counts[b],
		})
	}
	return out, nil
}
