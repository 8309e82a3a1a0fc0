package profile

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/minghao2016/flashlight"
)

// Effects merges the response profile, the prediction profile and partial
// dependence for one feature into a single table sharing one binning, with
// per-bin row counts attached so the plotting collaborator can weight or
// annotate points.
func Effects(m *flashlight.Multi, feature string, opts Options) (*Result, error) {
	opts.defaults()
	if err := checkProfileArgs(m, "profile.Effects", feature, opts.By); err != nil {
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
	actual, err := data.Column(m.Target())
	if err != nil {
		return nil, err
	}
	weights := subsetWeights(m.Weights(), rows)
	col, err := data.Column(feature)
	if err != nil {
		return nil, err
	}

	result := &Result{Feature: feature, By: opts.By, Type: TypeEffects}
	for _, e := range m.Explainers() {
		pred, err := e.Predict(features)
		if err != nil {
			return nil, err
		}
		for gi, level := range levels {
			sub := subsets[gi]
			if len(sub) == 0 {
				continue
			}
			groupCol := make([]float64, len(sub))
			for i, r := range sub {
				groupCol[i] = col[r]
			}
			bins := makeBinning(groupCol, opts.GridSize)

			// Marginal response and prediction averages per bin.
			for b, x := range bins.xs {
				if bins.counts[b] == 0 {
					continue
				}
				var respVals, predVals, w []float64
				for i, r := range sub {
					if bins.assign[i] != b {
						continue
					}
					respVals = append(respVals, actual[r])
					predVals = append(predVals, pred[r])
					if weights != nil {
						w = append(w, weights[r])
					}
				}
				result.Rows = append(result.Rows,
					Row{Label: e.Label(), Type: TypeResponse, Group: level, ID: -1, X: x,
						Value: stat.Mean(respVals, w), Count: bins.counts[b]},
					Row{Label: e.Label(), Type: TypePredicted, Group: level, ID: -1, X: x,
						Value: stat.Mean(predVals, w), Count: bins.counts[b]},
				)
			}

			// Partial dependence on the same grid, over the group's rows.
			groupTable, err := features.Select(sub)
			if err != nil {
				return nil, err
			}
			groupWeights := subsetWeights(weights, sub)
			for b, x := range bins.xs {
				if bins.counts[b] == 0 {
					continue
				}
				swept, err := groupTable.WithConstant(feature, x)
				if err != nil {
					return nil, err
				}
				sweptPred, err := e.Predict(swept)
				if err != nil {
					return nil, err
				}
				result.Rows = append(result.Rows, Row{
					Label: e.Label(),
					Type:  TypePartialDependence,
					Group: level,
					ID:    -1,
					X:     x,
					Value: stat.Mean(sweptPred, groupWeights),
					Count: bins.counts[b],
				})
			}
		}
	}
	return result, nil
}
