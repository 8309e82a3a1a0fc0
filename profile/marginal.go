package profile

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/minghao2016/flashlight"
)

// Predicted computes the M-plot style prediction profile: the average model
// prediction grouped by feature value or bin, without holding the other
// features fixed. It reflects marginal association, not a causal sweep.
func Predicted(m *flashlight.Multi, feature string, opts Options) (*Result, error) {
	return marginal(m, feature, opts, TypePredicted)
}

// Response computes the average observed target per feature value or bin.
func Response(m *flashlight.Multi, feature string, opts Options) (*Result, error) {
	return marginal(m, feature, opts, TypeResponse)
}

// Residual computes the average (observed - predicted) per feature value or
// bin, a marginal view of where each model is biased.
func Residual(m *flashlight.Multi, feature string, opts Options) (*Result, error) {
	return marginal(m, feature, opts, TypeResidual)
}

func marginal(m *flashlight.Multi, feature string, opts Options, profileType Type) (*Result, error) {
	opts.defaults()
	op := "profile." + string(profileType)
	if err := checkProfileArgs(m, op, feature, opts.By); err != nil {
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

	result := &Result{Feature: feature, By: opts.By, Type: profileType}
	for _, e := range m.Explainers() {
		var pred []float64
		if profileType != TypeResponse {
			pred, err = e.Predict(features)
			if err != nil {
				return nil, err
			}
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

			for b, x := range bins.xs {
				if bins.counts[b] == 0 {
					continue
				}
				var vals, w []float64
				for i, r := range sub {
					if bins.assign[i] != b {
						continue
					}
					switch profileType {
					case TypePredicted:
						vals = append(vals, pred[r])
					case TypeResponse:
						vals = append(vals, actual[r])
					case TypeResidual:
						vals = append(vals, actual[r]-pred[r])
					}
					if weights != nil {
						w = append(w, weights[r])
					}
				}
				result.Rows = append(result.Rows, Row{
					Label: e.Label(),
					Type:  profileType,
					Group: level,
					ID:    -1,
					X:     x,
					Value: stat.Mean(vals, w),
					Count: bins.counts[b],
				})
			}
		}
	}
	return result, nil
}
