package profile

import (
	"log/slog"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/pkg/log"
)

// ICE computes individual conditional expectation curves for one feature:
// up to NMax seeded sample rows, each swept over the feature's observed
// grid with all other features held at the row's values. One curve per
// (explainer, row).
func ICE(m *flashlight.Multi, feature string, opts Options) (*Result, error) {
	opts.defaults()
	if err := checkProfileArgs(m, "profile.ICE", feature, opts.By); err != nil {
		return nil, err
	}
	start := time.Now()

	rng := rand.New(rand.NewSource(opts.Seed))
	rows := m.SampleRows(opts.NMax, rng)

	col, err := m.Data().Column(feature)
	if err != nil {
		return nil, err
	}
	gridValues := grid(col, opts.GridSize)

	var groups []float64
	if opts.By != "" {
		byCol, err := m.Data().Column(opts.By)
		if err != nil {
			return nil, err
		}
		groups = byCol
	}

	features := m.FeatureTable()
	selected, err := features.Select(rows)
	if err != nil {
		return nil, err
	}

	result := &Result{Feature: feature, By: opts.By, Type: TypeICE}
	predictions := 0
	for _, e := range m.Explainers() {
		// curves[i][g] is row i's prediction at grid point g.
		curves := make([][]float64, len(rows))
		for i := range curves {
			curves[i] = make([]float64, len(gridValues))
		}
		for g, v := range gridValues {
			swept, err := selected.WithConstant(feature, v)
			if err != nil {
				return nil, err
			}
			pred, err := e.Predict(swept)
			if err != nil {
				return nil, err
			}
			predictions++
			for i := range rows {
				curves[i][g] = pred[i]
			}
		}
		for i, sourceRow := range rows {
			offset := 0.0
			if opts.Center {
				offset = curves[i][0]
			}
			group := ungrouped
			if groups != nil {
				group = groups[sourceRow]
			}
			for g, v := range gridValues {
				result.Rows = append(result.Rows, Row{
					Label: e.Label(),
					Type:  TypeICE,
					Group: group,
					ID:    sourceRow,
					X:     v,
					Value: curves[i][g] - offset,
				})
			}
		}
	}

	slog.Debug("ice profile computed",
		log.OperationKey, "ice",
		log.FeatureKey, feature,
		log.GroupByKey, opts.By,
		log.SeedKey, opts.Seed,
		log.NMaxKey, opts.NMax,
		log.RowsKey, len(rows),
		log.PredictionsKey, predictions,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// PartialDependence averages ICE curves across the sampled rows at each
// grid point, per explainer and, when By is set, per group level.
func PartialDependence(m *flashlight.Multi, feature string, opts Options) (*Result, error) {
	opts.defaults()
	if err := checkProfileArgs(m, "profile.PartialDependence", feature, opts.By); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rows := m.SampleRows(opts.NMax, rng)

	col, err := m.Data().Column(feature)
	if err != nil {
		return nil, err
	}
	gridValues := grid(col, opts.GridSize)

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

	result := &Result{Feature: feature, By: opts.By, Type: TypePartialDependence}
	for _, e := range m.Explainers() {
		for _, v := range gridValues {
			swept, err := features.WithConstant(feature, v)
			if err != nil {
				return nil, err
			}
			pred, err := e.Predict(swept)
			if err != nil {
				return nil, err
			}
			for gi, level := range levels {
				sub := subsets[gi]
				if len(sub) == 0 {
					continue
				}
				vals := make([]float64, len(sub))
				for i, r := range sub {
					vals[i] = pred[r]
				}
				result.Rows = append(result.Rows, Row{
					Label: e.Label(),
					Type:  TypePartialDependence,
					Group: level,
					ID:    -1,
					X:     v,
					Value: stat.Mean(vals, subsetWeights(weights, sub)),
					Count: len(sub),
				})
			}
		}
	}
	return result, nil
}
