// Package breakdown decomposes a single observation's prediction into
// additive per-feature contributions against the dataset's baseline
// prediction.
//
// Features are consumed one at a time: fixing a feature to the observation's
// value in every background row shifts the mean prediction, and that shift
// is the feature's contribution. Because the steps telescope, the
// contributions sum exactly to (prediction - baseline). The visit order is
// largest-absolute-effect-first unless the caller declares an explicit
// order; either way the result is deterministic.
package breakdown

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/pkg/errors"
	"github.com/minghao2016/flashlight/pkg/log"
)

// Options controls a breakdown run.
type Options struct {
	// NMax caps the background rows the means are taken over; <= 0 means
	// all rows.
	NMax int
	// Seed drives the background row sample.
	Seed int64
	// Order declares an explicit visit order over feature names. Empty
	// selects largest-absolute-effect-first.
	Order []string
}

// Row is one feature's contribution for one explainer.
type Row struct {
	Label   string
	Feature string
	// Step is the position at which the feature was consumed, starting
	// at 0.
	Step int
	// Contribution is the shift in mean prediction caused by fixing the
	// feature to the observation's value.
	Contribution float64
	// After is the running mean prediction once the feature is fixed.
	After float64
}

// Result holds the attribution of one observation across explainers.
type Result struct {
	// RowIndex is the explained dataset row.
	RowIndex int
	// Baseline and Prediction are keyed by explainer label; for each
	// label the contributions sum to Prediction - Baseline.
	Baseline   map[string]float64
	Prediction map[string]float64
	Rows       []Row
}

// Observation attributes the prediction of dataset row rowIndex.
func Observation(m *flashlight.Multi, rowIndex int, opts Options) (*Result, error) {
	start := time.Now()
	features := m.FeatureTable()
	if rowIndex < 0 || rowIndex >= features.NRows() {
		return nil, errors.NewValueError("breakdown.Observation", "row index out of range")
	}

	names := m.Features()
	if len(opts.Order) > 0 {
		if err := validateOrder(m, opts.Order, names); err != nil {
			return nil, err
		}
		names = opts.Order
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	sampleRows := m.SampleRows(opts.NMax, rng)
	background, err := features.Select(sampleRows)
	if err != nil {
		return nil, err
	}
	observation, err := features.Row(rowIndex)
	if err != nil {
		return nil, err
	}
	obsValue := make(map[string]float64, len(names))
	for i, name := range features.Columns() {
		obsValue[name] = observation[i]
	}

	result := &Result{
		RowIndex:   rowIndex,
		Baseline:   make(map[string]float64),
		Prediction: make(map[string]float64),
	}
	for _, e := range m.Explainers() {
		rows, baseline, prediction, err := attribute(e, background, names, obsValue, len(opts.Order) > 0)
		if err != nil {
			return nil, err
		}
		result.Baseline[e.Label()] = baseline
		result.Prediction[e.Label()] = prediction
		result.Rows = append(result.Rows, rows...)
	}

	slog.Debug("breakdown computed",
		log.OperationKey, "breakdown",
		log.SeedKey, opts.Seed,
		log.RowsKey, background.NRows(),
		log.FeaturesKey, len(names),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

func validateOrder(m *flashlight.Multi, order, features []string) error {
	isFeature := make(map[string]bool, len(features))
	for _, f := range features {
		isFeature[f] = true
	}
	seen := make(map[string]bool, len(order))
	for _, f := range order {
		if !isFeature[f] {
			return errors.NewSchemaMismatchError("breakdown.Observation", f, features)
		}
		if seen[f] {
			return errors.NewValueError("breakdown.Observation", "duplicate feature in order: "+f)
		}
		seen[f] = true
	}
	if len(order) != len(features) {
		return errors.NewValueError("breakdown.Observation", "order must cover every feature")
	}
	return nil
}

func attribute(e *flashlight.Explainer, background *dataset.Table, names []string, obsValue map[string]float64, declared bool) ([]Row, float64, float64, error) {
	meanPred := func(t *dataset.Table) (float64, error) {
		pred, err := e.Predict(t)
		if err != nil {
			return 0, err
		}
		return floats.Sum(pred) / float64(len(pred)), nil
	}

	baseline, err := meanPred(background)
	if err != nil {
		return nil, 0, 0, err
	}

	working := background
	current := baseline
	remaining := append([]string(nil), names...)
	rows := make([]Row, 0, len(names))

	for step := 0; len(remaining) > 0; step++ {
		var pick int
		var pickTable *dataset.Table
		var pickMean float64

		if declared {
			pick = 0
			pickTable, err = working.WithConstant(remaining[0], obsValue[remaining[0]])
			if err != nil {
				return nil, 0, 0, err
			}
			pickMean, err = meanPred(pickTable)
			if err != nil {
				return nil, 0, 0, err
			}
		} else {
			// Largest-absolute-effect-first: probe every unvisited
			// feature and consume the one that moves the mean most.
			best := math.Inf(-1)
			for i, name := range remaining {
				candidate, err := working.WithConstant(name, obsValue[name])
				if err != nil {
					return nil, 0, 0, err
				}
				mean, err := meanPred(candidate)
				if err != nil {
					return nil, 0, 0, err
				}
				if effect := math.Abs(mean - current); effect > best {
					best = effect
					pick = i
					pickTable = candidate
					pickMean = mean
				}
			}
		}

		rows = append(rows, Row{
			Label:        e.Label(),
			Feature:      remaining[pick],
			Step:         step,
			Contribution: pickMean - current,
			After:        pickMean,
		})
		working = pickTable
		current = pickMean
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}

	// With every feature fixed the background rows all equal the
	// observation, so the final mean is the observation's prediction and
	// the contributions telescope to prediction - baseline.
	return rows, baseline, current, nil
}
