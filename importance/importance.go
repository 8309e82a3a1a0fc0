// Package importance computes model performance tables and permutation
// feature importance across the explainers of a flashlight.Multi.
//
// Permutation importance follows Breiman/Fisher: a feature's column is
// shuffled a fixed number of times, the configured metric is recomputed on
// each shuffle, and the importance is the mean performance degradation
// relative to the unshuffled baseline. Permutations depend only on the seed,
// the feature and the repetition, never on the explainer, so models are
// compared on identical shuffles.
package importance

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/core/parallel"
	"github.com/minghao2016/flashlight/pkg/log"
)

// PerformanceRow is one (explainer, metric) cell of a performance table.
type PerformanceRow struct {
	Label  string
	Metric string
	Value  float64
}

// PerformanceResult is the stable table the plotting collaborator consumes.
type PerformanceResult struct {
	Rows []PerformanceRow
}

// Performance evaluates every configured metric on every explainer's
// predictions over the shared dataset. Predictions are passed to the
// metrics untransformed.
func Performance(m *flashlight.Multi) (*PerformanceResult, error) {
	features := m.FeatureTable()
	actual := m.Actuals()
	weights := m.Weights()

	result := &PerformanceResult{}
	for _, e := range m.Explainers() {
		pred, err := e.Predict(features)
		if err != nil {
			return nil, err
		}
		for _, name := range m.MetricNames() {
			metric, err := m.Metric(name)
			if err != nil {
				return nil, err
			}
			value, err := metric.Eval(pred, actual, weights)
			if err != nil {
				return nil, err
			}
			result.Rows = append(result.Rows, PerformanceRow{Label: e.Label(), Metric: name, Value: value})
		}
	}
	return result, nil
}

// Options controls a permutation importance run.
type Options struct {
	// Metric names the metric to degrade; empty selects the Multi's first.
	Metric string
	// Repetitions is the number of shuffles per feature (default 4).
	Repetitions int
	// Seed drives row sampling and the permutations.
	Seed int64
	// NMax caps the rows used for evaluation; <= 0 means all rows.
	NMax int
	// Features restricts the analysis; empty means all model inputs.
	Features []string
}

func (o *Options) defaults() {
	if o.Repetitions <= 0 {
		o.Repetitions = 4
	}
}

// Row is one (explainer, feature) importance value: the mean metric
// degradation over the repetitions. Higher means more important under
// either metric orientation.
type Row struct {
	Label   string
	Feature string
	Value   float64
}

// Result holds permutation importances plus the per-explainer baseline
// metric values the degradations refer to.
type Result struct {
	Metric      string
	Repetitions int
	Baseline    map[string]float64
	Rows        []Row
}

// Permutation computes seeded permutation importance for every explainer
// and feature. Features the model ignores internally degrade nothing and
// come out near zero; they are not an error.
func Permutation(m *flashlight.Multi, opts Options) (*Result, error) {
	opts.defaults()
	start := time.Now()

	metric := m.FirstMetric()
	if opts.Metric != "" {
		var err error
		metric, err = m.Metric(opts.Metric)
		if err != nil {
			return nil, err
		}
	}
	features := opts.Features
	if len(features) == 0 {
		features = m.Features()
	}
	for _, f := range features {
		if err := m.CheckFeature("importance.Permutation", f); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rows := m.SampleRows(opts.NMax, rng)
	data, err := m.Data().Select(rows)
	if err != nil {
		return nil, err
	}
	multiOpts := []flashlight.MultiOption{flashlight.WithMetrics(metric)}
	if m.WeightColumn() != "" {
		multiOpts = append(multiOpts, flashlight.WithWeightColumn(m.WeightColumn()))
	}
	sub, err := flashlight.NewMulti(data, m.Target(), m.Explainers(), multiOpts...)
	if err != nil {
		return nil, err
	}

	featTable := sub.FeatureTable()
	actual := sub.Actuals()
	weights := sub.Weights()

	explainers := sub.Explainers()
	baseline := make(map[string]float64, len(explainers))
	for _, e := range explainers {
		pred, err := e.Predict(featTable)
		if err != nil {
			return nil, err
		}
		baseline[e.Label()], err = metric.Eval(pred, actual, weights)
		if err != nil {
			return nil, err
		}
	}

	type cell struct {
		label, feature string
		value          float64
		err            error
	}
	// One slot per feature; workers never share a slot.
	cells := make([][]cell, len(features))

	parallel.ParallelizeSeeded(len(features), opts.Seed, func(fi int, frng *rand.Rand) {
		feature := features[fi]
		sums := make(map[string]float64, len(explainers))
		var failure error

		col, err := featTable.Column(feature)
		if err != nil {
			failure = err
		}
		for rep := 0; rep < opts.Repetitions && failure == nil; rep++ {
			shuffled := make([]float64, len(col))
			for i, j := range frng.Perm(len(col)) {
				shuffled[i] = col[j]
			}
			permuted, err := featTable.WithColumn(feature, shuffled)
			if err != nil {
				failure = err
				break
			}
			// Same permuted table for every explainer keeps the
			// cross-model comparison fair.
			for _, e := range explainers {
				pred, err := e.Predict(permuted)
				if err != nil {
					failure = err
					break
				}
				value, err := metric.Eval(pred, actual, weights)
				if err != nil {
					failure = err
					break
				}
				degradation := value - baseline[e.Label()]
				if metric.Greater {
					degradation = -degradation
				}
				sums[e.Label()] += degradation
			}
		}

		out := make([]cell, 0, len(explainers))
		if failure != nil {
			out = append(out, cell{err: failure})
		} else {
			for _, e := range explainers {
				out = append(out, cell{
					label:   e.Label(),
					feature: feature,
					value:   sums[e.Label()] / float64(opts.Repetitions),
				})
			}
		}
		cells[fi] = out
	})

	result := &Result{Metric: metric.Name, Repetitions: opts.Repetitions, Baseline: baseline}
	for _, featureCells := range cells {
		for _, c := range featureCells {
			if c.err != nil {
				return nil, c.err
			}
			result.Rows = append(result.Rows, Row{Label: c.label, Feature: c.feature, Value: c.value})
		}
	}

	slog.Debug("permutation importance computed",
		log.OperationKey, "permutation_importance",
		log.MetricKey, metric.Name,
		log.SeedKey, opts.Seed,
		log.RepetitionsKey, opts.Repetitions,
		log.RowsKey, data.NRows(),
		log.FeaturesKey, len(features),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}
