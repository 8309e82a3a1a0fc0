// Package interaction estimates interaction strength via Friedman's
// H-statistic on a seeded sample of rows. The overall statistic for a
// feature compares the full prediction surface against the sum of that
// feature's partial dependence and the partial dependence of all remaining
// features; the pairwise statistic compares the two-feature partial
// dependence against the sum of the two one-feature ones. Both are exactly
// zero for an additive model and symmetric within a pair.
package interaction

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/core/parallel"
	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/pkg/log"
)

// Options controls an interaction strength run.
type Options struct {
	// NMax caps the sampled rows; the estimator's cost is quadratic in it
	// (default 50).
	NMax int
	// Seed drives the row sample.
	Seed int64
	// Pairwise additionally computes the statistic per unordered feature
	// pair.
	Pairwise bool
	// Raw skips normalization by the variance denominator. The default
	// reports sqrt(H²), the square root of the interaction share of
	// variance.
	Raw bool
}

func (o *Options) defaults() {
	if o.NMax <= 0 {
		o.NMax = 50
	}
}

// Row is one interaction statistic: overall for a single feature
// (Feature2 empty) or pairwise for an unordered pair.
type Row struct {
	Label    string
	Feature  string
	Feature2 string
	Value    float64
}

// Result holds interaction strengths for the requested features.
type Result struct {
	Pairwise bool
	Rows     []Row
}

// Strength computes the H-statistic for the given features on every
// explainer. Pass the top-ranked features from a permutation importance
// run; cost grows quadratically in NMax and, for pairwise, in the feature
// count. A constant prediction surface has no variance to decompose and
// yields NaN, reported as a value.
func Strength(m *flashlight.Multi, features []string, opts Options) (*Result, error) {
	opts.defaults()
	start := time.Now()

	for _, f := range features {
		if err := m.CheckFeature("interaction.Strength", f); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rows := m.SampleRows(opts.NMax, rng)
	sample, err := m.FeatureTable().Select(rows)
	if err != nil {
		return nil, err
	}

	result := &Result{Pairwise: opts.Pairwise}
	for _, e := range m.Explainers() {
		est, err := newEstimator(e, sample, features)
		if err != nil {
			return nil, err
		}
		if opts.Pairwise {
			rows, err := est.pairwise(opts.Raw)
			if err != nil {
				return nil, err
			}
			result.Rows = append(result.Rows, rows...)
		} else {
			rows, err := est.overall(opts.Raw)
			if err != nil {
				return nil, err
			}
			result.Rows = append(result.Rows, rows...)
		}
	}

	slog.Debug("interaction strength computed",
		log.OperationKey, "interaction",
		log.SeedKey, opts.Seed,
		log.NMaxKey, opts.NMax,
		log.RowsKey, sample.NRows(),
		log.FeaturesKey, len(features),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// estimator caches the sample predictions and one-feature partial
// dependence vectors for one explainer.
type estimator struct {
	e        *flashlight.Explainer
	sample   *dataset.Table
	features []string
	// f is the centered prediction at each sample row.
	f []float64
	// pd[j][i] is the centered one-feature partial dependence of feature
	// j evaluated at row i's feature value.
	pd map[string][]float64
	// pdComplement[j][i] is the centered partial dependence of all
	// features except j, evaluated at row i.
	pdComplement map[string][]float64
}

func newEstimator(e *flashlight.Explainer, sample *dataset.Table, features []string) (*estimator, error) {
	est := &estimator{
		e:            e,
		sample:       sample,
		features:     features,
		pd:           make(map[string][]float64, len(features)),
		pdComplement: make(map[string][]float64, len(features)),
	}
	pred, err := e.Predict(sample)
	if err != nil {
		return nil, err
	}
	est.f = center(pred)

	results := make([]pdPair, len(features))
	parallel.Parallelize(len(features), func(startIdx, endIdx int) {
		for j := startIdx; j < endIdx; j++ {
			results[j] = computePD(e, sample, features[j])
		}
	})
	for j, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		est.pd[features[j]] = r.pd
		est.pdComplement[features[j]] = r.complement
	}
	return est, nil
}

type pdPair struct {
	pd, complement []float64
	err            error
}

func computePD(e *flashlight.Explainer, sample *dataset.Table, feature string) pdPair {
	n := sample.NRows()
	col, err := sample.Column(feature)
	if err != nil {
		return pdPair{err: err}
	}
	pd := make([]float64, n)
	complement := make([]float64, n)
	for i := 0; i < n; i++ {
		// PD_j at row i: feature j fixed to row i's value, all other
		// feature vectors as observed.
		fixed, err := sample.WithConstant(feature, col[i])
		if err != nil {
			return pdPair{err: err}
		}
		predFixed, err := e.Predict(fixed)
		if err != nil {
			return pdPair{err: err}
		}
		pd[i] = floats.Sum(predFixed) / float64(n)

		// PD_{-j} at row i: row i's other features against every
		// observed value of feature j.
		varied, err := rowWithVariedFeature(sample, i, feature, col)
		if err != nil {
			return pdPair{err: err}
		}
		predVaried, err := e.Predict(varied)
		if err != nil {
			return pdPair{err: err}
		}
		complement[i] = floats.Sum(predVaried) / float64(n)
	}
	return pdPair{pd: center(pd), complement: center(complement)}
}

// rowWithVariedFeature builds a table whose rows all copy sample row i
// except for the named feature, which takes every observed value in col.
func rowWithVariedFeature(sample *dataset.Table, i int, feature string, col []float64) (*dataset.Table, error) {
	rows := make([]int, len(col))
	for k := range rows {
		rows[k] = i
	}
	repeated, err := sample.Select(rows)
	if err != nil {
		return nil, err
	}
	return repeated.WithColumn(feature, col)
}

// overall computes the one-feature H-statistic for each feature.
func (est *estimator) overall(raw bool) ([]Row, error) {
	out := make([]Row, 0, len(est.features))
	for _, feature := range est.features {
		pd := est.pd[feature]
		complement := est.pdComplement[feature]
		var num, den float64
		for i := range est.f {
			d := est.f[i] - pd[i] - complement[i]
			num += d * d
			den += est.f[i] * est.f[i]
		}
		out = append(out, Row{Label: est.e.Label(), Feature: feature, Value: hValue(num, den, raw)})
	}
	return out, nil
}

// pairwise computes the two-feature H-statistic for every unordered pair.
func (est *estimator) pairwise(raw bool) ([]Row, error) {
	var out []Row
	n := est.sample.NRows()
	for a := 0; a < len(est.features); a++ {
		for b := a + 1; b < len(est.features); b++ {
			fa, fb := est.features[a], est.features[b]
			colA, err := est.sample.Column(fa)
			if err != nil {
				return nil, err
			}
			colB, err := est.sample.Column(fb)
			if err != nil {
				return nil, err
			}
			pdJoint := make([]float64, n)
			for i := 0; i < n; i++ {
				fixed, err := est.sample.WithConstant(fa, colA[i])
				if err != nil {
					return nil, err
				}
				fixed, err = fixed.WithConstant(fb, colB[i])
				if err != nil {
					return nil, err
				}
				pred, err := est.e.Predict(fixed)
				if err != nil {
					return nil, err
				}
				pdJoint[i] = floats.Sum(pred) / float64(n)
			}
			joint := center(pdJoint)
			pdA, pdB := est.pd[fa], est.pd[fb]
			var num, den float64
			for i := 0; i < n; i++ {
				d := joint[i] - pdA[i] - pdB[i]
				num += d * d
				den += joint[i] * joint[i]
			}
			out = append(out, Row{Label: est.e.Label(), Feature: fa, Feature2: fb, Value: hValue(num, den, raw)})
		}
	}
	return out, nil
}

// hValue turns the variance decomposition into the reported statistic:
// sqrt(H²) when normalized, the raw numerator otherwise. A zero denominator
// propagates as NaN per the non-finite result convention.
func hValue(num, den float64, raw bool) float64 {
	if raw {
		return num
	}
	if den == 0 {
		return math.NaN()
	}
	h2 := num / den
	if h2 < 0 {
		h2 = 0
	}
	return math.Sqrt(h2)
}

func center(v []float64) []float64 {
	mean := stat.Mean(v, nil)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x - mean
	}
	return out
}
