// Package surrogate fits a shallow, interpretable decision tree to each
// black-box model's predictions (not the true target) over the evaluation
// dataset, exposing the tree structure for rendering together with a
// fidelity score measuring how faithfully the tree mimics the model.
package surrogate

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/metrics"
	"github.com/minghao2016/flashlight/pkg/log"
)

// Option configures a surrogate fit.
type Option func(*config)

type config struct {
	maxDepth       int
	minSamplesLeaf int
	nMax           int
	seed           int64
}

// WithMaxDepth bounds the tree depth (default 4).
func WithMaxDepth(d int) Option {
	return func(c *config) { c.maxDepth = d }
}

// WithMinSamplesLeaf sets the minimum rows per leaf (default 5).
func WithMinSamplesLeaf(n int) Option {
	return func(c *config) { c.minSamplesLeaf = n }
}

// WithNMax caps the rows used for fitting; <= 0 means all rows.
func WithNMax(n int) Option {
	return func(c *config) { c.nMax = n }
}

// WithSeed sets the seed for row sampling when NMax clips the dataset.
// The tree fit itself is deterministic.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// Result holds one surrogate tree per explainer plus its fidelity: the R²
// agreement between the tree's output and the black-box predictions it was
// fit to.
type Result struct {
	Trees    map[string]*Tree
	Fidelity map[string]float64
}

// Fit trains a surrogate tree for every explainer in the Multi.
func Fit(m *flashlight.Multi, opts ...Option) (*Result, error) {
	cfg := config{maxDepth: 4, minSamplesLeaf: 5}
	for _, opt := range opts {
		opt(&cfg)
	}
	start := time.Now()

	rng := rand.New(rand.NewSource(cfg.seed))
	rows := m.SampleRows(cfg.nMax, rng)
	features, err := m.FeatureTable().Select(rows)
	if err != nil {
		return nil, err
	}

	r2 := metrics.R2()
	result := &Result{
		Trees:    make(map[string]*Tree),
		Fidelity: make(map[string]float64),
	}
	for _, e := range m.Explainers() {
		// The tree learns the model's predictions, not the target.
		pred, err := e.Predict(features)
		if err != nil {
			return nil, err
		}
		tree, err := growTree(features, pred, cfg.maxDepth, cfg.minSamplesLeaf)
		if err != nil {
			return nil, err
		}
		treePred, err := tree.Predict(features)
		if err != nil {
			return nil, err
		}
		fidelity, err := r2.Eval(treePred, pred, nil)
		if err != nil {
			return nil, err
		}
		result.Trees[e.Label()] = tree
		result.Fidelity[e.Label()] = fidelity
		slog.Debug("surrogate tree fitted",
			log.OperationKey, "surrogate",
			log.LabelKey, e.Label(),
			log.RowsKey, features.NRows(),
		)
	}

	slog.Debug("surrogate fitted",
		log.OperationKey, "surrogate",
		log.SeedKey, cfg.seed,
		log.RowsKey, features.NRows(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}
