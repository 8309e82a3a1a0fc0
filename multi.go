package flashlight

import (
	"math"
	"math/rand"
	"sort"

	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/metrics"
	"github.com/minghao2016/flashlight/pkg/errors"
)

// Multi groups explainers over one shared evaluation dataset and metric set
// for side-by-side comparison. All explainers must accept the dataset's
// feature schema. Like Explainer, it is immutable after construction.
type Multi struct {
	explainers  []*Explainer
	data        *dataset.Table
	target      string
	weight      string
	metricOrder []string
	metricSet   map[string]metrics.Metric
}

// MultiOption configures a Multi at construction time.
type MultiOption func(*Multi)

// WithMetrics replaces the default metric set. Order is preserved in result
// tables.
func WithMetrics(ms ...metrics.Metric) MultiOption {
	return func(m *Multi) {
		m.metricOrder = m.metricOrder[:0]
		m.metricSet = make(map[string]metrics.Metric, len(ms))
		for _, metric := range ms {
			m.metricOrder = append(m.metricOrder, metric.Name)
			m.metricSet[metric.Name] = metric
		}
	}
}

// WithWeightColumn declares an observation-weight column in the dataset.
func WithWeightColumn(name string) MultiOption {
	return func(m *Multi) { m.weight = name }
}

// NewMulti binds explainers to a shared evaluation dataset and target
// column. Labels must be unique and the target (and weight column, if
// declared) must exist; otherwise construction fails immediately.
// The default metric set is RMSE for regression and log loss when any
// explainer is a classifier.
func NewMulti(data *dataset.Table, target string, explainers []*Explainer, opts ...MultiOption) (*Multi, error) {
	if len(explainers) == 0 {
		return nil, errors.WithStack(errors.ErrNoExplainers)
	}
	if data == nil || data.NRows() == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	m := &Multi{explainers: explainers, data: data, target: target}
	for _, opt := range opts {
		opt(m)
	}
	if m.metricSet != nil && len(m.metricOrder) == 0 {
		return nil, errors.NewValueError("flashlight.NewMulti", "empty metric set")
	}
	if !data.HasColumn(target) {
		return nil, errors.NewSchemaMismatchError("flashlight.NewMulti", target, data.Columns())
	}
	if m.weight != "" && !data.HasColumn(m.weight) {
		return nil, errors.NewSchemaMismatchError("flashlight.NewMulti", m.weight, data.Columns())
	}
	seen := make(map[string]bool, len(explainers))
	classification := false
	for _, e := range explainers {
		if seen[e.Label()] {
			return nil, errors.NewValueError("flashlight.NewMulti", "duplicate explainer label "+e.Label())
		}
		seen[e.Label()] = true
		if e.Task() == TaskClassification {
			classification = true
		}
	}
	if m.metricSet == nil {
		def := metrics.RMSE()
		if classification {
			def = metrics.LogLoss()
		}
		WithMetrics(def)(m)
	}
	return m, nil
}

// Explainers returns the contained explainers in declaration order.
func (m *Multi) Explainers() []*Explainer {
	return append([]*Explainer(nil), m.explainers...)
}

// Data returns the shared evaluation dataset.
func (m *Multi) Data() *dataset.Table { return m.data }

// Target returns the target column name.
func (m *Multi) Target() string { return m.target }

// WeightColumn returns the weight column name, or "" when unweighted.
func (m *Multi) WeightColumn() string { return m.weight }

// Actuals returns the target column.
func (m *Multi) Actuals() []float64 {
	col, _ := m.data.Column(m.target)
	return col
}

// Weights returns the observation weights, or nil when unweighted.
func (m *Multi) Weights() []float64 {
	if m.weight == "" {
		return nil
	}
	col, _ := m.data.Column(m.weight)
	return col
}

// MetricNames returns the configured metric names in declaration order.
func (m *Multi) MetricNames() []string {
	return append([]string(nil), m.metricOrder...)
}

// Metric returns the named metric.
func (m *Multi) Metric(name string) (metrics.Metric, error) {
	metric, ok := m.metricSet[name]
	if !ok {
		return metrics.Metric{}, errors.NewValueError("flashlight.Metric", "unknown metric "+name)
	}
	return metric, nil
}

// FirstMetric returns the first configured metric, the default for analyses
// that need exactly one.
func (m *Multi) FirstMetric() metrics.Metric {
	return m.metricSet[m.metricOrder[0]]
}

// Features returns the dataset columns that act as model inputs, i.e.
// everything except the target and weight columns.
func (m *Multi) Features() []string {
	var feats []string
	for _, name := range m.data.Columns() {
		if name == m.target || name == m.weight {
			continue
		}
		feats = append(feats, name)
	}
	return feats
}

// FeatureTable returns the dataset restricted to model input columns.
func (m *Multi) FeatureTable() *dataset.Table {
	return m.data.Drop(m.target, m.weight)
}

// SampleRows draws up to nMax distinct row indices without replacement
// using rng, returned in ascending order. Requests beyond the available
// rows are clipped with a warning rather than failing. nMax <= 0 means
// all rows.
func (m *Multi) SampleRows(nMax int, rng *rand.Rand) []int {
	n := m.data.NRows()
	if nMax <= 0 || nMax >= n {
		if nMax > n {
			errors.Warn(errors.NewSampleClippedWarning("flashlight.SampleRows", nMax, n))
		}
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	perm := rng.Perm(n)[:nMax]
	// Ascending order keeps downstream curves aligned with dataset order.
	sort.Ints(perm)
	return perm
}

// CheckFeature verifies that a requested feature or grouping column exists
// and is a model input, returning a SchemaMismatchError otherwise.
func (m *Multi) CheckFeature(op, name string) error {
	if name == "" {
		return errors.NewValueError(op, "empty feature name")
	}
	if !m.data.HasColumn(name) {
		return errors.NewSchemaMismatchError(op, name, m.data.Columns())
	}
	return nil
}

// BaselinePrediction returns the mean prediction of each explainer over the
// full evaluation dataset, keyed by label.
func (m *Multi) BaselinePrediction() (map[string]float64, error) {
	features := m.FeatureTable()
	base := make(map[string]float64, len(m.explainers))
	for _, e := range m.explainers {
		pred, err := e.Predict(features)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, p := range pred {
			sum += p
		}
		base[e.Label()] = sum / math.Max(1, float64(len(pred)))
	}
	return base, nil
}
