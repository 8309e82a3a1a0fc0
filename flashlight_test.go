package flashlight_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/metrics"
	"github.com/minghao2016/flashlight/pkg/errors"
)

// sumModel predicts the sum of the a and b columns.
func sumModel() flashlight.PredictFunc {
	return func(_ interface{}, X *dataset.Table) ([]float64, error) {
		a, err := X.Column("a")
		if err != nil {
			return nil, err
		}
		b, err := X.Column("b")
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(a))
		for i := range out {
			out[i] = a[i] + b[i]
		}
		return out, nil
	}
}

func testData(t *testing.T) *dataset.Table {
	t.Helper()
	data, err := dataset.New(
		[]string{"a", "b", "y", "w"},
		[][]float64{
			{1, 2, 3, 4},
			{10, 20, 30, 40},
			{11, 22, 33, 44},
			{1, 1, 2, 2},
		},
	)
	require.NoError(t, err)
	return data
}

func TestNewRequiresPredictPath(t *testing.T) {
	_, err := flashlight.New("m", struct{}{})
	assert.True(t, errors.Is(err, errors.ErrNoPredictFunc))

	_, err = flashlight.New("", nil, flashlight.WithPredictFunc(sumModel()))
	assert.Error(t, err, "empty label must be rejected")

	e, err := flashlight.New("m", nil, flashlight.WithPredictFunc(sumModel()))
	require.NoError(t, err)
	assert.Equal(t, "m", e.Label())
	assert.Equal(t, flashlight.TaskRegression, e.Task())
}

// nativeModel implements the Predictor capability.
type nativeModel struct{}

func (nativeModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, X.At(i, 0)*2)
	}
	return out, nil
}

func TestNativePredict(t *testing.T) {
	e, err := flashlight.New("native", nativeModel{})
	require.NoError(t, err)

	data, err := dataset.New([]string{"a"}, [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	pred, err := e.Predict(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6}, pred)
}

func TestPredictLengthMismatch(t *testing.T) {
	bad := flashlight.PredictFunc(func(_ interface{}, X *dataset.Table) ([]float64, error) {
		return []float64{1}, nil
	})
	e, err := flashlight.New("bad", nil, flashlight.WithPredictFunc(bad))
	require.NoError(t, err)

	data, err := dataset.New([]string{"a"}, [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	_, err = e.Predict(data)
	var predErr *errors.PredictionError
	require.True(t, errors.As(err, &predErr))
	assert.Equal(t, 3, predErr.Expected)
	assert.Equal(t, 1, predErr.Got)
}

func TestNewMultiValidation(t *testing.T) {
	data := testData(t)
	e1, _ := flashlight.New("one", nil, flashlight.WithPredictFunc(sumModel()))
	e2, _ := flashlight.New("two", nil, flashlight.WithPredictFunc(sumModel()))
	dup, _ := flashlight.New("one", nil, flashlight.WithPredictFunc(sumModel()))

	_, err := flashlight.NewMulti(data, "y", nil)
	assert.True(t, errors.Is(err, errors.ErrNoExplainers))

	_, err = flashlight.NewMulti(data, "missing", []*flashlight.Explainer{e1})
	var schemaErr *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &schemaErr), "missing target must be SchemaMismatch")

	_, err = flashlight.NewMulti(data, "y", []*flashlight.Explainer{e1},
		flashlight.WithWeightColumn("missing"))
	assert.True(t, errors.As(err, &schemaErr), "missing weight column must be SchemaMismatch")

	_, err = flashlight.NewMulti(data, "y", []*flashlight.Explainer{e1, dup})
	assert.Error(t, err, "duplicate labels must be rejected")

	_, err = flashlight.NewMulti(data, "y", []*flashlight.Explainer{e1},
		flashlight.WithMetrics())
	assert.Error(t, err, "a metric set with no metrics must be rejected")

	m, err := flashlight.NewMulti(data, "y", []*flashlight.Explainer{e1, e2},
		flashlight.WithWeightColumn("w"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rmse"}, m.MetricNames(), "regression default metric")
	assert.Equal(t, []string{"a", "b"}, m.Features())
	assert.Equal(t, []float64{11, 22, 33, 44}, m.Actuals())
	assert.Equal(t, []float64{1, 1, 2, 2}, m.Weights())
}

func TestNewMultiClassificationDefaultMetric(t *testing.T) {
	data := testData(t)
	e, _ := flashlight.New("clf", nil,
		flashlight.WithPredictFunc(sumModel()),
		flashlight.WithTask(flashlight.TaskClassification))
	m, err := flashlight.NewMulti(data, "y", []*flashlight.Explainer{e})
	require.NoError(t, err)
	assert.Equal(t, []string{"logloss"}, m.MetricNames())
}

func TestMetricRegistry(t *testing.T) {
	data := testData(t)
	e, _ := flashlight.New("m", nil, flashlight.WithPredictFunc(sumModel()))
	m, err := flashlight.NewMulti(data, "y", []*flashlight.Explainer{e},
		flashlight.WithMetrics(metrics.MAE(), metrics.R2()))
	require.NoError(t, err)

	assert.Equal(t, []string{"mae", "r2"}, m.MetricNames())
	assert.Equal(t, "mae", m.FirstMetric().Name)

	_, err = m.Metric("nope")
	assert.Error(t, err)
}

func TestSampleRows(t *testing.T) {
	data := testData(t)
	e, _ := flashlight.New("m", nil, flashlight.WithPredictFunc(sumModel()))
	m, err := flashlight.NewMulti(data, "y", []*flashlight.Explainer{e})
	require.NoError(t, err)

	t.Run("clip beyond available", func(t *testing.T) {
		rows := m.SampleRows(100, rand.New(rand.NewSource(1)))
		assert.Equal(t, []int{0, 1, 2, 3}, rows)
	})

	t.Run("all rows when zero", func(t *testing.T) {
		rows := m.SampleRows(0, rand.New(rand.NewSource(1)))
		assert.Len(t, rows, 4)
	})

	t.Run("deterministic under seed", func(t *testing.T) {
		first := m.SampleRows(2, rand.New(rand.NewSource(7)))
		second := m.SampleRows(2, rand.New(rand.NewSource(7)))
		assert.Equal(t, first, second)
		assert.Len(t, first, 2)
		assert.Less(t, first[0], first[1], "samples come back sorted")
	})
}

func TestBaselinePrediction(t *testing.T) {
	data := testData(t)
	e, _ := flashlight.New("m", nil, flashlight.WithPredictFunc(sumModel()))
	m, err := flashlight.NewMulti(data, "y", []*flashlight.Explainer{e})
	require.NoError(t, err)

	base, err := m.BaselinePrediction()
	require.NoError(t, err)
	// Means of a+b: (11+22+33+44)/4
	assert.InDelta(t, 27.5, base["m"], 1e-12)
}
