// Package metrics provides the named, weight-aware evaluation metrics the
// performance and importance analyses consume. Every metric shares one
// signature: (predictions, actuals, weights) -> scalar. A nil weight slice
// means equal weights. Ill-defined results (e.g. R² on a constant target)
// come back as Inf or NaN values with a warning, never as an error.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/minghao2016/flashlight/pkg/errors"
)

// Func evaluates predictions against actuals under optional observation
// weights.
type Func func(pred, actual, weights []float64) (float64, error)

// Metric couples an evaluation function with its name and orientation.
// Greater reports whether larger values indicate a better model, which
// permutation importance needs to orient its degradation sign.
type Metric struct {
	Name    string
	Greater bool
	Eval    Func
}

func validate(op string, pred, actual, weights []float64) error {
	if len(actual) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(pred) != len(actual) {
		return errors.NewDimensionError(op, len(actual), len(pred), 0)
	}
	if weights != nil && len(weights) != len(actual) {
		return errors.NewDimensionError(op, len(actual), len(weights), 0)
	}
	return nil
}

// MSE returns the mean squared error metric.
func MSE() Metric {
	return Metric{Name: "mse", Eval: func(pred, actual, weights []float64) (float64, error) {
		if err := validate("MSE", pred, actual, weights); err != nil {
			return 0, err
		}
		se := make([]float64, len(actual))
		for i := range actual {
			d := actual[i] - pred[i]
			se[i] = d * d
		}
		return stat.Mean(se, weights), nil
	}}
}

// RMSE returns the root mean squared error metric.
func RMSE() Metric {
	mse := MSE()
	return Metric{Name: "rmse", Eval: func(pred, actual, weights []float64) (float64, error) {
		v, err := mse.Eval(pred, actual, weights)
		if err != nil {
			return 0, err
		}
		return math.Sqrt(v), nil
	}}
}

// MAE returns the mean absolute error metric.
func MAE() Metric {
	return Metric{Name: "mae", Eval: func(pred, actual, weights []float64) (float64, error) {
		if err := validate("MAE", pred, actual, weights); err != nil {
			return 0, err
		}
		ae := make([]float64, len(actual))
		for i := range actual {
			ae[i] = math.Abs(actual[i] - pred[i])
		}
		return stat.Mean(ae, weights), nil
	}}
}

// R2 returns the coefficient of determination. On a constant target the
// total sum of squares is zero; the result is NaN (or -Inf for imperfect
// predictions) and an UndefinedMetricWarning is raised.
func R2() Metric {
	return Metric{Name: "r2", Greater: true, Eval: func(pred, actual, weights []float64) (float64, error) {
		if err := validate("R2", pred, actual, weights); err != nil {
			return 0, err
		}
		mean := stat.Mean(actual, weights)
		var tss, rss float64
		for i := range actual {
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			tss += w * (actual[i] - mean) * (actual[i] - mean)
			rss += w * (actual[i] - pred[i]) * (actual[i] - pred[i])
		}
		if tss == 0 {
			result := math.NaN()
			if rss > 0 {
				result = math.Inf(-1)
			}
			errors.Warn(errors.NewUndefinedMetricWarning("r2", "zero variance in actuals", result))
			return result, nil
		}
		return 1 - rss/tss, nil
	}}
}

// LogLoss returns the binary log loss metric. Predictions are interpreted
// as probabilities of the positive class and clamped away from 0 and 1.
func LogLoss() Metric {
	const eps = 1e-15
	return Metric{Name: "logloss", Eval: func(pred, actual, weights []float64) (float64, error) {
		if err := validate("LogLoss", pred, actual, weights); err != nil {
			return 0, err
		}
		ll := make([]float64, len(actual))
		for i := range actual {
			p := math.Min(math.Max(pred[i], eps), 1-eps)
			ll[i] = -(actual[i]*math.Log(p) + (1-actual[i])*math.Log(1-p))
		}
		return stat.Mean(ll, weights), nil
	}}
}

// Accuracy returns the classification accuracy metric, thresholding
// predicted probabilities at 0.5.
func Accuracy() Metric {
	return Metric{Name: "accuracy", Greater: true, Eval: func(pred, actual, weights []float64) (float64, error) {
		if err := validate("Accuracy", pred, actual, weights); err != nil {
			return 0, err
		}
		hits := make([]float64, len(actual))
		for i := range actual {
			cls := 0.0
			if pred[i] >= 0.5 {
				cls = 1.0
			}
			if cls == actual[i] {
				hits[i] = 1.0
			}
		}
		return stat.Mean(hits, weights), nil
	}}
}

// MAPE returns the mean absolute percentage error. Zero actuals make the
// metric ill-defined; the offending terms contribute Inf and a warning is
// raised.
func MAPE() Metric {
	return Metric{Name: "mape", Eval: func(pred, actual, weights []float64) (float64, error) {
		if err := validate("MAPE", pred, actual, weights); err != nil {
			return 0, err
		}
		ape := make([]float64, len(actual))
		undefined := false
		for i := range actual {
			if actual[i] == 0 {
				undefined = true
				ape[i] = math.Inf(1)
				continue
			}
			ape[i] = math.Abs((actual[i] - pred[i]) / actual[i])
		}
		result := stat.Mean(ape, weights)
		if undefined {
			errors.Warn(errors.NewUndefinedMetricWarning("mape", "zero values in actuals", result))
		}
		return result, nil
	}}
}
