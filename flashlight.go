package flashlight

import (
	"gonum.org/v1/gonum/mat"

	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/pkg/errors"
)

// TaskType declares what the wrapped model predicts.
type TaskType int

const (
	// TaskRegression marks models whose predictions are raw numeric values.
	TaskRegression TaskType = iota
	// TaskClassification marks models whose predictions are probabilities
	// of the positive class.
	TaskClassification
)

func (t TaskType) String() string {
	if t == TaskClassification {
		return "classification"
	}
	return "regression"
}

// PredictFunc maps an opaque model and a feature table to one prediction
// per row. The engine treats it as a synchronous black box: failures
// propagate and are never retried.
type PredictFunc func(model interface{}, X *dataset.Table) ([]float64, error)

// Predictor is the narrow capability the default prediction path relies on.
// Any model exposing a Predict over a matrix qualifies; no base type is
// required.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Explainer binds a trained model, a label and a prediction function into a
// uniform handle the analyses consume. It is immutable after construction.
type Explainer struct {
	label   string
	model   interface{}
	predict PredictFunc
	task    TaskType
}

// Option configures an Explainer at construction time.
type Option func(*Explainer)

// WithPredictFunc overrides the default prediction path.
func WithPredictFunc(fn PredictFunc) Option {
	return func(e *Explainer) { e.predict = fn }
}

// WithTask declares the model's task type. The default is regression.
func WithTask(task TaskType) Option {
	return func(e *Explainer) { e.task = task }
}

// New wraps a trained model under the given label. When no prediction
// function is supplied the model must implement Predictor; the first
// column of its matrix output supplies one value per row.
func New(label string, model interface{}, opts ...Option) (*Explainer, error) {
	if label == "" {
		return nil, errors.NewValueError("flashlight.New", "empty label")
	}
	e := &Explainer{label: label, model: model, task: TaskRegression}
	for _, opt := range opts {
		opt(e)
	}
	if e.predict == nil {
		if _, ok := model.(Predictor); !ok {
			return nil, errors.WithStack(errors.ErrNoPredictFunc)
		}
		e.predict = nativePredict
	}
	return e, nil
}

func nativePredict(model interface{}, X *dataset.Table) ([]float64, error) {
	out, err := model.(Predictor).Predict(X.Matrix())
	if err != nil {
		return nil, err
	}
	r, _ := out.Dims()
	pred := make([]float64, r)
	for i := 0; i < r; i++ {
		pred[i] = out.At(i, 0)
	}
	return pred, nil
}

// Label returns the explainer's unique display label.
func (e *Explainer) Label() string { return e.label }

// Task returns the declared task type.
func (e *Explainer) Task() TaskType { return e.task }

// Model returns the wrapped, externally owned model.
func (e *Explainer) Model() interface{} { return e.model }

// Predict runs the model over X and validates the output length. A nil
// result or length mismatch becomes a PredictionError.
func (e *Explainer) Predict(X *dataset.Table) ([]float64, error) {
	pred, err := e.predict(e.model, X)
	if err != nil {
		return nil, errors.NewPredictionError(e.label, err)
	}
	if len(pred) != X.NRows() {
		return nil, errors.NewPredictionLengthError(e.label, X.NRows(), len(pred))
	}
	return pred, nil
}
