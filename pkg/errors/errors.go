// Package errors provides structured error and warning handling for the
// flashlight interpretability engine. Error types carry stack traces via
// cockroachdb/errors and marshal themselves into zerolog events for
// structured log output.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("flashlight-warning: %v\n", w)
	}
	// zerolog warn hook, set lazily to avoid an import cycle with pkg/log.
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the engine-wide warning handler. Warnings such
// as UndefinedMetricWarning are reported through it instead of being
// returned as errors.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a zerolog-backed warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn reports a warning without interrupting the computation that raised it.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// UndefinedMetricWarning is raised when a metric is ill-defined for the data
// at hand, e.g. a relative error dividing by a zero actual. The metric still
// returns the stated numeric result (often Inf or NaN); interpretation is
// left to the caller.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// SampleClippedWarning is raised when a requested sample size exceeds the
// available rows. The sample is clipped to what is available; this is
// intended behavior, not an error.
type SampleClippedWarning struct {
	Op        string
	Requested int
	Available int
}

func (w *SampleClippedWarning) Error() string {
	return fmt.Sprintf("%s: requested sample of %d rows clipped to %d available rows", w.Op, w.Requested, w.Available)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *SampleClippedWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Int("requested", w.Requested).
		Int("available", w.Available).
		Str("type", "SampleClippedWarning")
}

// NewSampleClippedWarning creates a new SampleClippedWarning.
func NewSampleClippedWarning(op string, requested, available int) *SampleClippedWarning {
	return &SampleClippedWarning{Op: op, Requested: requested, Available: available}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// SchemaMismatchError is returned when a requested feature, grouping
// variable, target or weight column is absent from the evaluation dataset.
type SchemaMismatchError struct {
	Op     string
	Column string
	Have   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("flashlight: %s: column %q not found in dataset (have %v)", e.Op, e.Column, e.Have)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *SchemaMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Strs("available", e.Have).
		Str("type", "SchemaMismatchError")
}

// NewSchemaMismatchError creates a new SchemaMismatchError with a stack trace.
func NewSchemaMismatchError(op, column string, have []string) error {
	err := &SchemaMismatchError{Op: op, Column: column, Have: have}
	return errors.WithStack(err)
}

// PredictionError is returned when a caller-supplied prediction function
// fails or returns a vector whose length does not match the input row count.
// Failures propagate; the engine never retries the model.
type PredictionError struct {
	Label    string
	Expected int
	Got      int
	Err      error
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flashlight: prediction for explainer %q failed: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("flashlight: explainer %q returned %d predictions for %d rows", e.Label, e.Got, e.Expected)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *PredictionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("label", e.Label).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "PredictionError")
}

// NewPredictionError wraps a failure of the underlying prediction function.
func NewPredictionError(label string, err error) error {
	predErr := &PredictionError{Label: label, Err: err}
	return errors.WithStack(predErr)
}

// NewPredictionLengthError reports a length mismatch between input rows and
// the returned prediction vector.
func NewPredictionLengthError(label string, expected, got int) error {
	predErr := &PredictionError{Label: label, Expected: expected, Got: got}
	return errors.WithStack(predErr)
}

// DimensionError is returned when two vectors or tables that must agree in
// size do not.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("flashlight: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a new DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is invalid, e.g. a duplicate
// explainer label or a non-positive grid size.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("flashlight: %s: %s", e.Op, e.Message)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *ValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("message", e.Message).
		Str("type", "ValueError")
}

// NewValueError creates a new ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error variables
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an empty dataset or vector is supplied.
	ErrEmptyData = New("empty data")

	// ErrNoExplainers is returned when a multi-explainer is built without
	// any explainers.
	ErrNoExplainers = New("no explainers")

	// ErrNoPredictFunc is returned when neither a prediction function nor a
	// natively predictable model is supplied.
	ErrNoPredictFunc = New("no prediction function and model does not implement Predictor")
)
