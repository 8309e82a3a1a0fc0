// Package log defines standard attribute keys for interpretability analyses.
//
// Using these keys consistently across the engine keeps the structured logs
// of different analyses (performance, importance, profiles, interaction,
// breakdown, surrogate) filterable by the same fields.
package log

// Explainer and operation context.
const (
	// LabelKey identifies the explainer whose model is being analyzed.
	LabelKey = "explainer.label"

	// OperationKey names the analysis being performed.
	// Standard values: "performance", "permutation_importance", "ice",
	// "partial_dependence", "ale", "effects", "interaction", "breakdown",
	// "surrogate".
	OperationKey = "analysis.operation"

	// FeatureKey names the feature a profile or importance row refers to.
	FeatureKey = "analysis.feature"

	// MetricKey names the evaluation metric in use.
	MetricKey = "analysis.metric"

	// GroupByKey names the grouping column for grouped profiles.
	GroupByKey = "analysis.by"
)

// Sampling and reproducibility.
const (
	// SeedKey records the random seed driving sampling and permutation.
	SeedKey = "sample.seed"

	// NMaxKey records the row cap applied to sampling.
	NMaxKey = "sample.n_max"

	// RowsKey records the number of dataset rows actually used.
	RowsKey = "data.rows"

	// FeaturesKey records the number of feature columns involved.
	FeaturesKey = "data.features"

	// RepetitionsKey records the permutation repetition count.
	RepetitionsKey = "sample.repetitions"
)

// Timing.
const (
	// DurationMsKey records the execution time of an analysis in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// PredictionsKey records how many model prediction calls an analysis made.
	PredictionsKey = "perf.prediction_calls"
)
