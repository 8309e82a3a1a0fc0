// Package flashlight is a model-agnostic interpretability engine for Go.
//
// It shines a light into trained black-box models without caring which
// framework produced them: anything that can map a feature table to a
// numeric prediction vector can be wrapped in an Explainer and analyzed.
//
// # Features
//
// - Performance tables and permutation feature importance
// - ICE curves, partial dependence, ALE and marginal (M-plot) profiles
// - Combined effects tables with per-bin counts for plotting
// - Pairwise interaction strength via Friedman's H-statistic
// - Additive per-feature breakdown of single predictions
// - Global surrogate trees with fidelity reporting
//
// All analyses are pure functions from (multi-explainer, parameters) to an
// immutable result table; sampling and permutation are driven by explicit
// seeds, so every number is reproducible.
//
// # Quick Start
//
//	fl, err := flashlight.New("lm", model)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	multi, err := flashlight.NewMulti(data, "price", []*flashlight.Explainer{fl},
//	    flashlight.WithMetrics(metrics.RMSE(), metrics.MAE()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	perf, err := importance.Performance(multi)
//	imp, err := importance.Permutation(multi, importance.Options{Seed: 1})
//
// Result tables share a stable schema (explainer label, feature, x, value,
// count) and are consumed by an external plotting collaborator; this module
// does no rendering.
package flashlight
