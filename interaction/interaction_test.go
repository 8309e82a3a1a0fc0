package interaction_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minghao2016/flashlight"
	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/interaction"
)

func buildMulti(t *testing.T, predict flashlight.PredictFunc) *flashlight.Multi {
	t.Helper()
	rng := rand.New(rand.NewSource(21))
	n := 80
	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()
		c[i] = rng.NormFloat64()
	}
	data, err := dataset.New([]string{"a", "b", "c", "y"}, [][]float64{a, b, c, y})
	require.NoError(t, err)

	e, err := flashlight.New("m", nil, flashlight.WithPredictFunc(predict))
	require.NoError(t, err)
	m, err := flashlight.NewMulti(data, "y", []*flashlight.Explainer{e})
	require.NoError(t, err)
	return m
}

func additive(_ interface{}, X *dataset.Table) ([]float64, error) {
	a, _ := X.Column("a")
	b, _ := X.Column("b")
	c, _ := X.Column("c")
	out := make([]float64, len(a))
	for i := range out {
		out[i] = 2*a[i] + b[i]*b[i] + math.Sin(c[i])
	}
	return out, nil
}

func interacting(_ interface{}, X *dataset.Table) ([]float64, error) {
	a, _ := X.Column("a")
	b, _ := X.Column("b")
	c, _ := X.Column("c")
	out := make([]float64, len(a))
	for i := range out {
		out[i] = a[i] + b[i] + 3*a[i]*b[i] + 0.1*c[i]
	}
	return out, nil
}

func TestAdditiveModelHasZeroInteraction(t *testing.T) {
	m := buildMulti(t, additive)
	features := []string{"a", "b", "c"}

	overall, err := interaction.Strength(m, features, interaction.Options{Seed: 8, NMax: 40})
	require.NoError(t, err)
	require.Len(t, overall.Rows, 3)
	for _, row := range overall.Rows {
		assert.InDelta(t, 0.0, row.Value, 1e-8, "feature %s in an additive model", row.Feature)
	}

	pairwise, err := interaction.Strength(m, features, interaction.Options{Seed: 8, NMax: 40, Pairwise: true})
	require.NoError(t, err)
	require.Len(t, pairwise.Rows, 3)
	for _, row := range pairwise.Rows {
		assert.InDelta(t, 0.0, row.Value, 1e-8, "pair %s:%s in an additive model", row.Feature, row.Feature2)
	}
}

func TestInteractingPairDetected(t *testing.T) {
	m := buildMulti(t, interacting)
	result, err := interaction.Strength(m, []string{"a", "b", "c"},
		interaction.Options{Seed: 8, NMax: 40, Pairwise: true})
	require.NoError(t, err)

	values := map[string]float64{}
	for _, row := range result.Rows {
		values[row.Feature+":"+row.Feature2] = row.Value
	}
	assert.Greater(t, values["a:b"], 0.3, "the a*b term must show up")
	assert.Greater(t, values["a:b"], values["a:c"])
	assert.Greater(t, values["a:b"], values["b:c"])
}

func TestInteractionReproducible(t *testing.T) {
	m := buildMulti(t, interacting)
	opts := interaction.Options{Seed: 13, NMax: 30, Pairwise: true}

	first, err := interaction.Strength(m, []string{"a", "b"}, opts)
	require.NoError(t, err)
	second, err := interaction.Strength(m, []string{"a", "b"}, opts)
	require.NoError(t, err)
	assert.Equal(t, first.Rows, second.Rows)
}

func TestPairwiseSymmetric(t *testing.T) {
	m := buildMulti(t, interacting)
	opts := interaction.Options{Seed: 4, NMax: 30, Pairwise: true}

	ab, err := interaction.Strength(m, []string{"a", "b"}, opts)
	require.NoError(t, err)
	ba, err := interaction.Strength(m, []string{"b", "a"}, opts)
	require.NoError(t, err)
	require.Len(t, ab.Rows, 1)
	require.Len(t, ba.Rows, 1)
	assert.InDelta(t, ab.Rows[0].Value, ba.Rows[0].Value, 1e-10,
		"the statistic must not depend on feature order within a pair")
}

func TestInteractionConstantModelIsNaN(t *testing.T) {
	m := buildMulti(t, func(_ interface{}, X *dataset.Table) ([]float64, error) {
		out := make([]float64, X.NRows())
		for i := range out {
			out[i] = 7
		}
		return out, nil
	})
	result, err := interaction.Strength(m, []string{"a"}, interaction.Options{Seed: 1, NMax: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.True(t, math.IsNaN(result.Rows[0].Value), "no variance to decompose propagates as NaN, not an error")
}

func TestInteractionUnknownFeature(t *testing.T) {
	m := buildMulti(t, additive)
	_, err := interaction.Strength(m, []string{"ghost"}, interaction.Options{Seed: 1})
	assert.Error(t, err)
}
