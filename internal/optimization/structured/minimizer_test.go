package structured

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/searchspace"
)

func normalize(t *testing.T, entries ...hyperparam.Entry) *searchspace.Space {
	t.Helper()
	space, err := searchspace.Normalize(hyperparam.MustSpec(entries...), nil)
	require.NoError(t, err)
	return space
}

func uniform(name string, low, high float64) hyperparam.Entry {
	return hyperparam.Entry{Name: name, Domain: hyperparam.DomainUniform, Data: []interface{}{low, high}}
}

func categorical(name string, values ...interface{}) hyperparam.Entry {
	return hyperparam.Entry{Name: name, Domain: hyperparam.DomainCategorical, Data: values}
}

// sphere is minimal at the origin.
func sphere(p optimization.Point) (float64, error) {
	sum := 0.0
	for _, v := range p {
		if f, ok := v.(float64); ok {
			sum += f * f
		}
	}
	return sum, nil
}

func TestMinimizeSphere(t *testing.T) {
	space := normalize(t, uniform("x", -5, 5), uniform("y", -5, 5))
	m := NewMinimizer(optimization.Config{RandomSeed: 42}, nil)

	result, err := m.Minimize(context.Background(), sphere, 200, space)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.Trials), 200)
	assert.Less(t, result.Loss, 0.05)
	assert.InDelta(t, 0, result.Best["x"].(float64), 0.25)
	assert.InDelta(t, 0, result.Best["y"].(float64), 0.25)

	for _, tr := range result.Trials {
		x := tr.Point["x"].(float64)
		assert.True(t, x >= -5 && x <= 5, "x=%v out of bounds", x)
	}
}

func TestMinimizePicksCategoricalBranch(t *testing.T) {
	space := normalize(t, categorical("shift", "low", "high"), uniform("x", -2, 2))
	offsets := map[interface{}]float64{"low": 0, "high": 10}

	objective := func(p optimization.Point) (float64, error) {
		x := p["x"].(float64)
		return x*x + offsets[p["shift"]], nil
	}

	m := NewMinimizer(optimization.Config{RandomSeed: 7}, nil)
	result, err := m.Minimize(context.Background(), objective, 60, space)
	require.NoError(t, err)

	assert.Equal(t, "low", result.Best["shift"])
	assert.Less(t, result.Loss, 0.1)

	seen := map[interface{}]bool{}
	for _, tr := range result.Trials {
		seen[tr.Point["shift"]] = true
	}
	assert.Len(t, seen, 2, "every branch should be explored")
}

func TestMinimizePureCategoricalIsExhaustive(t *testing.T) {
	space := normalize(t, categorical("a", 1, 2, 3), categorical("b", "x", "y"))

	objective := func(p optimization.Point) (float64, error) {
		if p["a"] == 2 && p["b"] == "y" {
			return 0, nil
		}
		return 1, nil
	}

	m := NewMinimizer(optimization.Config{RandomSeed: 1}, nil)
	result, err := m.Minimize(context.Background(), objective, 100, space)
	require.NoError(t, err)

	assert.Len(t, result.Trials, 6)
	assert.Equal(t, optimization.Point{"a": 2, "b": "y"}, result.Best)
}

func TestMinimizeIsDeterministicWithSeed(t *testing.T) {
	space := normalize(t, categorical("c", "p", "q"), uniform("x", 0, 1))

	run := func() *optimization.Result {
		m := NewMinimizer(optimization.Config{RandomSeed: 99}, nil)
		r, err := m.Minimize(context.Background(), sphere, 30, space)
		require.NoError(t, err)
		return r
	}

	a, b := run(), run()
	assert.Equal(t, a.Best, b.Best)
	assert.Equal(t, a.Loss, b.Loss)
	assert.Equal(t, len(a.Trials), len(b.Trials))
}

func TestMinimizeObjectiveError(t *testing.T) {
	space := normalize(t, uniform("x", 0, 1))
	boom := errors.New("boom")
	calls := 0

	objective := func(p optimization.Point) (float64, error) {
		calls++
		if calls == 3 {
			return 0, boom
		}
		return 1, nil
	}

	m := NewMinimizer(optimization.Config{RandomSeed: 3}, nil)
	result, err := m.Minimize(context.Background(), objective, 10, space)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 3, calls)
}

func TestMinimizeInvalidInput(t *testing.T) {
	m := NewMinimizer(optimization.Config{RandomSeed: 3}, nil)

	_, err := m.Minimize(context.Background(), sphere, 0, normalize(t, uniform("x", 0, 1)))
	assert.True(t, errors.Is(err, optimization.ErrInvalidBudget))

	_, err = m.Minimize(context.Background(), sphere, 5, nil)
	assert.True(t, errors.Is(err, optimization.ErrEmptySpace))

	_, err = m.Minimize(context.Background(), sphere, 5, normalize(t, categorical("a"), uniform("x", 0, 1)))
	assert.True(t, errors.Is(err, optimization.ErrEmptySpace))
}

func TestMinimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMinimizer(optimization.Config{RandomSeed: 3}, nil)
	_, err := m.Minimize(ctx, sphere, 5, normalize(t, uniform("x", 0, 1)))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMinimizeBudgetIsRespected(t *testing.T) {
	space := normalize(t, uniform("x", -1, 1), uniform("y", -1, 1), uniform("z", -1, 1))
	calls := 0
	objective := func(p optimization.Point) (float64, error) {
		calls++
		return math.Abs(p["x"].(float64)) + math.Abs(p["y"].(float64)), nil
	}

	for _, budget := range []int{1, 2, 7, 25} {
		calls = 0
		m := NewMinimizer(optimization.Config{RandomSeed: 5}, nil)
		result, err := m.Minimize(context.Background(), objective, budget, space)
		require.NoError(t, err)
		assert.Equal(t, budget, calls, "budget %d", budget)
		assert.Len(t, result.Trials, budget)
	}
}
