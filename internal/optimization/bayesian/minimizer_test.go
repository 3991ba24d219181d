package bayesian

import (
	"context"
	stderrors "errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/searchspace"
)

func leaf(bounds ...searchspace.Bound) *searchspace.Space {
	return searchspace.NewLeaf(bounds)
}

func bound(name string, low, high float64) searchspace.Bound {
	return searchspace.Bound{Name: name, Bounds: searchspace.Bounds{Low: low, High: high}}
}

func newMinimizer(t *testing.T, seed int64) *Minimizer {
	t.Helper()
	m, err := NewMinimizer(Config{Config: optimization.Config{RandomSeed: seed}}, nil)
	require.NoError(t, err)
	return m
}

func TestMinimizeQuadratic(t *testing.T) {
	objective := func(p optimization.Point) (float64, error) {
		x := p["x"].(float64)
		return (x - 0.5) * (x - 0.5), nil
	}

	result, err := newMinimizer(t, 1).Minimize(context.Background(), objective, 25, leaf(bound("x", -2, 2)))
	require.NoError(t, err)

	assert.Len(t, result.Trials, 25)
	assert.Less(t, result.Loss, 0.05)
	assert.Equal(t, optimization.PhaseExplore, result.Trials[0].Phase)
	assert.Equal(t, optimization.PhaseRefine, result.Trials[24].Phase)
}

func TestMinimizeMixedSpace(t *testing.T) {
	inner := leaf(bound("x", 0, 1))
	space := searchspace.NewBranch("kernel", []searchspace.Choice{
		{Value: "a", Next: inner},
		{Value: "b", Next: inner},
	})
	objective := func(p optimization.Point) (float64, error) {
		x := p["x"].(float64)
		penalty := 1.0
		if p["kernel"] == "b" {
			penalty = 0
		}
		return penalty + (x-0.3)*(x-0.3), nil
	}

	result, err := newMinimizer(t, 3).Minimize(context.Background(), objective, 30, space)
	require.NoError(t, err)

	assert.Equal(t, "b", result.Best["kernel"])
	assert.Less(t, result.Loss, 0.05)
}

func TestMinimizeIsDeterministicWithSeed(t *testing.T) {
	objective := func(p optimization.Point) (float64, error) {
		x, y := p["x"].(float64), p["y"].(float64)
		return x*x + y*y, nil
	}
	space := leaf(bound("x", -1, 1), bound("y", -1, 1))

	first, err := newMinimizer(t, 11).Minimize(context.Background(), objective, 12, space)
	require.NoError(t, err)
	second, err := newMinimizer(t, 11).Minimize(context.Background(), objective, 12, space)
	require.NoError(t, err)

	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.Loss, second.Loss)
}

func TestMinimizeToleratesNaN(t *testing.T) {
	objective := func(p optimization.Point) (float64, error) {
		x := p["x"].(float64)
		if x < 0 {
			return math.NaN(), nil
		}
		return x, nil
	}

	result, err := newMinimizer(t, 5).Minimize(context.Background(), objective, 15, leaf(bound("x", -1, 1)))
	require.NoError(t, err)
	assert.Len(t, result.Trials, 15)
	assert.False(t, math.IsNaN(result.Loss))
}

func TestMinimizeObjectiveError(t *testing.T) {
	boom := stderrors.New("boom")
	calls := 0
	objective := func(optimization.Point) (float64, error) {
		calls++
		return 0, boom
	}

	_, err := newMinimizer(t, 1).Minimize(context.Background(), objective, 10, leaf(bound("x", 0, 1)))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestMinimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newMinimizer(t, 1).Minimize(ctx, func(optimization.Point) (float64, error) { return 0, nil }, 10, leaf(bound("x", 0, 1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMinimizeEdgeCases(t *testing.T) {
	m := newMinimizer(t, 1)
	objective := func(optimization.Point) (float64, error) { return 2, nil }

	_, err := m.Minimize(context.Background(), objective, 0, leaf(bound("x", 0, 1)))
	assert.ErrorIs(t, err, optimization.ErrInvalidBudget)

	_, err = m.Minimize(context.Background(), objective, 5, searchspace.NewBranch("k", nil))
	assert.ErrorIs(t, err, optimization.ErrEmptySpace)

	result, err := m.Minimize(context.Background(), objective, 5, leaf())
	require.NoError(t, err)
	assert.Len(t, result.Trials, 1)
	assert.Equal(t, 2.0, result.Loss)

	// A budget smaller than the initial design is honoured.
	result, err = m.Minimize(context.Background(), objective, 2, leaf(bound("x", 0, 1), bound("y", 0, 1)))
	require.NoError(t, err)
	assert.Len(t, result.Trials, 2)
}

func TestNewMinimizerRejectsUnknownKernel(t *testing.T) {
	_, err := NewMinimizer(Config{Kernel: "periodic"}, nil)
	assert.Error(t, err)

	m, err := NewMinimizer(Config{Kernel: "rbf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultCandidates, m.cfg.Candidates)
	assert.Equal(t, DefaultXi, m.cfg.Xi)
}

func TestLatinHypercube(t *testing.T) {
	const n, dims = 8, 3
	samples := newMinimizer(t, 2).latinHypercube(n, dims)
	require.Len(t, samples, n)

	for d := 0; d < dims; d++ {
		strata := make([]int, n)
		for i, s := range samples {
			require.Len(t, s, dims)
			assert.GreaterOrEqual(t, s[d], 0.0)
			assert.Less(t, s[d], 1.0)
			strata[i] = int(s[d] * n)
		}
		sort.Ints(strata)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, strata, "dimension %d", d)
	}
}

func TestFiniteTargets(t *testing.T) {
	targets, best := finiteTargets([]float64{3, math.NaN(), 1, math.Inf(1)})
	assert.Equal(t, []float64{3, 3, 1, 3}, targets)
	assert.Equal(t, 2, best)

	targets, best = finiteTargets([]float64{math.NaN()})
	assert.Equal(t, []float64{0}, targets)
	assert.Equal(t, 0, best)
}
