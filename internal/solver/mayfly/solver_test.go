package mayfly

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/solver"
)

func uniform(name string, low, high float64) hyperparam.Entry {
	return hyperparam.Entry{Name: name, Domain: hyperparam.DomainUniform, Type: hyperparam.TypeFloat, Data: []interface{}{low, high}}
}

func TestSolveQuadratic(t *testing.T) {
	project := &hyperparam.Project{
		MaxIterations:  400,
		Hyperparameter: hyperparam.MustSpec(uniform("x", -5, 5), uniform("y", -5, 5)),
	}
	loss := func(_ interface{}, p solver.Params) (float64, error) {
		x, y := p["x"].(float64), p["y"].(float64)
		return (x-1)*(x-1) + (y+2)*(y+2), nil
	}

	sol, err := solver.Solve(context.Background(), New(solver.Options{Seed: 42}), project, nil, loss)
	require.NoError(t, err)

	assert.Equal(t, Name, sol.Solver)
	assert.Less(t, sol.Loss, 0.5)
	assert.LessOrEqual(t, sol.Trials, 400)
	assert.Greater(t, sol.Trials, 0)
}

func TestSolveIsDeterministicWithSeed(t *testing.T) {
	project := &hyperparam.Project{
		MaxIterations: 100,
		Hyperparameter: hyperparam.MustSpec(
			hyperparam.Entry{Name: "kernel", Domain: hyperparam.DomainCategorical, Data: []interface{}{"a", "b"}},
			uniform("x", -1, 1),
		),
	}
	loss := func(_ interface{}, p solver.Params) (float64, error) {
		x := p["x"].(float64)
		if p["kernel"] == "b" {
			return x * x, nil
		}
		return 1 + x*x, nil
	}

	first, err := solver.Solve(context.Background(), New(solver.Options{Seed: 9}), project, nil, loss)
	require.NoError(t, err)
	second, err := solver.Solve(context.Background(), New(solver.Options{Seed: 9}), project, nil, loss)
	require.NoError(t, err)

	assert.Equal(t, first.Loss, second.Loss)
	assert.Equal(t, first.Params, second.Params)
	kernel, _ := first.Get("kernel")
	assert.Equal(t, "b", kernel)
}

func TestSolveLossErrorIsOptimizerFailure(t *testing.T) {
	project := &hyperparam.Project{
		MaxIterations:  50,
		Hyperparameter: hyperparam.MustSpec(uniform("x", 0, 1)),
	}
	calls := 0
	loss := func(interface{}, solver.Params) (float64, error) {
		calls++
		return 0, stderrors.New("diverged")
	}

	_, err := solver.Solve(context.Background(), New(solver.Options{Seed: 1}), project, nil, loss)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOptimizerFailure))
	assert.Contains(t, err.Error(), "diverged")
	assert.Equal(t, 1, calls)
}

func TestEmptyCategoricalIsOptimizerFailure(t *testing.T) {
	s := New(solver.Options{})
	s.SetLossFunction(func(interface{}, solver.Params) (float64, error) { return 0, nil })
	require.NoError(t, s.ConvertParameter(hyperparam.MustSpec(
		hyperparam.Entry{Name: "kernel", Domain: hyperparam.DomainCategorical, Data: []interface{}{}},
	)))

	err := s.Run(context.Background())
	assert.True(t, errors.Is(err, errors.ErrOptimizerFailure))
}

func TestZeroDimensionalSpaceEvaluatesOnce(t *testing.T) {
	s := New(solver.Options{})
	calls := 0
	s.SetLossFunction(func(interface{}, solver.Params) (float64, error) {
		calls++
		return 3, nil
	})
	require.NoError(t, s.ConvertParameter(hyperparam.MustSpec()))
	require.NoError(t, s.Run(context.Background()))

	sol, err := s.GetResults()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 3.0, sol.Loss)
	assert.Empty(t, sol.Params)
}

func TestPopulationFloor(t *testing.T) {
	assert.Equal(t, MinPopulation, New(solver.Options{PopulationSize: 5}).(*Solver).Population())
	assert.Equal(t, 32, New(solver.Options{PopulationSize: 32}).(*Solver).Population())
	assert.Equal(t, 3, generations(50, 20))
	assert.Equal(t, 1, generations(1, 20))
}
