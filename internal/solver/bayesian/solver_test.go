package bayesian

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/solver"
)

func TestSolveMixedSpace(t *testing.T) {
	project := &hyperparam.Project{
		MaxIterations: 30,
		Hyperparameter: hyperparam.MustSpec(
			hyperparam.Entry{Name: "optimizer", Domain: hyperparam.DomainCategorical, Type: hyperparam.TypeString, Data: []interface{}{"sgd", "adam"}},
			hyperparam.Entry{Name: "lr", Domain: hyperparam.DomainUniform, Type: hyperparam.TypeFloat, Data: []interface{}{0.0, 1.0}},
		),
	}
	loss := func(_ interface{}, p solver.Params) (float64, error) {
		lr := p["lr"].(float64)
		base := 1.0
		if p["optimizer"] == "adam" {
			base = 0
		}
		return base + (lr-0.2)*(lr-0.2), nil
	}

	sol, err := solver.Solve(context.Background(), New(solver.Options{Seed: 4, Kernel: "rbf"}), project, nil, loss)
	require.NoError(t, err)

	assert.Equal(t, Name, sol.Solver)
	assert.Equal(t, 30, sol.Trials)
	assert.Less(t, sol.Loss, 0.05)
	optimizer, _ := sol.Get("optimizer")
	assert.Equal(t, "adam", optimizer)
}

func TestSolveRoundsIntegers(t *testing.T) {
	project := &hyperparam.Project{
		MaxIterations: 12,
		Hyperparameter: hyperparam.MustSpec(
			hyperparam.Entry{Name: "depth", Domain: hyperparam.DomainUniform, Type: hyperparam.TypeInt, Data: []interface{}{1, 10}},
		),
	}
	loss := func(_ interface{}, p solver.Params) (float64, error) {
		d := p["depth"].(int)
		return float64((d - 6) * (d - 6)), nil
	}

	sol, err := solver.Solve(context.Background(), New(solver.Options{Seed: 1, InitialPoints: 4}), project, nil, loss)
	require.NoError(t, err)

	depth, ok := sol.Get("depth")
	require.True(t, ok)
	assert.IsType(t, 0, depth)
}

func TestInvalidKernelIsOptimizerFailure(t *testing.T) {
	project := &hyperparam.Project{
		MaxIterations: 5,
		Hyperparameter: hyperparam.MustSpec(
			hyperparam.Entry{Name: "x", Domain: hyperparam.DomainUniform, Type: hyperparam.TypeFloat, Data: []interface{}{0.0, 1.0}},
		),
	}
	_, err := solver.Solve(context.Background(), New(solver.Options{Kernel: "periodic"}), project, nil,
		func(interface{}, solver.Params) (float64, error) { return 0, nil })

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOptimizerFailure))
	assert.Contains(t, err.Error(), "periodic")
}
