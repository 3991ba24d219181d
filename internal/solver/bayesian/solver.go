// Package bayesian adapts the Gaussian process minimizer to the solver
// lifecycle.
package bayesian

import (
	"context"

	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/optimization/bayesian"
	"github.com/copyleftdev/hypertune/internal/searchspace"
	"github.com/copyleftdev/hypertune/internal/solver"
)

// Name is the registry name of this backend.
const Name = "bayesian"

// Solver runs Bayesian optimization with expected improvement.
type Solver struct {
	solver.Base
	minimizer *bayesian.Minimizer
	// Set when the options were rejected; reported on execution
	err error
}

// New creates a Bayesian solver. It satisfies solver.Factory.
func New(opts solver.Options) solver.Solver {
	base := solver.NewBase(Name, opts)
	minimizer, err := bayesian.NewMinimizer(bayesian.Config{
		Config:        optimization.Config{RandomSeed: opts.Seed},
		Kernel:        opts.Kernel,
		InitialPoints: opts.InitialPoints,
	}, base.Logger())
	return &Solver{Base: base, minimizer: minimizer, err: err}
}

// ExecuteSolver minimizes the stored loss over space.
func (s *Solver) ExecuteSolver(ctx context.Context, space *searchspace.Space) error {
	budget := s.MaxIterations()
	return s.Execute(ctx, space, func(ctx context.Context, objective optimization.Objective) (*optimization.Result, error) {
		if s.err != nil {
			return nil, s.err
		}
		return s.minimizer.Minimize(ctx, objective, budget, space)
	})
}

// Run executes the solver over the converted solution space.
func (s *Solver) Run(ctx context.Context) error {
	return s.ExecuteSolver(ctx, s.SolutionSpace())
}

// GetResults returns the converted solution of the last run.
func (s *Solver) GetResults() (*solver.Solution, error) {
	return s.ConvertResults()
}
