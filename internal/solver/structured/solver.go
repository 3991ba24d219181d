// Package structured adapts the structured minimizer, which consumes nested
// search spaces directly, to the solver lifecycle.
package structured

import (
	"context"

	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/optimization/structured"
	"github.com/copyleftdev/hypertune/internal/searchspace"
	"github.com/copyleftdev/hypertune/internal/solver"
)

// Name is the registry name of this backend.
const Name = "structured"

// Solver runs the structured minimizer.
type Solver struct {
	solver.Base
	minimizer *structured.Minimizer
}

// New creates a structured solver. It satisfies solver.Factory.
func New(opts solver.Options) solver.Solver {
	base := solver.NewBase(Name, opts)
	return &Solver{
		Base:      base,
		minimizer: structured.NewMinimizer(optimization.Config{RandomSeed: opts.Seed}, base.Logger()),
	}
}

// ExecuteSolver minimizes the stored loss over space.
func (s *Solver) ExecuteSolver(ctx context.Context, space *searchspace.Space) error {
	budget := s.MaxIterations()
	return s.Execute(ctx, space, func(ctx context.Context, objective optimization.Objective) (*optimization.Result, error) {
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
