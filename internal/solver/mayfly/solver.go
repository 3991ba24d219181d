// Package mayfly adapts the mayfly evolutionary optimizer to the solver
// lifecycle. The nested search space is flattened onto a unit hypercube
// because mayfly only understands a single box.
package mayfly

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/mayfly"
	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/searchspace"
	"github.com/copyleftdev/hypertune/internal/solver"
)

// Name is the registry name of this backend.
const Name = "mayfly"

const component = "mayfly_minimizer"

// MinPopulation is the smallest population mayfly accepts.
const MinPopulation = 20

// Solver runs mayfly over the encoded search space.
type Solver struct {
	solver.Base
	population int
	seed       int64
}

// New creates a mayfly solver. It satisfies solver.Factory.
func New(opts solver.Options) solver.Solver {
	population := opts.PopulationSize
	if population < MinPopulation {
		population = MinPopulation
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Solver{
		Base:       solver.NewBase(Name, opts),
		population: population,
		seed:       seed,
	}
}

// Population returns the configured population size.
func (s *Solver) Population() int {
	return s.population
}

// ExecuteSolver minimizes the stored loss over space.
func (s *Solver) ExecuteSolver(ctx context.Context, space *searchspace.Space) error {
	budget := s.MaxIterations()
	return s.Execute(ctx, space, func(ctx context.Context, objective optimization.Objective) (*optimization.Result, error) {
		return s.minimize(ctx, objective, budget, space)
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

// minimize spends at most budget objective evaluations. Once the budget is
// used up or an evaluation fails, mayfly keeps running against +Inf without
// calling the objective again.
func (s *Solver) minimize(ctx context.Context, objective optimization.Objective, budget int, space *searchspace.Space) (*optimization.Result, error) {
	cube, err := optimization.NewCube(space)
	if err != nil {
		return nil, err
	}
	if budget < 1 {
		return nil, optimization.WrapError(optimization.ErrInvalidBudget, component, "minimize", "budget must be positive")
	}

	result := &optimization.Result{Trials: make([]optimization.Trial, 0, budget)}
	var evalErr error

	eval := func(x []float64) float64 {
		if evalErr != nil || len(result.Trials) >= budget {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			evalErr = err
			return math.Inf(1)
		}

		point := cube.Decode(x)
		start := time.Now()
		loss, err := objective(point)
		if err != nil {
			evalErr = optimization.WrapError(err, component, "objective", "evaluation failed")
			return math.Inf(1)
		}
		result.Record(optimization.PhaseEvolve, point, loss, time.Since(start))
		if math.IsNaN(loss) {
			return math.Inf(1)
		}
		return loss
	}

	if cube.Dims() == 0 {
		eval(nil)
		if evalErr != nil {
			return nil, evalErr
		}
		return result, nil
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = cube.Dims()
	config.NPop = s.population
	config.MaxIterations = generations(budget, s.population)
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(s.seed))

	s.Logger().Debug("Starting mayfly",
		zap.Int("dims", cube.Dims()),
		zap.Int("population", s.population),
		zap.Int("generations", config.MaxIterations),
		zap.Int("budget", budget),
	)

	if _, err := mayfly.Optimize(config); err != nil {
		return nil, optimization.WrapError(err, component, "minimize", "mayfly optimization failed")
	}
	if evalErr != nil {
		return nil, evalErr
	}
	if len(result.Trials) == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptySpace, component, "minimize", "no evaluations performed")
	}
	return result, nil
}

// generations spreads budget over whole populations, at least one.
func generations(budget, population int) int {
	n := (budget + population - 1) / population
	if n < 1 {
		n = 1
	}
	return n
}
