// Package structured implements a black-box minimizer over tree-shaped
// search spaces: random exploration across categorical branches followed by
// Nelder-Mead refinement of the most promising branch.
package structured

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/searchspace"
)

const component = "structured_minimizer"

// DefaultExploreFraction is the share of the budget spent on random sampling.
const DefaultExploreFraction = 2.0 / 3.0

// Minimizer implements optimization.Minimizer for nested search spaces.
// A Minimizer is not safe for concurrent use.
type Minimizer struct {
	config optimization.Config
	rng    *rand.Rand
	logger *zap.Logger
}

// NewMinimizer creates a Minimizer. A nil logger disables logging.
func NewMinimizer(config optimization.Config, logger *zap.Logger) *Minimizer {
	if config.ExploreFraction <= 0 || config.ExploreFraction > 1 {
		config.ExploreFraction = DefaultExploreFraction
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Minimizer{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger.Named(component),
	}
}

// evalFunc evaluates and records one point.
type evalFunc func(phase optimization.Phase, point optimization.Point) (float64, error)

// Minimize runs at most budget evaluations of objective over space.
func (m *Minimizer) Minimize(ctx context.Context, objective optimization.Objective, budget int, space *searchspace.Space) (*optimization.Result, error) {
	const op = "Minimize"

	if budget < 1 {
		return nil, optimization.WrapError(optimization.ErrInvalidBudget, component, op, fmt.Sprintf("budget %d", budget))
	}
	if space == nil {
		return nil, optimization.WrapError(optimization.ErrEmptySpace, component, op, "nil search space")
	}
	leaves := space.Leaves()
	if len(leaves) == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptySpace, component, op, "no categorical path reaches a leaf")
	}

	// Without continuous dimensions every leaf is a single point.
	continuous := false
	for _, l := range leaves {
		if len(l.Bounds) > 0 {
			continuous = true
			break
		}
	}
	if !continuous && budget > len(leaves) {
		budget = len(leaves)
	}

	m.logger.Debug("Starting minimization",
		zap.Int("budget", budget),
		zap.Int("leaves", len(leaves)),
	)

	result := &optimization.Result{Trials: make([]optimization.Trial, 0, budget)}
	eval := func(phase optimization.Phase, point optimization.Point) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		start := time.Now()
		loss, err := objective(point)
		if err != nil {
			return 0, optimization.WrapError(err, component, "objective", fmt.Sprintf("evaluation %d failed", len(result.Trials)))
		}
		result.Record(phase, point, loss, time.Since(start))
		return loss, nil
	}

	explore := int(math.Ceil(float64(budget) * m.config.ExploreFraction))
	if !continuous || explore > budget {
		explore = budget
	}

	bestLeaf, err := m.explore(eval, leaves, explore, -1)
	if err != nil {
		return nil, err
	}

	if remaining := budget - len(result.Trials); remaining > 0 && len(leaves[bestLeaf].Bounds) > 0 {
		if err := m.refine(eval, leaves[bestLeaf], result.Best, remaining); err != nil {
			return nil, err
		}
	}

	// Refinement may converge early; spend what is left exploring.
	if remaining := budget - len(result.Trials); remaining > 0 {
		if _, err := m.explore(eval, leaves, remaining, bestLeaf); err != nil {
			return nil, err
		}
	}

	m.logger.Debug("Finished minimization",
		zap.Int("evaluations", len(result.Trials)),
		zap.Float64("best_loss", result.Loss),
	)

	return result, nil
}

// explore samples n random points. The first pass visits every leaf once in
// random order so each categorical combination is seen. It returns the leaf
// of the best point found in this pass, or fallback when n is zero.
func (m *Minimizer) explore(eval evalFunc, leaves []searchspace.Leaf, n, fallback int) (int, error) {
	order := m.rng.Perm(len(leaves))
	best, bestLoss := fallback, math.Inf(1)

	for i := 0; i < n; i++ {
		idx := m.rng.Intn(len(leaves))
		if i < len(order) {
			idx = order[i]
		}

		loss, err := eval(optimization.PhaseExplore, m.sample(leaves[idx]))
		if err != nil {
			return 0, err
		}
		if best < 0 || loss < bestLoss {
			best, bestLoss = idx, loss
		}
	}
	return best, nil
}

// sample draws a uniformly random point from leaf.
func (m *Minimizer) sample(leaf searchspace.Leaf) optimization.Point {
	point := make(optimization.Point, len(leaf.Assignments)+len(leaf.Bounds))
	for _, a := range leaf.Assignments {
		point[a.Param] = a.Value
	}
	for _, b := range leaf.Bounds {
		point[b.Name] = b.Low + m.rng.Float64()*(b.High-b.Low)
	}
	return point
}

// refine runs Nelder-Mead over the unit cube of leaf's ranges, starting from
// start, using at most remaining evaluations.
func (m *Minimizer) refine(eval evalFunc, leaf searchspace.Leaf, start optimization.Point, remaining int) error {
	dims := len(leaf.Bounds)

	x0 := make([]float64, dims)
	for i, b := range leaf.Bounds {
		v, _ := hyperparam.ToFloat(start[b.Name])
		if width := b.High - b.Low; width != 0 {
			x0[i] = clamp((v-b.Low)/width, 0, 1)
		}
	}

	var evalErr error
	used := 0

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			if evalErr != nil || used >= remaining {
				return math.Inf(1)
			}
			used++

			point := make(optimization.Point, len(leaf.Assignments)+dims)
			for _, a := range leaf.Assignments {
				point[a.Param] = a.Value
			}
			for i, b := range leaf.Bounds {
				point[b.Name] = b.Low + clamp(u[i], 0, 1)*(b.High-b.Low)
			}

			loss, err := eval(optimization.PhaseRefine, point)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return loss
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: remaining,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Relative:   1e-9,
			Iterations: 50,
		},
	}

	method := &optimize.NelderMead{
		Reflection:  1.0,
		Expansion:   2.0,
		Contraction: 0.5,
		Shrink:      0.5,
		SimplexSize: 0.1,
	}

	_, err := optimize.Minimize(problem, x0, settings, method)
	if evalErr != nil {
		return evalErr
	}
	if err != nil {
		m.logger.Debug("Refinement stopped", zap.Error(err), zap.Int("evaluations", used))
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
