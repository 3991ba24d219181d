package optimization

import (
	"context"
	"math"
	"time"

	"github.com/copyleftdev/hypertune/internal/searchspace"
)

// Minimizer defines the interface for black-box optimization algorithms
type Minimizer interface {
	// Minimize evaluates objective at most budget times over space and
	// returns the best point found together with every trial.
	Minimize(ctx context.Context, objective Objective, budget int, space *searchspace.Space) (*Result, error)
}

// Config contains configuration shared by minimizers
type Config struct {
	// Random seed for reproducibility; zero picks a time based seed
	RandomSeed int64

	// Fraction of the budget spent on random exploration before refinement
	ExploreFraction float64
}

// Objective defines the function to be minimized
type Objective func(Point) (float64, error)

// Point assigns a backend-native value to every parameter name
type Point map[string]interface{}

// Clone returns a shallow copy of p
func (p Point) Clone() Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Phase tags which stage of a minimizer produced a trial
type Phase string

const (
	PhaseExplore Phase = "explore"
	PhaseRefine  Phase = "refine"
	PhaseEvolve  Phase = "evolve"
)

// Trial represents a single evaluation of the objective function
type Trial struct {
	Iteration int           `json:"iteration"`
	Phase     Phase         `json:"phase"`
	Point     Point         `json:"point"`
	Loss      float64       `json:"loss"`
	Duration  time.Duration `json:"duration"`
}

// Result contains the outcome of a minimization run
type Result struct {
	Best   Point
	Loss   float64
	Trials []Trial
}

// Record appends a trial and updates the best point if it improved.
// A NaN loss never replaces a previous best.
func (r *Result) Record(phase Phase, point Point, loss float64, took time.Duration) {
	r.Trials = append(r.Trials, Trial{
		Iteration: len(r.Trials),
		Phase:     phase,
		Point:     point,
		Loss:      loss,
		Duration:  took,
	})
	if r.Best == nil || loss < r.Loss || (math.IsNaN(r.Loss) && !math.IsNaN(loss)) {
		r.Best = point.Clone()
		r.Loss = loss
	}
}
