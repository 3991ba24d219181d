// Package solver defines the lifecycle every optimizer backend adapter
// implements, plus the pieces shared between adapters: loss wrapping, result
// conversion, a backend registry and a driver for the full lifecycle.
package solver

import (
	"context"

	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/metrics"
	"github.com/copyleftdev/hypertune/internal/searchspace"
)

// DefaultMaxIterations is the evaluation budget when none is configured.
const DefaultMaxIterations = 50

// Params holds loss function arguments keyed by parameter name.
type Params map[string]interface{}

// LossFunc is a user loss. data is whatever was passed to SetData.
type LossFunc func(data interface{}, params Params) (float64, error)

// Solver is the capability set of an optimizer backend adapter.
//
// The expected call order is SetData, SetLossFunction, ConvertParameter,
// ExecuteSolver (or Run) and ConvertResults (or GetResults). An instance
// serves one caller at a time.
type Solver interface {
	// SetData stores the domain data handed to the loss function.
	SetData(data interface{})

	// SetLossFunction stores the user loss.
	SetLossFunction(fn LossFunc)

	// ConvertParameter builds the solution space from spec.
	ConvertParameter(spec *hyperparam.Spec) error

	// ExecuteSolver runs the backend optimizer over space.
	ExecuteSolver(ctx context.Context, space *searchspace.Space) error

	// ConvertResults maps the best point back to the declared names and types.
	ConvertResults() (*Solution, error)

	// Run executes the solver over its converted solution space.
	Run(ctx context.Context) error

	// GetResults is ConvertResults.
	GetResults() (*Solution, error)

	// Name returns the solver identifier.
	Name() string

	// SetName sets the identifier; value must be a string.
	SetName(value interface{}) error

	// SolutionSpace returns the space built by ConvertParameter.
	SolutionSpace() *searchspace.Space

	// SetMaxIterations sets the loss evaluation budget.
	SetMaxIterations(n int)
}

// Options configure a backend adapter.
type Options struct {
	// Maximum number of loss evaluations
	MaxIterations int

	// Random seed for reproducibility; zero picks a time based seed
	Seed int64

	// Population size for population based backends
	PopulationSize int

	// Covariance kernel and initial design size for surrogate based backends
	Kernel        string
	InitialPoints int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}
