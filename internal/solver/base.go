package solver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/metrics"
	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/searchspace"
)

// MinimizeFunc runs a backend optimizer against objective.
type MinimizeFunc func(ctx context.Context, objective optimization.Objective) (*optimization.Result, error)

// Base carries the state and behaviour shared by all adapters. Adapters embed
// it and supply ExecuteSolver, Run and GetResults.
type Base struct {
	name          string
	data          interface{}
	loss          LossFunc
	spec          *hyperparam.Spec
	space         *searchspace.Space
	result        *optimization.Result
	maxIterations int

	normalizer *searchspace.Normalizer
	root       *zap.Logger
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewBase initializes a Base named name.
func NewBase(name string, opts Options) Base {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxIterations := opts.MaxIterations
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}

	return Base{
		name:          name,
		maxIterations: maxIterations,
		normalizer:    searchspace.NewNormalizer(logger),
		root:          logger,
		logger:        logger.Named("solver").With(zap.String("solver", name)),
		metrics:       opts.Metrics,
	}
}

// SetData stores the domain data handed to the loss function.
func (b *Base) SetData(data interface{}) {
	b.data = data
}

// Data returns the stored domain data.
func (b *Base) Data() interface{} {
	return b.data
}

// SetLossFunction stores the user loss.
func (b *Base) SetLossFunction(fn LossFunc) {
	b.loss = fn
}

// Name returns the solver identifier.
func (b *Base) Name() string {
	return b.name
}

// SetName sets the identifier. Non-string values are rejected with a type
// mismatch error and the name is left unchanged.
func (b *Base) SetName(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		err := errors.Errorf(errors.KindTypeMismatch, "invalid input, str type expected for value, got %T instead", value).
			WithOperation("SetName").
			WithComponent(b.name)
		b.logger.Error("Invalid solver name", zap.String("type", fmt.Sprintf("%T", value)), zap.Error(err))
		return err
	}
	b.name = s
	b.logger = b.root.Named("solver").With(zap.String("solver", s))
	return nil
}

// SolutionSpace returns the space built by ConvertParameter.
func (b *Base) SolutionSpace() *searchspace.Space {
	return b.space
}

// MaxIterations returns the loss evaluation budget.
func (b *Base) MaxIterations() int {
	return b.maxIterations
}

// SetMaxIterations sets the loss evaluation budget. Values below one are ignored.
func (b *Base) SetMaxIterations(n int) {
	if n > 0 {
		b.maxIterations = n
	}
}

// Logger returns the solver's logger.
func (b *Base) Logger() *zap.Logger {
	return b.logger
}

// ConvertParameter normalizes spec into the solution space. On error the
// previous space is discarded and none is stored.
func (b *Base) ConvertParameter(spec *hyperparam.Spec) error {
	b.space = nil
	b.result = nil

	space, err := b.normalizer.Normalize(spec)
	if err != nil {
		b.metrics.ObserveConversion(metrics.StatusFailed)
		return err
	}
	b.metrics.ObserveConversion(metrics.StatusSucceeded)

	b.spec = spec
	b.space = space
	return nil
}

// Execute wraps the loss, runs minimize and stores its result. Errors and
// panics raised by the optimizer come back as a single optimizer failure
// that carries the original message.
func (b *Base) Execute(ctx context.Context, space *searchspace.Space, minimize MinimizeFunc) error {
	const op = "ExecuteSolver"

	if b.loss == nil {
		return errors.New(errors.KindPrecondition, "precondition violation, no loss function set").WithOperation(op).WithComponent(b.name)
	}
	if space == nil {
		return errors.New(errors.KindPrecondition, "precondition violation, no solution space; call ConvertParameter first").WithOperation(op).WithComponent(b.name)
	}

	b.result = nil
	evaluations := 0
	wrapped := WrapLoss(b.loss, b.data, b.spec)
	objective := func(p optimization.Point) (float64, error) {
		evaluations++
		return wrapped(p)
	}

	b.logger.Debug("Executing solver",
		zap.Int("max_iterations", b.maxIterations),
		zap.Any("search_space", space),
	)

	start := time.Now()
	result, err := runGuarded(ctx, minimize, objective)
	took := time.Since(start)
	b.metrics.AddEvaluations(b.name, evaluations)

	if err == nil && result == nil {
		err = fmt.Errorf("optimizer returned no result")
	}
	if err != nil {
		b.metrics.ObserveRun(b.name, metrics.StatusFailed, took)
		failure := errors.Wrapf(err, errors.KindOptimizerFailure, "internal error in %s optimizer occurred", b.name).
			WithOperation(op).
			WithComponent(b.name)
		b.logger.Error("Optimizer failed",
			zap.Int("evaluations", evaluations),
			zap.Duration("elapsed", took),
			zap.Error(err),
		)
		return failure
	}

	b.metrics.ObserveRun(b.name, metrics.StatusSucceeded, took)
	b.result = result
	b.logger.Info("Solver finished",
		zap.Int("evaluations", evaluations),
		zap.Float64("best_loss", result.Loss),
		zap.Duration("elapsed", took),
	)
	return nil
}

// runGuarded calls minimize and turns a panic into an error.
func runGuarded(ctx context.Context, minimize MinimizeFunc, objective optimization.Objective) (result *optimization.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return minimize(ctx, objective)
}

// Result returns the raw optimizer result of the last successful execution.
func (b *Base) Result() *optimization.Result {
	return b.result
}

// ConvertResults maps the best point back to the declared parameter names
// and types.
func (b *Base) ConvertResults() (*Solution, error) {
	if b.result == nil {
		return nil, errors.New(errors.KindPrecondition, "precondition violation, no result available; run the solver first").
			WithOperation("ConvertResults").
			WithComponent(b.name)
	}
	sol, err := NewSolution(b.name, b.spec, b.result)
	if err != nil {
		b.logger.Error("Result conversion failed", zap.Error(err))
		return nil, err
	}
	return sol, nil
}
