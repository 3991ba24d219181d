package bayesian

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/optimization/acquisition"
	"github.com/copyleftdev/hypertune/internal/optimization/kernels"
	"github.com/copyleftdev/hypertune/internal/searchspace"
)

const component = "bayesian_minimizer"

// Defaults applied by NewMinimizer.
const (
	DefaultCandidates  = 256
	DefaultXi          = 0.01
	DefaultLengthScale = 0.25
	noiseVariance      = 1e-6
)

// Config configures the Bayesian minimizer.
type Config struct {
	optimization.Config

	// Kernel names the covariance function, see kernels.New
	Kernel string
	// Number of Latin hypercube points evaluated before the surrogate is
	// used; zero picks max(2*dims, 5)
	InitialPoints int
	// Random candidates scored per step
	Candidates int
	// Exploration-exploitation trade-off of expected improvement
	Xi float64
}

// Minimizer fits a Gaussian process to every evaluation so far and spends
// the next one where expected improvement peaks. Nested spaces are searched
// on their unit hypercube encoding.
type Minimizer struct {
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger
}

var _ optimization.Minimizer = (*Minimizer)(nil)

// NewMinimizer validates cfg and creates a minimizer.
func NewMinimizer(cfg Config, logger *zap.Logger) (*Minimizer, error) {
	if _, err := kernels.New(cfg.Kernel, DefaultLengthScale, 1); err != nil {
		return nil, optimization.WrapError(err, component, "NewMinimizer", "invalid kernel")
	}
	if cfg.Candidates < 1 {
		cfg.Candidates = DefaultCandidates
	}
	if cfg.Xi <= 0 {
		cfg.Xi = DefaultXi
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Minimizer{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger.Named(component),
	}, nil
}

// run holds the state of one Minimize call.
type run struct {
	ctx       context.Context
	objective optimization.Objective
	cube      *optimization.Cube
	result    *optimization.Result
	xs        [][]float64
	losses    []float64
}

func (r *run) evaluate(phase optimization.Phase, x []float64) error {
	if err := r.ctx.Err(); err != nil {
		return optimization.WrapError(err, component, "Minimize", "optimization cancelled")
	}
	point := r.cube.Decode(x)
	start := time.Now()
	loss, err := r.objective(point)
	if err != nil {
		return optimization.WrapError(err, component, "objective", "evaluation failed")
	}
	r.result.Record(phase, point, loss, time.Since(start))
	r.xs = append(r.xs, x)
	r.losses = append(r.losses, loss)
	return nil
}

// Minimize implements optimization.Minimizer.
func (m *Minimizer) Minimize(ctx context.Context, objective optimization.Objective, budget int, space *searchspace.Space) (*optimization.Result, error) {
	if budget < 1 {
		return nil, optimization.WrapError(optimization.ErrInvalidBudget, component, "Minimize", "budget must be positive")
	}
	cube, err := optimization.NewCube(space)
	if err != nil {
		return nil, err
	}

	r := &run{
		ctx:       ctx,
		objective: objective,
		cube:      cube,
		result:    &optimization.Result{Trials: make([]optimization.Trial, 0, budget)},
	}

	dims := cube.Dims()
	if dims == 0 {
		if err := r.evaluate(optimization.PhaseExplore, nil); err != nil {
			return nil, err
		}
		return r.result, nil
	}

	initial := m.cfg.InitialPoints
	if initial < 1 {
		initial = max(2*dims, 5)
	}
	initial = min(initial, budget)

	m.logger.Debug("Starting Bayesian optimization",
		zap.Int("dims", dims),
		zap.Int("initial_points", initial),
		zap.Int("budget", budget),
		zap.String("kernel", m.cfg.Kernel),
	)

	for _, x := range m.latinHypercube(initial, dims) {
		if err := r.evaluate(optimization.PhaseExplore, x); err != nil {
			return nil, err
		}
	}

	kernel, err := kernels.New(m.cfg.Kernel, DefaultLengthScale*math.Sqrt(float64(dims)), 1)
	if err != nil {
		return nil, optimization.WrapError(err, component, "Minimize", "invalid kernel")
	}
	gp := NewGP(kernel, noiseVariance, m.logger)

	for len(r.result.Trials) < budget {
		next, err := m.propose(gp, r.xs, r.losses, dims)
		if err != nil {
			m.logger.Warn("Surrogate unavailable, sampling at random", zap.Error(err))
			next = m.randomPoint(dims)
		}
		if err := r.evaluate(optimization.PhaseRefine, next); err != nil {
			return nil, err
		}
	}

	m.logger.Debug("Bayesian optimization finished",
		zap.Int("evaluations", len(r.result.Trials)),
		zap.Float64("best_loss", r.result.Loss),
	)
	return r.result, nil
}

// propose fits gp to the observations and returns the point with the highest
// expected improvement among random candidates, perturbations of the
// incumbent and a Nelder-Mead polish of the best of them.
func (m *Minimizer) propose(gp *GP, xs [][]float64, losses []float64, dims int) ([]float64, error) {
	targets, best := finiteTargets(losses)
	if err := gp.Fit(xs, targets); err != nil {
		return nil, err
	}

	ei := acquisition.NewExpectedImprovement(targets[best], m.cfg.Xi)
	score := func(x []float64) float64 {
		mu, sigma, err := gp.Predict(x)
		if err != nil {
			return 0
		}
		return ei.Compute(mu, sigma)
	}

	var bestX []float64
	bestEI := -1.0
	consider := func(x []float64) {
		if v := score(x); v > bestEI {
			bestX, bestEI = x, v
		}
	}
	for i := 0; i < m.cfg.Candidates; i++ {
		if i%4 == 3 {
			consider(m.perturb(xs[best], 0.1))
			continue
		}
		consider(m.randomPoint(dims))
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -score(clampUnit(x))
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: 50 * dims,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 20,
		},
	}
	method := &optimize.NelderMead{SimplexSize: 0.05}
	if res, err := optimize.Minimize(problem, bestX, settings, method); err == nil && -res.F > bestEI {
		bestX = clampUnit(res.X)
	}

	// Flat acquisition means the surrogate has nothing to say.
	if bestEI <= 0 {
		return m.randomPoint(dims), nil
	}
	return bestX, nil
}

// finiteTargets replaces non-finite losses with the worst finite one and
// returns the index of the lowest.
func finiteTargets(losses []float64) ([]float64, int) {
	worst := math.Inf(-1)
	for _, v := range losses {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > worst {
			worst = v
		}
	}
	if math.IsInf(worst, -1) {
		worst = 0
	}

	targets := make([]float64, len(losses))
	best := 0
	for i, v := range losses {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = worst
		}
		targets[i] = v
		if v < targets[best] {
			best = i
		}
	}
	return targets, best
}

// latinHypercube draws n stratified points in [0, 1]^dims.
func (m *Minimizer) latinHypercube(n, dims int) [][]float64 {
	samples := make([][]float64, n)
	for j := range samples {
		samples[j] = make([]float64, dims)
	}
	strata := make([]float64, n)
	for i := 0; i < dims; i++ {
		for j := range strata {
			strata[j] = (float64(j) + m.rng.Float64()) / float64(n)
		}
		m.rng.Shuffle(n, func(a, b int) {
			strata[a], strata[b] = strata[b], strata[a]
		})
		for j := range samples {
			samples[j][i] = strata[j]
		}
	}
	return samples
}

func (m *Minimizer) randomPoint(dims int) []float64 {
	x := make([]float64, dims)
	for i := range x {
		x[i] = m.rng.Float64()
	}
	return x
}

func (m *Minimizer) perturb(x []float64, scale float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v + m.rng.NormFloat64()*scale
	}
	return clampUnit(out)
}

func clampUnit(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(0, math.Min(v, 1))
	}
	return out
}
