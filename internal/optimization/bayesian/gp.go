// Package bayesian implements a Gaussian process surrogate and a minimizer
// that places each evaluation where expected improvement is highest.
package bayesian

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/hypertune/internal/optimization"
	"github.com/copyleftdev/hypertune/internal/optimization/kernels"
)

const gpComponent = "gaussian_process"

// maxJitterAttempts bounds the diagonal jitter retries in Fit.
const maxJitterAttempts = 8

// GP is a zero-mean Gaussian process over standardized targets.
type GP struct {
	kernel   kernels.Kernel
	noiseVar float64

	// Training data
	x [][]float64
	// Target standardization
	yMean, yStd float64

	alpha *mat.VecDense
	chol  *mat.Cholesky

	logger *zap.Logger
}

// NewGP creates a Gaussian process with the given kernel and observation
// noise variance. A nil logger disables logging.
func NewGP(kernel kernels.Kernel, noiseVar float64, logger *zap.Logger) *GP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		logger:   logger.Named(gpComponent),
	}
}

// Fit conditions the process on the observations (x[i], y[i]). Jitter is
// added to the kernel diagonal until the Cholesky factorization succeeds.
func (gp *GP) Fit(x [][]float64, y []float64) error {
	const op = "Fit"

	n := len(x)
	switch {
	case n == 0:
		return optimization.WrapError(errors.New("no training data"), gpComponent, op, "cannot fit")
	case n != len(y):
		return optimization.WrapError(fmt.Errorf("%d points but %d targets", n, len(y)), gpComponent, op, "dimension mismatch")
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return optimization.WrapError(fmt.Errorf("target %v", v), gpComponent, op, "targets must be finite")
		}
	}

	mean, std := stat.MeanStdDev(y, nil)
	if n < 2 || std == 0 || math.IsNaN(std) {
		std = 1
	}
	targets := mat.NewVecDense(n, nil)
	for i, v := range y {
		targets.SetVec(i, (v-mean)/std)
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k.SetSym(i, j, gp.kernel.Eval(x[i], x[j]))
		}
	}

	jitter := 1e-10
	var chol mat.Cholesky
	ok := false
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		noisy := mat.NewSymDense(n, nil)
		noisy.CopySym(k)
		for i := 0; i < n; i++ {
			noisy.SetSym(i, i, k.At(i, i)+gp.noiseVar+jitter)
		}
		if ok = chol.Factorize(noisy); ok {
			break
		}
		gp.logger.Debug("Cholesky factorization failed, increasing jitter",
			zap.Int("attempt", attempt+1),
			zap.Float64("jitter", jitter),
		)
		jitter *= 10
	}
	if !ok {
		return optimization.WrapError(errors.New("kernel matrix is not positive definite"), gpComponent, op, "cholesky factorization failed")
	}

	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, targets); err != nil {
		return optimization.WrapError(err, gpComponent, op, "failed to solve linear system")
	}

	gp.x = x
	gp.yMean, gp.yStd = mean, std
	gp.alpha = alpha
	gp.chol = &chol

	gp.logger.Debug("Fitted GP model",
		zap.Int("samples", n),
		zap.Float64("jitter", jitter),
	)
	return nil
}

// Predict returns the posterior mean and standard deviation at x in the
// units of the training targets.
func (gp *GP) Predict(x []float64) (mu, sigma float64, err error) {
	if gp.alpha == nil {
		return 0, 0, optimization.WrapError(errors.New("model not trained"), gpComponent, "Predict", "cannot predict")
	}

	n := len(gp.x)
	kStar := mat.NewVecDense(n, nil)
	for i, xi := range gp.x {
		kStar.SetVec(i, gp.kernel.Eval(x, xi))
	}

	v := mat.NewVecDense(n, nil)
	if err := gp.chol.SolveVecTo(v, kStar); err != nil {
		return 0, 0, optimization.WrapError(err, gpComponent, "Predict", "failed to solve linear system")
	}

	mean := mat.Dot(kStar, gp.alpha)
	variance := math.Max(gp.kernel.Eval(x, x)-mat.Dot(kStar, v), 0)

	return gp.yMean + mean*gp.yStd, math.Sqrt(variance) * gp.yStd, nil
}
