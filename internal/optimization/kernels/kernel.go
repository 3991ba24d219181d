// Package kernels provides covariance functions for Gaussian process
// surrogates over the unit hypercube.
package kernels

import (
	"fmt"
	"math"
	"strings"
)

// Kernel is a stationary covariance function.
type Kernel interface {
	// Eval computes the covariance between x1 and x2
	Eval(x1, x2 []float64) float64

	// Hyperparameters returns length scale and signal variance
	Hyperparameters() []float64

	// SetHyperparameters replaces length scale and signal variance
	SetHyperparameters(params []float64) error
}

// Kernel names accepted by New.
const (
	NameRBF      = "rbf"
	NameMatern52 = "matern52"
)

// New creates the kernel called name.
func New(name string, lengthScale, signalVar float64) (Kernel, error) {
	s, err := newStationary(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(name) {
	case NameRBF:
		return &RBFKernel{s}, nil
	case NameMatern52, "":
		return &Matern52Kernel{s}, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

// stationary holds the hyperparameters shared by both kernels.
type stationary struct {
	// Length scale (larger = smoother function)
	lengthScale float64
	// Signal variance (amplitude of the function)
	signalVar float64
}

func newStationary(lengthScale, signalVar float64) (stationary, error) {
	if lengthScale <= 0 || signalVar <= 0 {
		return stationary{}, fmt.Errorf("kernel hyperparameters must be positive, got length scale %v and signal variance %v", lengthScale, signalVar)
	}
	return stationary{lengthScale: lengthScale, signalVar: signalVar}, nil
}

func (s *stationary) Hyperparameters() []float64 {
	return []float64{s.lengthScale, s.signalVar}
}

func (s *stationary) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(params))
	}
	next, err := newStationary(params[0], params[1])
	if err != nil {
		return err
	}
	*s = next
	return nil
}

func sqDist(x1, x2 []float64) float64 {
	var sum float64
	for i := range x1 {
		d := x1[i] - x2[i]
		sum += d * d
	}
	return sum
}

// RBFKernel is the squared exponential kernel.
type RBFKernel struct {
	stationary
}

// NewRBFKernel creates an RBF kernel. It panics on non-positive parameters.
func NewRBFKernel(lengthScale, signalVar float64) *RBFKernel {
	s, err := newStationary(lengthScale, signalVar)
	if err != nil {
		panic(err)
	}
	return &RBFKernel{s}
}

// Eval computes the RBF kernel value between x1 and x2
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	r2 := sqDist(x1, x2) / (2 * k.lengthScale * k.lengthScale)
	return k.signalVar * math.Exp(-r2)
}

// Matern52Kernel is the Matérn 5/2 kernel, twice differentiable and less
// smooth than RBF.
type Matern52Kernel struct {
	stationary
}

// NewMatern52Kernel creates a Matérn 5/2 kernel. It panics on non-positive
// parameters.
func NewMatern52Kernel(lengthScale, signalVar float64) *Matern52Kernel {
	s, err := newStationary(lengthScale, signalVar)
	if err != nil {
		panic(err)
	}
	return &Matern52Kernel{s}
}

// Eval computes the Matérn 5/2 kernel value between x1 and x2
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(5*sqDist(x1, x2)) / k.lengthScale
	return k.signalVar * (1 + r + r*r/3) * math.Exp(-r)
}
