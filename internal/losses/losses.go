// Package losses provides named benchmark loss functions for the CLI and
// the service, where callers cannot ship their own code.
package losses

import (
	"hash/fnv"
	"sort"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/solver"
)

const (
	Sphere            = "sphere"
	Rosenbrock        = "rosenbrock"
	CategoricalSphere = "categorical-sphere"
)

var builtin = map[string]solver.LossFunc{
	Sphere:            sphere,
	Rosenbrock:        rosenbrock,
	CategoricalSphere: categoricalSphere,
}

// Lookup returns the loss registered under name.
func Lookup(name string) (solver.LossFunc, error) {
	fn, ok := builtin[name]
	if !ok {
		return nil, errors.Errorf(errors.KindNotFound, "unknown loss %q", name)
	}
	return fn, nil
}

// Names lists the builtin losses, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// numeric returns the numeric parameter values ordered by name. Booleans and
// strings are skipped.
func numeric(p solver.Params) []float64 {
	names := make([]string, 0, len(p))
	for name, v := range p {
		if _, isBool := v.(bool); isBool {
			continue
		}
		if _, ok := hyperparam.ToFloat(v); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	xs := make([]float64, len(names))
	for i, name := range names {
		xs[i], _ = hyperparam.ToFloat(p[name])
	}
	return xs
}

func sphere(_ interface{}, p solver.Params) (float64, error) {
	var sum float64
	for _, x := range numeric(p) {
		sum += x * x
	}
	return sum, nil
}

// rosenbrock is the generalized Rosenbrock function, minimum 0 at all ones.
func rosenbrock(_ interface{}, p solver.Params) (float64, error) {
	xs := numeric(p)
	var sum float64
	for i := 0; i+1 < len(xs); i++ {
		a := xs[i+1] - xs[i]*xs[i]
		b := 1 - xs[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}

// categoricalSphere adds a fixed offset in [0, 1) per string value to the
// sphere, so categorical choices differ in quality.
func categoricalSphere(data interface{}, p solver.Params) (float64, error) {
	sum, _ := sphere(data, p)
	for _, v := range p {
		if s, ok := v.(string); ok {
			sum += offset(s)
		}
	}
	return sum, nil
}

func offset(s string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum32()%100) / 100
}
