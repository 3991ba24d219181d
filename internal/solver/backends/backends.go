// Package backends registers every built-in solver backend.
package backends

import (
	"github.com/copyleftdev/hypertune/internal/solver"
	"github.com/copyleftdev/hypertune/internal/solver/bayesian"
	"github.com/copyleftdev/hypertune/internal/solver/mayfly"
	"github.com/copyleftdev/hypertune/internal/solver/structured"
)

// Default is the backend used when a project names none.
const Default = structured.Name

// Register adds the built-in backends to r.
func Register(r *solver.Registry) error {
	if err := r.Register(structured.Name, structured.New); err != nil {
		return err
	}
	if err := r.Register(mayfly.Name, mayfly.New); err != nil {
		return err
	}
	return r.Register(bayesian.Name, bayesian.New)
}

// NewRegistry returns a registry holding the built-in backends.
func NewRegistry() *solver.Registry {
	r := solver.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}
