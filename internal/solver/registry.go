package solver

import (
	"context"
	"sort"
	"sync"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
)

// Factory creates a fresh adapter instance.
type Factory func(opts Options) Solver

// Registry maps backend names to factories with thread-safe access.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a backend under name.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return errors.New(errors.KindInvalidInput, "solver registration needs a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Errorf(errors.KindInvalidInput, "solver %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// New creates a new instance of the named backend.
func (r *Registry) New(name string, opts Options) (Solver, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Errorf(errors.KindNotFound, "unknown solver %q", name)
	}
	return factory(opts), nil
}

// List returns all registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.factories))
	for name := range r.factories {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Solve drives s through its whole lifecycle for project: set data and
// loss, convert the hyperparameters, run and convert the results. A
// positive project budget overrides the solver's own.
func Solve(ctx context.Context, s Solver, project *hyperparam.Project, data interface{}, loss LossFunc) (*Solution, error) {
	if err := project.Validate(); err != nil {
		return nil, err
	}

	s.SetData(data)
	s.SetLossFunction(loss)
	if project.MaxIterations > 0 {
		s.SetMaxIterations(project.MaxIterations)
	}

	if err := s.ConvertParameter(project.Hyperparameter); err != nil {
		return nil, err
	}
	if err := s.Run(ctx); err != nil {
		return nil, err
	}
	return s.GetResults()
}
