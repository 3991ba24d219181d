package solver

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/optimization"
)

// Value is one named parameter value of a solution.
type Value struct {
	Name  string
	Value interface{}
}

// Solution is the best point found by a run in caller-facing form.
type Solution struct {
	Solver string
	// Params follow the declaration order of the hyperparameter spec
	Params []Value
	Loss   float64
	Trials int
	// Summary of all finite trial losses
	MeanLoss   float64
	StdDevLoss float64
	// Raw trial records as produced by the optimizer
	History []optimization.Trial
}

// Get returns the value of a parameter.
func (s *Solution) Get(name string) (interface{}, bool) {
	for _, v := range s.Params {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// Map returns the parameters as a plain map.
func (s *Solution) Map() Params {
	m := make(Params, len(s.Params))
	for _, v := range s.Params {
		m[v.Name] = v.Value
	}
	return m
}

// MarshalJSON renders params in declaration order. Non-finite numbers become null.
func (s *Solution) MarshalJSON() ([]byte, error) {
	var params bytes.Buffer
	params.WriteByte('{')
	for i, v := range s.Params {
		if i > 0 {
			params.WriteByte(',')
		}
		k, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		params.Write(k)
		params.WriteByte(':')
		params.Write(val)
	}
	params.WriteByte('}')

	return json.Marshal(struct {
		Solver     string          `json:"solver"`
		Params     json.RawMessage `json:"params"`
		Loss       *float64        `json:"loss"`
		Trials     int             `json:"trials"`
		MeanLoss   *float64        `json:"loss_mean"`
		StdDevLoss *float64        `json:"loss_stddev"`
	}{
		Solver:     s.Solver,
		Params:     params.Bytes(),
		Loss:       finite(s.Loss),
		Trials:     s.Trials,
		MeanLoss:   finite(s.MeanLoss),
		StdDevLoss: finite(s.StdDevLoss),
	})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// NewSolution converts an optimizer result into a Solution. Every parameter
// of spec present in the best point is coerced to its declared type.
func NewSolution(solver string, spec *hyperparam.Spec, result *optimization.Result) (*Solution, error) {
	sol := &Solution{
		Solver:  solver,
		Params:  make([]Value, 0, spec.Len()),
		Loss:    result.Loss,
		Trials:  len(result.Trials),
		History: result.Trials,
	}

	entries := spec.Entries()
	if len(entries) == 0 {
		// No declared types: report the raw point by name.
		for name := range result.Best {
			entries = append(entries, hyperparam.Entry{Name: name})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}

	for _, e := range entries {
		raw, ok := result.Best[e.Name]
		if !ok {
			continue
		}
		v, err := e.Type.Coerce(raw)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindTypeMismatch, "convert result").WithOperation("ConvertResults").WithParam(e.Name, raw)
		}
		sol.Params = append(sol.Params, Value{Name: e.Name, Value: v})
	}

	losses := make([]float64, 0, len(result.Trials))
	for _, t := range result.Trials {
		if !math.IsNaN(t.Loss) && !math.IsInf(t.Loss, 0) {
			losses = append(losses, t.Loss)
		}
	}
	switch len(losses) {
	case 0:
		sol.MeanLoss = math.NaN()
		sol.StdDevLoss = math.NaN()
	case 1:
		sol.MeanLoss = losses[0]
	default:
		sol.MeanLoss, sol.StdDevLoss = stat.MeanStdDev(losses, nil)
	}

	return sol, nil
}
