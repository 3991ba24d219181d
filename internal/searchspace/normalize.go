package searchspace

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
)

const component = "searchspace"

// Normalizer converts hyperparameter specifications into search spaces.
// It holds no state besides its logger.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer. A nil logger disables logging.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger.Named(component)}
}

// Normalize is a shorthand for NewNormalizer(logger).Normalize(spec).
func Normalize(spec *hyperparam.Spec, logger *zap.Logger) (*Space, error) {
	return NewNormalizer(logger).Normalize(spec)
}

// Split partitions the entries into categorical and uniform groups, in spec
// order. Domains other than uniform and categorical are routed to the
// uniform group with a warning.
func (n *Normalizer) Split(spec *hyperparam.Spec) (categorical, uniform []hyperparam.Entry) {
	for _, e := range spec.Entries() {
		switch e.Domain {
		case hyperparam.DomainCategorical:
			categorical = append(categorical, e)
		case hyperparam.DomainUniform:
			uniform = append(uniform, e)
		default:
			n.logger.Warn("Domain not supported, treating as uniform; only uniform and categorical domains are supported",
				zap.String("kind", string(errors.KindUnsupportedDomain)),
				zap.String("param", e.Name),
				zap.String("domain", string(e.Domain)),
			)
			uniform = append(uniform, e)
		}
	}
	return categorical, uniform
}

// UniformBounds takes [low, high] from the first two data elements of every
// entry, discarding a third step element. Any other data length, or a
// non-numeric bound, is a precondition violation.
func (n *Normalizer) UniformBounds(uniform []hyperparam.Entry) ([]Bound, error) {
	const op = "UniformBounds"

	bounds := make([]Bound, 0, len(uniform))
	for _, e := range uniform {
		if len(e.Data) != 2 && len(e.Data) != 3 {
			err := errors.Errorf(errors.KindPrecondition,
				"precondition violation, search space needs a list with left and right range bounds, got %d elements", len(e.Data)).
				WithOperation(op).
				WithComponent(component).
				WithParam(e.Name, e.Data)
			n.logger.Error("Invalid uniform bounds",
				zap.String("param", e.Name),
				zap.Any("data", e.Data),
				zap.Error(err),
			)
			return nil, err
		}

		low, okLow := hyperparam.ToFloat(e.Data[0])
		high, okHigh := hyperparam.ToFloat(e.Data[1])
		if !okLow || !okHigh {
			err := errors.New(errors.KindPrecondition, "precondition violation, range bounds must be numeric").
				WithOperation(op).
				WithComponent(component).
				WithParam(e.Name, e.Data)
			n.logger.Error("Invalid uniform bounds",
				zap.String("param", e.Name),
				zap.Any("data", e.Data),
				zap.Error(err),
			)
			return nil, err
		}

		bounds = append(bounds, Bound{Name: e.Name, Bounds: Bounds{Low: low, High: high}})
	}
	return bounds, nil
}

// Normalize builds the search space for spec. Without categorical entries
// the result is the flat uniform leaf. Otherwise every categorical entry, in
// spec order, wraps the space built so far: each of its values maps to the
// current inner node. The last categorical entry ends up outermost.
func (n *Normalizer) Normalize(spec *hyperparam.Spec) (*Space, error) {
	n.logger.Debug("Converting hyperparameters", zap.Strings("params", spec.Names()))

	categorical, uniform := n.Split(spec)

	bounds, err := n.UniformBounds(uniform)
	if err != nil {
		return nil, err
	}

	inner := NewLeaf(bounds)
	if len(categorical) == 0 {
		return inner, nil
	}

	for _, e := range categorical {
		choices := make([]Choice, 0, len(e.Data))
		for _, v := range e.Data {
			if !hashable(v) {
				err := errors.Errorf(errors.KindPrecondition, "precondition violation, categorical value of type %T cannot be used as a choice", v).
					WithOperation("Normalize").
					WithComponent(component).
					WithParam(e.Name, v)
				n.logger.Error("Invalid categorical value", zap.String("param", e.Name), zap.Any("value", v))
				return nil, err
			}
			if containsValue(choices, v) {
				continue
			}
			choices = append(choices, Choice{Value: v, Next: inner})
		}
		if len(choices) == 0 {
			n.logger.Warn("Categorical parameter has no values", zap.String("param", e.Name))
		}
		inner = NewBranch(e.Name, choices)
	}

	n.logger.Debug("Converted search space",
		zap.Int("categorical", len(categorical)),
		zap.Int("uniform", len(bounds)),
	)
	return inner, nil
}

func containsValue(choices []Choice, v interface{}) bool {
	for _, c := range choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

func hashable(v interface{}) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}
