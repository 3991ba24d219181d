package solver

import (
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/optimization"
)

// WrapLoss adapts loss to the optimizer's objective. Values of parameters
// declared as int are rounded to the nearest integer before the call; all
// other values pass through unchanged. The optimizer's point is not modified.
func WrapLoss(loss LossFunc, data interface{}, types hyperparam.TypeLookup) optimization.Objective {
	return func(point optimization.Point) (float64, error) {
		params := make(Params, len(point))
		for name, v := range point {
			if types != nil && types.TypeOf(name) == hyperparam.TypeInt {
				if f, ok := hyperparam.ToFloat(v); ok {
					v = hyperparam.RoundInt(f)
				}
			}
			params[name] = v
		}
		return loss(data, params)
	}
}
