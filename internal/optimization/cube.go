package optimization

import (
	"math"

	"github.com/copyleftdev/hypertune/internal/searchspace"
)

// Cube maps a nested search space onto the unit hypercube for minimizers
// that only understand a single box. The first dimensions select one value
// per categorical level, the rest scale the uniform ranges.
type Cube struct {
	levels []searchspace.Level
	bounds []searchspace.Bound
}

// NewCube builds the encoding of space. Every categorical level needs at
// least one value.
func NewCube(space *searchspace.Space) (*Cube, error) {
	const op = "NewCube"

	if space == nil {
		return nil, WrapError(ErrEmptySpace, "cube", op, "nil search space")
	}
	levels := space.Levels()
	for _, l := range levels {
		if len(l.Values) == 0 {
			return nil, WrapError(ErrEmptySpace, "cube", op, "categorical "+l.Param+" has no values")
		}
	}
	return &Cube{levels: levels, bounds: space.Uniform()}, nil
}

// Dims is the dimension of the hypercube.
func (c *Cube) Dims() int {
	return len(c.levels) + len(c.bounds)
}

// Decode turns x into a point. Coordinates outside [0, 1] are clamped.
func (c *Cube) Decode(x []float64) Point {
	point := make(Point, c.Dims())
	for i, l := range c.levels {
		n := len(l.Values)
		idx := int(unit(x[i]) * float64(n))
		if idx > n-1 {
			idx = n - 1
		}
		point[l.Param] = l.Values[idx]
	}
	off := len(c.levels)
	for i, b := range c.bounds {
		point[b.Name] = b.Low + unit(x[off+i])*(b.High-b.Low)
	}
	return point
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 1))
}
