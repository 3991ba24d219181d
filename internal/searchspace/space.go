// Package searchspace converts backend-agnostic hyperparameter specifications
// into the nested search space consumed by structured optimizers.
package searchspace

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Bounds is a closed range [Low, High].
type Bounds struct {
	Low  float64
	High float64
}

// MarshalJSON renders bounds as a two element array.
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{b.Low, b.High})
}

// Bound names the range of one uniform parameter.
type Bound struct {
	Name string
	Bounds
}

// Choice maps one categorical value to the sub-space it selects.
type Choice struct {
	Value interface{}
	Next  *Space
}

// Space is a node of a search space tree. A leaf holds the flat uniform
// ranges; a branch holds a categorical parameter whose every value selects
// an inner node. Spaces are immutable once built and inner nodes may be
// shared between choices.
type Space struct {
	bounds  []Bound
	param   string
	choices []Choice
}

// NewLeaf returns a flat space over the given ranges.
func NewLeaf(bounds []Bound) *Space {
	return &Space{bounds: append([]Bound(nil), bounds...)}
}

// NewBranch returns a space where param selects between choices.
func NewBranch(param string, choices []Choice) *Space {
	return &Space{param: param, choices: append([]Choice{}, choices...)}
}

// IsLeaf reports whether s holds uniform ranges only.
func (s *Space) IsLeaf() bool {
	return s.param == ""
}

// Param returns the categorical parameter of a branch, or "".
func (s *Space) Param() string {
	return s.param
}

// Choices returns the choices of a branch in declaration order.
func (s *Space) Choices() []Choice {
	return append([]Choice(nil), s.choices...)
}

// Bounds returns the ranges of a leaf in declaration order.
func (s *Space) Bounds() []Bound {
	return append([]Bound(nil), s.bounds...)
}

// Level is one categorical nesting level.
type Level struct {
	Param  string
	Values []interface{}
}

// Levels returns the categorical levels from outermost to innermost,
// following the first choice of every branch.
func (s *Space) Levels() []Level {
	var levels []Level
	for n := s; n != nil && !n.IsLeaf(); {
		lvl := Level{Param: n.param, Values: make([]interface{}, len(n.choices))}
		for i, c := range n.choices {
			lvl.Values[i] = c.Value
		}
		levels = append(levels, lvl)
		if len(n.choices) == 0 {
			break
		}
		n = n.choices[0].Next
	}
	return levels
}

// Uniform returns the leaf ranges reached through the first choice of every
// branch. It is nil when a branch on the way has no choices.
func (s *Space) Uniform() []Bound {
	n := s
	for n != nil && !n.IsLeaf() {
		if len(n.choices) == 0 {
			return nil
		}
		n = n.choices[0].Next
	}
	if n == nil {
		return nil
	}
	return n.Bounds()
}

// Assignment fixes a categorical parameter to a value.
type Assignment struct {
	Param string
	Value interface{}
}

// Leaf is one fully resolved path through the tree.
type Leaf struct {
	Assignments []Assignment
	Bounds      []Bound
}

// Leaves enumerates every path from s to a leaf. Paths through a branch
// without choices produce no leaves.
func (s *Space) Leaves() []Leaf {
	var out []Leaf
	var walk func(n *Space, path []Assignment)
	walk = func(n *Space, path []Assignment) {
		if n == nil {
			return
		}
		if n.IsLeaf() {
			out = append(out, Leaf{
				Assignments: append([]Assignment(nil), path...),
				Bounds:      n.Bounds(),
			})
			return
		}
		for _, c := range n.choices {
			walk(c.Next, append(path, Assignment{Param: n.param, Value: c.Value}))
		}
	}
	walk(s, nil)
	return out
}

// ToMap renders s as plain nested maps: a leaf becomes name -> [low, high]
// and a branch becomes param -> value -> inner.
func (s *Space) ToMap() map[string]interface{} {
	if s.IsLeaf() {
		m := make(map[string]interface{}, len(s.bounds))
		for _, b := range s.bounds {
			m[b.Name] = []float64{b.Low, b.High}
		}
		return m
	}
	inner := make(map[interface{}]interface{}, len(s.choices))
	for _, c := range s.choices {
		inner[c.Value] = c.Next.ToMap()
	}
	return map[string]interface{}{s.param: inner}
}

// MarshalJSON renders s with the nesting of ToMap, keeping declaration
// order. Choice values become object keys via fmt.Sprint.
func (s *Space) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Space) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	if s.IsLeaf() {
		for i, b := range s.bounds {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(buf, b.Name); err != nil {
				return err
			}
			v, err := json.Marshal(b.Bounds)
			if err != nil {
				return err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
		return nil
	}

	if err := writeKey(buf, s.param); err != nil {
		return err
	}
	buf.WriteByte('{')
	for i, c := range s.choices {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(buf, fmt.Sprint(c.Value)); err != nil {
			return err
		}
		if err := c.Next.writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteString("}}")
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}
