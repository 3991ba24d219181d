// Package hyperparam describes hyperparameter search specifications
// independently of any optimizer backend.
package hyperparam

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/hypertune/internal/errors"
)

// Entry is the specification of a single hyperparameter.
type Entry struct {
	Name   string        `json:"-" yaml:"-"`
	Domain Domain        `json:"domain" yaml:"domain"`
	Type   Type          `json:"type,omitempty" yaml:"type,omitempty"`
	Data   []interface{} `json:"data" yaml:"data"`
}

// Spec is an ordered set of hyperparameter entries keyed by unique name.
// Iteration order is declaration order; categorical nesting depends on it.
type Spec struct {
	entries []Entry
	index   map[string]int
}

// NewSpec builds a Spec from entries in the given order.
func NewSpec(entries ...Entry) (*Spec, error) {
	s := &Spec{}
	for _, e := range entries {
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSpec is NewSpec that panics on error. Intended for tests and literals.
func MustSpec(entries ...Entry) *Spec {
	s, err := NewSpec(entries...)
	if err != nil {
		panic(err)
	}
	return s
}

// Add appends an entry. Names must be non-empty and unique.
func (s *Spec) Add(e Entry) error {
	if e.Name == "" {
		return errors.New(errors.KindInvalidInput, "hyperparameter name must not be empty")
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, exists := s.index[e.Name]; exists {
		return errors.Errorf(errors.KindInvalidInput, "hyperparameter %q declared twice", e.Name).WithParam(e.Name, nil)
	}
	t, err := ParseType(string(e.Type))
	if err != nil {
		return errors.Wrap(err, errors.KindInvalidInput, "invalid hyperparameter").WithParam(e.Name, e.Type)
	}
	e.Type = t
	e.Data = append([]interface{}(nil), e.Data...)

	s.index[e.Name] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

// Get returns the entry for name.
func (s *Spec) Get(name string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Len returns the number of entries.
func (s *Spec) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Names returns parameter names in declaration order.
func (s *Spec) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of the entries in declaration order.
func (s *Spec) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// TypeOf returns the declared type of name, or TypeUnknown.
func (s *Spec) TypeOf(name string) Type {
	e, ok := s.Get(name)
	if !ok {
		return TypeUnknown
	}
	return e.Type
}

// MarshalJSON renders the spec as a JSON object in declaration order.
func (s *Spec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order.
func (s *Spec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, errors.KindInvalidInput, "decode hyperparameter spec")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New(errors.KindInvalidInput, "hyperparameter spec must be an object")
	}

	*s = Spec{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, errors.KindInvalidInput, "decode hyperparameter spec")
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Errorf(errors.KindInvalidInput, "unexpected token %v", tok)
		}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return errors.Wrap(err, errors.KindInvalidInput, "decode hyperparameter").WithParam(name, nil)
		}
		e.Name = name
		if err := s.Add(e); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, errors.KindInvalidInput, "decode hyperparameter spec")
	}
	return nil
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (s *Spec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return errors.Errorf(errors.KindInvalidInput, "hyperparameter spec must be a mapping (line %d)", value.Line)
	}

	*s = Spec{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, valNode := value.Content[i], value.Content[i+1]
		var e Entry
		if err := valNode.Decode(&e); err != nil {
			return errors.Wrap(err, errors.KindInvalidInput, fmt.Sprintf("decode hyperparameter (line %d)", valNode.Line)).WithParam(keyNode.Value, nil)
		}
		e.Name = keyNode.Value
		if err := s.Add(e); err != nil {
			return err
		}
	}
	return nil
}
