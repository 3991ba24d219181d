package hyperparam

import (
	"bytes"
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/hypertune/internal/errors"
)

// Project is a hyperparameter search description owned by the caller.
type Project struct {
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	Solver         string `json:"solver,omitempty" yaml:"solver,omitempty"`
	MaxIterations  int    `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	Hyperparameter *Spec  `json:"hyperparameter" yaml:"hyperparameter"`
}

// TypeOf returns the declared type of a hyperparameter.
func (p *Project) TypeOf(name string) Type {
	if p == nil {
		return TypeUnknown
	}
	return p.Hyperparameter.TypeOf(name)
}

// Validate checks the project has at least one hyperparameter.
func (p *Project) Validate() error {
	if p.Hyperparameter.Len() == 0 {
		return errors.New(errors.KindInvalidInput, "project declares no hyperparameters")
	}
	if p.MaxIterations < 0 {
		return errors.Errorf(errors.KindInvalidInput, "max_iterations must not be negative, got %d", p.MaxIterations)
	}
	return nil
}

// ParseYAML decodes and validates a project document.
func ParseYAML(data []byte) (*Project, error) {
	var p Project
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.KindOf(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.KindInvalidInput, "decode project")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseJSON decodes and validates a JSON project document.
func ParseJSON(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		if errors.KindOf(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.KindInvalidInput, "decode project")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadYAML reads a project file from disk.
func LoadYAML(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindInvalidInput, "read project %s", path)
	}
	return ParseYAML(data)
}
