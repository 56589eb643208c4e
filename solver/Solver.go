// Package solver wraps Gorgonia Solvers so that they can be named in
// JSON and YAML configuration files.
//
// Gorgonia solvers divide each gradient by their batch size before
// stepping. Losses built as a mean over the minibatch should use a
// batch size of 1.
package solver

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam     Type = "Adam"
	Vanilla  Type = "Vanilla"
	RMSProp  Type = "RMSProp"
	Momentum Type = "Momentum"
)

// configTypes returns the default Config of each Type. Fields missing
// from a marshalled Config keep these defaults.
var configTypes = map[Type]func() Config{
	Adam: func() Config {
		return &AdamConfig{Common: defaultCommon, Epsilon: 1e-8, Beta1: 0.9,
			Beta2: 0.999}
	},
	Vanilla: func() Config { return &VanillaConfig{Common: defaultCommon} },
	RMSProp: func() Config {
		return &RMSPropConfig{Common: defaultCommon, Epsilon: 1e-8, Rho: 0.999}
	},
	Momentum: func() Config {
		return &MomentumConfig{Common: defaultCommon, Momentum: 0.9}
	},
}

// Solver wraps Gorgonia Solvers so that they can be marshalled and
// unmarshalled.
type Solver struct {
	G.Solver `json:"-" yaml:"-"`
	Type
	Config
}

// newSolver returns a new solver described by c
func newSolver(c Config) (*Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newsolver: %v", err)
	}
	solver := Solver{Type: c.Type(), Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// Reset recreates the wrapped Gorgonia Solver, discarding any running
// statistics it has accumulated
func (s *Solver) Reset() {
	s.Solver = s.Config.Create()
}

// String implements the fmt.Stringer interface
func (s *Solver) String() string {
	return fmt.Sprintf("{%v Solver: %+v}", s.Type, s.Config)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return s.set(raw.Type, raw.Config)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface. The YAML
// form is {type: Adam, config: {stepsize: 0.01, batch: 1}}, where
// config keys are matched case insensitively against the Config fields.
func (s *Solver) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Type   Type                   `yaml:"type"`
		Config map[string]interface{} `yaml:"config"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	data, err := json.Marshal(raw.Config)
	if err != nil {
		return fmt.Errorf("unmarshalyaml: %v", err)
	}
	return s.set(raw.Type, data)
}

// set sets the Type and Config of the Solver from a Type and the JSON
// encoding of its Config
func (s *Solver) set(t Type, data []byte) error {
	create, found := configTypes[t]
	if !found {
		return fmt.Errorf("unmarshalconfig: unknown solver type %q", t)
	}
	config := create()
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("unmarshalconfig: %v", err)
		}
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("unmarshalconfig: %v", err)
	}

	s.Type = t
	s.Config = config
	s.Solver = s.Config.Create()

	return nil
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// Type returns the type of Solver the Config describes
	Type() Type

	// Validate returns an error if the hyperparameters are unusable
	Validate() error
}

// Common holds the hyperparameters shared by every solver
type Common struct {
	StepSize float64
	Batch    int
	Clip     float64 // <= 0 if no clipping
}

var defaultCommon = Common{StepSize: 0.01, Batch: 1}

// opts returns the Gorgonia options setting the common
// hyperparameters
func (c Common) opts() []G.SolverOpt {
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithBatchSize(float64(c.Batch)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return opts
}

func (c Common) validate() error {
	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive\n\thave(%v)",
			c.StepSize)
	}
	if c.Batch <= 0 {
		return fmt.Errorf("validate: batch must be positive\n\thave(%v)",
			c.Batch)
	}
	return nil
}

// Clone returns a new Solver with the same configuration and no
// running statistics
func (s *Solver) Clone() (*Solver, error) {
	data, err := json.Marshal(s.Config)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}
	clone := &Solver{}
	if err := clone.set(s.Type, data); err != nil {
		return nil, err
	}
	return clone, nil
}
