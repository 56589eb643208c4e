// Package initwfn wraps Gorgonia InitWFn so that weight initializers
// can be named in JSON and YAML configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Zeroes   Type = "Zeroes"
	Ones     Type = "Ones"
	Constant Type = "Constant"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
)

// configTypes returns the default Config of each Type. Fields missing
// from a marshalled Config keep these defaults.
var configTypes = map[Type]func() Config{
	GlorotU:  func() Config { return &FanConfig{Kind: GlorotU, Gain: 1} },
	GlorotN:  func() Config { return &FanConfig{Kind: GlorotN, Gain: 1} },
	HeU:      func() Config { return &FanConfig{Kind: HeU, Gain: 1} },
	HeN:      func() Config { return &FanConfig{Kind: HeN, Gain: 1} },
	Zeroes:   func() Config { return &ConstantConfig{Kind: Zeroes} },
	Ones:     func() Config { return &ConstantConfig{Kind: Ones, Value: 1} },
	Constant: func() Config { return &ConstantConfig{Kind: Constant} },
	Gaussian: func() Config { return &GaussianConfig{StdDev: 1} },
	Uniform:  func() Config { return &UniformConfig{Low: -1, High: 1} },
}

// InitWFn wraps Gorgonia InitWFn so that they can be marshalled and
// unmarshalled.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newInitWFn: %v", err)
	}
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %+v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return i.set(raw.Type, raw.Config)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface. The YAML
// form is {type: GlorotU, config: {gain: 1.0}}, where config keys are
// matched case insensitively against the Config fields.
func (i *InitWFn) UnmarshalYAML(unmarshal func(interface{}) error) error {
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
	return i.set(raw.Type, data)
}

// set sets the Type and Config of the InitWFn from a Type and the JSON
// encoding of its Config
func (i *InitWFn) set(t Type, data []byte) error {
	config, err := unmarshalConfig(t, data)
	if err != nil {
		return err
	}

	i.Type = t
	i.Config = config
	i.initWFn = i.Config.Create()

	return nil
}

// unmarshalConfig unmarshals data over the default Config of t
func unmarshalConfig(t Type, data []byte) (Config, error) {
	create, found := configTypes[t]
	if !found {
		return nil, fmt.Errorf("unmarshalconfig: unknown InitWFn type %q", t)
	}
	config := create()

	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("unmarshalconfig: %v", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("unmarshalconfig: %v", err)
	}
	return config, nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type

	// Validate returns an error if the parameters are unusable
	Validate() error
}
