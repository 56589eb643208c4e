package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// FanConfig configures the initializers whose scale depends on the
// fan-in and fan-out of a layer: GlorotU, GlorotN, HeU, and HeN
type FanConfig struct {
	Kind Type `json:"-"`
	Gain float64
}

func newFan(kind Type, gain float64) (*InitWFn, error) {
	return newInitWFn(&FanConfig{Kind: kind, Gain: gain})
}

// NewGlorotU returns a new Glorot uniform initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newFan(GlorotU, gain)
}

// NewGlorotN returns a new Glorot normal initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newFan(GlorotN, gain)
}

// NewHeU returns a new He uniform initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return newFan(HeU, gain)
}

// NewHeN returns a new He normal initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return newFan(HeN, gain)
}

// Type implements the Config interface
func (f *FanConfig) Type() Type {
	return f.Kind
}

// Create implements the Config interface
func (f *FanConfig) Create() G.InitWFn {
	switch f.Kind {
	case GlorotN:
		return G.GlorotN(f.Gain)
	case HeU:
		return G.HeU(f.Gain)
	case HeN:
		return G.HeN(f.Gain)
	default:
		return G.GlorotU(f.Gain)
	}
}

// Validate implements the Config interface
func (f *FanConfig) Validate() error {
	if f.Gain <= 0 {
		return fmt.Errorf("%v gain must be positive, have %v", f.Kind, f.Gain)
	}
	return nil
}
