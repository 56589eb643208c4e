package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// GaussianConfig draws weights from a gaussian distribution
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new gaussian initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(&GaussianConfig{Mean: mean, StdDev: stddev})
}

// Type implements the Config interface
func (g *GaussianConfig) Type() Type { return Gaussian }

// Create implements the Config interface
func (g *GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(g.Mean, g.StdDev)
}

// Validate implements the Config interface
func (g *GaussianConfig) Validate() error {
	if g.StdDev <= 0 {
		return fmt.Errorf("gaussian stddev must be positive, have %v",
			g.StdDev)
	}
	return nil
}

// UniformConfig draws weights uniformly from [Low, High)
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	return newInitWFn(&UniformConfig{Low: low, High: high})
}

// Type implements the Config interface
func (u *UniformConfig) Type() Type { return Uniform }

// Create implements the Config interface
func (u *UniformConfig) Create() G.InitWFn {
	return G.Uniform(u.Low, u.High)
}

// Validate implements the Config interface
func (u *UniformConfig) Validate() error {
	if u.Low >= u.High {
		return fmt.Errorf("uniform bounds must satisfy low < high, have "+
			"[%v, %v)", u.Low, u.High)
	}
	return nil
}

// ConstantConfig sets every weight to the same value. The Zeroes and
// Ones initializers ignore Value.
type ConstantConfig struct {
	Kind  Type `json:"-"`
	Value float64
}

// NewZeroes returns a new initializer setting every weight to 0
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(&ConstantConfig{Kind: Zeroes})
}

// NewOnes returns a new initializer setting every weight to 1
func NewOnes() (*InitWFn, error) {
	return newInitWFn(&ConstantConfig{Kind: Ones, Value: 1})
}

// NewConstant returns a new initializer setting every weight to value
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(&ConstantConfig{Kind: Constant, Value: value})
}

// Type implements the Config interface
func (c *ConstantConfig) Type() Type { return c.Kind }

// Create implements the Config interface
func (c *ConstantConfig) Create() G.InitWFn {
	switch c.Kind {
	case Zeroes:
		return G.Zeroes()
	case Ones:
		return G.Ones()
	default:
		return G.ValuesOf(c.Value)
	}
}

// Validate implements the Config interface
func (c *ConstantConfig) Validate() error {
	return nil
}
