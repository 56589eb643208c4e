package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes a configuration of stochastic gradient
// descent
type VanillaConfig struct {
	Common
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(&VanillaConfig{Common{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
	}})
}

// Type implements the Config interface
func (v *VanillaConfig) Type() Type { return Vanilla }

// Create implements the Config interface
func (v *VanillaConfig) Create() G.Solver {
	return G.NewVanillaSolver(v.opts()...)
}

// Validate implements the Config interface
func (v *VanillaConfig) Validate() error {
	return v.validate()
}
