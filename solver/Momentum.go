package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// MomentumConfig describes a configuration of gradient descent with
// momentum
type MomentumConfig struct {
	Common
	Momentum float64
}

// NewMomentum returns a new Momentum Solver
func NewMomentum(stepSize, momentum float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(&MomentumConfig{
		Common:   Common{StepSize: stepSize, Batch: batchSize, Clip: clip},
		Momentum: momentum,
	})
}

// Type implements the Config interface
func (m *MomentumConfig) Type() Type { return Momentum }

// Create implements the Config interface
func (m *MomentumConfig) Create() G.Solver {
	return G.NewMomentum(append(m.opts(), G.WithMomentum(m.Momentum))...)
}

// Validate implements the Config interface
func (m *MomentumConfig) Validate() error {
	if m.Momentum < 0 || m.Momentum >= 1 {
		return fmt.Errorf("validate: momentum must be in [0, 1)\n\thave(%v)",
			m.Momentum)
	}
	return m.validate()
}
