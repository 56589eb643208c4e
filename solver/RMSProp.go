package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// RMSPropConfig describes a configuration of the RMSProp solver.
// Gorgonia fixes the decay of the step size, so it is not configurable.
type RMSPropConfig struct {
	Common
	Epsilon float64
	Rho     float64
}

// NewDefaultRMSProp returns a new RMSProp Solver with default
// hyperparameters
func NewDefaultRMSProp(stepSize float64, batchSize int) (*Solver, error) {
	return NewRMSProp(stepSize, 1e-8, 0.999, batchSize, -1.0)
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(stepSize, epsilon, rho float64, batchSize int,
	clip float64) (*Solver, error) {
	return newSolver(&RMSPropConfig{
		Common:  Common{StepSize: stepSize, Batch: batchSize, Clip: clip},
		Epsilon: epsilon,
		Rho:     rho,
	})
}

// Type implements the Config interface
func (r *RMSPropConfig) Type() Type { return RMSProp }

// Create implements the Config interface
func (r *RMSPropConfig) Create() G.Solver {
	opts := append(r.opts(), G.WithEps(r.Epsilon), G.WithRho(r.Rho))
	return G.NewRMSPropSolver(opts...)
}

// Validate implements the Config interface
func (r *RMSPropConfig) Validate() error {
	if r.Rho <= 0 || r.Rho >= 1 {
		return fmt.Errorf("validate: rho must be in (0, 1)\n\thave(%v)",
			r.Rho)
	}
	return r.validate()
}
