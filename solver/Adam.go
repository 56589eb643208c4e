package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// AdamConfig describes a configuration of the Adam solver
type AdamConfig struct {
	Common
	Epsilon float64 // Smoothing factor
	Beta1   float64
	Beta2   float64
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, batchSize)
}

// NewAdam returns a new Adam Solver
func NewAdam(stepSize, epsilon, beta1, beta2 float64, batchSize int) (*Solver,
	error) {
	return newSolver(&AdamConfig{
		Common:  Common{StepSize: stepSize, Batch: batchSize},
		Epsilon: epsilon,
		Beta1:   beta1,
		Beta2:   beta2,
	})
}

// Type implements the Config interface
func (a *AdamConfig) Type() Type {
	return Adam
}

// Create implements the Config interface
func (a *AdamConfig) Create() G.Solver {
	opts := append(a.opts(),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
	)
	return G.NewAdamSolver(opts...)
}

// Validate implements the Config interface
func (a *AdamConfig) Validate() error {
	if a.Beta1 < 0 || a.Beta1 >= 1 || a.Beta2 < 0 || a.Beta2 >= 1 {
		msg := "validate: betas must be in [0, 1)\n\thave(%v, %v)"
		return fmt.Errorf(msg, a.Beta1, a.Beta2)
	}
	if a.Epsilon <= 0 {
		return fmt.Errorf("validate: epsilon must be positive\n\thave(%v)",
			a.Epsilon)
	}
	return a.validate()
}
