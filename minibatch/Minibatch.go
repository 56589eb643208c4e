// Package minibatch implements data sources that yield minibatches of
// (feature, label) samples, can report and restore their read position,
// and can partition each global minibatch across distributed workers.
package minibatch

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Minibatch is an ordered batch of paired (feature, label) samples.
//
// A Minibatch with no samples is valid and signals that a worker has no
// more data in the current round. Such a Minibatch has a nil Features
// matrix.
type Minibatch struct {
	Features *mat.Dense
	Labels   []int
}

// Len returns the number of samples in the Minibatch
func (m Minibatch) Len() int {
	return len(m.Labels)
}

// Empty returns whether the Minibatch holds no samples
func (m Minibatch) Empty() bool {
	return m.Len() == 0
}

// NumFeatures returns the number of features per sample, or 0 for an
// empty Minibatch
func (m Minibatch) NumFeatures() int {
	if m.Features == nil {
		return 0
	}
	_, c := m.Features.Dims()
	return c
}

// Validate checks that the features and labels of a Minibatch agree
func (m Minibatch) Validate() error {
	if m.Features == nil {
		if len(m.Labels) != 0 {
			return fmt.Errorf("validate: %d labels but no features",
				len(m.Labels))
		}
		return nil
	}

	r, _ := m.Features.Dims()
	if r != len(m.Labels) {
		return fmt.Errorf("validate: invalid number of labels\n\twant(%v)"+
			"\n\thave(%v)", r, len(m.Labels))
	}
	return nil
}

// Partition describes the subset of data assigned to a single worker.
// Sample j of a global minibatch is assigned to the worker with
// Rank == j % NumWorkers.
type Partition struct {
	Rank       int
	NumWorkers int
}

// Single returns the Partition of a non-distributed run
func Single() Partition {
	return Partition{Rank: 0, NumWorkers: 1}
}

// Validate returns an error if the Partition is not well formed
func (p Partition) Validate() error {
	if p.NumWorkers < 1 {
		return fmt.Errorf("partition: number of workers must be positive "+
			"\n\twant(>0) \n\thave(%v)", p.NumWorkers)
	}
	if p.Rank < 0 || p.Rank >= p.NumWorkers {
		return fmt.Errorf("partition: rank %v out of range [0, %v)", p.Rank,
			p.NumWorkers)
	}
	return nil
}

// Owns returns whether the sample at position j of a global minibatch
// belongs to this Partition
func (p Partition) Owns(j int) bool {
	return j%p.NumWorkers == p.Rank
}
