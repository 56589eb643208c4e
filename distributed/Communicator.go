// Package distributed implements the collective operations that keep
// data-parallel workers in lockstep.
//
// Every collective call is a synchronous rendezvous: all workers of a
// run must make the same sequence of calls, with the same operation and
// vector length, in the same order. A rendezvous that cannot complete,
// because a worker is missing or disagrees with its peers, aborts every
// worker instead of hanging.
package distributed

import "context"

// Communicator is one worker's view of a distributed run
type Communicator interface {
	// Rank returns the index of this worker in [0, NumWorkers())
	Rank() int

	// NumWorkers returns the number of workers in the run
	NumWorkers() int

	// AllReduce returns the element-wise sum of data over all workers.
	// The returned slice is owned by the caller.
	AllReduce(ctx context.Context, data []float64) ([]float64, error)

	// Barrier blocks until every worker has reached the barrier
	Barrier(ctx context.Context) error

	// Finalize signals that this worker is done with the run
	Finalize() error
}

// Op is the kind of a collective operation
type Op string

// Collective operations
const (
	OpAllReduce Op = "allreduce"
	OpBarrier   Op = "barrier"
	OpFinalize  Op = "finalize"
)

// local implements a Communicator for a non-distributed run
type local struct{}

// Local returns the Communicator of a single worker run. All
// collectives return immediately.
func Local() Communicator {
	return local{}
}

// Rank implements the Communicator interface
func (local) Rank() int {
	return 0
}

// NumWorkers implements the Communicator interface
func (local) NumWorkers() int {
	return 1
}

// AllReduce implements the Communicator interface
func (local) AllReduce(ctx context.Context, data []float64) ([]float64,
	error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]float64(nil), data...), nil
}

// Barrier implements the Communicator interface
func (local) Barrier(ctx context.Context) error {
	return ctx.Err()
}

// Finalize implements the Communicator interface
func (local) Finalize() error {
	return nil
}
