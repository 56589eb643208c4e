package minibatch

import "fmt"

// State is the read position of a Source. It is the token handed to a
// trainer when checkpointing and returned by the trainer on restore.
type State struct {
	Sweep       int // Number of completed passes over the data
	Offset      int // Position within the current sweep
	SamplesRead int // Cumulative global samples read
}

// String implements the fmt.Stringer interface
func (s State) String() string {
	return fmt.Sprintf("{Sweep: %v  Offset: %v  SamplesRead: %v}", s.Sweep,
		s.Offset, s.SamplesRead)
}

// Source yields minibatches from a dataset.
//
// A Source advances one global cursor for all workers. Each call to
// NextMinibatch consumes up to size samples from the dataset and
// returns only those belonging to the argument Partition. Because every
// worker issues the same sequence of calls, the State of a Source is the
// same on every worker.
type Source interface {
	// NextMinibatch returns the next minibatch for a partition. Once
	// the Source is exhausted, an empty Minibatch is returned.
	NextMinibatch(size int, p Partition) (Minibatch, error)

	// CheckpointState returns the current read position
	CheckpointState() State

	// RestoreFromCheckpoint moves the read position to that stored
	// in a State
	RestoreFromCheckpoint(State) error
}
