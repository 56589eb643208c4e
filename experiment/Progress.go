package experiment

import (
	"fmt"
	"time"

	"github.com/samuelfneumann/gotrain/experiment/tracker"
)

// Progress is the position of a training run. It is identical on
// every worker.
type Progress struct {
	// SamplesSeen is the number of samples trained on over all workers,
	// including those trained on before the run was restored
	SamplesSeen int

	// Minibatches is the number of rounds trained in this Session
	Minibatches int

	// Loss and Error are those of the last global minibatch
	Loss  float64
	Error float64

	// Checkpoints is the number of checkpoints written in this Session
	Checkpoints int

	// Restored is whether the Session resumed from a checkpoint
	Restored bool

	Elapsed time.Duration
}

// String implements the fmt.Stringer interface
func (p Progress) String() string {
	return fmt.Sprintf("{SamplesSeen: %v  Minibatches: %v  Loss: %.4f  "+
		"Error: %.4f  Checkpoints: %v  Restored: %v}", p.SamplesSeen,
		p.Minibatches, p.Loss, p.Error, p.Checkpoints, p.Restored)
}

// record returns the tracker.Record of the last round
func (p Progress) record(rank, minibatchSamples int) tracker.Record {
	return tracker.Record{
		Rank:             rank,
		SamplesSeen:      p.SamplesSeen,
		Minibatches:      p.Minibatches,
		MinibatchSamples: minibatchSamples,
		Loss:             p.Loss,
		Error:            p.Error,
		Elapsed:          p.Elapsed,
	}
}
