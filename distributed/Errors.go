package distributed

import "github.com/pkg/errors"

var (
	// ErrDesync is returned when workers disagree on the collective
	// operation they are performing
	ErrDesync = errors.New("collective desynchronized")

	// ErrTimeout is returned when not every worker reached a
	// rendezvous in time
	ErrTimeout = errors.New("collective timed out")

	// ErrAborted is returned by collectives on a run that was aborted
	// by another worker
	ErrAborted = errors.New("run aborted")

	// ErrFinalized is returned by collectives on a finalized worker
	ErrFinalized = errors.New("worker finalized")
)

// IsFatal returns whether an error reports that a run can no longer
// make progress and every worker must stop
func IsFatal(err error) bool {
	return errors.Is(err, ErrDesync) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrAborted)
}
