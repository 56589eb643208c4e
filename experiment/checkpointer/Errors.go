package checkpointer

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when no checkpoint exists at a path
	ErrNotFound = errors.New("checkpoint not found")

	// ErrCorrupt is returned when a checkpoint exists but cannot be
	// decoded or fails its checksum
	ErrCorrupt = errors.New("checkpoint corrupt")

	// ErrIncompatible is returned when a checkpoint was written in a
	// different format version, or for a different model or worker
	// count than the one restoring it
	ErrIncompatible = errors.New("checkpoint incompatible")

	// ErrTransient is returned when a checkpoint could not be written
	// after all retries were exhausted
	ErrTransient = errors.New("checkpoint write failed")
)

// transientError wraps the last write failure so that it matches
// ErrTransient while keeping its cause
type transientError struct {
	cause    error
	attempts int
}

func (t *transientError) Error() string {
	return errors.Wrapf(t.cause, "%v after %d attempts", ErrTransient,
		t.attempts).Error()
}

func (t *transientError) Unwrap() error {
	return t.cause
}

func (t *transientError) Is(target error) bool {
	return target == ErrTransient
}

// IsFatal returns whether a checkpoint error should stop a run rather
// than being retried
func IsFatal(err error) bool {
	return errors.Is(err, ErrCorrupt) || errors.Is(err, ErrIncompatible) ||
		errors.Is(err, ErrNotFound)
}
