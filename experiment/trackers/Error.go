package trackers

import "github.com/samuelfneumann/gotrain/experiment/tracker"

// Error tracks and saves the classification error rate of each global
// minibatch
type Error struct {
	errors   []float64
	filename string
}

// NewError returns a new Error Tracker which will save its data at
// filename
func NewError(filename string) *Error {
	return &Error{filename: filename}
}

// Track caches the error rate of a round
func (e *Error) Track(r tracker.Record) {
	e.errors = append(e.errors, r.Error)
}

// Data returns the error rates tracked so far
func (e *Error) Data() []float64 {
	return e.errors
}

// Save saves the tracked error rates to disk
func (e *Error) Save() error {
	return tracker.SaveData(e.filename, e.errors)
}
