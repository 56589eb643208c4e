// Package trackers implements Trackers of training progress
package trackers

import "github.com/samuelfneumann/gotrain/experiment/tracker"

// Loss tracks and saves the mean loss of each global minibatch
type Loss struct {
	losses   []float64
	filename string
}

// NewLoss returns a new Loss Tracker which will save its data at
// filename
func NewLoss(filename string) *Loss {
	return &Loss{filename: filename}
}

// Track caches the loss of a round
func (l *Loss) Track(r tracker.Record) {
	l.losses = append(l.losses, r.Loss)
}

// Data returns the losses tracked so far
func (l *Loss) Data() []float64 {
	return l.losses
}

// Save saves the tracked losses to disk
func (l *Loss) Save() error {
	return tracker.SaveData(l.filename, l.losses)
}
