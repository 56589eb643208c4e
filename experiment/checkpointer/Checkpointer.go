package checkpointer

// Checkpointer decides when training should be checkpointed and calls
// a save function when it should. Progress is measured by the
// cumulative number of samples seen.
type Checkpointer interface {
	// Checkpoint is called after the sample count moves from prev to
	// cur. It returns whether a checkpoint was saved.
	Checkpoint(prev, cur int) (bool, error)
}

// SaveFunc saves a checkpoint to filename
type SaveFunc func(filename string) error
