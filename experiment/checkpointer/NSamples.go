package checkpointer

// nSamples implements checkpointing every N samples
type nSamples struct {
	interval int
	save     SaveFunc

	// filename returns the name of the file to checkpoint to once
	// samples samples have been seen.
	//
	// To save each checkpoint to a separate file suffixed with its
	// sample count, use SampleEnumerator. To overwrite a single file,
	// use Fixed.
	filename func(samples int) string
}

// NewNSamples returns a Checkpointer that checkpoints whenever the
// cumulative sample count crosses a multiple of n. If n <= 0 the
// Checkpointer never checkpoints.
func NewNSamples(n int, save SaveFunc,
	filename func(samples int) string) Checkpointer {
	return &nSamples{
		interval: n,
		save:     save,
		filename: filename,
	}
}

// Due returns whether a multiple of interval lies in (prev, cur]
func Due(interval, prev, cur int) bool {
	return interval > 0 && cur/interval > prev/interval
}

// Checkpoint saves a checkpoint if a multiple of the interval was
// crossed between prev and cur
func (n *nSamples) Checkpoint(prev, cur int) (bool, error) {
	if !Due(n.interval, prev, cur) {
		return false, nil
	}
	return true, n.save(n.filename(cur))
}
