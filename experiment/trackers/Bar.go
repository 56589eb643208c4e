package trackers

import (
	"io"

	"github.com/samuelfneumann/gotrain/experiment/tracker"
	"github.com/samuelfneumann/gotrain/utils/progressbar"
)

// Bar draws a progress bar towards a sample budget
type Bar struct {
	bar *progressbar.ManualProgressBar
}

// NewBar returns a new Bar that is full after max samples
func NewBar(out io.Writer, width, max int) *Bar {
	return &Bar{bar: progressbar.NewManualProgressBar(out, width, max)}
}

// Track redraws the bar
func (b *Bar) Track(r tracker.Record) {
	b.bar.Set(r.SamplesSeen)
	b.bar.Display()
}

// Save ends the bar's line
func (b *Bar) Save() error {
	b.bar.Close()
	return nil
}
