package trackers

import (
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/gotrain/experiment/tracker"
)

// Printer logs the loss, error rate, and throughput of training every
// frequency samples, averaged over the minibatches since it last
// logged. The averages are weighted by the size of each minibatch.
type Printer struct {
	frequency int
	logger    *zap.Logger

	last        int // Samples seen when last logged
	lastElapsed time.Duration
	losses      []float64
	errors      []float64
	weights     []float64
}

// NewPrinter returns a new Printer that logs every frequency samples
func NewPrinter(frequency int, logger *zap.Logger) *Printer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Printer{frequency: frequency, logger: logger, last: -1}
}

// Track records a round and logs if a multiple of the frequency was
// crossed
func (p *Printer) Track(r tracker.Record) {
	if p.last < 0 {
		// First round after a start or restore
		p.last = r.SamplesSeen - r.MinibatchSamples
	}
	p.losses = append(p.losses, r.Loss)
	p.errors = append(p.errors, r.Error)
	p.weights = append(p.weights, float64(r.MinibatchSamples))

	if p.frequency <= 0 || r.SamplesSeen/p.frequency <= p.last/p.frequency {
		return
	}
	p.print(r)
}

// print logs the window since the last print and starts a new window
func (p *Printer) print(r tracker.Record) {
	window := r.Elapsed - p.lastElapsed
	samples := r.SamplesSeen - p.last

	fields := []zap.Field{
		zap.String("samples_seen", humanize.Comma(int64(r.SamplesSeen))),
		zap.Int("minibatches", r.Minibatches),
		zap.Float64("loss", stat.Mean(p.losses, p.weights)),
		zap.Float64("error", stat.Mean(p.errors, p.weights)),
	}
	if window > 0 {
		rate := float64(samples) / window.Seconds()
		fields = append(fields, zap.String("samples_per_sec",
			humanize.FormatFloat("#,###.##", rate)))
	}
	p.logger.Info("training progress", fields...)

	p.last = r.SamplesSeen
	p.lastElapsed = r.Elapsed
	p.losses = p.losses[:0]
	p.errors = p.errors[:0]
	p.weights = p.weights[:0]
}

// Save does nothing; a Printer keeps no data
func (p *Printer) Save() error {
	return nil
}
