// Package runner wires a Config into running workers: in-process
// worker groups, remote workers, and the coordinator they meet at.
package runner

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/samuelfneumann/gotrain/config"
	"github.com/samuelfneumann/gotrain/distributed"
	"github.com/samuelfneumann/gotrain/experiment"
	"github.com/samuelfneumann/gotrain/experiment/checkpointer"
	"github.com/samuelfneumann/gotrain/experiment/tracker"
	"github.com/samuelfneumann/gotrain/experiment/trackers"
	"github.com/samuelfneumann/gotrain/network"
	"github.com/samuelfneumann/gotrain/trainer"
)

const barWidth = 40

// Result is the outcome of a worker's run
type Result struct {
	Progress experiment.Progress

	// TestError is the error rate of the trained model over one sweep
	// of the data
	TestError float64
}

// Runner runs the workers of a training run described by a Config
type Runner struct {
	config  *config.Config
	fs      afero.Fs
	out     io.Writer
	loggers func(rank int) *zap.Logger
	runID   string
}

// Option configures a Runner
type Option func(*Runner)

// WithFs sets the filesystem checkpoints are stored on
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithProgressOutput draws a progress bar for rank 0 on out
func WithProgressOutput(out io.Writer) Option {
	return func(r *Runner) {
		r.out = out
	}
}

// WithLoggers sets the function returning the logger of each rank
func WithLoggers(loggers func(rank int) *zap.Logger) Option {
	return func(r *Runner) {
		r.loggers = loggers
	}
}

// New returns a new Runner
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	runID, err := checkpointer.NewRunID()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		config:  cfg,
		fs:      afero.NewOsFs(),
		loggers: func(int) *zap.Logger { return zap.NewNop() },
		runID:   runID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Fresh removes the configured checkpoint so that the next run starts
// from scratch
func (r *Runner) Fresh() error {
	path := r.config.Session.Checkpoint.Path
	if path == "" {
		return nil
	}
	return checkpointer.NewStore(r.fs).Remove(path)
}

// Local runs every worker of the Config in this process and returns
// the Result of rank 0. If any worker fails, the error that caused the
// run to stop is returned rather than the aborts it caused in peers.
func (r *Runner) Local(ctx context.Context) (Result, error) {
	group, err := distributed.NewGroup(r.config.Workers, r.config.Timeout)
	if err != nil {
		return Result{}, err
	}

	results := make([]Result, r.config.Workers)
	errs := make([]error, r.config.Workers)

	var wg sync.WaitGroup
	for rank, comm := range group.Members() {
		wg.Add(1)
		go func(rank int, comm distributed.Communicator) {
			defer wg.Done()
			results[rank], errs[rank] = r.Worker(ctx, comm)
		}(rank, comm)
	}
	wg.Wait()

	return results[0], rootCause(errs)
}

// Remote runs a single worker that meets its peers at the coordinator
// at addr
func (r *Runner) Remote(ctx context.Context, addr string,
	rank int) (Result, error) {
	dialCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	comm, err := distributed.Dial(dialCtx, addr, rank, r.config.Workers)
	if err != nil {
		return Result{}, err
	}
	return r.Worker(ctx, comm)
}

// Worker runs the worker that communicates through comm until its
// Session ends. Rank 0 also tracks progress, writes the configured
// output files, and evaluates the trained model.
func (r *Runner) Worker(ctx context.Context,
	comm distributed.Communicator) (Result, error) {
	rank := comm.Rank()
	logger := r.loggers(rank)
	cfg := *r.config

	source, err := cfg.NewSource()
	if err != nil {
		return Result{}, abort(comm, errors.Wrap(err, "unable to create "+
			"data source"))
	}
	if err := cfg.Resolve(source); err != nil {
		return Result{}, abort(comm, errors.Wrap(err, "invalid model"))
	}

	store := checkpointer.NewStore(r.fs, checkpointer.WithLogger(logger))
	t, err := cfg.Model.CreateTrainer(comm,
		trainer.WithStore(store),
		trainer.WithLogger(logger),
		trainer.WithRunID(r.runID),
	)
	if err != nil {
		return Result{}, abort(comm, errors.Wrap(err, "unable to create "+
			"trainer"))
	}
	defer t.Close()

	session, err := experiment.NewSession(t, source, comm, cfg.Session,
		logger, r.trackers(rank, logger)...)
	if err != nil {
		return Result{}, abort(comm, err)
	}

	progress, err := session.Run(ctx)
	result := Result{Progress: progress}
	if err != nil || rank != 0 {
		return result, err
	}

	result.TestError, err = t.TestMinibatch(source.All())
	if err != nil {
		return result, errors.Wrap(err, "unable to evaluate model")
	}
	logger.Info("evaluated model", zap.Float64("test_error",
		result.TestError))

	if path := cfg.Output.ModelFile; path != "" {
		if err := network.Save(path, t.Network()); err != nil {
			return result, errors.Wrap(err, "unable to save model")
		}
	}
	return result, nil
}

// trackers returns the trackers of the worker with the given rank.
// Only rank 0 reports progress; every worker sees the same global
// statistics.
func (r *Runner) trackers(rank int, logger *zap.Logger) []tracker.Tracker {
	if rank != 0 {
		return nil
	}

	session := r.config.Session
	ts := []tracker.Tracker{trackers.NewPrinter(session.ProgressFrequency,
		logger)}
	if r.out != nil && session.MaxSamples > 0 {
		ts = append(ts, trackers.NewBar(r.out, barWidth, session.MaxSamples))
	}
	if path := r.config.Output.LossFile; path != "" {
		ts = append(ts, trackers.NewLoss(path))
	}
	if path := r.config.Output.ErrorFile; path != "" {
		ts = append(ts, trackers.NewError(path))
	}
	return ts
}

// Serve runs the coordinator of a run with n remote workers on addr
// until ctx is done
func Serve(ctx context.Context, addr string, n int, timeout time.Duration,
	logger *zap.Logger) error {
	coordinator, err := distributed.NewServer(n, timeout, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: addr, Handler: coordinator}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.Info("coordinator listening", zap.String("addr", addr),
		zap.Int("workers", n))

	select {
	case err := <-errc:
		return errors.Wrap(err, "coordinator stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// abort stops the peers of a worker that failed before its Session
// could
func abort(comm distributed.Communicator, err error) error {
	if a, ok := comm.(distributed.Aborter); ok {
		a.Abort(err)
	}
	return err
}

// rootCause returns the first error that is not an abort caused by
// another worker
func rootCause(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, distributed.ErrAborted) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}
