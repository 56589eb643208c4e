package experiment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/samuelfneumann/gotrain/distributed"
	"github.com/samuelfneumann/gotrain/experiment/checkpointer"
	"github.com/samuelfneumann/gotrain/experiment/tracker"
	"github.com/samuelfneumann/gotrain/minibatch"
	"github.com/samuelfneumann/gotrain/trainer"
	"github.com/samuelfneumann/gotrain/utils/intutils"
)

// Session trains one worker's replica of a model. Every worker of a
// distributed run creates its own Session with its own data source
// over the same data, and all Sessions must be run concurrently.
type Session struct {
	trainer  *trainer.Trainer
	source   minibatch.Source
	comm     distributed.Communicator
	config   Config
	logger   *zap.Logger
	trackers []tracker.Tracker

	lastSaved int // Samples seen at the last checkpoint, -1 if none
}

// NewSession returns a new Session. The trackers are sent the Record
// of every round.
func NewSession(t *trainer.Trainer, source minibatch.Source,
	comm distributed.Communicator, config Config, logger *zap.Logger,
	trackers ...tracker.Tracker) (*Session, error) {
	if t == nil || source == nil || comm == nil {
		return nil, errors.New("newSession: trainer, source, and " +
			"communicator must be non-nil")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "newSession")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		trainer:   t,
		source:    source,
		comm:      comm,
		config:    config,
		logger:    logger,
		trackers:  trackers,
		lastSaved: -1,
	}, nil
}

// Register adds a Tracker to the Session
func (s *Session) Register(t tracker.Tracker) {
	s.trackers = append(s.trackers, t)
}

// Run trains until the sample budget is spent or the data source is
// exhausted on every worker, then writes a final checkpoint and
// finalizes the communicator. The returned Progress is valid even if
// an error is returned.
//
// If this worker fails, the run is aborted so that peers blocked in a
// collective return instead of waiting for it.
func (s *Session) Run(ctx context.Context) (Progress, error) {
	var progress Progress
	err := s.run(ctx, &progress)
	if err != nil {
		if a, ok := s.comm.(distributed.Aborter); ok &&
			!distributed.IsFatal(err) {
			a.Abort(err)
		}
		s.logger.Error("training failed", zap.Error(err),
			zap.Stringer("progress", progress))
		return progress, err
	}

	for _, t := range s.trackers {
		if err := t.Save(); err != nil {
			s.logger.Warn("could not save tracker data", zap.Error(err))
		}
	}

	if err := s.comm.Finalize(); err != nil {
		return progress, errors.Wrap(err, "run: could not finalize")
	}

	s.logger.Info("training finished", zap.Stringer("progress", progress))
	return progress, nil
}

func (s *Session) run(ctx context.Context, progress *Progress) error {
	start := time.Now()

	restored, err := s.restore(ctx)
	if err != nil {
		return err
	}
	progress.Restored = restored
	progress.SamplesSeen = s.trainer.TotalSamplesSeen()
	if restored {
		s.lastSaved = progress.SamplesSeen
	}

	if err := s.trainer.SyncWeights(ctx); err != nil {
		return errors.Wrap(err, "run")
	}

	ckpt := s.config.Checkpoint
	filename := checkpointer.Fixed(ckpt.Path)
	if ckpt.PreserveAll {
		filename = checkpointer.SampleEnumerator(ckpt.Path, "")
	}
	checkpoints := checkpointer.NewNSamples(
		ckpt.FrequencySamples,
		func(name string) error {
			return s.save(ctx, progress, name)
		},
		filename,
	)

	p := minibatch.Partition{Rank: s.comm.Rank(), NumWorkers: s.comm.NumWorkers()}
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "run")
		}

		size := s.config.MinibatchSize
		if s.config.MaxSamples > 0 {
			remaining := s.config.MaxSamples - progress.SamplesSeen
			if remaining <= 0 {
				break
			}
			size = intutils.Min(size, remaining)
		}

		mb, err := s.source.NextMinibatch(size, p)
		if err != nil {
			return errors.Wrap(err, "run: could not read minibatch")
		}

		ok, err := s.trainer.TrainMinibatch(ctx, mb)
		if err != nil {
			return errors.Wrap(err, "run")
		}
		if !ok {
			// No worker had data left
			break
		}

		prev := progress.SamplesSeen
		progress.SamplesSeen = s.trainer.TotalSamplesSeen()
		progress.Minibatches++
		progress.Loss = s.trainer.PreviousMinibatchLoss()
		progress.Error = s.trainer.PreviousMinibatchError()
		progress.Elapsed = time.Since(start)

		record := progress.record(s.comm.Rank(),
			s.trainer.PreviousMinibatchSamples())
		for _, t := range s.trackers {
			t.Track(record)
		}

		if ckpt.Path != "" {
			if _, err := checkpoints.Checkpoint(prev,
				progress.SamplesSeen); err != nil {
				return errors.Wrap(err, "run")
			}
		}
	}
	progress.Elapsed = time.Since(start)

	if ckpt.Path != "" && progress.SamplesSeen != s.lastSaved {
		if err := s.save(ctx, progress, filename(progress.SamplesSeen)); err != nil {
			return errors.Wrap(err, "run: final checkpoint")
		}
	}
	return nil
}

// restore resumes the run from the configured checkpoint, if it should
// and can. All workers first agree on whether the checkpoint exists, so
// that either every worker restores or none does.
func (s *Session) restore(ctx context.Context) (bool, error) {
	ckpt := s.config.Checkpoint
	if !ckpt.restore() {
		return false, nil
	}

	exists, err := s.trainer.Store().Exists(ckpt.Path)
	if err != nil {
		return false, errors.Wrapf(err, "restore: could not check %v",
			ckpt.Path)
	}
	var flag float64
	if exists {
		flag = 1
	}
	count, err := s.comm.AllReduce(ctx, []float64{flag})
	if err != nil {
		return false, errors.Wrap(err, "restore")
	}

	n := s.comm.NumWorkers()
	switch visible := int(count[0]); {
	case visible == 0 && ckpt.RequireExisting:
		return false, errors.Wrapf(checkpointer.ErrNotFound,
			"restore: %v", ckpt.Path)
	case visible == 0:
		s.logger.Info("no checkpoint found, starting fresh",
			zap.String("path", ckpt.Path))
		return false, nil
	case visible != n:
		return false, errors.Wrapf(distributed.ErrDesync,
			"restore: checkpoint %v visible to %v of %v workers", ckpt.Path,
			visible, n)
	}

	// The trainer is restored first, then the source from the position
	// stored with the trainer state
	pos, err := s.trainer.RestoreFromCheckpoint(ckpt.Path)
	if err != nil {
		return false, errors.Wrap(err, "restore")
	}
	if err := s.source.RestoreFromCheckpoint(pos); err != nil {
		return false, errors.Wrapf(checkpointer.ErrIncompatible,
			"restore: data source rejected position %v: %v", pos, err)
	}

	s.logger.Info("resumed from checkpoint", zap.String("path", ckpt.Path),
		zap.Int("samples_seen", s.trainer.TotalSamplesSeen()),
		zap.Stringer("position", pos))
	return true, nil
}

// save writes a checkpoint from rank 0 and then shares the outcome with
// every worker, so that a failed write stops all workers in the same
// round. The latest checkpoint is always written to the configured
// path; name may add a second, preserved copy.
func (s *Session) save(ctx context.Context, progress *Progress,
	name string) error {
	var failed float64
	var saveErr error
	if s.comm.Rank() == 0 {
		pos := s.source.CheckpointState()
		saveErr = s.trainer.SaveCheckpoint(s.config.Checkpoint.Path, pos)
		if saveErr == nil && name != s.config.Checkpoint.Path {
			saveErr = s.trainer.SaveCheckpoint(name, pos)
		}
		if saveErr != nil {
			failed = 1
		}
	}

	outcome, err := s.comm.AllReduce(ctx, []float64{failed})
	if err != nil {
		return errors.Wrap(err, "save")
	}
	if saveErr != nil {
		return errors.Wrap(saveErr, "save")
	}
	if outcome[0] > 0 {
		return errors.Errorf("save: rank 0 could not write checkpoint "+
			"at %v samples", progress.SamplesSeen)
	}

	progress.Checkpoints++
	s.lastSaved = progress.SamplesSeen
	return nil
}
