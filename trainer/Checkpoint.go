package trainer

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/samuelfneumann/gotrain/experiment/checkpointer"
	"github.com/samuelfneumann/gotrain/minibatch"
	"github.com/samuelfneumann/gotrain/network"
)

// state is the serialized form of a Trainer
type state struct {
	Architecture network.Architecture
	Weights      [][]float64
}

// Store returns the Store checkpoints are written to and read from
func (t *Trainer) Store() *checkpointer.Store {
	return t.store
}

// SaveCheckpoint writes the model and the data source position pos to
// a checkpoint at path. Both are recorded together so that a restored
// run continues from exactly the samples that follow those the model
// was trained on.
func (t *Trainer) SaveCheckpoint(path string, pos minibatch.State) error {
	weights, err := t.net.Weights()
	if err != nil {
		return errors.Wrap(err, "saveCheckpoint")
	}

	var buf bytes.Buffer
	s := state{Architecture: t.net.Architecture(), Weights: weights}
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return errors.Wrap(err, "saveCheckpoint: could not encode model")
	}

	bundle := checkpointer.Bundle{
		RunID:       t.runID,
		NumWorkers:  t.comm.NumWorkers(),
		SamplesSeen: t.samplesSeen,
		Trainer:     buf.Bytes(),
		Source:      pos,
	}
	if err := t.store.Save(path, bundle); err != nil {
		return errors.Wrap(err, "saveCheckpoint")
	}

	t.logger.Info("saved checkpoint", zap.String("path", path),
		zap.Int("samples_seen", t.samplesSeen))
	return nil
}

// RestoreFromCheckpoint restores the model and the number of samples
// seen from the checkpoint at path and returns the data source position
// saved with them.
//
// Gorgonia does not expose the running statistics of its solvers, so
// they are not checkpointed and the solver is reset here. A run resumed
// with a stateful solver such as Adam or Momentum therefore takes
// different steps than an uninterrupted run; with Vanilla the resumed
// run is exact.
//
// The returned error matches checkpointer.ErrNotFound if there is no
// checkpoint, checkpointer.ErrCorrupt if it cannot be decoded, and
// checkpointer.ErrIncompatible if it holds a different architecture.
// The Trainer is unchanged if an error is returned.
func (t *Trainer) RestoreFromCheckpoint(path string) (minibatch.State,
	error) {
	bundle, err := t.store.Load(path)
	if err != nil {
		return minibatch.State{}, errors.Wrap(err, "restoreFromCheckpoint")
	}

	var s state
	if err := gob.NewDecoder(bytes.NewReader(bundle.Trainer)).Decode(&s); err != nil {
		return minibatch.State{}, errors.Wrapf(checkpointer.ErrCorrupt,
			"restoreFromCheckpoint: could not decode model: %v", err)
	}

	if !s.Architecture.Equal(t.net.Architecture()) {
		return minibatch.State{}, errors.Wrapf(checkpointer.ErrIncompatible,
			"restoreFromCheckpoint: architecture\n\twant(%+v)\n\thave(%+v)",
			t.net.Architecture(), s.Architecture)
	}

	if err := t.net.SetWeights(s.Weights); err != nil {
		return minibatch.State{}, errors.Wrapf(checkpointer.ErrCorrupt,
			"restoreFromCheckpoint: %v", err)
	}

	if bundle.NumWorkers != t.comm.NumWorkers() {
		t.logger.Warn("resuming with a different number of workers",
			zap.Int("checkpoint_workers", bundle.NumWorkers),
			zap.Int("workers", t.comm.NumWorkers()))
	}

	t.samplesSeen = bundle.SamplesSeen
	t.runID = bundle.RunID
	t.solver.Reset()

	t.logger.Info("restored checkpoint", zap.String("path", path),
		zap.Int("samples_seen", t.samplesSeen),
		zap.Stringer("position", bundle.Source))
	return bundle.Source, nil
}
