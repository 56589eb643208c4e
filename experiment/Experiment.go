// Package experiment runs training sessions: the loop that feeds
// minibatches from a data source to a trainer, checkpoints the run, and
// resumes it from a checkpoint.
package experiment

import (
	"github.com/pkg/errors"
)

// CheckpointConfig configures when and where a Session checkpoints
type CheckpointConfig struct {
	// Path is the file holding the latest checkpoint. Checkpointing is
	// disabled if Path is empty.
	Path string `yaml:"path"`

	// FrequencySamples is the number of samples between checkpoints.
	// If 0, a checkpoint is only written at the end of the run.
	FrequencySamples int `yaml:"frequency_samples"`

	// RestoreIfExists resumes from Path if a checkpoint exists there,
	// and starts fresh otherwise
	RestoreIfExists bool `yaml:"restore_if_exists"`

	// RequireExisting resumes from Path and fails if there is no
	// checkpoint there
	RequireExisting bool `yaml:"require_existing"`

	// PreserveAll keeps a copy of every checkpoint, suffixed with the
	// number of samples seen, next to Path
	PreserveAll bool `yaml:"preserve_all"`
}

// Config configures a Session
type Config struct {
	// MinibatchSize is the size of each global minibatch, summed over
	// all workers
	MinibatchSize int `yaml:"minibatch_size"`

	// MaxSamples is the sample budget of the run, including samples
	// seen before a restore. If 0, the run ends when the data source is
	// exhausted.
	MaxSamples int `yaml:"max_samples"`

	// ProgressFrequency is the number of samples between progress
	// reports
	ProgressFrequency int `yaml:"progress_frequency"`

	Checkpoint CheckpointConfig `yaml:"checkpoint"`
}

// Validate returns an error if the Config cannot run a Session
func (c Config) Validate() error {
	if c.MinibatchSize <= 0 {
		return errors.Errorf("minibatch_size must be positive, have %v",
			c.MinibatchSize)
	}
	if c.MaxSamples < 0 {
		return errors.Errorf("max_samples must be non-negative, have %v",
			c.MaxSamples)
	}
	if c.ProgressFrequency < 0 {
		return errors.Errorf("progress_frequency must be non-negative, "+
			"have %v", c.ProgressFrequency)
	}

	ckpt := c.Checkpoint
	if ckpt.FrequencySamples < 0 {
		return errors.Errorf("checkpoint frequency_samples must be "+
			"non-negative, have %v", ckpt.FrequencySamples)
	}
	if ckpt.Path == "" && (ckpt.FrequencySamples > 0 ||
		ckpt.RestoreIfExists || ckpt.RequireExisting || ckpt.PreserveAll) {
		return errors.New("checkpoint options set without a checkpoint path")
	}
	return nil
}

// restore returns whether the Session should try to resume
func (c CheckpointConfig) restore() bool {
	return c.Path != "" && (c.RestoreIfExists || c.RequireExisting)
}
