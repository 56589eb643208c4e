// Package config loads the YAML configuration of a training run and
// builds the components it describes
package config

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/samuelfneumann/gotrain/distributed"
	"github.com/samuelfneumann/gotrain/experiment"
	"github.com/samuelfneumann/gotrain/minibatch"
	"github.com/samuelfneumann/gotrain/solver"
	"github.com/samuelfneumann/gotrain/trainer"
)

// Data sources
const (
	SourceXOR = "xor"
	SourceCSV = "csv"
)

// DataConfig describes the training data
type DataConfig struct {
	Source string `yaml:"source"`

	// CSV only
	Path           string   `yaml:"path"`
	FeatureColumns []string `yaml:"feature_columns"`
	LabelColumn    string   `yaml:"label_column"`

	Randomize bool   `yaml:"randomize"`
	Seed      uint64 `yaml:"seed"`
	MaxSweeps int    `yaml:"max_sweeps"`
}

// OutputConfig describes the files written at the end of a run
type OutputConfig struct {
	LossFile  string `yaml:"loss_file"`
	ErrorFile string `yaml:"error_file"`
	ModelFile string `yaml:"model_file"`
}

// Config captures everything needed to run training
type Config struct {
	Workers  int           `yaml:"workers"`
	Timeout  time.Duration `yaml:"timeout"`
	LogLevel string        `yaml:"log_level"`

	Data    DataConfig        `yaml:"data"`
	Model   trainer.Config    `yaml:"model"`
	Session experiment.Config `yaml:"session"`
	Output  OutputConfig      `yaml:"output"`
}

// Overrides captures CLI supplied values
type Overrides struct {
	Workers        int
	MaxSamples     int
	MinibatchSize  int
	CheckpointPath string
	LogLevel       string
}

// Default returns the configuration of the XOR demonstration: 800
// samples in minibatches of 4, checkpointed every 400 samples.
func Default() *Config {
	adam, err := solver.NewDefaultAdam(0.05, 1)
	if err != nil {
		panic(err)
	}

	return &Config{
		Workers:  1,
		Timeout:  distributed.DefaultTimeout,
		LogLevel: "info",
		Data:     DataConfig{Source: SourceXOR},
		Model: trainer.Config{
			HiddenSizes: []int{16},
			Biases:      []bool{true},
			Activations: []string{"tanh"},
			Solver:      adam,
		},
		Session: experiment.Config{
			MinibatchSize:     4,
			MaxSamples:        800,
			ProgressFrequency: 100,
			Checkpoint: experiment.CheckpointConfig{
				Path:             "xor.ckpt",
				FrequencySamples: 400,
				RestoreIfExists:  true,
			},
		},
	}
}

// Load reads a Config from a YAML file. Fields missing from the file
// keep their Default values; unknown fields are an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

// Parse parses a Config from YAML
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	if o.MaxSamples > 0 {
		c.Session.MaxSamples = o.MaxSamples
	}
	if o.MinibatchSize > 0 {
		c.Session.MinibatchSize = o.MinibatchSize
	}
	if o.CheckpointPath != "" {
		c.Session.Checkpoint.Path = o.CheckpointPath
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate verifies the Config is runnable. The model is validated
// once the data source is known, by Resolve.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Workers <= 0 {
		return errors.Errorf("workers must be > 0 (got %d)", c.Workers)
	}
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be > 0 (got %v)", c.Timeout)
	}
	switch c.Data.Source {
	case SourceXOR:
	case SourceCSV:
		if c.Data.Path == "" || c.Data.LabelColumn == "" ||
			len(c.Data.FeatureColumns) == 0 {
			return errors.New("csv data needs a path, feature_columns, " +
				"and label_column")
		}
	default:
		return errors.Errorf("unknown data source %q", c.Data.Source)
	}
	if c.Data.MaxSweeps < 0 {
		return errors.Errorf("max_sweeps must be >= 0 (got %d)",
			c.Data.MaxSweeps)
	}
	if c.Model.Solver == nil {
		return errors.New("model needs a solver")
	}
	return errors.Wrap(c.Session.Validate(), "session")
}

// LocalBatchSize returns the size of the graph each worker compiles:
// the largest local minibatch a worker receives, and at least 2
func (c *Config) LocalBatchSize() int {
	size := (c.Session.MinibatchSize + c.Workers - 1) / c.Workers
	if size < 2 {
		size = 2
	}
	return size
}

// NewSource returns a new data source as described by the Config.
// Every worker needs its own.
func (c *Config) NewSource() (*minibatch.Memory, error) {
	memConfig := minibatch.MemoryConfig{
		Randomize: c.Data.Randomize,
		Seed:      c.Data.Seed,
		MaxSweeps: c.Data.MaxSweeps,
	}

	switch c.Data.Source {
	case SourceXOR:
		return minibatch.NewXOR(memConfig)

	case SourceCSV:
		f, err := os.Open(c.Data.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open data")
		}
		defer f.Close()

		features, labels, classes, err := minibatch.LoadCSV(f,
			c.Data.FeatureColumns, c.Data.LabelColumn)
		if err != nil {
			return nil, err
		}
		return minibatch.NewMemory(features, labels, classes, memConfig)
	}
	return nil, errors.Errorf("unknown data source %q", c.Data.Source)
}

// Resolve fills in the parts of the model that follow from the data
// source and the number of workers, and validates the result
func (c *Config) Resolve(source *minibatch.Memory) error {
	if c.Model.Features == 0 {
		c.Model.Features = source.Features()
	}
	if c.Model.Classes == 0 {
		c.Model.Classes = source.Classes()
	}
	if c.Model.BatchSize == 0 {
		c.Model.BatchSize = c.LocalBatchSize()
	}

	if c.Model.Features != source.Features() {
		return errors.Errorf("model has %d features but data has %d",
			c.Model.Features, source.Features())
	}
	if c.Model.Classes < source.Classes() {
		return errors.Errorf("model has %d classes but data has %d",
			c.Model.Classes, source.Classes())
	}
	return errors.Wrap(c.Model.Validate(), "model")
}
