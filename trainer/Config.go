package trainer

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/gotrain/distributed"
	"github.com/samuelfneumann/gotrain/initwfn"
	"github.com/samuelfneumann/gotrain/network"
	"github.com/samuelfneumann/gotrain/solver"
)

// Config describes a classification network and how to train it
type Config struct {
	Features int `yaml:"features"`
	Classes  int `yaml:"classes"`

	// BatchSize is the number of rows of the compiled graph. Larger
	// local minibatches are processed in several passes.
	BatchSize int `yaml:"batch_size"`

	HiddenSizes []int    `yaml:"hidden_sizes"`
	Biases      []bool   `yaml:"biases"`
	Activations []string `yaml:"activations"`

	InitWFn *initwfn.InitWFn `yaml:"init"`
	Solver  *solver.Solver   `yaml:"solver"`
}

// Validate returns an error if the Config cannot create a Trainer
func (c Config) Validate() error {
	if c.Features <= 0 {
		return errors.Errorf("features must be positive, have %v", c.Features)
	}
	if c.Classes < 2 {
		return errors.Errorf("classes must be at least 2, have %v", c.Classes)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be positive, have %v",
			c.BatchSize)
	}
	if len(c.Biases) != len(c.HiddenSizes) ||
		len(c.Activations) != len(c.HiddenSizes) {
		return errors.Errorf("need one bias and activation per hidden "+
			"layer: %v layers, %v biases, %v activations", len(c.HiddenSizes),
			len(c.Biases), len(c.Activations))
	}
	for _, name := range c.Activations {
		if _, err := network.ParseActivation(name); err != nil {
			return err
		}
	}
	if c.Solver == nil {
		return errors.New("missing solver")
	}
	return nil
}

// Architecture returns the network architecture described by the
// Config
func (c Config) Architecture() network.Architecture {
	return network.Architecture{
		Features:    c.Features,
		Outputs:     c.Classes,
		HiddenSizes: c.HiddenSizes,
		Biases:      c.Biases,
		Activations: c.Activations,
	}
}

// CreateTrainer creates a new network and a Trainer for it that
// communicates with its peers through comm. Each Trainer gets its own
// solver, so a Config may be used to create the Trainers of several
// in-process workers.
func (c Config) CreateTrainer(comm distributed.Communicator,
	opts ...Option) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "createTrainer")
	}

	init := G.GlorotU(1.0)
	if c.InitWFn != nil {
		init = c.InitWFn.InitWFn()
	}

	net, err := network.NewFromArchitecture(c.Architecture(), c.BatchSize,
		G.NewGraph(), init)
	if err != nil {
		return nil, errors.Wrap(err, "createTrainer")
	}

	s, err := c.Solver.Clone()
	if err != nil {
		return nil, errors.Wrap(err, "createTrainer")
	}

	return New(net, s, comm, opts...)
}
