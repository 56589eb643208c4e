package minibatch

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// MemoryConfig configures an in-memory Source
type MemoryConfig struct {
	// Randomize determines whether each sweep visits the samples in a
	// random order. The order of sweep i depends only on Seed and i, so
	// a restored Source replays exactly the same order.
	Randomize bool
	Seed      uint64

	// MaxSweeps is the number of passes over the data, 0 if unbounded
	MaxSweeps int

	// MaxSamples is the number of samples to read, 0 if unbounded
	MaxSamples int
}

// Memory implements a Source over a dataset held in RAM
type Memory struct {
	features *mat.Dense
	labels   []int
	classes  int
	config   MemoryConfig

	state State
	order []int // Visiting order for the current sweep
}

// NewMemory returns a new in-memory Source. Each row of features is a
// single sample whose label is the corresponding element of labels.
// Labels must be in [0, classes).
func NewMemory(features *mat.Dense, labels []int, classes int,
	config MemoryConfig) (*Memory, error) {
	if features == nil {
		return nil, fmt.Errorf("newMemory: features must not be nil")
	}
	r, _ := features.Dims()
	if r != len(labels) {
		return nil, fmt.Errorf("newMemory: invalid number of labels"+
			"\n\twant(%v)\n\thave(%v)", r, len(labels))
	}
	if classes < 1 {
		return nil, fmt.Errorf("newMemory: number of classes must be "+
			"positive \n\twant(>0) \n\thave(%v)", classes)
	}
	for i, label := range labels {
		if label < 0 || label >= classes {
			return nil, fmt.Errorf("newMemory: label %v of sample %v out "+
				"of range [0, %v)", label, i, classes)
		}
	}
	if config.MaxSweeps < 0 || config.MaxSamples < 0 {
		return nil, fmt.Errorf("newMemory: sweep and sample limits must " +
			"be non-negative")
	}

	m := &Memory{
		features: features,
		labels:   labels,
		classes:  classes,
		config:   config,
	}
	m.order = m.sweepOrder(0)

	return m, nil
}

// Len returns the number of samples in a single sweep
func (m *Memory) Len() int {
	return len(m.labels)
}

// Features returns the number of features per sample
func (m *Memory) Features() int {
	_, c := m.features.Dims()
	return c
}

// Classes returns the number of label classes
func (m *Memory) Classes() int {
	return m.classes
}

// All returns the whole dataset as a single Minibatch, ignoring the read
// position. It is useful for evaluation.
func (m *Memory) All() Minibatch {
	return Minibatch{
		Features: mat.DenseCopyOf(m.features),
		Labels:   append([]int(nil), m.labels...),
	}
}

// sweepOrder returns the order in which samples are visited on a sweep
func (m *Memory) sweepOrder(sweep int) []int {
	if !m.config.Randomize {
		order := make([]int, m.Len())
		for i := range order {
			order[i] = i
		}
		return order
	}
	rng := rand.New(rand.NewSource(m.config.Seed + uint64(sweep)))
	return rng.Perm(m.Len())
}

// exhausted returns whether the Source has no more samples to give
func (m *Memory) exhausted() bool {
	if m.Len() == 0 {
		return true
	}
	if m.config.MaxSweeps > 0 && m.state.Sweep >= m.config.MaxSweeps {
		return true
	}
	return m.config.MaxSamples > 0 && m.state.SamplesRead >= m.config.MaxSamples
}

// next returns the index of the next sample and advances the cursor
func (m *Memory) next() int {
	index := m.order[m.state.Offset]
	m.state.Offset++
	m.state.SamplesRead++

	if m.state.Offset == m.Len() {
		m.state.Offset = 0
		m.state.Sweep++
		m.order = m.sweepOrder(m.state.Sweep)
	}
	return index
}

// NextMinibatch implements the Source interface
func (m *Memory) NextMinibatch(size int, p Partition) (Minibatch, error) {
	if size <= 0 {
		return Minibatch{}, fmt.Errorf("nextMinibatch: minibatch size must "+
			"be positive \n\twant(>0) \n\thave(%v)", size)
	}
	if err := p.Validate(); err != nil {
		return Minibatch{}, fmt.Errorf("nextMinibatch: %v", err)
	}

	var indices []int
	for j := 0; j < size && !m.exhausted(); j++ {
		index := m.next()
		if p.Owns(j) {
			indices = append(indices, index)
		}
	}

	if len(indices) == 0 {
		return Minibatch{}, nil
	}

	cols := m.Features()
	features := mat.NewDense(len(indices), cols, nil)
	labels := make([]int, len(indices))
	for row, index := range indices {
		features.SetRow(row, m.features.RawRowView(index))
		labels[row] = m.labels[index]
	}

	return Minibatch{Features: features, Labels: labels}, nil
}

// CheckpointState implements the Source interface
func (m *Memory) CheckpointState() State {
	return m.state
}

// RestoreFromCheckpoint implements the Source interface
func (m *Memory) RestoreFromCheckpoint(s State) error {
	if s.Sweep < 0 || s.Offset < 0 || s.SamplesRead < 0 {
		return fmt.Errorf("restoreFromCheckpoint: negative position %v", s)
	}
	if s.Offset >= m.Len() && !(s.Offset == 0 && m.Len() == 0) {
		return fmt.Errorf("restoreFromCheckpoint: offset %v out of range "+
			"for dataset of %v samples", s.Offset, m.Len())
	}
	if want := s.Sweep*m.Len() + s.Offset; want != s.SamplesRead {
		return fmt.Errorf("restoreFromCheckpoint: inconsistent position %v"+
			"\n\twant(SamplesRead=%v)\n\thave(SamplesRead=%v)", s, want,
			s.SamplesRead)
	}

	m.state = s
	m.order = m.sweepOrder(s.Sweep)
	return nil
}
