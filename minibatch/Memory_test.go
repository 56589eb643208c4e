package minibatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newCounting(t *testing.T, n int, config MemoryConfig) *Memory {
	data := make([]float64, n)
	labels := make([]int, n)
	for i := range data {
		data[i] = float64(i)
	}
	m, err := NewMemory(mat.NewDense(n, 1, data), labels, 1, config)
	require.NoError(t, err)
	return m
}

func values(mb Minibatch) []int {
	var out []int
	for i := 0; i < mb.Len(); i++ {
		out = append(out, int(mb.Features.At(i, 0)))
	}
	return out
}

func TestNextMinibatchSequential(t *testing.T) {
	m := newCounting(t, 5, MemoryConfig{MaxSweeps: 1})

	mb, err := m.NextMinibatch(2, Single())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, values(mb))

	mb, err = m.NextMinibatch(2, Single())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, values(mb))

	mb, err = m.NextMinibatch(2, Single())
	require.NoError(t, err)
	assert.Equal(t, []int{4}, values(mb))

	mb, err = m.NextMinibatch(2, Single())
	require.NoError(t, err)
	assert.True(t, mb.Empty())
	assert.Nil(t, mb.Features)
	assert.Equal(t, State{Sweep: 1, Offset: 0, SamplesRead: 5}, m.CheckpointState())
}

func TestNextMinibatchPartition(t *testing.T) {
	a := newCounting(t, 6, MemoryConfig{})
	b := newCounting(t, 6, MemoryConfig{})

	mbA, err := a.NextMinibatch(4, Partition{Rank: 0, NumWorkers: 2})
	require.NoError(t, err)
	mbB, err := b.NextMinibatch(4, Partition{Rank: 1, NumWorkers: 2})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, values(mbA))
	assert.Equal(t, []int{1, 3}, values(mbB))
	assert.Equal(t, a.CheckpointState(), b.CheckpointState())
}

func TestNextMinibatchMoreWorkersThanSamples(t *testing.T) {
	m := newCounting(t, 3, MemoryConfig{MaxSweeps: 1})

	mb, err := m.NextMinibatch(2, Partition{Rank: 2, NumWorkers: 3})
	require.NoError(t, err)
	assert.True(t, mb.Empty())
}

func TestNextMinibatchInvalid(t *testing.T) {
	m := newCounting(t, 3, MemoryConfig{})

	_, err := m.NextMinibatch(0, Single())
	assert.Error(t, err)

	_, err = m.NextMinibatch(1, Partition{Rank: 1, NumWorkers: 1})
	assert.Error(t, err)
}

func TestMaxSamples(t *testing.T) {
	m := newCounting(t, 4, MemoryConfig{MaxSamples: 6})

	total := 0
	for i := 0; i < 10; i++ {
		mb, err := m.NextMinibatch(4, Single())
		require.NoError(t, err)
		total += mb.Len()
	}
	assert.Equal(t, 6, total)
}

func TestCheckpointRestoreReplaysOrder(t *testing.T) {
	config := MemoryConfig{Randomize: true, Seed: 7}
	m := newCounting(t, 10, config)

	_, err := m.NextMinibatch(7, Single())
	require.NoError(t, err)
	state := m.CheckpointState()

	want, err := m.NextMinibatch(8, Single())
	require.NoError(t, err)

	restored := newCounting(t, 10, config)
	require.NoError(t, restored.RestoreFromCheckpoint(state))
	assert.Equal(t, state, restored.CheckpointState())

	got, err := restored.NextMinibatch(8, Single())
	require.NoError(t, err)
	assert.Equal(t, values(want), values(got))
}

func TestRandomizeIsPermutation(t *testing.T) {
	m := newCounting(t, 8, MemoryConfig{Randomize: true, Seed: 3, MaxSweeps: 1})

	mb, err := m.NextMinibatch(8, Single())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, values(mb))
}

func TestRestoreRejectsInvalidState(t *testing.T) {
	m := newCounting(t, 4, MemoryConfig{})

	assert.Error(t, m.RestoreFromCheckpoint(State{Offset: 4}))
	assert.Error(t, m.RestoreFromCheckpoint(State{Sweep: -1}))
	assert.Error(t, m.RestoreFromCheckpoint(State{Sweep: 1, Offset: 1, SamplesRead: 3}))
	assert.NoError(t, m.RestoreFromCheckpoint(State{Sweep: 1, Offset: 1, SamplesRead: 5}))
}

func TestNewMemoryValidation(t *testing.T) {
	features, labels, classes := XOR()

	_, err := NewMemory(features, labels[:3], classes, MemoryConfig{})
	assert.Error(t, err)

	_, err = NewMemory(features, []int{0, 1, 2, 0}, classes, MemoryConfig{})
	assert.Error(t, err)

	_, err = NewMemory(nil, labels, classes, MemoryConfig{})
	assert.Error(t, err)
}

func TestXOR(t *testing.T) {
	m, err := NewXOR(MemoryConfig{})
	require.NoError(t, err)
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, 2, m.Features())
	assert.Equal(t, 2, m.Classes())

	all := m.All()
	require.NoError(t, all.Validate())
	for i, label := range all.Labels {
		x, y := int(all.Features.At(i, 0)), int(all.Features.At(i, 1))
		assert.Equal(t, x^y, label)
	}
}
