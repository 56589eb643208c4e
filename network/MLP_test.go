package network

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

func newTestMLP(t *testing.T, batch int) NeuralNet {
	net, err := NewMLP(2, batch, 3, G.NewGraph(), []int{4}, []bool{true},
		G.GlorotU(1.0), []*Activation{TanH()})
	require.NoError(t, err)
	return net
}

func runForward(t *testing.T, net NeuralNet, input []float64) []float64 {
	require.NoError(t, net.SetInput(input))
	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()
	require.NoError(t, vm.RunAll())
	out := append([]float64(nil), net.Output().Data().([]float64)...)
	vm.Reset()
	return out
}

func TestNewMLP(t *testing.T) {
	net := newTestMLP(t, 5)

	assert.Equal(t, 5, net.BatchSize())
	assert.Equal(t, 2, net.Features())
	assert.Equal(t, 3, net.Outputs())

	// Hidden weights, hidden bias, output weights, output bias
	assert.Len(t, net.Learnables(), 4)
	assert.Len(t, net.Model(), 4)

	out := runForward(t, net, make([]float64, 10))
	assert.Len(t, out, 15)
}

func TestNewMLPInvalid(t *testing.T) {
	g := G.NewGraph()

	_, err := NewMLP(2, 1, 1, g, []int{4}, []bool{true}, G.Zeroes(), nil)
	assert.Error(t, err)

	_, err = NewMLP(2, 1, 1, g, []int{4}, nil, G.Zeroes(),
		[]*Activation{ReLU()})
	assert.Error(t, err)

	_, err = NewMLP(0, 1, 1, g, nil, nil, G.Zeroes(), nil)
	assert.Error(t, err)

	_, err = NewMLP(2, 1, 1, g, []int{0}, []bool{true}, G.Zeroes(),
		[]*Activation{ReLU()})
	assert.Error(t, err)
}

func TestSetInputWrongSize(t *testing.T) {
	net := newTestMLP(t, 2)
	assert.Error(t, net.SetInput([]float64{1, 2, 3}))
}

func TestWeightsRoundTrip(t *testing.T) {
	src := newTestMLP(t, 1)
	dst := newTestMLP(t, 1)

	weights, err := src.Weights()
	require.NoError(t, err)
	require.NoError(t, dst.SetWeights(weights))

	input := []float64{0.5, -1}
	assert.InDeltaSlice(t, runForward(t, src, input), runForward(t, dst, input),
		1e-12)

	// Weights are copies
	weights[0][0] += 100
	again, err := src.Weights()
	require.NoError(t, err)
	assert.NotEqual(t, weights[0][0], again[0][0])
}

func TestSetWeightsInvalid(t *testing.T) {
	net := newTestMLP(t, 1)
	assert.Error(t, net.SetWeights([][]float64{{1}}))

	weights, err := net.Weights()
	require.NoError(t, err)
	weights[1] = weights[1][1:]
	assert.Error(t, net.SetWeights(weights))
}

func TestSaveLoad(t *testing.T) {
	net := newTestMLP(t, 2)
	path := filepath.Join(t.TempDir(), "net.bin")
	require.NoError(t, Save(path, net))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, net.Architecture().Equal(loaded.Architecture()))
	assert.Equal(t, net.BatchSize(), loaded.BatchSize())

	input := []float64{1, 0, 0, 1}
	assert.InDeltaSlice(t, runForward(t, net, input),
		runForward(t, loaded, input), 1e-12)
}

func TestOutputSurvivesCopy(t *testing.T) {
	net := newTestMLP(t, 2)
	data, err := net.(*mlp).GobEncode()
	require.NoError(t, err)

	var decoded mlp
	require.NoError(t, decoded.GobDecode(data))
	copied := decoded

	input := []float64{0, 1, 1, 0}
	out := runForward(t, &copied, input)
	require.NotNil(t, decoded.Output())
	assert.InDeltaSlice(t, runForward(t, net, input), out, 1e-12)
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"relu", "tanh", "sigmoid", "identity"} {
		act, err := ParseActivation(name)
		require.NoError(t, err)
		assert.Equal(t, name, act.String())
	}

	_, err := ParseActivation("softplus")
	assert.Error(t, err)

	var act Activation
	require.NoError(t, act.UnmarshalText([]byte("sigmoid")))
	assert.Equal(t, "sigmoid", act.String())
	assert.False(t, act.IsIdentity())
}

func TestArchitectureEqual(t *testing.T) {
	a := Architecture{Features: 2, Outputs: 2, HiddenSizes: []int{8},
		Biases: []bool{true}, Activations: []string{"tanh"}}
	b := a
	assert.True(t, a.Equal(b))

	b.Activations = []string{"relu"}
	assert.False(t, a.Equal(b))

	b = a
	b.HiddenSizes = []int{8, 8}
	assert.False(t, a.Equal(b))
}
