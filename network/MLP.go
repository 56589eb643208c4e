package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a multi-layered perceptron whose final layer is
// linear. For classification, the outputs of an mlp are the logits of
// each class.
type mlp struct {
	g         *G.ExprGraph
	layers    []*fcLayer
	input     *G.Node
	batchSize int
	arch      Architecture

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    *G.Value // Shared by copies of the mlp
}

// NewMLP creates and returns a new multi-layered perceptron with
// outputs output nodes. The graph parameter g is populated with the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit is always added so that the network
// outputs outputs values per sample. For index i, hiddenSizes[i] is the
// number of nodes in hidden layer i, biases[i] is true if hidden layer
// i has a bias unit, and activations[i] is the activation of hidden
// layer i. The parameter init determines the weight initialization
// scheme.
func NewMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	if features <= 0 || batch <= 0 || outputs <= 0 {
		msg := "newmlp: features, batch, and outputs must be positive" +
			"\n\thave(%d, %d, %d)"
		return nil, fmt.Errorf(msg, features, batch, outputs)
	}

	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmlp: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmlp: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	for i, size := range hiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("newmlp: hidden layer %d has size %d",
				i, size)
		}
		if activations[i] == nil {
			return nil, fmt.Errorf("newmlp: nil activation for layer %d", i)
		}
	}

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]*fcLayer, 0, len(hiddenSizes)+1)
	in := features
	for i := range hiddenSizes {
		layers = append(layers, newfcLayer(g, in, hiddenSizes[i], biases[i],
			activations[i], init, i))
		in = hiddenSizes[i]
	}

	// Final linear layer producing the logits
	layers = append(layers, newfcLayer(g, in, outputs, true, Identity(),
		init, len(hiddenSizes)))

	net := &mlp{
		g:         g,
		layers:    layers,
		input:     input,
		batchSize: batch,
		predVal:   new(G.Value),
		arch: Architecture{
			Features:    features,
			Outputs:     outputs,
			HiddenSizes: append([]int(nil), hiddenSizes...),
			Biases:      append([]bool(nil), biases...),
			Activations: activationNames(activations),
		},
	}

	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newmlp: could not compute forward pass: %v",
			err)
	}

	return net, nil
}

// NewFromArchitecture creates a new MLP with the given architecture
// and batch size on graph g.
func NewFromArchitecture(arch Architecture, batch int, g *G.ExprGraph,
	init G.InitWFn) (NeuralNet, error) {
	activations := make([]*Activation, len(arch.Activations))
	for i, name := range arch.Activations {
		act, err := ParseActivation(name)
		if err != nil {
			return nil, fmt.Errorf("newfromarchitecture: %v", err)
		}
		activations[i] = act
	}
	return NewMLP(arch.Features, batch, arch.Outputs, g, arch.HiddenSizes,
		arch.Biases, init, activations)
}

// Graph returns the computational graph of the mlp
func (m *mlp) Graph() *G.ExprGraph {
	return m.g
}

// BatchSize returns the batch size of inputs to the network
func (m *mlp) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input sample
func (m *mlp) Features() int {
	return m.arch.Features
}

// Outputs returns the number of outputs per sample
func (m *mlp) Outputs() int {
	return m.arch.Outputs
}

// Architecture returns the architecture of the network
func (m *mlp) Architecture() Architecture {
	return m.arch
}

// SetInput sets the value of the input node before running the forward
// pass.
func (m *mlp) SetInput(input []float64) error {
	if len(input) != m.arch.Features*m.batchSize {
		msg := "setinput: invalid number of inputs\n\twant(%v)\n\thave(%v)"
		return fmt.Errorf(msg, m.arch.Features*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Learnables returns the learnable nodes in the mlp
func (m *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		learnables := make(G.Nodes, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.learnables()...)
		}
		m.learnables = learnables
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients.
func (m *mlp) Model() []G.ValueGrad {
	if m.model == nil {
		model := make([]G.ValueGrad, 0, 2*len(m.layers))
		for _, node := range m.Learnables() {
			model = append(model, node)
		}
		m.model = model
	}
	return m.model
}

// Weights returns a copy of the weights of each learnable node
func (m *mlp) Weights() ([][]float64, error) {
	learnables := m.Learnables()
	weights := make([][]float64, len(learnables))
	for i, node := range learnables {
		if node.Value() == nil {
			return nil, fmt.Errorf("weights: node %v has no value", node.Name())
		}
		data, ok := node.Value().Data().([]float64)
		if !ok {
			return nil, fmt.Errorf("weights: node %v is not float64",
				node.Name())
		}
		weights[i] = append([]float64(nil), data...)
	}
	return weights, nil
}

// SetWeights sets the weights of each learnable node. The weights are
// copied.
func (m *mlp) SetWeights(weights [][]float64) error {
	learnables := m.Learnables()
	if len(weights) != len(learnables) {
		msg := "setweights: invalid number of weight arrays\n\twant(%d)" +
			"\n\thave(%d)"
		return fmt.Errorf(msg, len(learnables), len(weights))
	}

	for i, node := range learnables {
		if len(weights[i]) != node.Shape().TotalSize() {
			msg := "setweights: invalid number of weights for node %v" +
				"\n\twant(%d)\n\thave(%d)"
			return fmt.Errorf(msg, node.Name(), node.Shape().TotalSize(),
				len(weights[i]))
		}
		t := tensor.New(
			tensor.WithBacking(append([]float64(nil), weights[i]...)),
			tensor.WithShape(node.Shape()...),
		)
		if err := G.Let(node, t); err != nil {
			return fmt.Errorf("setweights: could not set node %v: %v",
				node.Name(), err)
		}
	}
	return nil
}

// fwd performs the forward pass of the mlp on the input node
func (m *mlp) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, m.predVal)

	return pred, nil
}

// Output returns the output of the mlp after the graph has been run
func (m *mlp) Output() G.Value {
	return *m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the mlp
func (m *mlp) Prediction() *G.Node {
	return m.prediction
}

// GobEncode implements the gob.GobEncoder interface
func (m *mlp) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(m.arch); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode architecture: %v",
			err)
	}

	if err := enc.Encode(m.batchSize); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size: %v",
			err)
	}

	weights, err := m.Weights()
	if err != nil {
		return nil, fmt.Errorf("gobencode: %v", err)
	}
	if err := enc.Encode(weights); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode weights: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (m *mlp) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var arch Architecture
	if err := dec.Decode(&arch); err != nil {
		return fmt.Errorf("gobdecode: could not decode architecture: %v", err)
	}

	var batchSize int
	if err := dec.Decode(&batchSize); err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size: %v", err)
	}

	var weights [][]float64
	if err := dec.Decode(&weights); err != nil {
		return fmt.Errorf("gobdecode: could not decode weights: %v", err)
	}

	net, err := NewFromArchitecture(arch, batchSize, G.NewGraph(), G.Zeroes())
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}
	if err := net.SetWeights(weights); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	*m = *net.(*mlp)
	return nil
}

// Save saves a network to a file
func Save(path string, net NeuralNet) error {
	m, ok := net.(*mlp)
	if !ok {
		return fmt.Errorf("save: cannot save network of type %T", net)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(m); err != nil {
		return fmt.Errorf("save: could not encode network: %v", err)
	}
	return file.Sync()
}

// Load loads a network from a file
func Load(path string) (NeuralNet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: could not open file: %v", err)
	}
	defer file.Close()

	var m mlp
	if err := gob.NewDecoder(file).Decode(&m); err != nil {
		return nil, fmt.Errorf("load: could not decode network: %v", err)
	}
	return &m, nil
}
