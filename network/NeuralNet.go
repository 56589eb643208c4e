// Package network implements neural networks built on Gorgonia
// computational graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass lives in a Gorgonia
// computational graph. A NeuralNet does not run its graph; the caller
// compiles the graph into a VM after adding any loss nodes to it.
type NeuralNet interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Features() int
	Outputs() int

	// SetInput sets the value of the input node in row major order
	SetInput([]float64) error

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Prediction returns the node holding the network output and
	// Output the value of this node after the graph is run
	Prediction() *G.Node
	Output() G.Value

	// Weights returns a copy of the value of each learnable node, in
	// the order of Learnables(). SetWeights sets them.
	Weights() ([][]float64, error)
	SetWeights([][]float64) error

	Architecture() Architecture
}

// Architecture describes the shape of a network independently of its
// weights and batch size. Two networks with equal Architectures can
// exchange weights.
type Architecture struct {
	Features    int
	Outputs     int
	HiddenSizes []int
	Biases      []bool
	Activations []string
}

// Equal returns whether two Architectures are the same
func (a Architecture) Equal(b Architecture) bool {
	if a.Features != b.Features || a.Outputs != b.Outputs {
		return false
	}
	if len(a.HiddenSizes) != len(b.HiddenSizes) ||
		len(a.Biases) != len(b.Biases) ||
		len(a.Activations) != len(b.Activations) {
		return false
	}
	for i := range a.HiddenSizes {
		if a.HiddenSizes[i] != b.HiddenSizes[i] {
			return false
		}
	}
	for i := range a.Biases {
		if a.Biases[i] != b.Biases[i] {
			return false
		}
	}
	for i := range a.Activations {
		if a.Activations[i] != b.Activations[i] {
			return false
		}
	}
	return true
}
