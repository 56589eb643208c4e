package minibatch

import "gonum.org/v1/gonum/mat"

// XOR returns the four samples of the exclusive-or problem:
//
//	(0, 0) -> 0
//	(0, 1) -> 1
//	(1, 0) -> 1
//	(1, 1) -> 0
//
// as a feature matrix, labels, and number of classes.
func XOR() (*mat.Dense, []int, int) {
	features := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	labels := []int{0, 1, 1, 0}
	return features, labels, 2
}

// NewXOR returns an in-memory Source over the XOR dataset
func NewXOR(config MemoryConfig) (*Memory, error) {
	features, labels, classes := XOR()
	return NewMemory(features, labels, classes, config)
}
