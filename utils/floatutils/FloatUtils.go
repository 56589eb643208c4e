// Package floatutils provides utilities for working with floats
package floatutils

import "gonum.org/v1/gonum/floats"

// Argmax returns the first index of the maximum value in values
func Argmax(values []float64) int {
	return floats.MaxIdx(values)
}

// Argmaxes returns the Argmax of each consecutive row of length cols
// in values, stored in row major order
func Argmaxes(values []float64, cols int) []int {
	rows := len(values) / cols
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		out[i] = floats.MaxIdx(values[i*cols : (i+1)*cols])
	}
	return out
}
