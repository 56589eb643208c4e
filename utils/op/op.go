// Package op provides extended Gorgonia graph operations.
package op

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// CrossEntropy returns the softmax cross-entropy of each row of logits
// against the one-hot encoded targets in onehot. Both arguments must be
// batch x classes matrices. The returned node is a vector of length
// batch holding
//
//	log(Σ_k exp(logits[i, k])) - Σ_k onehot[i, k] * logits[i, k]
func CrossEntropy(logits, onehot *G.Node) (*G.Node, error) {
	if !logits.IsMatrix() || !onehot.IsMatrix() {
		return nil, fmt.Errorf("crossentropy: logits and targets must be " +
			"matrices")
	}
	if !logits.Shape().Eq(onehot.Shape()) {
		return nil, fmt.Errorf("crossentropy: shape mismatch\n\tlogits(%v)"+
			"\n\ttargets(%v)", logits.Shape(), onehot.Shape())
	}

	lse := LogSumExp(logits, 1)

	target, err := G.HadamardProd(onehot, logits)
	if err != nil {
		return nil, fmt.Errorf("crossentropy: %v", err)
	}
	target, err = G.Sum(target, 1)
	if err != nil {
		return nil, fmt.Errorf("crossentropy: %v", err)
	}

	return G.Sub(lse, target)
}

// MaskedSum returns the sum of values[i] * mask[i] as a scalar node.
// Rows with a zero mask contribute nothing to the sum or its gradient.
func MaskedSum(values, mask *G.Node) (*G.Node, error) {
	if !values.Shape().Eq(mask.Shape()) {
		return nil, fmt.Errorf("maskedsum: shape mismatch\n\tvalues(%v)"+
			"\n\tmask(%v)", values.Shape(), mask.Shape())
	}

	masked, err := G.HadamardProd(values, mask)
	if err != nil {
		return nil, fmt.Errorf("maskedsum: %v", err)
	}
	return G.Sum(masked)
}
