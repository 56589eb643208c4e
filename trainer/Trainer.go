// Package trainer implements a data-parallel classification learner.
//
// Each worker holds a replica of the same network. On every round, the
// workers compute gradients on their local minibatches and sum them
// with a single AllReduce, so that every replica takes the same step
// and the weights stay identical on all workers.
package trainer

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gotrain/distributed"
	"github.com/samuelfneumann/gotrain/experiment/checkpointer"
	"github.com/samuelfneumann/gotrain/minibatch"
	"github.com/samuelfneumann/gotrain/network"
	"github.com/samuelfneumann/gotrain/solver"
	"github.com/samuelfneumann/gotrain/utils/floatutils"
	"github.com/samuelfneumann/gotrain/utils/op"
)

// Trainer trains a classification network with softmax cross-entropy
type Trainer struct {
	net    network.NeuralNet
	solver *solver.Solver
	comm   distributed.Communicator
	store  *checkpointer.Store
	logger *zap.Logger
	runID  string

	vm      G.VM
	targets *G.Node
	mask    *G.Node
	lossVal G.Value

	numWeights int

	samplesSeen int
	prevLoss    float64
	prevError   float64
	prevSamples int
}

// Option configures a Trainer
type Option func(*Trainer)

// WithStore sets the Store checkpoints are written to and read from
func WithStore(store *checkpointer.Store) Option {
	return func(t *Trainer) {
		t.store = store
	}
}

// WithLogger sets the logger of the Trainer
func WithLogger(logger *zap.Logger) Option {
	return func(t *Trainer) {
		t.logger = logger
	}
}

// WithRunID sets the run id recorded in checkpoints
func WithRunID(id string) Option {
	return func(t *Trainer) {
		t.runID = id
	}
}

// New returns a new Trainer for net. The network's outputs are treated
// as the logits of each class. The loss and gradient nodes are added to
// the network's graph, which is then compiled, so no further nodes may
// be added to the graph afterwards.
func New(net network.NeuralNet, s *solver.Solver,
	comm distributed.Communicator, opts ...Option) (*Trainer, error) {
	if net == nil || s == nil || comm == nil {
		return nil, errors.New("new: network, solver, and communicator " +
			"must be non-nil")
	}

	t := &Trainer{
		net:    net,
		solver: s,
		comm:   comm,
		store:  checkpointer.NewStore(nil),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.runID == "" {
		id, err := checkpointer.NewRunID()
		if err != nil {
			return nil, errors.Wrap(err, "new")
		}
		t.runID = id
	}

	g := net.Graph()
	batch := net.BatchSize()

	t.targets = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, net.Outputs()),
		G.WithName("targets"),
		G.WithInit(G.Zeroes()),
	)
	t.mask = G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("mask"),
		G.WithInit(G.Zeroes()),
	)

	// Sum of the cross-entropy of each sample in the minibatch. Padding
	// rows have a zero mask and so do not contribute to the loss or its
	// gradient.
	losses, err := op.CrossEntropy(net.Prediction(), t.targets)
	if err != nil {
		return nil, errors.Wrap(err, "new: could not build loss")
	}
	cost, err := op.MaskedSum(losses, t.mask)
	if err != nil {
		return nil, errors.Wrap(err, "new: could not build loss")
	}
	G.Read(cost, &t.lossVal)

	if _, err := G.Grad(cost, net.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "new: could not compute gradient")
	}

	for _, node := range net.Learnables() {
		t.numWeights += node.Shape().TotalSize()
	}

	t.vm = G.NewTapeMachine(g, G.BindDualValues(net.Learnables()...))

	return t, nil
}

// Network returns the network being trained
func (t *Trainer) Network() network.NeuralNet {
	return t.net
}

// TotalSamplesSeen returns the number of samples trained on, summed
// over all workers
func (t *Trainer) TotalSamplesSeen() int {
	return t.samplesSeen
}

// PreviousMinibatchLoss returns the mean loss over the global
// minibatch of the last training round
func (t *Trainer) PreviousMinibatchLoss() float64 {
	return t.prevLoss
}

// PreviousMinibatchError returns the classification error rate over
// the global minibatch of the last training round
func (t *Trainer) PreviousMinibatchError() float64 {
	return t.prevError
}

// PreviousMinibatchSamples returns the size of the global minibatch of
// the last training round
func (t *Trainer) PreviousMinibatchSamples() int {
	return t.prevSamples
}

// Close releases the resources of the compiled graph
func (t *Trainer) Close() error {
	return t.vm.Close()
}

// chunkStats holds the results of a forward and backward pass
type chunkStats struct {
	lossSum float64
	errors  int
}

// run runs the graph on rows [start, end) of mb, padding the input to
// the graph batch size. An empty range runs the graph with every row
// masked out.
func (t *Trainer) run(mb minibatch.Minibatch, start, end int) (chunkStats,
	error) {
	batch := t.net.BatchSize()
	features := t.net.Features()
	outputs := t.net.Outputs()

	input := make([]float64, batch*features)
	targets := make([]float64, batch*outputs)
	mask := make([]float64, batch)
	for i := 0; i < end-start; i++ {
		copy(input[i*features:(i+1)*features], mb.Features.RawRowView(start+i))
		targets[i*outputs+mb.Labels[start+i]] = 1
		mask[i] = 1
	}

	if err := t.net.SetInput(input); err != nil {
		return chunkStats{}, err
	}
	if err := G.Let(t.targets, tensor.New(
		tensor.WithBacking(targets),
		tensor.WithShape(batch, outputs),
	)); err != nil {
		return chunkStats{}, err
	}
	if err := G.Let(t.mask, tensor.New(
		tensor.WithBacking(mask),
		tensor.WithShape(batch),
	)); err != nil {
		return chunkStats{}, err
	}

	if err := t.vm.RunAll(); err != nil {
		return chunkStats{}, errors.Wrap(err, "could not run graph")
	}

	stats := chunkStats{lossSum: t.lossVal.Data().(float64)}
	logits := t.net.Output().Data().([]float64)
	predictions := floatutils.Argmaxes(logits[:(end-start)*outputs], outputs)
	for i, pred := range predictions {
		if pred != mb.Labels[start+i] {
			stats.errors++
		}
	}
	return stats, nil
}

// check returns an error if mb cannot be fed to the network
func (t *Trainer) check(mb minibatch.Minibatch) error {
	if err := mb.Validate(); err != nil {
		return err
	}
	if mb.Empty() {
		return nil
	}
	if mb.NumFeatures() != t.net.Features() {
		return errors.Errorf("invalid number of features\n\twant(%v)"+
			"\n\thave(%v)", t.net.Features(), mb.NumFeatures())
	}
	for _, label := range mb.Labels {
		if label < 0 || label >= t.net.Outputs() {
			return errors.Errorf("label %v out of range [0, %v)", label,
				t.net.Outputs())
		}
	}
	return nil
}

// TrainMinibatch trains on the local minibatch mb of this worker.
//
// The gradient of the summed loss of mb, the summed loss, the number of
// misclassified samples, and the number of samples are summed over all
// workers with one AllReduce. Every worker must call TrainMinibatch in
// the same round, even when its minibatch is empty. If no worker had
// any samples, TrainMinibatch returns false on every worker without
// changing the model. Otherwise the model is stepped with the gradient
// of the mean loss over the global minibatch and true is returned.
func (t *Trainer) TrainMinibatch(ctx context.Context,
	mb minibatch.Minibatch) (bool, error) {
	if err := t.check(mb); err != nil {
		return false, errors.Wrap(err, "trainMinibatch")
	}

	// Local sums: the gradient of each learnable, then the loss sum,
	// error count, and sample count
	local := make([]float64, t.numWeights+3)
	var lossSum float64
	var errCount int

	batch := t.net.BatchSize()
	for start := 0; start == 0 || start < mb.Len(); start += batch {
		end := start + batch
		if end > mb.Len() {
			end = mb.Len()
		}
		if start > 0 {
			t.vm.Reset()
		}

		stats, err := t.run(mb, start, end)
		if err != nil {
			t.vm.Reset()
			return false, errors.Wrap(err, "trainMinibatch")
		}
		lossSum += stats.lossSum
		errCount += stats.errors

		if err := t.accumulateGrad(local); err != nil {
			t.vm.Reset()
			return false, errors.Wrap(err, "trainMinibatch")
		}
	}
	defer t.vm.Reset()

	local[t.numWeights] = lossSum
	local[t.numWeights+1] = float64(errCount)
	local[t.numWeights+2] = float64(mb.Len())

	global, err := t.comm.AllReduce(ctx, local)
	if err != nil {
		return false, errors.Wrap(err, "trainMinibatch")
	}

	globalN := int(global[t.numWeights+2])
	if globalN == 0 {
		return false, nil
	}

	globalLoss := global[t.numWeights] / float64(globalN)
	if math.IsNaN(globalLoss) || math.IsInf(globalLoss, 0) {
		return false, errors.Errorf("trainMinibatch: non-finite loss %v "+
			"after %v samples", globalLoss, t.samplesSeen)
	}

	if err := t.setGrad(global[:t.numWeights], float64(globalN)); err != nil {
		return false, errors.Wrap(err, "trainMinibatch")
	}
	if err := t.solver.Step(t.net.Model()); err != nil {
		return false, errors.Wrap(err, "trainMinibatch: could not step "+
			"solver")
	}

	t.samplesSeen += globalN
	t.prevSamples = globalN
	t.prevLoss = globalLoss
	t.prevError = global[t.numWeights+1] / float64(globalN)

	return true, nil
}

// accumulateGrad adds the current gradient of each learnable to sum,
// flattened in the order of the learnables
func (t *Trainer) accumulateGrad(sum []float64) error {
	offset := 0
	for _, node := range t.net.Learnables() {
		grad, err := node.Grad()
		if err != nil {
			return errors.Wrapf(err, "no gradient for %v", node.Name())
		}
		data := grad.Data().([]float64)
		for i, g := range data {
			sum[offset+i] += g
		}
		offset += len(data)
	}
	return nil
}

// setGrad overwrites the gradient of each learnable with the matching
// span of sum divided by n
func (t *Trainer) setGrad(sum []float64, n float64) error {
	offset := 0
	for _, node := range t.net.Learnables() {
		grad, err := node.Grad()
		if err != nil {
			return errors.Wrapf(err, "no gradient for %v", node.Name())
		}
		data := grad.Data().([]float64)
		for i := range data {
			data[i] = sum[offset+i] / n
		}
		offset += len(data)
	}
	return nil
}

// TestMinibatch returns the classification error rate of the current
// model on mb. The model is not changed and no collective is performed.
func (t *Trainer) TestMinibatch(mb minibatch.Minibatch) (float64, error) {
	if err := t.check(mb); err != nil {
		return 0, errors.Wrap(err, "testMinibatch")
	}
	if mb.Empty() {
		return 0, errors.New("testMinibatch: empty minibatch")
	}

	errCount := 0
	batch := t.net.BatchSize()
	for start := 0; start < mb.Len(); start += batch {
		end := start + batch
		if end > mb.Len() {
			end = mb.Len()
		}

		stats, err := t.run(mb, start, end)
		t.vm.Reset()
		if err != nil {
			return 0, errors.Wrap(err, "testMinibatch")
		}
		errCount += stats.errors
	}
	return float64(errCount) / float64(mb.Len()), nil
}

// SyncWeights sets the weights of every worker's replica to those of
// the worker with rank 0
func (t *Trainer) SyncWeights(ctx context.Context) error {
	weights, err := t.net.Weights()
	if err != nil {
		return errors.Wrap(err, "syncWeights")
	}

	flat := make([]float64, 0, t.numWeights)
	for _, w := range weights {
		flat = append(flat, w...)
	}
	if t.comm.Rank() != 0 {
		for i := range flat {
			flat[i] = 0
		}
	}

	flat, err = t.comm.AllReduce(ctx, flat)
	if err != nil {
		return errors.Wrap(err, "syncWeights")
	}

	offset := 0
	for i := range weights {
		copy(weights[i], flat[offset:offset+len(weights[i])])
		offset += len(weights[i])
	}
	return errors.Wrap(t.net.SetWeights(weights), "syncWeights")
}
