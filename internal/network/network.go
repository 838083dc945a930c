// Package network chains layers into a trainable feed-forward network.
//
// A training cycle is Forward, Backward (accumulate) and UpdateWeights
// (apply and clear). Backward never touches parameter values, so several
// samples can be accumulated before a single update:
//
//	net := network.New(network.Config{LearningRate: 0.05})
//	_ = net.Add(hidden)
//	_ = net.Add(output)
//	loss, err := net.TrainBatch(inputs, targets)
package network

import (
	"errors"
	"fmt"

	"github.com/born-ml/synapse/internal/nn"
	"github.com/born-ml/synapse/internal/optim"
)

// Errors returned by Network.
var (
	ErrNoLayers  = errors.New("network has no layers")
	ErrNoForward = errors.New("backward called before forward")
	ErrNilLayer  = errors.New("nil layer")
)

// DefaultLearningRate is used when Config.LearningRate is zero.
const DefaultLearningRate = 0.01

// Config holds configuration for a Network.
type Config struct {
	LearningRate float64         // Step size (default: 0.01)
	Loss         nn.Loss         // Reported loss (default: MSE)
	Optimizer    optim.Optimizer // Default policy for layers built by the caller (default: SGD)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LearningRate: DefaultLearningRate,
		Loss:         nn.MSE{},
		Optimizer:    optim.NewSGD(optim.SGDConfig{}),
	}
}

// Network is an ordered list of layers whose sizes chain.
type Network struct {
	layers []nn.Layer
	lr     float64
	loss   nn.Loss
	opt    optim.Optimizer

	output []float64 // last forward output
}

// New creates an empty network.
func New(cfg Config) *Network {
	def := DefaultConfig()
	if cfg.LearningRate == 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.Loss == nil {
		cfg.Loss = def.Loss
	}
	if cfg.Optimizer == nil {
		cfg.Optimizer = def.Optimizer
	}
	return &Network{lr: cfg.LearningRate, loss: cfg.Loss, opt: cfg.Optimizer}
}

// Add appends a layer. Its input size must equal the previous output size.
func (n *Network) Add(l nn.Layer) error {
	if l == nil {
		return fmt.Errorf("add layer %d: %w", len(n.layers), ErrNilLayer)
	}
	if k := len(n.layers); k > 0 {
		if prev := n.layers[k-1].OutputSize(); prev != l.InputSize() {
			return &nn.DimensionError{Op: fmt.Sprintf("add layer %d", k), Want: prev, Got: l.InputSize()}
		}
	}
	n.layers = append(n.layers, l)
	return nil
}

// Layers returns the layers in order.
func (n *Network) Layers() []nn.Layer { return n.layers }

// Optimizer returns the default optimizer from Config.
func (n *Network) Optimizer() optim.Optimizer { return n.opt }

// LossFunc returns the reporting loss.
func (n *Network) LossFunc() nn.Loss { return n.loss }

// LearningRate returns the current step size.
func (n *Network) LearningRate() float64 { return n.lr }

// SetLearningRate changes the step size for subsequent updates.
func (n *Network) SetLearningRate(lr float64) { n.lr = lr }

// InputSize returns the input width of the first layer.
func (n *Network) InputSize() int {
	if len(n.layers) == 0 {
		return 0
	}
	return n.layers[0].InputSize()
}

// OutputSize returns the output width of the last layer.
func (n *Network) OutputSize() int {
	if len(n.layers) == 0 {
		return 0
	}
	return n.layers[len(n.layers)-1].OutputSize()
}

// Forward feeds input through every layer.
func (n *Network) Forward(input []float64) ([]float64, error) {
	if len(n.layers) == 0 {
		return nil, ErrNoLayers
	}
	x := input
	for i, l := range n.layers {
		y, err := l.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		x = y
	}
	n.output = x
	return append([]float64(nil), x...), nil
}

// Backward propagates target − output from the last Forward down to the
// first layer, accumulating gradients in every layer.
func (n *Network) Backward(target []float64) error {
	if len(n.layers) == 0 {
		return ErrNoLayers
	}
	if n.output == nil {
		return ErrNoForward
	}
	if len(target) != len(n.output) {
		return &nn.DimensionError{Op: "backward target", Want: len(n.output), Got: len(target)}
	}

	e := make([]float64, len(target))
	for j := range e {
		e[j] = target[j] - n.output[j]
	}
	for i := len(n.layers) - 1; i >= 0; i-- {
		var err error
		if e, err = n.layers[i].Backward(e); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// UpdateWeights applies every layer's optimizer and clears the gradients.
// Each distinct step-counting optimizer advances once before any update.
func (n *Network) UpdateWeights() {
	for _, sc := range n.stepCounters() {
		sc.Step()
	}
	for _, l := range n.layers {
		l.Update(n.lr)
	}
}

// InitializeOptimizers zeroes all optimizer scratch and gradients and resets
// step counters, preparing the network for an independent training run.
func (n *Network) InitializeOptimizers() {
	for _, l := range n.layers {
		l.InitializeOptimizer()
	}
	for _, sc := range n.stepCounters() {
		sc.Reset()
	}
}

func (n *Network) stepCounters() []optim.StepCounter {
	var out []optim.StepCounter
	seen := make(map[optim.StepCounter]bool)
	for _, l := range n.layers {
		sc, ok := l.Optimizer().(optim.StepCounter)
		if !ok || seen[sc] {
			continue
		}
		seen[sc] = true
		out = append(out, sc)
	}
	return out
}

// TrainStep runs forward, backward and one update for a single sample and
// returns the sample loss measured before the update.
func (n *Network) TrainStep(input, target []float64) (float64, error) {
	loss, err := n.accumulate(input, target)
	if err != nil {
		return 0, err
	}
	n.UpdateWeights()
	return loss, nil
}

// TrainBatch accumulates gradients over all samples and applies one update.
// It returns the mean sample loss. Sample widths are checked before anything
// is accumulated, so a rejected batch leaves the gradients untouched.
func (n *Network) TrainBatch(inputs, targets [][]float64) (float64, error) {
	if len(inputs) != len(targets) {
		return 0, &nn.DimensionError{Op: "train batch targets", Want: len(inputs), Got: len(targets)}
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	if len(n.layers) == 0 {
		return 0, ErrNoLayers
	}
	in, out := n.InputSize(), n.OutputSize()
	for i := range inputs {
		if len(inputs[i]) != in {
			return 0, fmt.Errorf("sample %d: %w", i, &nn.DimensionError{Op: "train batch input", Want: in, Got: len(inputs[i])})
		}
		if len(targets[i]) != out {
			return 0, fmt.Errorf("sample %d: %w", i, &nn.DimensionError{Op: "train batch target", Want: out, Got: len(targets[i])})
		}
	}
	var total float64
	for i := range inputs {
		loss, err := n.accumulate(inputs[i], targets[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		total += loss
	}
	n.UpdateWeights()
	return total / float64(len(inputs)), nil
}

func (n *Network) accumulate(input, target []float64) (float64, error) {
	out, err := n.Forward(input)
	if err != nil {
		return 0, err
	}
	loss, err := n.loss.Compute(out, target)
	if err != nil {
		return 0, err
	}
	return loss, n.Backward(target)
}

// Predict runs Forward with every trainable layer in inference mode and
// restores the previous modes afterwards.
func (n *Network) Predict(input []float64) ([]float64, error) {
	var restore []nn.Trainable
	for _, l := range n.layers {
		if t, ok := l.(nn.Trainable); ok && t.Training() {
			t.SetTraining(false)
			restore = append(restore, t)
		}
	}
	defer func() {
		for _, t := range restore {
			t.SetTraining(true)
		}
	}()
	return n.Forward(input)
}

// Loss returns the mean loss of Predict over the samples.
func (n *Network) Loss(inputs, targets [][]float64) (float64, error) {
	if len(inputs) != len(targets) {
		return 0, &nn.DimensionError{Op: "loss targets", Want: len(inputs), Got: len(targets)}
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	var total float64
	for i := range inputs {
		out, err := n.Predict(inputs[i])
		if err != nil {
			return 0, err
		}
		l, err := n.loss.Compute(out, targets[i])
		if err != nil {
			return 0, err
		}
		total += l
	}
	return total / float64(len(inputs)), nil
}

// SetTraining switches dropout and batch-norm layers between training and
// inference.
func (n *Network) SetTraining(training bool) {
	for _, l := range n.layers {
		if t, ok := l.(nn.Trainable); ok {
			t.SetTraining(training)
		}
	}
}

// ResetState clears the hidden state of recurrent layers. Batch-norm
// running statistics are kept.
func (n *Network) ResetState() {
	for _, l := range n.layers {
		if r, ok := l.(*nn.Recurrent); ok {
			r.ResetState()
		}
	}
}
