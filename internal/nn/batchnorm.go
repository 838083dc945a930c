package nn

import (
	"math"

	"github.com/born-ml/synapse/internal/activation"
	"github.com/born-ml/synapse/internal/optim"
)

// BatchNormConfig configures a batch normalization layer.
type BatchNormConfig struct {
	Size       int
	Momentum   float64 // default: 0.9
	Epsilon    float64 // default: 1e-5
	Activation string  // default: linear
}

// BatchNorm normalizes each feature with running statistics and applies a
// learned scale γ and shift β.
//
// Samples arrive one at a time. In training mode Forward first blends the
// sample into the running mean and variance with momentum, then normalizes
// with the updated statistics. In inference mode the statistics are frozen.
// Backward treats the statistics as constants.
type BatchNorm struct {
	size     int
	momentum float64
	eps      float64
	gamma    *optim.Block
	beta     *optim.Block
	mean     []float64
	variance []float64
	act      activation.Activation
	opt      optim.Optimizer
	training bool

	norm []float64 // x̂ from the last Forward
	std  []float64 // √(var+ε) from the last Forward
	sums []float64
}

// NewBatchNorm creates a layer in training mode with γ=1, β=0, running
// mean 0 and running variance 1.
func NewBatchNorm(cfg BatchNormConfig, opt optim.Optimizer) (*BatchNorm, error) {
	if err := positive("batch norm", cfg.Size); err != nil {
		return nil, err
	}
	if cfg.Momentum == 0 {
		cfg.Momentum = 0.9
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-5
	}
	a, err := activation.Parse(cfg.Activation)
	if err != nil {
		return nil, err
	}
	bn := &BatchNorm{
		size:     cfg.Size,
		momentum: cfg.Momentum,
		eps:      cfg.Epsilon,
		gamma:    optim.NewBlock(cfg.Size),
		beta:     optim.NewBlock(cfg.Size),
		mean:     make([]float64, cfg.Size),
		variance: make([]float64, cfg.Size),
		act:      a,
		opt:      defaultOptimizer(opt),
		training: true,
		norm:     make([]float64, cfg.Size),
		std:      make([]float64, cfg.Size),
		sums:     make([]float64, cfg.Size),
	}
	for i := 0; i < cfg.Size; i++ {
		bn.gamma.Values[i] = 1
		bn.variance[i] = 1
	}
	bn.InitializeOptimizer()
	return bn, nil
}

// Kind returns KindBatchNorm.
func (bn *BatchNorm) Kind() string { return KindBatchNorm }

// InputSize returns the feature count.
func (bn *BatchNorm) InputSize() int { return bn.size }

// OutputSize returns the feature count.
func (bn *BatchNorm) OutputSize() int { return bn.size }

// Optimizer returns the layer's update policy.
func (bn *BatchNorm) Optimizer() optim.Optimizer { return bn.opt }

// SetTraining switches between updating and frozen statistics.
func (bn *BatchNorm) SetTraining(training bool) { bn.training = training }

// Training reports whether the layer is in training mode.
func (bn *BatchNorm) Training() bool { return bn.training }

// RunningMean returns a copy of the running mean.
func (bn *BatchNorm) RunningMean() []float64 { return append([]float64(nil), bn.mean...) }

// RunningVariance returns a copy of the running variance.
func (bn *BatchNorm) RunningVariance() []float64 { return append([]float64(nil), bn.variance...) }

// Forward normalizes, scales and shifts the input.
func (bn *BatchNorm) Forward(input []float64) ([]float64, error) {
	if err := checkLen("batch norm forward", bn.size, len(input)); err != nil {
		return nil, err
	}
	m := bn.momentum
	for i, x := range input {
		if bn.training {
			bn.mean[i] = m*bn.mean[i] + (1-m)*x
			d := x - bn.mean[i]
			bn.variance[i] = m*bn.variance[i] + (1-m)*d*d
		}
		bn.std[i] = math.Sqrt(bn.variance[i] + bn.eps)
		bn.norm[i] = (x - bn.mean[i]) / bn.std[i]
		bn.sums[i] = bn.gamma.Values[i]*bn.norm[i] + bn.beta.Values[i]
	}
	out := make([]float64, bn.size)
	activation.Apply(bn.act, bn.sums, out)
	return out, nil
}

// Backward accumulates dγ += δ·x̂ and dβ += δ and returns δ·γ/√(var+ε).
func (bn *BatchNorm) Backward(outputError []float64) ([]float64, error) {
	if err := checkLen("batch norm backward", bn.size, len(outputError)); err != nil {
		return nil, err
	}
	delta := make([]float64, bn.size)
	activation.Delta(bn.act, bn.sums, outputError, delta)

	inputError := make([]float64, bn.size)
	for i, d := range delta {
		bn.gamma.Grads[i] += d * bn.norm[i]
		bn.beta.Grads[i] += d
		inputError[i] = d * bn.gamma.Values[i] / bn.std[i]
	}
	return inputError, nil
}

// InitializeOptimizer resets all scratch state.
func (bn *BatchNorm) InitializeOptimizer() {
	bn.gamma.Initialize(bn.opt)
	bn.beta.Initialize(bn.opt)
}

// Update applies the optimizer to γ (as weights) and β (as biases).
func (bn *BatchNorm) Update(lr float64) {
	bn.gamma.UpdateWeights(bn.opt, lr)
	bn.beta.UpdateBiases(bn.opt, lr)
}

// Spec describes the layer.
func (bn *BatchNorm) Spec() Spec {
	s := Spec{
		Kind: KindBatchNorm, Input: bn.size, Output: bn.size, Activation: bn.act.Name(),
		Momentum: bn.momentum, Epsilon: bn.eps, Training: bn.training,
	}
	optimizerSpec(&s, bn.opt)
	return s
}

// Parameters returns copies of γ and β.
func (bn *BatchNorm) Parameters() []*optim.Block { return cloneBlocks(bn.gamma, bn.beta) }

// SetParameters loads γ and β.
func (bn *BatchNorm) SetParameters(blocks []*optim.Block) error {
	return setBlocks("batch norm parameters", []*optim.Block{bn.gamma, bn.beta}, blocks)
}

// ResetState restores the initial running statistics.
func (bn *BatchNorm) ResetState() {
	for i := range bn.mean {
		bn.mean[i] = 0
		bn.variance[i] = 1
	}
}

// State returns copies of the running mean and variance.
func (bn *BatchNorm) State() [][]float64 {
	return [][]float64{bn.RunningMean(), bn.RunningVariance()}
}

// SetState restores the running statistics.
func (bn *BatchNorm) SetState(state [][]float64) error {
	if err := checkLen("batch norm state", 2, len(state)); err != nil {
		return err
	}
	for i, dst := range [][]float64{bn.mean, bn.variance} {
		if err := checkLen("batch norm state", bn.size, len(state[i])); err != nil {
			return err
		}
		copy(dst, state[i])
	}
	return nil
}
