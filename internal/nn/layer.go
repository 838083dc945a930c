// Package nn implements the layers and losses of the synapse engine.
//
// This package provides:
//   - Layer: the forward/backward/update contract every layer satisfies
//   - GraphDense: a fully connected layer stored as a Unit/Connection arena
//   - Dense: the same layer stored as a weight matrix, computed on a matrix backend
//   - Conv, Recurrent, Pool, BatchNorm and Dropout
//   - Loss: MSE, CrossEntropy and BinaryCrossEntropy
//
// Backward receives the error at the layer outputs (target − output for the
// last layer), accumulates parameter gradients and returns the error at the
// layer inputs. Gradients are only cleared by Update.
package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/optim"
)

// Layer kinds used in persisted models.
const (
	KindGraphDense = "graph_dense"
	KindDense      = "dense"
	KindConv       = "conv"
	KindRecurrent  = "recurrent"
	KindPool       = "pool"
	KindBatchNorm  = "batch_norm"
	KindDropout    = "dropout"
)

// Layer is one stage of a network.
type Layer interface {
	// Kind returns the persisted layer kind.
	Kind() string
	InputSize() int
	OutputSize() int

	// Forward computes the layer output and caches what Backward needs.
	// The returned slice belongs to the caller.
	Forward(input []float64) ([]float64, error)

	// Backward takes the error at the outputs, accumulates gradients and
	// returns the error at the inputs. Forward must have been called first.
	Backward(outputError []float64) ([]float64, error)

	// Optimizer returns the layer's update policy, nil for layers without
	// parameters.
	Optimizer() optim.Optimizer

	// InitializeOptimizer zeroes all optimizer scratch and gradients.
	InitializeOptimizer()

	// Update applies the optimizer to every parameter and clears the gradients.
	Update(lr float64)

	// Spec describes the layer geometry for persistence.
	Spec() Spec

	// Parameters returns copies of the parameter blocks in a fixed order.
	Parameters() []*optim.Block

	// SetParameters replaces the parameter blocks.
	SetParameters(blocks []*optim.Block) error
}

// Trainable is implemented by layers whose behavior differs between
// training and inference.
type Trainable interface {
	SetTraining(training bool)
	Training() bool
}

// Stateful is implemented by layers with state beyond their parameters.
type Stateful interface {
	// ResetState clears state carried between forward calls.
	ResetState()
	State() [][]float64
	SetState(state [][]float64) error
}

// Spec is the persisted description of a layer. Only the fields that apply
// to the kind are set.
type Spec struct {
	Kind       string `json:"kind"`
	Input      int    `json:"input"`
	Output     int    `json:"output"`
	Activation string `json:"activation,omitempty"`

	Channels int `json:"channels,omitempty"`
	Height   int `json:"height,omitempty"`
	Width    int `json:"width,omitempty"`
	Filters  int `json:"filters,omitempty"`
	Kernel   int `json:"kernel,omitempty"`
	Stride   int `json:"stride,omitempty"`

	Mode     string  `json:"mode,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
	Momentum float64 `json:"momentum,omitempty"`
	Epsilon  float64 `json:"epsilon,omitempty"`
	Training bool    `json:"training,omitempty"`

	Optimizer       string             `json:"optimizer,omitempty"`
	OptimizerConfig map[string]float64 `json:"optimizer_config,omitempty"`
}

// Build constructs an empty layer from its spec. Parameters and state are
// randomly initialized and are expected to be overwritten by the caller.
func Build(spec Spec, opt optim.Optimizer, rng *rand.Rand) (Layer, error) {
	var (
		l   Layer
		err error
	)
	switch spec.Kind {
	case KindGraphDense:
		l, err = NewGraphDense(spec.Input, spec.Output, spec.Activation, opt, rng)
	case KindDense:
		l, err = NewDense(spec.Input, spec.Output, spec.Activation, opt, rng)
	case KindConv:
		l, err = NewConv(ConvConfig{
			Channels: spec.Channels, Height: spec.Height, Width: spec.Width,
			Filters: spec.Filters, Kernel: spec.Kernel, Stride: spec.Stride,
			Activation: spec.Activation,
		}, opt, rng)
	case KindRecurrent:
		l, err = NewRecurrent(spec.Input, spec.Output, spec.Activation, opt, rng)
	case KindPool:
		l, err = NewPool(PoolConfig{
			Channels: spec.Channels, Height: spec.Height, Width: spec.Width,
			Size: spec.Kernel, Stride: spec.Stride, Mode: PoolMode(spec.Mode),
		})
	case KindBatchNorm:
		l, err = NewBatchNorm(BatchNormConfig{
			Size: spec.Input, Momentum: spec.Momentum, Epsilon: spec.Epsilon,
			Activation: spec.Activation,
		}, opt)
	case KindDropout:
		l, err = NewDropout(spec.Input, spec.Rate, rng)
	default:
		return nil, fmt.Errorf("nn: unknown layer kind %q", spec.Kind)
	}
	if err != nil {
		return nil, err
	}
	if t, ok := l.(Trainable); ok {
		t.SetTraining(spec.Training)
	}
	return l, nil
}

func optimizerSpec(s *Spec, opt optim.Optimizer) {
	if opt == nil {
		return
	}
	s.Optimizer = opt.Name()
	s.OptimizerConfig = opt.Config()
}

func setBlocks(op string, dst []*optim.Block, src []*optim.Block) error {
	if err := checkLen(op+" blocks", len(dst), len(src)); err != nil {
		return err
	}
	for i, b := range src {
		if err := checkLen(op, dst[i].Len(), b.Len()); err != nil {
			return err
		}
		copy(dst[i].Values, b.Values)
		copy(dst[i].Grads, b.Grads)
		copy(dst[i].Moments, b.Moments)
		copy(dst[i].Variances, b.Variances)
	}
	return nil
}

func cloneBlocks(blocks ...*optim.Block) []*optim.Block {
	out := make([]*optim.Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// defaultOptimizer substitutes SGD with default settings for nil.
func defaultOptimizer(opt optim.Optimizer) optim.Optimizer {
	if opt == nil {
		return optim.NewSGD(optim.SGDConfig{})
	}
	return opt
}

func positive(op string, sizes ...int) error {
	for _, n := range sizes {
		if n <= 0 {
			return fmt.Errorf("%s: size must be positive, got %d: %w", op, n, ErrDimensionMismatch)
		}
	}
	return nil
}

// accumulateProduct adds the m×k by k×n product a·b into grads. Only the
// product runs on ops; the sum is done on the host so float64 gradients
// never pass through a float32 device buffer.
func accumulateProduct(ops backend.Ops, a, b, grads []float64, m, n, k int) {
	scratch := ops.Alloc(m * n)
	defer ops.Free(scratch)
	ops.MatrixMultiply(a, b, scratch, m, n, k, 1, 0)
	floats.Add(grads, scratch)
}
