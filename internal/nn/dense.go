package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/synapse/internal/activation"
	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/optim"
)

// Dense is a fully connected layer in matrix form.
//
// Weights are an InputSize×OutputSize row-major block so the forward pass
// is the row-vector product z = b + x·W. The arithmetic runs on the
// process-wide matrix backend.
type Dense struct {
	in, out int
	weights *optim.Block // in×out
	biases  *optim.Block // out
	act     activation.Activation
	opt     optim.Optimizer
	ops     backend.Ops

	input []float64
	sums  []float64
}

// NewDense creates a matrix-form fully connected layer with the same
// initialization as NewGraphDense.
func NewDense(in, out int, act string, opt optim.Optimizer, rng *rand.Rand) (*Dense, error) {
	if err := positive("dense", in, out); err != nil {
		return nil, err
	}
	a, err := activation.Parse(act)
	if err != nil {
		return nil, err
	}
	rng = newRand(rng)

	d := newDense(in, out, a, defaultOptimizer(opt))
	Xavier(rng, d.weights.Values, in, out)
	Uniform(rng, d.biases.Values, 1)
	d.InitializeOptimizer()
	return d, nil
}

func newDense(in, out int, act activation.Activation, opt optim.Optimizer) *Dense {
	return &Dense{
		in:      in,
		out:     out,
		weights: optim.NewBlock(in * out),
		biases:  optim.NewBlock(out),
		act:     act,
		opt:     opt,
		ops:     backend.Default(),
		input:   make([]float64, in),
		sums:    make([]float64, out),
	}
}

// Kind returns KindDense.
func (d *Dense) Kind() string { return KindDense }

// InputSize returns the input width.
func (d *Dense) InputSize() int { return d.in }

// OutputSize returns the output width.
func (d *Dense) OutputSize() int { return d.out }

// Optimizer returns the layer's update policy.
func (d *Dense) Optimizer() optim.Optimizer { return d.opt }

// Activation returns the layer activation.
func (d *Dense) Activation() activation.Activation { return d.act }

// Weights returns the live in×out weight block.
func (d *Dense) Weights() *optim.Block { return d.weights }

// Biases returns the live bias block.
func (d *Dense) Biases() *optim.Block { return d.biases }

// Forward computes activation(b + x·W).
func (d *Dense) Forward(input []float64) ([]float64, error) {
	if err := checkLen("dense forward", d.in, len(input)); err != nil {
		return nil, err
	}
	copy(d.input, input)
	copy(d.sums, d.biases.Values)
	d.ops.MatrixMultiply(d.input, d.weights.Values, d.sums, 1, d.out, d.in, 1, 1)

	out := make([]float64, d.out)
	activation.Apply(d.act, d.sums, out)
	return out, nil
}

// Backward accumulates gradW += xᵀ·δ and gradB += δ and returns W·δ.
func (d *Dense) Backward(outputError []float64) ([]float64, error) {
	if err := checkLen("dense backward", d.out, len(outputError)); err != nil {
		return nil, err
	}
	delta := d.ops.Alloc(d.out)
	defer d.ops.Free(delta)
	activation.Delta(d.act, d.sums, outputError, delta)

	accumulateProduct(d.ops, d.input, delta, d.weights.Grads, d.in, d.out, 1)
	floats.Add(d.biases.Grads, delta)

	inputError := make([]float64, d.in)
	d.ops.MatrixMultiply(d.weights.Values, delta, inputError, d.in, 1, d.out, 1, 0)
	return inputError, nil
}

// InitializeOptimizer resets all scratch state.
func (d *Dense) InitializeOptimizer() {
	d.weights.Initialize(d.opt)
	d.biases.Initialize(d.opt)
}

// Update applies the optimizer to every weight and bias.
func (d *Dense) Update(lr float64) {
	d.weights.UpdateWeights(d.opt, lr)
	d.biases.UpdateBiases(d.opt, lr)
}

// Spec describes the layer.
func (d *Dense) Spec() Spec {
	s := Spec{Kind: KindDense, Input: d.in, Output: d.out, Activation: d.act.Name()}
	optimizerSpec(&s, d.opt)
	return s
}

// Parameters returns copies of the weight and bias blocks.
func (d *Dense) Parameters() []*optim.Block { return cloneBlocks(d.weights, d.biases) }

// SetParameters loads the weight and bias blocks.
func (d *Dense) SetParameters(blocks []*optim.Block) error {
	return setBlocks("dense parameters", []*optim.Block{d.weights, d.biases}, blocks)
}

// ToGraph converts the layer to the Unit/Connection representation.
func (d *Dense) ToGraph() *GraphDense {
	// The rng only seeds values that SetParameters overwrites.
	g, _ := NewGraphDense(d.in, d.out, d.act.Name(), d.opt, rand.New(rand.NewSource(0))) //nolint:gosec // overwritten below
	_ = g.SetParameters(cloneBlocks(d.weights, d.biases))
	return g
}
