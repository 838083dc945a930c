package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/synapse/internal/activation"
	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/optim"
)

// Recurrent is an Elman layer: h_t = f(x·Wx + h_{t−1}·Wh + b).
//
// The hidden state persists across Forward calls until ResetState.
// Backward is truncated to one step; h_{t−1} is treated as a constant input.
type Recurrent struct {
	in, hidden int
	wx         *optim.Block // in×hidden
	wh         *optim.Block // hidden×hidden
	b          *optim.Block // hidden
	act        activation.Activation
	opt        optim.Optimizer
	ops        backend.Ops

	state []float64 // h_t
	prev  []float64 // h_{t−1} used by the last Forward
	input []float64
	sums  []float64
}

// NewRecurrent creates a recurrent layer. Both weight matrices are uniform
// in ±sqrt(2/(in+hidden)); biases start at zero.
func NewRecurrent(in, hidden int, act string, opt optim.Optimizer, rng *rand.Rand) (*Recurrent, error) {
	if err := positive("recurrent", in, hidden); err != nil {
		return nil, err
	}
	a, err := activation.Parse(act)
	if err != nil {
		return nil, err
	}
	rng = newRand(rng)

	r := &Recurrent{
		in:     in,
		hidden: hidden,
		wx:     optim.NewBlock(in * hidden),
		wh:     optim.NewBlock(hidden * hidden),
		b:      optim.NewBlock(hidden),
		act:    a,
		opt:    defaultOptimizer(opt),
		ops:    backend.Default(),
		state:  make([]float64, hidden),
		prev:   make([]float64, hidden),
		input:  make([]float64, in),
		sums:   make([]float64, hidden),
	}
	scale := math.Sqrt(2.0 / float64(in+hidden))
	Uniform(rng, r.wx.Values, scale)
	Uniform(rng, r.wh.Values, scale)
	r.InitializeOptimizer()
	return r, nil
}

// Kind returns KindRecurrent.
func (r *Recurrent) Kind() string { return KindRecurrent }

// InputSize returns the input width.
func (r *Recurrent) InputSize() int { return r.in }

// OutputSize returns the hidden width.
func (r *Recurrent) OutputSize() int { return r.hidden }

// Optimizer returns the layer's update policy.
func (r *Recurrent) Optimizer() optim.Optimizer { return r.opt }

// Forward advances the hidden state by one step and returns it.
func (r *Recurrent) Forward(input []float64) ([]float64, error) {
	if err := checkLen("recurrent forward", r.in, len(input)); err != nil {
		return nil, err
	}
	copy(r.input, input)
	copy(r.prev, r.state)
	copy(r.sums, r.b.Values)
	r.ops.MatrixMultiply(r.input, r.wx.Values, r.sums, 1, r.hidden, r.in, 1, 1)
	r.ops.MatrixMultiply(r.prev, r.wh.Values, r.sums, 1, r.hidden, r.hidden, 1, 1)

	activation.Apply(r.act, r.sums, r.state)
	return append([]float64(nil), r.state...), nil
}

// Backward accumulates gradients for Wx, Wh and b and returns Wx·δ.
func (r *Recurrent) Backward(outputError []float64) ([]float64, error) {
	if err := checkLen("recurrent backward", r.hidden, len(outputError)); err != nil {
		return nil, err
	}
	delta := make([]float64, r.hidden)
	activation.Delta(r.act, r.sums, outputError, delta)

	accumulateProduct(r.ops, r.input, delta, r.wx.Grads, r.in, r.hidden, 1)
	accumulateProduct(r.ops, r.prev, delta, r.wh.Grads, r.hidden, r.hidden, 1)
	floats.Add(r.b.Grads, delta)

	inputError := make([]float64, r.in)
	r.ops.MatrixMultiply(r.wx.Values, delta, inputError, r.in, 1, r.hidden, 1, 0)
	return inputError, nil
}

// ResetState zeroes the hidden state.
func (r *Recurrent) ResetState() {
	clear(r.state)
	clear(r.prev)
}

// State returns copies of h_t and h_{t−1}.
func (r *Recurrent) State() [][]float64 {
	return [][]float64{append([]float64(nil), r.state...), append([]float64(nil), r.prev...)}
}

// SetState restores a State snapshot.
func (r *Recurrent) SetState(state [][]float64) error {
	if err := checkLen("recurrent state", 2, len(state)); err != nil {
		return err
	}
	for i, dst := range [][]float64{r.state, r.prev} {
		if err := checkLen("recurrent state", r.hidden, len(state[i])); err != nil {
			return err
		}
		copy(dst, state[i])
	}
	return nil
}

// InitializeOptimizer resets all scratch state.
func (r *Recurrent) InitializeOptimizer() {
	r.wx.Initialize(r.opt)
	r.wh.Initialize(r.opt)
	r.b.Initialize(r.opt)
}

// Update applies the optimizer to both weight matrices and the biases.
func (r *Recurrent) Update(lr float64) {
	r.wx.UpdateWeights(r.opt, lr)
	r.wh.UpdateWeights(r.opt, lr)
	r.b.UpdateBiases(r.opt, lr)
}

// Spec describes the layer.
func (r *Recurrent) Spec() Spec {
	s := Spec{Kind: KindRecurrent, Input: r.in, Output: r.hidden, Activation: r.act.Name()}
	optimizerSpec(&s, r.opt)
	return s
}

// Parameters returns copies of Wx, Wh and b.
func (r *Recurrent) Parameters() []*optim.Block { return cloneBlocks(r.wx, r.wh, r.b) }

// SetParameters loads Wx, Wh and b.
func (r *Recurrent) SetParameters(blocks []*optim.Block) error {
	return setBlocks("recurrent parameters", []*optim.Block{r.wx, r.wh, r.b}, blocks)
}
