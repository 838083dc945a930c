package nn

import (
	"math/rand"

	"github.com/born-ml/synapse/internal/activation"
	"github.com/born-ml/synapse/internal/optim"
)

// Unit is a neuron in the graph representation.
//
// Inputs and Outputs hold connection handles into the owning layer's arena.
// Sum, Activation and Delta are overwritten by every forward and backward
// call and are meaningless between training steps.
type Unit struct {
	Bias       optim.Param
	Sum        float64
	Activation float64
	Delta      float64
	Inputs     []int
	Outputs    []int
}

// Connection is a weighted edge between two units, addressed by handle.
type Connection struct {
	Src    int
	Dst    int
	Weight optim.Param
}

// GraphDense is a fully connected layer stored as an arena of units and
// connections. The first InputSize units mirror the layer input; the rest
// are the output units.
type GraphDense struct {
	in, out int
	units   []Unit
	conns   []Connection
	act     activation.Activation
	opt     optim.Optimizer

	sums []float64
	outs []float64
}

// NewGraphDense creates a fully connected graph layer. Weights are Glorot
// uniform and biases uniform in [-1, 1]. A nil optimizer means SGD with
// default settings; a nil rng means a time-seeded generator.
func NewGraphDense(in, out int, act string, opt optim.Optimizer, rng *rand.Rand) (*GraphDense, error) {
	if err := positive("graph dense", in, out); err != nil {
		return nil, err
	}
	a, err := activation.Parse(act)
	if err != nil {
		return nil, err
	}
	rng = newRand(rng)

	g := &GraphDense{
		in:    in,
		out:   out,
		units: make([]Unit, in+out),
		conns: make([]Connection, 0, in*out),
		act:   a,
		opt:   defaultOptimizer(opt),
		sums:  make([]float64, out),
		outs:  make([]float64, out),
	}

	bound := XavierBound(in, out)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			h := len(g.conns)
			dst := in + j
			g.conns = append(g.conns, Connection{
				Src:    i,
				Dst:    dst,
				Weight: optim.Param{Value: (rng.Float64()*2 - 1) * bound},
			})
			g.units[i].Outputs = append(g.units[i].Outputs, h)
			g.units[dst].Inputs = append(g.units[dst].Inputs, h)
		}
	}
	for j := 0; j < out; j++ {
		g.units[in+j].Bias.Value = rng.Float64()*2 - 1
	}
	g.InitializeOptimizer()
	return g, nil
}

// Kind returns KindGraphDense.
func (g *GraphDense) Kind() string { return KindGraphDense }

// InputSize returns the number of input units.
func (g *GraphDense) InputSize() int { return g.in }

// OutputSize returns the number of output units.
func (g *GraphDense) OutputSize() int { return g.out }

// Optimizer returns the layer's update policy.
func (g *GraphDense) Optimizer() optim.Optimizer { return g.opt }

// Activation returns the layer activation.
func (g *GraphDense) Activation() activation.Activation { return g.act }

// Unit returns a copy of the unit with handle h.
func (g *GraphDense) Unit(h int) Unit { return g.units[h] }

// Connection returns a copy of the connection with handle h.
func (g *GraphDense) Connection(h int) Connection { return g.conns[h] }

// NumConnections returns the arena size.
func (g *GraphDense) NumConnections() int { return len(g.conns) }

// Forward sets the input units, computes every weighted sum and applies the
// activation.
func (g *GraphDense) Forward(input []float64) ([]float64, error) {
	if err := checkLen("graph dense forward", g.in, len(input)); err != nil {
		return nil, err
	}
	for i, x := range input {
		g.units[i].Activation = x
	}
	for j := 0; j < g.out; j++ {
		u := &g.units[g.in+j]
		sum := u.Bias.Value
		for _, h := range u.Inputs {
			c := &g.conns[h]
			sum += c.Weight.Value * g.units[c.Src].Activation
		}
		u.Sum = sum
		g.sums[j] = sum
	}
	activation.Apply(g.act, g.sums, g.outs)
	for j, a := range g.outs {
		g.units[g.in+j].Activation = a
	}
	return append([]float64(nil), g.outs...), nil
}

// Backward computes unit deltas, accumulates connection and bias gradients
// and returns Σ delta·weight for every input unit.
func (g *GraphDense) Backward(outputError []float64) ([]float64, error) {
	if err := checkLen("graph dense backward", g.out, len(outputError)); err != nil {
		return nil, err
	}
	deltas := make([]float64, g.out)
	activation.Delta(g.act, g.sums, outputError, deltas)
	for j, d := range deltas {
		u := &g.units[g.in+j]
		u.Delta = d
		u.Bias.Grad += d
		for _, h := range u.Inputs {
			c := &g.conns[h]
			c.Weight.Grad += d * g.units[c.Src].Activation
		}
	}

	inputError := make([]float64, g.in)
	for i := 0; i < g.in; i++ {
		var sum float64
		for _, h := range g.units[i].Outputs {
			c := &g.conns[h]
			sum += g.units[c.Dst].Delta * c.Weight.Value
		}
		g.units[i].Delta = sum
		inputError[i] = sum
	}
	return inputError, nil
}

// InitializeOptimizer resets the scratch state of every connection and
// output unit.
func (g *GraphDense) InitializeOptimizer() {
	for h := range g.conns {
		g.opt.Initialize(&g.conns[h].Weight)
	}
	for j := g.in; j < len(g.units); j++ {
		g.opt.Initialize(&g.units[j].Bias)
	}
}

// Update applies the optimizer once per connection and once per bias.
func (g *GraphDense) Update(lr float64) {
	for h := range g.conns {
		g.opt.UpdateWeight(&g.conns[h].Weight, lr)
	}
	for j := g.in; j < len(g.units); j++ {
		g.opt.UpdateBias(&g.units[j].Bias, lr)
	}
}

// Spec describes the layer.
func (g *GraphDense) Spec() Spec {
	s := Spec{Kind: KindGraphDense, Input: g.in, Output: g.out, Activation: g.act.Name()}
	optimizerSpec(&s, g.opt)
	return s
}

// Parameters returns the weights as an in×out row-major block followed by
// the biases.
func (g *GraphDense) Parameters() []*optim.Block {
	w := optim.NewBlock(len(g.conns))
	for _, c := range g.conns {
		w.Set(c.Src*g.out+(c.Dst-g.in), c.Weight)
	}
	b := optim.NewBlock(g.out)
	for j := 0; j < g.out; j++ {
		b.Set(j, g.units[g.in+j].Bias)
	}
	return []*optim.Block{w, b}
}

// SetParameters loads blocks laid out as by Parameters.
func (g *GraphDense) SetParameters(blocks []*optim.Block) error {
	if err := checkLen("graph dense parameters", 2, len(blocks)); err != nil {
		return err
	}
	if err := checkLen("graph dense weights", len(g.conns), blocks[0].Len()); err != nil {
		return err
	}
	if err := checkLen("graph dense biases", g.out, blocks[1].Len()); err != nil {
		return err
	}
	for h := range g.conns {
		c := &g.conns[h]
		c.Weight = blocks[0].At(c.Src*g.out + (c.Dst - g.in))
	}
	for j := 0; j < g.out; j++ {
		g.units[g.in+j].Bias = blocks[1].At(j)
	}
	return nil
}

// ToMatrix converts the layer to the matrix representation, keeping
// weights, biases and optimizer scratch.
func (g *GraphDense) ToMatrix() *Dense {
	d := newDense(g.in, g.out, g.act, g.opt)
	p := g.Parameters()
	d.weights, d.biases = p[0], p[1]
	return d
}
