package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/synapse/internal/activation"
	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/optim"
	"github.com/born-ml/synapse/internal/parallel"
)

// ConvConfig describes a convolution layer. The input is a flattened
// Channels×Height×Width volume.
type ConvConfig struct {
	Channels   int
	Height     int
	Width      int
	Filters    int
	Kernel     int    // square kernel side
	Stride     int    // default: 1
	Activation string // default: linear
}

// Conv is a 2-D convolution without padding. Each filter produces an
// OutHeight×OutWidth map where Out = ⌊(in−kernel)/stride⌋+1.
//
// The layer lowers the convolution to matrix products with im2col so the
// arithmetic runs on the matrix backend.
type Conv struct {
	cfg            ConvConfig
	outH, outW     int
	patch, patches int // C·K·K and outH·outW

	weights *optim.Block // Filters × patch
	biases  *optim.Block // Filters
	act     activation.Activation
	opt     optim.Optimizer
	ops     backend.Ops
	par     parallel.Config

	cols []float64 // patch × patches
	sums []float64 // Filters × patches
}

// NewConv creates a convolution layer. Kernels are uniform in
// ±sqrt(2/(C·K·K)) and biases start at zero.
func NewConv(cfg ConvConfig, opt optim.Optimizer, rng *rand.Rand) (*Conv, error) {
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	if err := positive("conv", cfg.Channels, cfg.Height, cfg.Width, cfg.Filters, cfg.Kernel, cfg.Stride); err != nil {
		return nil, err
	}
	if cfg.Kernel > cfg.Height || cfg.Kernel > cfg.Width {
		return nil, fmt.Errorf("conv: kernel %d larger than input %dx%d: %w",
			cfg.Kernel, cfg.Height, cfg.Width, ErrDimensionMismatch)
	}
	a, err := activation.Parse(cfg.Activation)
	if err != nil {
		return nil, err
	}
	rng = newRand(rng)

	c := &Conv{
		cfg:  cfg,
		outH: (cfg.Height-cfg.Kernel)/cfg.Stride + 1,
		outW: (cfg.Width-cfg.Kernel)/cfg.Stride + 1,
		act:  a,
		opt:  defaultOptimizer(opt),
		ops:  backend.Default(),
		par:  parallel.DefaultConfig(),
	}
	c.patch = cfg.Channels * cfg.Kernel * cfg.Kernel
	c.patches = c.outH * c.outW
	c.weights = optim.NewBlock(cfg.Filters * c.patch)
	c.biases = optim.NewBlock(cfg.Filters)
	c.cols = make([]float64, c.patch*c.patches)
	c.sums = make([]float64, cfg.Filters*c.patches)

	Uniform(rng, c.weights.Values, math.Sqrt(2.0/float64(c.patch)))
	c.InitializeOptimizer()
	return c, nil
}

// Kind returns KindConv.
func (c *Conv) Kind() string { return KindConv }

// InputSize returns Channels·Height·Width.
func (c *Conv) InputSize() int { return c.cfg.Channels * c.cfg.Height * c.cfg.Width }

// OutputSize returns Filters·OutHeight·OutWidth.
func (c *Conv) OutputSize() int { return c.cfg.Filters * c.patches }

// OutputShape returns (filters, height, width) of the output volume.
func (c *Conv) OutputShape() (int, int, int) { return c.cfg.Filters, c.outH, c.outW }

// Optimizer returns the layer's update policy.
func (c *Conv) Optimizer() optim.Optimizer { return c.opt }

// Forward computes every filter response.
func (c *Conv) Forward(input []float64) ([]float64, error) {
	if err := checkLen("conv forward", c.InputSize(), len(input)); err != nil {
		return nil, err
	}
	c.im2col(input)

	for f := 0; f < c.cfg.Filters; f++ {
		row := c.sums[f*c.patches : (f+1)*c.patches]
		for p := range row {
			row[p] = c.biases.Values[f]
		}
	}
	c.ops.MatrixMultiply(c.weights.Values, c.cols, c.sums, c.cfg.Filters, c.patches, c.patch, 1, 1)

	out := make([]float64, len(c.sums))
	activation.Apply(c.act, c.sums, out)
	return out, nil
}

// Backward accumulates kernel and bias gradients and scatters the error
// back onto the input volume.
func (c *Conv) Backward(outputError []float64) ([]float64, error) {
	if err := checkLen("conv backward", c.OutputSize(), len(outputError)); err != nil {
		return nil, err
	}
	delta := make([]float64, len(c.sums))
	activation.Delta(c.act, c.sums, outputError, delta)

	colsT := c.ops.MatrixTranspose(c.cols, c.patch, c.patches)
	accumulateProduct(c.ops, delta, colsT, c.weights.Grads, c.cfg.Filters, c.patch, c.patches)
	for f := 0; f < c.cfg.Filters; f++ {
		c.biases.Grads[f] += floats.Sum(delta[f*c.patches : (f+1)*c.patches])
	}

	wT := c.ops.MatrixTranspose(c.weights.Values, c.cfg.Filters, c.patch)
	colErr := make([]float64, c.patch*c.patches)
	c.ops.MatrixMultiply(wT, delta, colErr, c.patch, c.patches, c.cfg.Filters, 1, 0)
	return c.col2im(colErr), nil
}

// im2col lays out every receptive field as a column of c.cols.
func (c *Conv) im2col(input []float64) {
	k, s, h, w := c.cfg.Kernel, c.cfg.Stride, c.cfg.Height, c.cfg.Width
	parallel.ForRange(c.patch, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			ch, ky, kx := r/(k*k), (r/k)%k, r%k
			base := ch * h * w
			dst := c.cols[r*c.patches : (r+1)*c.patches]
			for y := 0; y < c.outH; y++ {
				src := base + (y*s+ky)*w + kx
				for x := 0; x < c.outW; x++ {
					dst[y*c.outW+x] = input[src+x*s]
				}
			}
		}
	}, c.par)
}

// col2im sums column errors back into input positions. Channels write
// disjoint regions, so they run in parallel.
func (c *Conv) col2im(colErr []float64) []float64 {
	k, s, h, w := c.cfg.Kernel, c.cfg.Stride, c.cfg.Height, c.cfg.Width
	out := make([]float64, c.InputSize())
	parallel.For(c.cfg.Channels, func(ch int) {
		base := ch * h * w
		for r := ch * k * k; r < (ch+1)*k*k; r++ {
			ky, kx := (r/k)%k, r%k
			src := colErr[r*c.patches : (r+1)*c.patches]
			for y := 0; y < c.outH; y++ {
				dst := base + (y*s+ky)*w + kx
				for x := 0; x < c.outW; x++ {
					out[dst+x*s] += src[y*c.outW+x]
				}
			}
		}
	}, c.par)
	return out
}

// InitializeOptimizer resets all scratch state.
func (c *Conv) InitializeOptimizer() {
	c.weights.Initialize(c.opt)
	c.biases.Initialize(c.opt)
}

// Update applies the optimizer to every kernel weight and bias.
func (c *Conv) Update(lr float64) {
	c.weights.UpdateWeights(c.opt, lr)
	c.biases.UpdateBiases(c.opt, lr)
}

// Spec describes the layer.
func (c *Conv) Spec() Spec {
	s := Spec{
		Kind: KindConv, Input: c.InputSize(), Output: c.OutputSize(), Activation: c.act.Name(),
		Channels: c.cfg.Channels, Height: c.cfg.Height, Width: c.cfg.Width,
		Filters: c.cfg.Filters, Kernel: c.cfg.Kernel, Stride: c.cfg.Stride,
	}
	optimizerSpec(&s, c.opt)
	return s
}

// Parameters returns copies of the kernel and bias blocks.
func (c *Conv) Parameters() []*optim.Block { return cloneBlocks(c.weights, c.biases) }

// SetParameters loads the kernel and bias blocks.
func (c *Conv) SetParameters(blocks []*optim.Block) error {
	return setBlocks("conv parameters", []*optim.Block{c.weights, c.biases}, blocks)
}
