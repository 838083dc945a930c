package nn

import (
	"fmt"

	"github.com/born-ml/synapse/internal/optim"
	"github.com/born-ml/synapse/internal/parallel"
)

// PoolMode selects the pooling reduction.
type PoolMode string

// Pooling reductions.
const (
	MaxPool     PoolMode = "max"
	AveragePool PoolMode = "avg"
)

// PoolConfig describes a pooling layer over a Channels×Height×Width volume.
type PoolConfig struct {
	Channels int
	Height   int
	Width    int
	Size     int      // window side
	Stride   int      // default: Size
	Mode     PoolMode // default: MaxPool
}

// Pool downsamples each channel independently. It has no parameters.
type Pool struct {
	cfg        PoolConfig
	outH, outW int
	par        parallel.Config

	argmax []int // input index chosen by each max-pool output
}

// NewPool creates a pooling layer.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Stride == 0 {
		cfg.Stride = cfg.Size
	}
	if cfg.Mode == "" {
		cfg.Mode = MaxPool
	}
	if cfg.Mode != MaxPool && cfg.Mode != AveragePool {
		return nil, fmt.Errorf("pool: unknown mode %q", cfg.Mode)
	}
	if err := positive("pool", cfg.Channels, cfg.Height, cfg.Width, cfg.Size, cfg.Stride); err != nil {
		return nil, err
	}
	if cfg.Size > cfg.Height || cfg.Size > cfg.Width {
		return nil, fmt.Errorf("pool: window %d larger than input %dx%d: %w",
			cfg.Size, cfg.Height, cfg.Width, ErrDimensionMismatch)
	}
	p := &Pool{
		cfg:  cfg,
		outH: (cfg.Height-cfg.Size)/cfg.Stride + 1,
		outW: (cfg.Width-cfg.Size)/cfg.Stride + 1,
		par:  parallel.DefaultConfig(),
	}
	p.argmax = make([]int, p.OutputSize())
	return p, nil
}

// Kind returns KindPool.
func (p *Pool) Kind() string { return KindPool }

// InputSize returns Channels·Height·Width.
func (p *Pool) InputSize() int { return p.cfg.Channels * p.cfg.Height * p.cfg.Width }

// OutputSize returns Channels·OutHeight·OutWidth.
func (p *Pool) OutputSize() int { return p.cfg.Channels * p.outH * p.outW }

// Optimizer returns nil.
func (p *Pool) Optimizer() optim.Optimizer { return nil }

// Forward reduces every window.
func (p *Pool) Forward(input []float64) ([]float64, error) {
	if err := checkLen("pool forward", p.InputSize(), len(input)); err != nil {
		return nil, err
	}
	out := make([]float64, p.OutputSize())
	size, stride, w := p.cfg.Size, p.cfg.Stride, p.cfg.Width
	norm := 1 / float64(size*size)

	parallel.ForBatch(p.cfg.Channels, p.outH, func(ch, y int) {
		base := ch * p.cfg.Height * w
		for x := 0; x < p.outW; x++ {
			o := (ch*p.outH+y)*p.outW + x
			first := base + y*stride*w + x*stride
			best, bestIdx, sum := input[first], first, 0.0
			for ky := 0; ky < size; ky++ {
				row := base + (y*stride+ky)*w + x*stride
				for kx := 0; kx < size; kx++ {
					v := input[row+kx]
					sum += v
					if v > best {
						best, bestIdx = v, row+kx
					}
				}
			}
			if p.cfg.Mode == MaxPool {
				out[o] = best
				p.argmax[o] = bestIdx
			} else {
				out[o] = sum * norm
			}
		}
	}, p.par)
	return out, nil
}

// Backward routes each output error to the winning input (max) or spreads
// it evenly over the window (average).
func (p *Pool) Backward(outputError []float64) ([]float64, error) {
	if err := checkLen("pool backward", p.OutputSize(), len(outputError)); err != nil {
		return nil, err
	}
	inputError := make([]float64, p.InputSize())
	size, stride, w := p.cfg.Size, p.cfg.Stride, p.cfg.Width
	norm := 1 / float64(size*size)

	// Overlapping windows share inputs across rows, so channels are the
	// unit of parallelism.
	parallel.For(p.cfg.Channels, func(ch int) {
		base := ch * p.cfg.Height * w
		for y := 0; y < p.outH; y++ {
			for x := 0; x < p.outW; x++ {
				o := (ch*p.outH+y)*p.outW + x
				if p.cfg.Mode == MaxPool {
					inputError[p.argmax[o]] += outputError[o]
					continue
				}
				for ky := 0; ky < size; ky++ {
					row := base + (y*stride+ky)*w + x*stride
					for kx := 0; kx < size; kx++ {
						inputError[row+kx] += outputError[o] * norm
					}
				}
			}
		}
	}, p.par)
	return inputError, nil
}

// InitializeOptimizer is a no-op.
func (p *Pool) InitializeOptimizer() {}

// Update is a no-op.
func (p *Pool) Update(float64) {}

// Spec describes the layer.
func (p *Pool) Spec() Spec {
	return Spec{
		Kind: KindPool, Input: p.InputSize(), Output: p.OutputSize(),
		Channels: p.cfg.Channels, Height: p.cfg.Height, Width: p.cfg.Width,
		Kernel: p.cfg.Size, Stride: p.cfg.Stride, Mode: string(p.cfg.Mode),
	}
}

// Parameters returns nil.
func (p *Pool) Parameters() []*optim.Block { return nil }

// SetParameters accepts only an empty list.
func (p *Pool) SetParameters(blocks []*optim.Block) error {
	return checkLen("pool parameters", 0, len(blocks))
}
