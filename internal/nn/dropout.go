package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/synapse/internal/optim"
)

// Dropout zeroes each input with probability Rate while training and scales
// the survivors by 1/(1−Rate). At inference it is the identity.
type Dropout struct {
	size     int
	rate     float64
	rng      *rand.Rand
	training bool
	mask     []float64 // 0 or 1/(1−rate)
}

// NewDropout creates a dropout layer in training mode. rate must lie in
// [0, 1).
func NewDropout(size int, rate float64, rng *rand.Rand) (*Dropout, error) {
	if err := positive("dropout", size); err != nil {
		return nil, err
	}
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("dropout: rate %v outside [0, 1)", rate)
	}
	d := &Dropout{
		size:     size,
		rate:     rate,
		rng:      newRand(rng),
		training: true,
		mask:     make([]float64, size),
	}
	return d, nil
}

// Kind returns KindDropout.
func (d *Dropout) Kind() string { return KindDropout }

// InputSize returns the layer width.
func (d *Dropout) InputSize() int { return d.size }

// OutputSize returns the layer width.
func (d *Dropout) OutputSize() int { return d.size }

// Rate returns the drop probability.
func (d *Dropout) Rate() float64 { return d.rate }

// Optimizer returns nil.
func (d *Dropout) Optimizer() optim.Optimizer { return nil }

// SetTraining toggles mask generation.
func (d *Dropout) SetTraining(training bool) { d.training = training }

// Training reports whether masks are being drawn.
func (d *Dropout) Training() bool { return d.training }

// Forward draws a fresh mask in training mode and applies it.
func (d *Dropout) Forward(input []float64) ([]float64, error) {
	if err := checkLen("dropout forward", d.size, len(input)); err != nil {
		return nil, err
	}
	scale := 1 / (1 - d.rate)
	for i := range d.mask {
		switch {
		case !d.training:
			d.mask[i] = 1
		case d.rng.Float64() < d.rate:
			d.mask[i] = 0
		default:
			d.mask[i] = scale
		}
	}
	out := make([]float64, d.size)
	for i, x := range input {
		out[i] = x * d.mask[i]
	}
	return out, nil
}

// Backward applies the last mask to the error.
func (d *Dropout) Backward(outputError []float64) ([]float64, error) {
	if err := checkLen("dropout backward", d.size, len(outputError)); err != nil {
		return nil, err
	}
	inputError := make([]float64, d.size)
	for i, e := range outputError {
		inputError[i] = e * d.mask[i]
	}
	return inputError, nil
}

// InitializeOptimizer is a no-op.
func (d *Dropout) InitializeOptimizer() {}

// Update is a no-op.
func (d *Dropout) Update(float64) {}

// Spec describes the layer.
func (d *Dropout) Spec() Spec {
	return Spec{Kind: KindDropout, Input: d.size, Output: d.size, Rate: d.rate, Training: d.training}
}

// Parameters returns nil.
func (d *Dropout) Parameters() []*optim.Block { return nil }

// SetParameters accepts only an empty list.
func (d *Dropout) SetParameters(blocks []*optim.Block) error {
	return checkLen("dropout parameters", 0, len(blocks))
}
