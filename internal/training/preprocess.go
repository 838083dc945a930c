package training

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/synapse/internal/nn"
)

// ErrNotFitted is returned by Transform before Fit.
var ErrNotFitted = errors.New("preprocessor has not been fitted")

// Preprocessor standardizes features to zero mean and unit variance.
type Preprocessor struct {
	mean []float64
	std  []float64
}

// Fit computes the per-feature population mean and standard deviation.
// Constant features get a standard deviation of 1.
func (p *Preprocessor) Fit(inputs [][]float64) error {
	if len(inputs) == 0 {
		return ErrEmptyDataset
	}
	width := len(inputs[0])
	column := make([]float64, len(inputs))
	p.mean = make([]float64, width)
	p.std = make([]float64, width)
	for j := range width {
		for i, x := range inputs {
			if len(x) != width {
				return &nn.DimensionError{Op: "preprocessor fit", Want: width, Got: len(x)}
			}
			column[i] = x[j]
		}
		mean, variance := stat.PopMeanVariance(column, nil)
		p.mean[j] = mean
		p.std[j] = math.Sqrt(variance)
		if p.std[j] == 0 {
			p.std[j] = 1
		}
	}
	return nil
}

// Fitted reports whether Fit has run.
func (p *Preprocessor) Fitted() bool { return p.mean != nil }

// Mean returns the fitted means.
func (p *Preprocessor) Mean() []float64 { return p.mean }

// StdDev returns the fitted standard deviations.
func (p *Preprocessor) StdDev() []float64 { return p.std }

// Transform returns z-scored copies of inputs.
func (p *Preprocessor) Transform(inputs [][]float64) ([][]float64, error) {
	if !p.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(inputs))
	for i, x := range inputs {
		if len(x) != len(p.mean) {
			return nil, &nn.DimensionError{Op: "preprocessor transform", Want: len(p.mean), Got: len(x)}
		}
		z := make([]float64, len(x))
		for j, v := range x {
			z[j] = (v - p.mean[j]) / p.std[j]
		}
		out[i] = z
	}
	return out, nil
}

// Normalize fits on inputs and transforms them.
func (p *Preprocessor) Normalize(inputs [][]float64) ([][]float64, error) {
	if err := p.Fit(inputs); err != nil {
		return nil, err
	}
	return p.Transform(inputs)
}

// Normalized returns a copy of d with every input transformed. d is left
// unchanged; the copy shares its targets and random source.
func (p *Preprocessor) Normalized(d *Dataset) (*Dataset, error) {
	z, err := p.Transform(d.Inputs())
	if err != nil {
		return nil, err
	}
	out := &Dataset{inputSize: d.inputSize, targetSize: d.targetSize, rng: d.rng}
	out.samples = make([]Sample, len(d.samples))
	for i, s := range d.samples {
		out.samples[i] = Sample{Input: z[i], Target: s.Target}
	}
	return out, nil
}
