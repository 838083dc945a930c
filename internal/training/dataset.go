// Package training provides datasets, input preprocessing and an epoch
// driven trainer for networks.
package training

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/born-ml/synapse/internal/nn"
)

// Errors returned by Dataset.
var (
	ErrBatchTooLarge = errors.New("batch size exceeds dataset size")
	ErrEmptyDataset  = errors.New("dataset is empty")
)

// Sample is one (input, target) pair.
type Sample struct {
	Input  []float64
	Target []float64
}

// Dataset holds samples with fixed input and target widths.
type Dataset struct {
	inputSize  int
	targetSize int
	samples    []Sample
	rng        *rand.Rand
}

// NewDataset creates an empty dataset. A nil rng means a time-seeded
// generator.
func NewDataset(inputSize, targetSize int, rng *rand.Rand) *Dataset {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // not for security
	}
	return &Dataset{inputSize: inputSize, targetSize: targetSize, rng: rng}
}

// InputSize returns the input width.
func (d *Dataset) InputSize() int { return d.inputSize }

// TargetSize returns the target width.
func (d *Dataset) TargetSize() int { return d.targetSize }

// AddSample appends copies of input and target.
func (d *Dataset) AddSample(input, target []float64) error {
	if len(input) != d.inputSize {
		return &nn.DimensionError{Op: "dataset input", Want: d.inputSize, Got: len(input)}
	}
	if len(target) != d.targetSize {
		return &nn.DimensionError{Op: "dataset target", Want: d.targetSize, Got: len(target)}
	}
	d.samples = append(d.samples, Sample{
		Input:  append([]float64(nil), input...),
		Target: append([]float64(nil), target...),
	})
	return nil
}

// Size returns the number of samples.
func (d *Dataset) Size() int { return len(d.samples) }

// Samples returns the samples in their current order.
func (d *Dataset) Samples() []Sample { return d.samples }

// Inputs returns the input vectors in order.
func (d *Dataset) Inputs() [][]float64 {
	out := make([][]float64, len(d.samples))
	for i, s := range d.samples {
		out[i] = s.Input
	}
	return out
}

// Targets returns the target vectors in order.
func (d *Dataset) Targets() [][]float64 {
	out := make([][]float64, len(d.samples))
	for i, s := range d.samples {
		out[i] = s.Target
	}
	return out
}

// Shuffle permutes the samples in place.
func (d *Dataset) Shuffle() {
	d.rng.Shuffle(len(d.samples), func(i, j int) {
		d.samples[i], d.samples[j] = d.samples[j], d.samples[i]
	})
}

// GetMiniBatch returns n distinct samples drawn at random.
func (d *Dataset) GetMiniBatch(n int) ([]Sample, error) {
	if n <= 0 {
		return nil, fmt.Errorf("training: batch size must be positive, got %d", n)
	}
	if n > len(d.samples) {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, n, len(d.samples))
	}
	batch := make([]Sample, n)
	for i, j := range d.rng.Perm(len(d.samples))[:n] {
		batch[i] = d.samples[j]
	}
	return batch, nil
}

// Split shuffles a copy of the samples with rng and returns the first
// ratio of them as the training set and the rest as the validation set.
// A nil rng uses the dataset's generator.
func (d *Dataset) Split(ratio float64, rng *rand.Rand) (train, validation *Dataset, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("training: split ratio %v outside (0, 1)", ratio)
	}
	if rng == nil {
		rng = d.rng
	}
	order := rng.Perm(len(d.samples))
	cut := int(float64(len(d.samples)) * ratio)

	train = &Dataset{inputSize: d.inputSize, targetSize: d.targetSize, rng: d.rng}
	validation = &Dataset{inputSize: d.inputSize, targetSize: d.targetSize, rng: d.rng}
	for i, j := range order {
		if i < cut {
			train.samples = append(train.samples, d.samples[j])
		} else {
			validation.samples = append(validation.samples, d.samples[j])
		}
	}
	return train, validation, nil
}
