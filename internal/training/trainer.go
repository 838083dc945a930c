package training

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/synapse/internal/network"
)

// Config holds configuration for a Trainer.
type Config struct {
	BatchSize int // Samples per update (default: 32, capped at the dataset size)
	Epochs    int // Passes over the training set (default: 10)

	// Shuffle visits every sample exactly once per epoch in a fresh random
	// order. Otherwise each batch is an independent GetMiniBatch draw.
	Shuffle bool

	// Normalize fits a Preprocessor on the training inputs and trains on
	// normalized copies of the training and validation sets. The caller's
	// datasets are not modified.
	Normalize bool

	Logger *log.Logger // Epoch progress; nil is silent
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{BatchSize: 32, Epochs: 10}
}

// Metrics records one epoch. ValidationLoss is NaN without a validation set.
type Metrics struct {
	Epoch          int
	TrainingLoss   float64
	ValidationLoss float64
	Duration       time.Duration
}

// Trainer drives mini-batch training of a network.
type Trainer struct {
	net   *network.Network
	cfg   Config
	runID string
	pre   Preprocessor
}

// NewTrainer creates a trainer for net.
func NewTrainer(net *network.Network, cfg Config) *Trainer {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	return &Trainer{net: net, cfg: cfg, runID: uuid.NewString()}
}

// RunID identifies the trainer in log output.
func (t *Trainer) RunID() string { return t.runID }

// Preprocessor returns the preprocessor fitted by Train when Normalize is
// set. Use it to transform inputs before prediction.
func (t *Trainer) Preprocessor() *Preprocessor { return &t.pre }

// Train runs the configured epochs and returns one Metrics per completed
// epoch. validation may be nil. Cancellation is checked between epochs.
func (t *Trainer) Train(ctx context.Context, train, validation *Dataset) ([]Metrics, error) {
	if train == nil || train.Size() == 0 {
		return nil, ErrEmptyDataset
	}
	if t.cfg.Normalize {
		if err := t.pre.Fit(train.Inputs()); err != nil {
			return nil, err
		}
		var err error
		if train, err = t.pre.Normalized(train); err != nil {
			return nil, err
		}
		if validation != nil {
			if validation, err = t.pre.Normalized(validation); err != nil {
				return nil, err
			}
		}
	}

	batchSize := min(t.cfg.BatchSize, train.Size())
	batches := (train.Size() + batchSize - 1) / batchSize

	history := make([]Metrics, 0, t.cfg.Epochs)
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}
		start := time.Now()

		if t.cfg.Shuffle {
			train.Shuffle()
		}
		for b := range batches {
			batch, err := t.batch(train, b, batchSize)
			if err != nil {
				return history, err
			}
			inputs, targets := split(batch)
			if _, err := t.net.TrainBatch(inputs, targets); err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", epoch, b, err)
			}
		}

		m := Metrics{Epoch: epoch, ValidationLoss: math.NaN()}
		var err error
		if m.TrainingLoss, err = t.net.Loss(train.Inputs(), train.Targets()); err != nil {
			return history, err
		}
		if validation != nil && validation.Size() > 0 {
			if m.ValidationLoss, err = t.net.Loss(validation.Inputs(), validation.Targets()); err != nil {
				return history, err
			}
		}
		m.Duration = time.Since(start)
		history = append(history, m)

		if t.cfg.Logger != nil {
			t.cfg.Logger.Printf("run %s: epoch %d/%d: training loss %.6f, validation loss %.6f (%v)",
				t.runID, epoch, t.cfg.Epochs, m.TrainingLoss, m.ValidationLoss, m.Duration)
		}
	}
	return history, nil
}

func (t *Trainer) batch(d *Dataset, b, size int) ([]Sample, error) {
	if !t.cfg.Shuffle {
		return d.GetMiniBatch(size)
	}
	lo := b * size
	return d.Samples()[lo:min(lo+size, d.Size())], nil
}

func split(batch []Sample) (inputs, targets [][]float64) {
	inputs = make([][]float64, len(batch))
	targets = make([][]float64, len(batch))
	for i, s := range batch {
		inputs[i] = s.Input
		targets[i] = s.Target
	}
	return inputs, targets
}
