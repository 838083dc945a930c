// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/synapse/internal/nn"
	"github.com/born-ml/synapse/internal/optim"
)

// Layer is one stage of a network.
type Layer = nn.Layer

// Trainable is implemented by layers that behave differently in training.
type Trainable = nn.Trainable

// Stateful is implemented by layers with state beyond their parameters.
type Stateful = nn.Stateful

// Spec is the persisted description of a layer.
type Spec = nn.Spec

// ErrDimensionMismatch is returned for inputs, targets or parameters of the
// wrong length.
var ErrDimensionMismatch = nn.ErrDimensionMismatch

// DimensionError describes a rejected length.
type DimensionError = nn.DimensionError

// Layer types.
type (
	GraphDense = nn.GraphDense
	Unit       = nn.Unit
	Connection = nn.Connection
	Dense      = nn.Dense
	Conv       = nn.Conv
	ConvConfig = nn.ConvConfig
	Pool       = nn.Pool
	PoolConfig = nn.PoolConfig
	PoolMode   = nn.PoolMode
	Recurrent  = nn.Recurrent
	BatchNorm  = nn.BatchNorm
	Dropout    = nn.Dropout

	BatchNormConfig = nn.BatchNormConfig
)

// Pooling modes.
const (
	MaxPool     = nn.MaxPool
	AveragePool = nn.AveragePool
)

// NewGraphDense creates a fully connected layer in unit/connection form.
func NewGraphDense(in, out int, act string, opt optim.Optimizer, rng *rand.Rand) (*GraphDense, error) {
	return nn.NewGraphDense(in, out, act, opt, rng)
}

// NewDense creates a fully connected layer in matrix form.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	hidden, err := nn.NewDense(784, 128, "relu", optim.NewAdam(optim.AdamConfig{}), rng)
func NewDense(in, out int, act string, opt optim.Optimizer, rng *rand.Rand) (*Dense, error) {
	return nn.NewDense(in, out, act, opt, rng)
}

// NewConv creates a convolution layer over a Channels×Height×Width input.
func NewConv(cfg ConvConfig, opt optim.Optimizer, rng *rand.Rand) (*Conv, error) {
	return nn.NewConv(cfg, opt, rng)
}

// NewPool creates a max or average pooling layer.
func NewPool(cfg PoolConfig) (*Pool, error) { return nn.NewPool(cfg) }

// NewRecurrent creates an Elman recurrent layer.
func NewRecurrent(in, hidden int, act string, opt optim.Optimizer, rng *rand.Rand) (*Recurrent, error) {
	return nn.NewRecurrent(in, hidden, act, opt, rng)
}

// NewBatchNorm creates a batch normalization layer in training mode.
func NewBatchNorm(cfg BatchNormConfig, opt optim.Optimizer) (*BatchNorm, error) {
	return nn.NewBatchNorm(cfg, opt)
}

// NewDropout creates an inverted dropout layer in training mode.
func NewDropout(size int, rate float64, rng *rand.Rand) (*Dropout, error) {
	return nn.NewDropout(size, rate, rng)
}

// Build constructs a layer from its spec.
func Build(spec Spec, opt optim.Optimizer, rng *rand.Rand) (Layer, error) {
	return nn.Build(spec, opt, rng)
}

// Loss scores a prediction against a target.
type Loss = nn.Loss

// Losses.
type (
	MSE                = nn.MSE
	CrossEntropy       = nn.CrossEntropy
	BinaryCrossEntropy = nn.BinaryCrossEntropy
)

// Loss names.
const (
	LossMSE                = nn.LossMSE
	LossCrossEntropy       = nn.LossCrossEntropy
	LossBinaryCrossEntropy = nn.LossBinaryCrossEntropy
)

// ParseLoss returns the loss registered under name. The empty name is MSE.
func ParseLoss(name string) (Loss, error) { return nn.ParseLoss(name) }

// Xavier fills dst with Glorot-uniform values.
func Xavier(rng *rand.Rand, dst []float64, fanIn, fanOut int) { nn.Xavier(rng, dst, fanIn, fanOut) }
