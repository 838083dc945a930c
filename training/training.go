// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package training provides datasets, z-score preprocessing and a trainer
// that records per-epoch training and validation loss.
package training

import (
	"math/rand"

	"github.com/born-ml/synapse/internal/network"
	"github.com/born-ml/synapse/internal/training"
)

// Dataset holds samples with fixed input and target widths.
type Dataset = training.Dataset

// Sample is one (input, target) pair.
type Sample = training.Sample

// Preprocessor standardizes features.
type Preprocessor = training.Preprocessor

// Trainer drives mini-batch training.
type Trainer = training.Trainer

// Config holds configuration for a Trainer.
type Config = training.Config

// Metrics records one epoch.
type Metrics = training.Metrics

// Errors.
var (
	ErrBatchTooLarge = training.ErrBatchTooLarge
	ErrEmptyDataset  = training.ErrEmptyDataset
	ErrNotFitted     = training.ErrNotFitted
)

// NewDataset creates an empty dataset.
func NewDataset(inputSize, targetSize int, rng *rand.Rand) *Dataset {
	return training.NewDataset(inputSize, targetSize, rng)
}

// DefaultConfig returns the default trainer configuration.
func DefaultConfig() Config { return training.DefaultConfig() }

// NewTrainer creates a trainer for net.
func NewTrainer(net *network.Network, cfg Config) *Trainer { return training.NewTrainer(net, cfg) }
