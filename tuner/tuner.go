// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tuner recommends a training batch size for a backend.
//
//	rec, err := tuner.New(nil, tuner.Config{}).Tune(ctx, 784, 128, 10)
//	fmt.Println(rec.Optimal, rec.Conservative, rec.Aggressive)
package tuner

import (
	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/tuner"
)

// Tuner measures batch sizes.
type Tuner = tuner.Tuner

// Config holds configuration for a Tuner.
type Config = tuner.Config

// Result is the measurement of one batch size.
type Result = tuner.Result

// Recommendation is the outcome of Tune.
type Recommendation = tuner.Recommendation

// DefaultConfig returns the default configuration.
func DefaultConfig() Config { return tuner.DefaultConfig() }

// New creates a tuner. A nil ops selects the process-wide backend.
func New(ops backend.Ops, cfg Config) *Tuner { return tuner.New(ops, cfg) }
