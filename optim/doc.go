// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the gradient-descent policies used by layers.
//
// # Overview
//
// This package contains:
//   - SGD: momentum and weight decay (decay is applied before momentum)
//   - Adam: bias-corrected moments with a per-instance step counter
//   - RMSprop and Adagrad: adaptive per-parameter learning rates
//
// Gradients accumulate during backward passes and are consumed, then reset
// to zero, by exactly one update.
//
// # Basic Usage
//
//	adam := optim.NewAdam(optim.AdamConfig{})
//	hidden, _ := nn.NewDense(2, 4, "relu", adam, rng)
//	output, _ := nn.NewDense(4, 1, "sigmoid", adam, rng)
//
// Layers that share an Adam instance share its step counter. A network
// advances each shared counter once per update cycle.
//
// # Persistence
//
// Every optimizer reports its hyperparameters through Config, and
// FromConfig rebuilds it. Adam includes its current step as "t".
package optim
