// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import "github.com/born-ml/synapse/internal/optim"

// Optimizer is a per-parameter update policy.
type Optimizer = optim.Optimizer

// StepCounter is implemented by optimizers with a global time step.
type StepCounter = optim.StepCounter

// Param is a single trainable scalar with its optimizer scratch.
type Param = optim.Param

// Block is a contiguous group of parameters.
type Block = optim.Block

// Optimizer names.
const (
	NameSGD     = optim.NameSGD
	NameAdam    = optim.NameAdam
	NameRMSprop = optim.NameRMSprop
	NameAdagrad = optim.NameAdagrad
)

// SGD is stochastic gradient descent with momentum and weight decay.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer. Momentum defaults to 0.9.
func NewSGD(config SGDConfig) *SGD { return optim.NewSGD(config) }

// Adam is adaptive moment estimation.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with β1=0.9, β2=0.999, ε=1e-8 by default.
func NewAdam(config AdamConfig) *Adam { return optim.NewAdam(config) }

// RMSprop divides the step by a decayed running RMS of the gradients.
type RMSprop = optim.RMSprop

// RMSpropConfig contains configuration for RMSprop.
type RMSpropConfig = optim.RMSpropConfig

// NewRMSprop creates a new RMSprop optimizer.
func NewRMSprop(config RMSpropConfig) *RMSprop { return optim.NewRMSprop(config) }

// Adagrad divides the step by the root of the summed squared gradients.
type Adagrad = optim.Adagrad

// AdagradConfig contains configuration for Adagrad.
type AdagradConfig = optim.AdagradConfig

// NewAdagrad creates a new Adagrad optimizer.
func NewAdagrad(config AdagradConfig) *Adagrad { return optim.NewAdagrad(config) }

// FromConfig rebuilds an optimizer from its name and Config output.
func FromConfig(name string, cfg map[string]float64) (Optimizer, error) {
	return optim.FromConfig(name, cfg)
}
