// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package activation provides the nonlinearities applied by network layers.
//
// Scalar activations (ReLU, Sigmoid, Tanh, Linear) act element by element.
// Softmax only acts on a whole vector; it subtracts the maximum before
// exponentiating.
//
//	act, err := activation.Parse("relu")
//	out := make([]float64, len(z))
//	activation.Apply(act, z, out)
package activation

import "github.com/born-ml/synapse/internal/activation"

// Activation is a scalar nonlinearity with its derivative.
type Activation = activation.Activation

// VectorActivation is implemented by activations that need the whole vector.
type VectorActivation = activation.VectorActivation

// Built-in activations.
type (
	ReLU    = activation.ReLU
	Sigmoid = activation.Sigmoid
	Tanh    = activation.Tanh
	Linear  = activation.Linear
	Softmax = activation.Softmax
)

// Activation names.
const (
	NameReLU    = activation.NameReLU
	NameSigmoid = activation.NameSigmoid
	NameTanh    = activation.NameTanh
	NameSoftmax = activation.NameSoftmax
	NameLinear  = activation.NameLinear
)

// Apply writes act(z) to out.
func Apply(act Activation, z, out []float64) { activation.Apply(act, z, out) }

// Delta writes err ⊙ act'(z) to delta.
func Delta(act Activation, z, err, delta []float64) { activation.Delta(act, z, err, delta) }

// Parse returns the activation registered under name. The empty name is Linear.
func Parse(name string) (Activation, error) { return activation.Parse(name) }
