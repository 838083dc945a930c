// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network provides the feed-forward network that chains layers.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	adam := optim.NewAdam(optim.AdamConfig{})
//	net := network.New(network.Config{LearningRate: 0.05, Optimizer: adam})
//	hidden, _ := nn.NewDense(2, 4, activation.NameReLU, adam, rng)
//	output, _ := nn.NewDense(4, 1, activation.NameSigmoid, adam, rng)
//	_ = net.Add(hidden)
//	_ = net.Add(output)
//
//	for range 2000 {
//	    _, _ = net.TrainBatch(inputs, targets)
//	}
//	_ = net.SaveFile("xor.syn")
package network

import (
	"io"

	"github.com/born-ml/synapse/internal/network"
)

// Network is an ordered list of layers.
type Network = network.Network

// Config holds configuration for a Network.
type Config = network.Config

// Errors returned by Network.
var (
	ErrNoLayers  = network.ErrNoLayers
	ErrNoForward = network.ErrNoForward
	ErrNilLayer  = network.ErrNilLayer
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config { return network.DefaultConfig() }

// New creates an empty network.
func New(cfg Config) *Network { return network.New(cfg) }

// Load reads a network written by Network.Save.
func Load(r io.Reader) (*Network, error) { return network.Load(r) }

// LoadFile reads a network from a .syn file.
func LoadFile(path string) (*Network, error) { return network.LoadFile(path) }
