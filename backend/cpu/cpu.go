// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/synapse/internal/backend"
	internalcpu "github.com/born-ml/synapse/internal/backend/cpu"
)

// Backend is the CPU matrix backend.
type Backend = internalcpu.Backend

// Config holds configuration for the CPU backend.
type Config = internalcpu.Config

// Compile-time check that Backend implements backend.Ops.
var _ backend.Ops = (*Backend)(nil)

// New creates a CPU backend with default parallelism and pooling.
//
// Example:
//
//	import (
//	    "github.com/born-ml/synapse/backend"
//	    "github.com/born-ml/synapse/backend/cpu"
//	)
//
//	func main() {
//	    backend.SetDefault(cpu.New())
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with explicit settings.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
