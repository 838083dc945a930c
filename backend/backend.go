// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package backend exposes the matrix backend shared by all layers.
//
// The first call to Default probes for a GPU (go-webgpu, then wgpu-native)
// and falls back to the CPU. Set SYNAPSE_BACKEND=cpu to skip the probe.
//
//	fmt.Println(backend.DeviceInfo())
package backend

import (
	"log"

	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/backend/device"
	"github.com/born-ml/synapse/internal/backend/pool"
)

// Ops is the matrix operation set implemented by every backend.
type Ops = backend.Ops

// Info describes a compute device.
type Info = device.Info

// Kind identifies a backend.
type Kind = device.Kind

// Backend kinds.
const (
	CPU        = device.CPU
	WebGPU     = device.WebGPU
	WGPUNative = device.WGPUNative
)

// PoolStats reports memory pool usage.
type PoolStats = pool.Stats

// EnvBackend names the environment variable that pins the backend kind.
const EnvBackend = backend.EnvBackend

// Default returns the process-wide backend, probing on first use.
func Default() Ops { return backend.Default() }

// SetDefault replaces the process-wide backend and returns the previous one.
func SetDefault(ops Ops) Ops { return backend.SetDefault(ops) }

// DeviceInfo describes the process-wide backend.
func DeviceInfo() Info { return backend.DeviceInfo() }

// Open creates a backend of the given kind.
func Open(kind Kind) (Ops, error) { return backend.Open(kind) }

// ParseKind parses "cpu", "webgpu" or "wgpunative".
func ParseKind(s string) (Kind, error) { return device.ParseKind(s) }

// SetLogger sets the logger for probe diagnostics.
func SetLogger(l *log.Logger) { backend.SetLogger(l) }
