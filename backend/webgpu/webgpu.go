// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the go-webgpu matrix backend.
//
// The backend runs matrix multiply, vector add, elementwise multiply and
// transpose as WGSL compute shaders. Calls too small to benefit run on the
// CPU. It is only built on Windows; elsewhere New returns an error.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Close()
//	backend.SetDefault(gpu)
package webgpu

import (
	"github.com/born-ml/synapse/internal/backend"
	internalwebgpu "github.com/born-ml/synapse/internal/backend/webgpu"
)

// Backend is the go-webgpu matrix backend.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements backend.Ops.
var _ backend.Ops = (*Backend)(nil)

// New initializes a WebGPU device. It fails when no compatible GPU or
// driver is present.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be obtained.
//
// Example:
//
//	if webgpu.IsAvailable() {
//	    gpu, _ := webgpu.New()
//	    backend.SetDefault(gpu)
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
