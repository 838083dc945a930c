// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package wgpunative provides the matrix backend built on the cgo
// wgpu-native binding. It is available on Linux and macOS with cgo
// enabled; elsewhere New returns an error.
package wgpunative

import (
	"github.com/born-ml/synapse/internal/backend"
	internal "github.com/born-ml/synapse/internal/backend/wgpunative"
)

// Backend is the wgpu-native matrix backend.
type Backend = internal.Backend

// Compile-time check that Backend implements backend.Ops.
var _ backend.Ops = (*Backend)(nil)

// New initializes a wgpu-native device.
func New() (*Backend, error) {
	return internal.New()
}
