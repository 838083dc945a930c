//go:build !windows

// Package webgpu implements backend A on Windows. On other platforms New
// always fails and the dispatcher moves on to the next backend.
package webgpu

import (
	"errors"

	"github.com/born-ml/synapse/internal/backend/cpu"
)

// ErrUnsupportedPlatform is returned by New outside Windows.
var ErrUnsupportedPlatform = errors.New("webgpu: backend is only built on windows")

// Backend is the CPU backend on platforms without backend A.
type Backend = cpu.Backend

// New always returns ErrUnsupportedPlatform.
func New() (*Backend, error) {
	return nil, ErrUnsupportedPlatform
}

// IsAvailable reports false.
func IsAvailable() bool { return false }
