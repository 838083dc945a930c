// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU matrix backend.
//
// # Overview
//
// The CPU backend implements every backend operation with:
//   - gonum BLAS for matrix multiplication
//   - gonum floats for vector add and elementwise multiply
//   - gorgonia tensors for transposition
//   - goroutine fan-out for batched multiplication
//   - a size-bucketed pool for host buffers
//
// It is the fallback whenever no GPU is available, and the reference the
// GPU backends are tested against.
//
// # Thread Safety
//
// Operations are safe for concurrent use. The buffer pool locks per call.
package cpu
