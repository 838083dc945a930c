// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides network layers and loss functions.
//
// # Overview
//
// This package contains:
//   - GraphDense: a fully connected layer stored as units and connections
//   - Dense: the same layer stored as a weight matrix and computed on the
//     selected matrix backend
//   - Conv, Pool, Recurrent, BatchNorm and Dropout
//   - Losses: MSE, CrossEntropy, BinaryCrossEntropy
//
// GraphDense and Dense are interchangeable: GraphDense.ToMatrix and
// Dense.ToGraph convert between them without changing behavior.
//
// # Layer Contract
//
//	y, err := layer.Forward(x)     // caches what Backward needs
//	e, err := layer.Backward(t_y)  // t_y is the error at the outputs
//	layer.Update(lr)               // applies the optimizer, clears gradients
//
// Backward only accumulates gradients. Several samples may be accumulated
// before a single Update.
//
// # Initialization
//
// Dense weights are Glorot uniform with bound sqrt(6/(fanIn+fanOut)).
// Every constructor takes a *rand.Rand; pass a seeded one for reproducible
// runs.
package nn
