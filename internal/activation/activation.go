// Package activation implements the scalar and vector nonlinearities used by
// synapse layers.
package activation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Activation is a stateless element-wise nonlinearity and its derivative.
//
// Derivative receives the pre-activation weighted sum z, not the activation
// output.
type Activation interface {
	Name() string
	Activate(z float64) float64
	Derivative(z float64) float64
}

// VectorActivation is implemented by activations that need the whole output
// vector at once (Softmax).
type VectorActivation interface {
	Activation
	ActivateVector(z, out []float64)
}

// Names used in persisted models.
const (
	NameReLU    = "relu"
	NameSigmoid = "sigmoid"
	NameTanh    = "tanh"
	NameSoftmax = "softmax"
	NameLinear  = "linear"
)

// ReLU is max(0, z).
type ReLU struct{}

// Name returns "relu".
func (ReLU) Name() string { return NameReLU }

// Activate returns max(0, z).
func (ReLU) Activate(z float64) float64 {
	if z > 0 {
		return z
	}
	return 0
}

// Derivative returns 1 for z > 0 and 0 otherwise.
func (ReLU) Derivative(z float64) float64 {
	if z > 0 {
		return 1
	}
	return 0
}

// Sigmoid is the logistic function 1/(1+e^-z).
type Sigmoid struct{}

// Name returns "sigmoid".
func (Sigmoid) Name() string { return NameSigmoid }

// Activate returns 1/(1+e^-z).
func (Sigmoid) Activate(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Derivative returns s(z)·(1−s(z)).
func (s Sigmoid) Derivative(z float64) float64 {
	a := s.Activate(z)
	return a * (1 - a)
}

// Tanh is the hyperbolic tangent.
type Tanh struct{}

// Name returns "tanh".
func (Tanh) Name() string { return NameTanh }

// Activate returns tanh(z).
func (Tanh) Activate(z float64) float64 { return math.Tanh(z) }

// Derivative returns 1 − tanh²(z).
func (Tanh) Derivative(z float64) float64 {
	t := math.Tanh(z)
	return 1 - t*t
}

// Linear is the identity.
type Linear struct{}

// Name returns "linear".
func (Linear) Name() string { return NameLinear }

// Activate returns z.
func (Linear) Activate(z float64) float64 { return z }

// Derivative returns 1.
func (Linear) Derivative(float64) float64 { return 1 }

// Softmax normalizes a whole vector into a probability distribution.
//
// Softmax is never evaluated unit by unit: layers detect VectorActivation and
// call ActivateVector. Its per-unit Derivative is 1, so the error signal at a
// softmax layer passes through unchanged. Paired with cross-entropy this is
// the exact gradient t − a.
type Softmax struct{}

// Name returns "softmax".
func (Softmax) Name() string { return NameSoftmax }

// Activate panics; softmax needs the entire vector.
func (Softmax) Activate(float64) float64 {
	panic("activation: softmax requires the entire input vector, use ActivateVector")
}

// Derivative returns 1.
func (Softmax) Derivative(float64) float64 { return 1 }

// ActivateVector writes softmax(z) into out. The maximum is subtracted before
// exponentiating. len(out) must equal len(z).
func (Softmax) ActivateVector(z, out []float64) {
	if len(out) != len(z) {
		panic(fmt.Sprintf("activation: softmax length mismatch: %d vs %d", len(z), len(out)))
	}
	if len(z) == 0 {
		return
	}
	maxZ := floats.Max(z)
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
	}
	floats.Scale(1/floats.Sum(out), out)
}

// Apply evaluates act over z into out, dispatching to ActivateVector when the
// activation needs the whole vector.
func Apply(act Activation, z, out []float64) {
	if va, ok := act.(VectorActivation); ok {
		va.ActivateVector(z, out)
		return
	}
	for i, v := range z {
		out[i] = act.Activate(v)
	}
}

// Delta writes delta[i] = err[i]·f'(z[i]).
func Delta(act Activation, z, err, delta []float64) {
	for i := range delta {
		delta[i] = err[i] * act.Derivative(z[i])
	}
}

// Parse returns the activation registered under name.
func Parse(name string) (Activation, error) {
	switch name {
	case NameReLU:
		return ReLU{}, nil
	case NameSigmoid:
		return Sigmoid{}, nil
	case NameTanh:
		return Tanh{}, nil
	case NameSoftmax:
		return Softmax{}, nil
	case NameLinear, "":
		return Linear{}, nil
	default:
		return nil, fmt.Errorf("activation: unknown activation %q", name)
	}
}
