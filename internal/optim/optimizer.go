// Package optim implements the gradient-descent policies that turn
// accumulated gradients into parameter updates.
//
// This package provides:
//   - Param: one scalar parameter with its gradient accumulator and scratch state
//   - Block: a contiguous group of parameters (a weight matrix or bias vector)
//   - Optimizer: the {Initialize, UpdateWeight, UpdateBias} policy interface
//   - SGD (momentum + decay), Adam, RMSprop and Adagrad
//
// Every policy consumes Param.Grad and resets it to zero. This is the only
// place gradients are cleared.
//
// Example usage:
//
//	opt := optim.NewAdam(optim.AdamConfig{})
//	var p optim.Param
//	opt.Initialize(&p)
//
//	p.Grad += delta * activation // accumulated during backward
//	opt.Step()                   // once per update cycle
//	opt.UpdateWeight(&p, 0.01)
package optim

import "fmt"

// Optimizer names used in persisted models.
const (
	NameSGD     = "sgd"
	NameAdam    = "adam"
	NameRMSprop = "rmsprop"
	NameAdagrad = "adagrad"
)

// Param is a single trainable scalar.
//
// Grad accumulates the ascent direction (delta × activation) across backward
// calls; updates move Value along +Grad.
type Param struct {
	Value    float64
	Grad     float64
	Momentum float64
	Variance float64
}

// Optimizer is a per-parameter update policy.
//
// Implementations hold only hyperparameters (plus a step counter for Adam);
// all per-parameter state lives in Param.
type Optimizer interface {
	// Name returns the registry name of the policy.
	Name() string

	// Initialize zeroes momentum, variance and gradient scratch.
	// Calling it twice has the same effect as calling it once.
	Initialize(p *Param)

	// UpdateWeight applies one update to a connection weight and resets its gradient.
	UpdateWeight(p *Param, lr float64)

	// UpdateBias applies one update to a unit bias and resets its gradient.
	UpdateBias(p *Param, lr float64)

	// Config returns the hyperparameters for persistence.
	Config() map[string]float64
}

// StepCounter is implemented by policies with a global time step.
//
// A network advances each distinct counter exactly once per update cycle,
// before any parameter is touched.
type StepCounter interface {
	Step()
	Reset()
	Timestep() int
	SetTimestep(t int)
}

// FromConfig rebuilds an optimizer from its name and Config() output.
func FromConfig(name string, cfg map[string]float64) (Optimizer, error) {
	switch name {
	case NameSGD:
		return NewSGD(SGDConfig{Momentum: cfg["momentum"], Decay: cfg["decay"], NoMomentum: explicitZero(cfg, "momentum")}), nil
	case NameAdam:
		a := NewAdam(AdamConfig{Beta1: cfg["beta1"], Beta2: cfg["beta2"], Epsilon: cfg["epsilon"], NoMomentum: explicitZero(cfg, "beta1")})
		a.SetTimestep(int(cfg["t"]))
		return a, nil
	case NameRMSprop:
		return NewRMSprop(RMSpropConfig{Decay: cfg["decay"], Epsilon: cfg["epsilon"], NoDecay: explicitZero(cfg, "decay")}), nil
	case NameAdagrad:
		return NewAdagrad(AdagradConfig{Epsilon: cfg["epsilon"]}), nil
	default:
		return nil, fmt.Errorf("optim: unknown optimizer %q", name)
	}
}

// explicitZero reports whether key is present in cfg and set to zero. A
// missing key falls back to the constructor default.
func explicitZero(cfg map[string]float64, key string) bool {
	v, ok := cfg[key]
	return ok && v == 0
}

var (
	_ Optimizer   = (*SGD)(nil)
	_ Optimizer   = (*Adam)(nil)
	_ Optimizer   = (*RMSprop)(nil)
	_ Optimizer   = (*Adagrad)(nil)
	_ StepCounter = (*Adam)(nil)
)
