package optim

import "math"

// RMSprop divides the learning rate by a decayed average of squared gradients.
//
//	v = decay*v + (1-decay)*grad²
//	param = param + lr*grad/(sqrt(v)+eps)
type RMSprop struct {
	decay float64
	eps   float64
}

// RMSpropConfig holds configuration for RMSprop.
type RMSpropConfig struct {
	Decay   float64 // default: 0.9
	Epsilon float64 // default: 1e-8
	NoDecay bool    // Force Decay to 0 instead of the default
}

// NewRMSprop creates a new RMSprop optimizer.
func NewRMSprop(config RMSpropConfig) *RMSprop {
	if config.Decay == 0 && !config.NoDecay {
		config.Decay = 0.9
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	return &RMSprop{decay: config.Decay, eps: config.Epsilon}
}

// Name returns "rmsprop".
func (r *RMSprop) Name() string { return NameRMSprop }

// Initialize zeroes the second-moment estimate and gradient.
func (r *RMSprop) Initialize(p *Param) {
	p.Momentum = 0
	p.Variance = 0
	p.Grad = 0
}

// UpdateWeight applies one step.
func (r *RMSprop) UpdateWeight(p *Param, lr float64) { r.update(p, lr) }

// UpdateBias applies one step.
func (r *RMSprop) UpdateBias(p *Param, lr float64) { r.update(p, lr) }

func (r *RMSprop) update(p *Param, lr float64) {
	g := p.Grad
	p.Variance = r.decay*p.Variance + (1-r.decay)*g*g
	p.Value += lr * g / (math.Sqrt(p.Variance) + r.eps)
	p.Grad = 0
}

// Config returns the hyperparameters.
func (r *RMSprop) Config() map[string]float64 {
	return map[string]float64{"decay": r.decay, "epsilon": r.eps}
}

// Adagrad divides the learning rate by the root of the summed squared gradients.
//
//	v = v + grad²
//	param = param + lr*grad/(sqrt(v)+eps)
type Adagrad struct {
	eps float64
}

// AdagradConfig holds configuration for Adagrad.
type AdagradConfig struct {
	Epsilon float64 // default: 1e-8
}

// NewAdagrad creates a new Adagrad optimizer.
func NewAdagrad(config AdagradConfig) *Adagrad {
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	return &Adagrad{eps: config.Epsilon}
}

// Name returns "adagrad".
func (a *Adagrad) Name() string { return NameAdagrad }

// Initialize zeroes the accumulator and gradient.
func (a *Adagrad) Initialize(p *Param) {
	p.Momentum = 0
	p.Variance = 0
	p.Grad = 0
}

// UpdateWeight applies one step.
func (a *Adagrad) UpdateWeight(p *Param, lr float64) { a.update(p, lr) }

// UpdateBias applies one step.
func (a *Adagrad) UpdateBias(p *Param, lr float64) { a.update(p, lr) }

func (a *Adagrad) update(p *Param, lr float64) {
	g := p.Grad
	p.Variance += g * g
	p.Value += lr * g / (math.Sqrt(p.Variance) + a.eps)
	p.Grad = 0
}

// Config returns the hyperparameters.
func (a *Adagrad) Config() map[string]float64 {
	return map[string]float64{"epsilon": a.eps}
}
