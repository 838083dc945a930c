package optim

import "math"

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param + lr * m_hat / (sqrt(v_hat) + eps)
//
// The time step t belongs to the optimizer instance, not to a parameter. It
// is advanced by Step once per update cycle, before the updates of that
// cycle; UpdateWeight and UpdateBias never advance it. Layers sharing one
// instance see the same t. Reuse across independent runs requires Reset.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	beta1 float64
	beta2 float64
	eps   float64
	t     int
}

// AdamConfig holds configuration for Adam optimizer. Zero fields take the
// defaults; set NoMomentum for Beta1 = 0.
type AdamConfig struct {
	Beta1      float64 // default: 0.9
	Beta2      float64 // default: 0.999
	Epsilon    float64 // default: 1e-8
	NoMomentum bool    // Force Beta1 to 0 instead of the default
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Epsilon: 1e-8
func NewAdam(config AdamConfig) *Adam {
	if config.Beta1 == 0 && !config.NoMomentum {
		config.Beta1 = 0.9
	}
	if config.Beta2 == 0 {
		config.Beta2 = 0.999
	}
	if config.Epsilon == 0 {
		config.Epsilon = 1e-8
	}
	return &Adam{beta1: config.Beta1, beta2: config.Beta2, eps: config.Epsilon}
}

// Name returns "adam".
func (a *Adam) Name() string { return NameAdam }

// Step advances the time step.
func (a *Adam) Step() { a.t++ }

// Reset sets the time step back to zero.
func (a *Adam) Reset() { a.t = 0 }

// Timestep returns the current time step.
func (a *Adam) Timestep() int { return a.t }

// SetTimestep restores a persisted time step.
func (a *Adam) SetTimestep(t int) { a.t = t }

// Initialize zeroes the moment estimates and gradient. The time step is left alone.
func (a *Adam) Initialize(p *Param) {
	p.Momentum = 0
	p.Variance = 0
	p.Grad = 0
}

// UpdateWeight applies one bias-corrected step at the current time step.
// Call Step once per cycle first. Before the first Step the correction for
// t=1 is used and Timestep keeps reporting 0.
func (a *Adam) UpdateWeight(p *Param, lr float64) { a.update(p, lr) }

// UpdateBias mirrors UpdateWeight on the bias scratch.
func (a *Adam) UpdateBias(p *Param, lr float64) { a.update(p, lr) }

func (a *Adam) update(p *Param, lr float64) {
	t := float64(max(a.t, 1))
	g := p.Grad
	p.Momentum = a.beta1*p.Momentum + (1-a.beta1)*g
	p.Variance = a.beta2*p.Variance + (1-a.beta2)*g*g

	mHat := p.Momentum / (1 - math.Pow(a.beta1, t))
	vHat := p.Variance / (1 - math.Pow(a.beta2, t))
	p.Value += lr * mHat / (math.Sqrt(vHat) + a.eps)
	p.Grad = 0
}

// Config returns the hyperparameters and the current time step.
func (a *Adam) Config() map[string]float64 {
	return map[string]float64{"beta1": a.beta1, "beta2": a.beta2, "epsilon": a.eps, "t": float64(a.t)}
}
