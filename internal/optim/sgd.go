package optim

// SGD implements stochastic gradient descent with momentum and weight decay.
//
// Update rule for weights:
//
//	w = w * (1 - lr*decay)          // decay first
//	m = momentum*m + lr*grad
//	w = w + m
//
// Biases take a plain step: b = b + lr*grad.
type SGD struct {
	momentum float64
	decay    float64
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	Momentum   float64 // Momentum coefficient (default: 0.9)
	Decay      float64 // Weight decay (default: 0)
	NoMomentum bool    // Force Momentum to 0 instead of the default
}

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	if config.Momentum == 0 && !config.NoMomentum {
		config.Momentum = 0.9
	}
	return &SGD{momentum: config.Momentum, decay: config.Decay}
}

// Name returns "sgd".
func (s *SGD) Name() string { return NameSGD }

// Initialize zeroes the parameter scratch.
func (s *SGD) Initialize(p *Param) {
	p.Momentum = 0
	p.Variance = 0
	p.Grad = 0
}

// UpdateWeight applies decay, then momentum.
func (s *SGD) UpdateWeight(p *Param, lr float64) {
	p.Value *= 1 - lr*s.decay
	p.Momentum = s.momentum*p.Momentum + lr*p.Grad
	p.Value += p.Momentum
	p.Grad = 0
}

// UpdateBias takes a plain gradient step.
func (s *SGD) UpdateBias(p *Param, lr float64) {
	p.Value += lr * p.Grad
	p.Grad = 0
}

// Config returns the hyperparameters.
func (s *SGD) Config() map[string]float64 {
	return map[string]float64{"momentum": s.momentum, "decay": s.decay}
}
