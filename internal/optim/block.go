package optim

// Block is a contiguous group of parameters sharing one update rule, such as
// a weight matrix or a bias vector. Layers compose blocks instead of owning
// per-parameter structs so matrix kernels can read Values directly.
type Block struct {
	Values    []float64
	Grads     []float64
	Moments   []float64
	Variances []float64
}

// NewBlock allocates a zeroed block of n parameters.
func NewBlock(n int) *Block {
	return &Block{
		Values:    make([]float64, n),
		Grads:     make([]float64, n),
		Moments:   make([]float64, n),
		Variances: make([]float64, n),
	}
}

// Len returns the number of parameters.
func (b *Block) Len() int { return len(b.Values) }

// At copies parameter i out of the block.
func (b *Block) At(i int) Param {
	return Param{Value: b.Values[i], Grad: b.Grads[i], Momentum: b.Moments[i], Variance: b.Variances[i]}
}

// Set copies p into slot i.
func (b *Block) Set(i int, p Param) {
	b.Values[i] = p.Value
	b.Grads[i] = p.Grad
	b.Moments[i] = p.Momentum
	b.Variances[i] = p.Variance
}

// Initialize runs opt.Initialize over every parameter.
func (b *Block) Initialize(opt Optimizer) {
	for i := range b.Values {
		p := b.At(i)
		opt.Initialize(&p)
		b.Set(i, p)
	}
}

// UpdateWeights runs opt.UpdateWeight over every parameter.
func (b *Block) UpdateWeights(opt Optimizer, lr float64) {
	for i := range b.Values {
		p := b.At(i)
		opt.UpdateWeight(&p, lr)
		b.Set(i, p)
	}
}

// UpdateBiases runs opt.UpdateBias over every parameter.
func (b *Block) UpdateBiases(opt Optimizer, lr float64) {
	for i := range b.Values {
		p := b.At(i)
		opt.UpdateBias(&p, lr)
		b.Set(i, p)
	}
}

// Clone returns a deep copy.
func (b *Block) Clone() *Block {
	c := NewBlock(b.Len())
	copy(c.Values, b.Values)
	copy(c.Grads, b.Grads)
	copy(c.Moments, b.Moments)
	copy(c.Variances, b.Variances)
	return c
}
