package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synapse/internal/optim"
)

func allOptimizers() []optim.Optimizer {
	return []optim.Optimizer{
		optim.NewSGD(optim.SGDConfig{}),
		optim.NewAdam(optim.AdamConfig{}),
		optim.NewRMSprop(optim.RMSpropConfig{}),
		optim.NewAdagrad(optim.AdagradConfig{}),
	}
}

// TestSGD_FirstStep checks w += lr*grad on a fresh parameter.
func TestSGD_FirstStep(t *testing.T) {
	sgd := optim.NewSGD(optim.SGDConfig{})
	p := optim.Param{Value: 1.0}
	sgd.Initialize(&p)

	p.Grad = 0.5
	sgd.UpdateWeight(&p, 0.1)
	assert.InDelta(t, 1.05, p.Value, 1e-12)
	assert.Zero(t, p.Grad)

	b := optim.Param{Value: 0.2, Grad: 0.3}
	sgd.UpdateBias(&b, 0.1)
	assert.InDelta(t, 0.23, b.Value, 1e-12)
	assert.Zero(t, b.Grad)
}

// TestSGD_Momentum checks the velocity carries into the second step.
func TestSGD_Momentum(t *testing.T) {
	sgd := optim.NewSGD(optim.SGDConfig{Momentum: 0.9})
	p := optim.Param{Value: 0}

	p.Grad = 1
	sgd.UpdateWeight(&p, 0.1) // m = 0.1, w = 0.1
	p.Grad = 1
	sgd.UpdateWeight(&p, 0.1) // m = 0.09 + 0.1 = 0.19, w = 0.29

	assert.InDelta(t, 0.19, p.Momentum, 1e-12)
	assert.InDelta(t, 0.29, p.Value, 1e-12)
}

// TestSGD_DecayBeforeMomentum checks decay scales the old weight, not the step.
func TestSGD_DecayBeforeMomentum(t *testing.T) {
	sgd := optim.NewSGD(optim.SGDConfig{NoMomentum: true, Decay: 0.5})
	p := optim.Param{Value: 2, Grad: 1}
	sgd.UpdateWeight(&p, 0.1)
	// w = 2*(1-0.05) + 0.1*1
	assert.InDelta(t, 1.9+0.1, p.Value, 1e-12)
}

func TestAdam_FirstStep(t *testing.T) {
	adam := optim.NewAdam(optim.AdamConfig{})
	p := optim.Param{Value: 1}
	adam.Initialize(&p)
	adam.Step()

	p.Grad = 0.5
	adam.UpdateWeight(&p, 0.1)
	// After bias correction the first step is lr * g/|g| (minus epsilon).
	assert.InDelta(t, 1.1, p.Value, 1e-6)
	assert.Zero(t, p.Grad)
	assert.Equal(t, 1, adam.Timestep())
}

func TestAdam_UnsteppedUpdatesDoNotAdvance(t *testing.T) {
	adam := optim.NewAdam(optim.AdamConfig{})
	p := optim.Param{Value: 0, Grad: -2}
	adam.UpdateBias(&p, 0.01)
	assert.InDelta(t, -0.01, p.Value, 1e-6)
	assert.False(t, math.IsNaN(p.Value))

	for range 4 {
		p.Grad = -2
		adam.UpdateWeight(&p, 0.01)
	}
	assert.Zero(t, adam.Timestep(), "only Step advances t")

	// Stepped and unstepped runs agree on the first update only.
	stepped := optim.NewAdam(optim.AdamConfig{})
	q := optim.Param{Grad: -2}
	stepped.Step()
	stepped.UpdateBias(&q, 0.01)
	assert.InDelta(t, -0.01, q.Value, 1e-6)
	stepped.Step()
	q.Grad = -2
	stepped.UpdateBias(&q, 0.01)
	assert.Equal(t, 2, stepped.Timestep())
	assert.InDelta(t, -0.02, q.Value, 1e-6)
}

func TestAdam_ResetAndConfig(t *testing.T) {
	adam := optim.NewAdam(optim.AdamConfig{})
	adam.Step()
	adam.Step()
	cfg := adam.Config()
	assert.Equal(t, 2.0, cfg["t"])

	restored, err := optim.FromConfig(optim.NameAdam, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.(optim.StepCounter).Timestep())

	adam.Reset()
	assert.Zero(t, adam.Timestep())
}

func TestRMSpropAndAdagrad(t *testing.T) {
	rms := optim.NewRMSprop(optim.RMSpropConfig{})
	p := optim.Param{Grad: 1}
	rms.UpdateWeight(&p, 0.1)
	// v = 0.1, step = 0.1/sqrt(0.1)
	assert.InDelta(t, 0.1/math.Sqrt(0.1), p.Value, 1e-6)

	ada := optim.NewAdagrad(optim.AdagradConfig{})
	q := optim.Param{Grad: 2}
	ada.UpdateWeight(&q, 0.1)
	q.Grad = 2
	ada.UpdateWeight(&q, 0.1)
	assert.InDelta(t, 8.0, q.Variance, 1e-12, "adagrad accumulator is monotonic")
}

// TestInitializeIdempotent checks initialize resets scratch regardless of prior state.
func TestInitializeIdempotent(t *testing.T) {
	for _, opt := range allOptimizers() {
		t.Run(opt.Name(), func(t *testing.T) {
			p := optim.Param{Value: 3, Grad: 7, Momentum: 1.5, Variance: 2.5}
			opt.Initialize(&p)
			first := p
			opt.Initialize(&p)

			assert.Equal(t, first, p)
			assert.Zero(t, p.Grad)
			assert.Zero(t, p.Momentum)
			assert.Zero(t, p.Variance)
			assert.Equal(t, 3.0, p.Value, "initialize must not touch the value")
		})
	}
}

// TestUpdateChangesValue checks every policy moves a parameter with nonzero gradient.
func TestUpdateChangesValue(t *testing.T) {
	for _, opt := range allOptimizers() {
		t.Run(opt.Name(), func(t *testing.T) {
			w := optim.Param{Value: 0.4, Grad: 0.25}
			b := optim.Param{Value: -0.1, Grad: -0.3}
			opt.UpdateWeight(&w, 0.05)
			opt.UpdateBias(&b, 0.05)
			assert.NotEqual(t, 0.4, w.Value)
			assert.NotEqual(t, -0.1, b.Value)
			assert.Zero(t, w.Grad)
			assert.Zero(t, b.Grad)
		})
	}
}

func TestBlockUpdates(t *testing.T) {
	blk := optim.NewBlock(3)
	copy(blk.Values, []float64{1, 2, 3})
	copy(blk.Grads, []float64{1, 0, -1})

	sgd := optim.NewSGD(optim.SGDConfig{NoMomentum: true})
	blk.UpdateWeights(sgd, 0.5)
	assert.Equal(t, []float64{1.5, 2, 2.5}, blk.Values)
	assert.Equal(t, []float64{0, 0, 0}, blk.Grads)

	clone := blk.Clone()
	clone.Values[0] = 99
	assert.Equal(t, 1.5, blk.Values[0])
}

func TestZeroCoefficients(t *testing.T) {
	adam := optim.NewAdam(optim.AdamConfig{NoMomentum: true})
	assert.Zero(t, adam.Config()["beta1"])
	assert.Equal(t, 0.9, optim.NewAdam(optim.AdamConfig{}).Config()["beta1"])

	rms := optim.NewRMSprop(optim.RMSpropConfig{NoDecay: true})
	assert.Zero(t, rms.Config()["decay"])
	p := optim.Param{Grad: 1}
	rms.UpdateWeight(&p, 0.1)
	// v = g², so the step is lr·g/|g|.
	assert.InDelta(t, 0.1, p.Value, 1e-6)

	for _, opt := range []optim.Optimizer{adam, rms, optim.NewSGD(optim.SGDConfig{NoMomentum: true})} {
		got, err := optim.FromConfig(opt.Name(), opt.Config())
		require.NoError(t, err)
		assert.Equal(t, opt.Config(), got.Config(), opt.Name())
	}

	// Missing keys take the defaults.
	got, err := optim.FromConfig(optim.NameRMSprop, map[string]float64{})
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Config()["decay"])
	got, err = optim.FromConfig(optim.NameSGD, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Config()["momentum"])
}

func TestFromConfig(t *testing.T) {
	for _, opt := range allOptimizers() {
		got, err := optim.FromConfig(opt.Name(), opt.Config())
		require.NoError(t, err)
		assert.Equal(t, opt.Config(), got.Config())
	}
	_, err := optim.FromConfig("lbfgs", nil)
	assert.Error(t, err)
}
