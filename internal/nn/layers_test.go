package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/optim"
)

func TestDenseGradients(t *testing.T) {
	rng := seeded(10)
	d, err := NewDense(4, 3, "sigmoid", nil, rng)
	require.NoError(t, err)
	x := randomVector(rng, 4)

	checkInputGradient(t, d, x, rng)
	checkParamGradient(t, d, d.Weights(), x, rng)
	checkParamGradient(t, d, d.Biases(), x, rng)
}

func TestConvOutputSize(t *testing.T) {
	tests := []struct {
		name                 string
		h, w, kernel, stride int
		wantH, wantW         int
	}{
		{"stride 1", 5, 5, 3, 1, 3, 3},
		{"stride 2", 7, 5, 3, 2, 3, 2},
		{"floor", 6, 6, 3, 2, 2, 2},
		{"full kernel", 4, 4, 4, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConv(ConvConfig{Channels: 2, Height: tt.h, Width: tt.w, Filters: 3, Kernel: tt.kernel, Stride: tt.stride}, nil, seeded(1))
			require.NoError(t, err)
			f, h, w := c.OutputShape()
			assert.Equal(t, 3, f)
			assert.Equal(t, tt.wantH, h)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, 3*tt.wantH*tt.wantW, c.OutputSize())
		})
	}
}

func TestConvRejectsOversizedKernel(t *testing.T) {
	_, err := NewConv(ConvConfig{Channels: 1, Height: 2, Width: 2, Filters: 1, Kernel: 3}, nil, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestConvForwardKnownValues(t *testing.T) {
	c, err := NewConv(ConvConfig{Channels: 1, Height: 3, Width: 3, Filters: 1, Kernel: 2}, nil, seeded(1))
	require.NoError(t, err)
	w := optim.NewBlock(4)
	copy(w.Values, []float64{1, 0, 0, 1}) // main diagonal
	b := optim.NewBlock(1)
	b.Values[0] = 10
	require.NoError(t, c.SetParameters([]*optim.Block{w, b}))

	out, err := c.Forward([]float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{16, 18, 22, 24}, out)
}

func TestConvGradients(t *testing.T) {
	rng := seeded(11)
	c, err := NewConv(ConvConfig{Channels: 2, Height: 5, Width: 4, Filters: 3, Kernel: 2, Stride: 2, Activation: "tanh"}, nil, rng)
	require.NoError(t, err)
	x := randomVector(rng, c.InputSize())

	checkInputGradient(t, c, x, rng)
	checkParamGradient(t, c, c.weights, x, rng)
	checkParamGradient(t, c, c.biases, x, rng)
}

func TestPool(t *testing.T) {
	in := []float64{
		1, 5, 2, 0,
		3, 4, 8, 1,
		0, 0, 1, 1,
		2, 6, 1, 3,
	}

	maxPool, err := NewPool(PoolConfig{Channels: 1, Height: 4, Width: 4, Size: 2})
	require.NoError(t, err)
	out, err := maxPool.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 8, 6, 3}, out)

	back, err := maxPool.Backward([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0, 1, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 0,
		0, 3, 0, 4,
	}, back)

	avgPool, err := NewPool(PoolConfig{Channels: 1, Height: 4, Width: 4, Size: 2, Mode: AveragePool})
	require.NoError(t, err)
	out, err = avgPool.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{13.0 / 4, 11.0 / 4, 8.0 / 4, 6.0 / 4}, out)
	checkInputGradient(t, avgPool, in, seeded(12))
}

func TestPoolRejectsUnknownMode(t *testing.T) {
	_, err := NewPool(PoolConfig{Channels: 1, Height: 2, Width: 2, Size: 2, Mode: "median"})
	assert.Error(t, err)
}

func TestRecurrentState(t *testing.T) {
	rng := seeded(13)
	r, err := NewRecurrent(2, 3, "tanh", nil, rng)
	require.NoError(t, err)
	x := []float64{0.3, -0.7}

	first, err := r.Forward(x)
	require.NoError(t, err)
	second, err := r.Forward(x)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "hidden state feeds back")

	r.ResetState()
	again, err := r.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	snap := r.State()
	_, err = r.Forward(x)
	require.NoError(t, err)
	require.NoError(t, r.SetState(snap))
	assert.Equal(t, snap, r.State())
}

func TestRecurrentGradients(t *testing.T) {
	rng := seeded(14)
	r, err := NewRecurrent(3, 2, "sigmoid", nil, rng)
	require.NoError(t, err)
	_, err = r.Forward(randomVector(rng, 3)) // non-zero h_{t−1}
	require.NoError(t, err)

	// Finite differences re-run Forward, which would advance the state, so
	// each evaluation restores it first.
	snap := r.State()
	x := randomVector(rng, 3)
	c := randomVector(rng, 2)
	eval := func(v []float64) float64 {
		require.NoError(t, r.SetState([][]float64{snap[0], snap[0]}))
		return weighted(t, r, c, v)
	}
	_ = eval(x)
	got, err := r.Backward(c)
	require.NoError(t, err)

	for i := range x {
		const h = 1e-6
		plus := append([]float64(nil), x...)
		minus := append([]float64(nil), x...)
		plus[i] += h
		minus[i] -= h
		want := (eval(plus) - eval(minus)) / (2 * h)
		assert.InDelta(t, want, got[i], 1e-5)
	}
}

func TestBatchNorm(t *testing.T) {
	bn, err := NewBatchNorm(BatchNormConfig{Size: 2, Momentum: 0.5}, nil)
	require.NoError(t, err)

	_, err = bn.Forward([]float64{2, -2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -1}, bn.RunningMean(), 1e-12)
	assert.InDeltaSlice(t, []float64{1, 1}, bn.RunningVariance(), 1e-12)

	bn.SetTraining(false)
	mean := bn.RunningMean()
	out, err := bn.Forward([]float64{3, 0})
	require.NoError(t, err)
	assert.Equal(t, mean, bn.RunningMean(), "inference freezes statistics")
	assert.InDelta(t, 2/1.0000049999875, out[0], 1e-6)

	checkInputGradient(t, bn, []float64{0.4, 1.2}, seeded(15))
	checkParamGradient(t, bn, bn.gamma, []float64{0.4, 1.2}, seeded(16))
	checkParamGradient(t, bn, bn.beta, []float64{0.4, 1.2}, seeded(17))

	bn.ResetState()
	assert.Equal(t, []float64{0, 0}, bn.RunningMean())
}

func TestDropout(t *testing.T) {
	d, err := NewDropout(1000, 0.4, seeded(18))
	require.NoError(t, err)
	in := make([]float64, 1000)
	for i := range in {
		in[i] = 1
	}

	out, err := d.Forward(in)
	require.NoError(t, err)
	var kept int
	for _, v := range out {
		if v != 0 {
			assert.InDelta(t, 1/0.6, v, 1e-12, "inverted scaling")
			kept++
		}
	}
	assert.InDelta(t, 600, kept, 60)

	back, err := d.Backward(in)
	require.NoError(t, err)
	assert.Equal(t, out, back, "error follows the mask")

	d.SetTraining(false)
	out, err = d.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = NewDropout(3, 1, nil)
	assert.Error(t, err)
}

// float32Ops rounds every result it writes to float32, the way the device
// kernels do.
type float32Ops struct{ backend.Ops }

func (o float32Ops) MatrixMultiply(a, b, c []float64, m, n, k int, alpha, beta float64) {
	o.Ops.MatrixMultiply(a, b, c, m, n, k, alpha, beta)
	for i := range c[:m*n] {
		c[i] = float64(float32(c[i]))
	}
}

func (o float32Ops) VectorAdd(x, y []float64, alpha float64) {
	o.Ops.VectorAdd(x, y, alpha)
	for i := range y {
		y[i] = float64(float32(y[i]))
	}
}

func TestGradientsAccumulateInFloat64(t *testing.T) {
	const base = 1 + 1e-12 // not representable in float32
	x := []float64{0.5, 0.25}

	t.Run("dense", func(t *testing.T) {
		d, err := NewDense(2, 1, "linear", nil, seeded(1))
		require.NoError(t, err)
		d.ops = float32Ops{d.ops}
		for _, g := range [][]float64{d.weights.Grads, d.biases.Grads} {
			for i := range g {
				g[i] = base
			}
		}

		_, err = d.Forward(x)
		require.NoError(t, err)
		_, err = d.Backward([]float64{2})
		require.NoError(t, err)

		assert.InDelta(t, base+1, d.weights.Grads[0], 1e-15)
		assert.InDelta(t, base+0.5, d.weights.Grads[1], 1e-15)
		assert.InDelta(t, base+2, d.biases.Grads[0], 1e-15)
	})

	t.Run("recurrent", func(t *testing.T) {
		r, err := NewRecurrent(2, 1, "linear", nil, seeded(1))
		require.NoError(t, err)
		r.ops = float32Ops{r.ops}
		for _, g := range [][]float64{r.wx.Grads, r.wh.Grads, r.b.Grads} {
			for i := range g {
				g[i] = base
			}
		}

		_, err = r.Forward(x)
		require.NoError(t, err)
		_, err = r.Backward([]float64{2})
		require.NoError(t, err)

		assert.InDelta(t, base+1, r.wx.Grads[0], 1e-15)
		assert.InDelta(t, base+0.5, r.wx.Grads[1], 1e-15)
		assert.InDelta(t, base, r.wh.Grads[0], 1e-15) // zero initial state
		assert.InDelta(t, base+2, r.b.Grads[0], 1e-15)
	})
}
