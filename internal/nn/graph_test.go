package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synapse/internal/optim"
)

func TestGraphDenseTopology(t *testing.T) {
	g, err := NewGraphDense(3, 2, "sigmoid", nil, seeded(1))
	require.NoError(t, err)

	assert.Equal(t, 6, g.NumConnections())
	for i := 0; i < 3; i++ {
		assert.Len(t, g.Unit(i).Outputs, 2)
		assert.Empty(t, g.Unit(i).Inputs)
	}
	for j := 3; j < 5; j++ {
		assert.Len(t, g.Unit(j).Inputs, 3)
	}

	bound := XavierBound(3, 2)
	for h := 0; h < g.NumConnections(); h++ {
		c := g.Connection(h)
		assert.LessOrEqual(t, c.Weight.Value, bound)
		assert.GreaterOrEqual(t, c.Weight.Value, -bound)
		assert.Less(t, c.Src, 3)
		assert.GreaterOrEqual(t, c.Dst, 3)
	}
}

func TestGraphDenseForward(t *testing.T) {
	g, err := NewGraphDense(2, 1, "linear", nil, seeded(1))
	require.NoError(t, err)
	require.NoError(t, g.SetParameters([]*optim.Block{
		{Values: []float64{2, -1}, Grads: make([]float64, 2), Moments: make([]float64, 2), Variances: make([]float64, 2)},
		{Values: []float64{0.5}, Grads: make([]float64, 1), Moments: make([]float64, 1), Variances: make([]float64, 1)},
	}))

	out, err := g.Forward([]float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.5+6-4, out[0], 1e-12)
	assert.InDelta(t, 2.5, g.Unit(2).Activation, 1e-12)
}

func TestGraphDenseGradients(t *testing.T) {
	rng := seeded(4)
	g, err := NewGraphDense(4, 3, "tanh", nil, rng)
	require.NoError(t, err)
	checkInputGradient(t, g, randomVector(rng, 4), rng)
}

func TestGraphMatrixEquivalence(t *testing.T) {
	rng := seeded(5)
	for _, act := range []string{"relu", "sigmoid", "tanh", "softmax", "linear"} {
		g, err := NewGraphDense(5, 3, act, optim.NewSGD(optim.SGDConfig{}), rng)
		require.NoError(t, err)
		d := g.ToMatrix()

		x := randomVector(rng, 5)
		gy, err := g.Forward(x)
		require.NoError(t, err)
		dy, err := d.Forward(x)
		require.NoError(t, err)
		assert.InDeltaSlice(t, gy, dy, 1e-12, act)

		e := randomVector(rng, 3)
		gx, err := g.Backward(e)
		require.NoError(t, err)
		dx, err := d.Backward(e)
		require.NoError(t, err)
		assert.InDeltaSlice(t, gx, dx, 1e-12, act)

		gp, dp := g.Parameters(), d.Parameters()
		assert.InDeltaSlice(t, gp[0].Grads, dp[0].Grads, 1e-12, act)
		assert.InDeltaSlice(t, gp[1].Grads, dp[1].Grads, 1e-12, act)

		g.Update(0.1)
		d.Update(0.1)
		assert.InDeltaSlice(t, g.Parameters()[0].Values, d.Parameters()[0].Values, 1e-12, act)

		back := d.ToGraph()
		assert.Equal(t, d.Parameters()[0].Values, back.Parameters()[0].Values)
		assert.Equal(t, d.Parameters()[1].Moments, back.Parameters()[1].Moments)
	}
}

func TestGraphDenseUpdateTouchesEveryParameter(t *testing.T) {
	rng := seeded(6)
	g, err := NewGraphDense(3, 2, "sigmoid", optim.NewAdam(optim.AdamConfig{}), rng)
	require.NoError(t, err)
	before := g.Parameters()

	_, err = g.Forward([]float64{0.5, -0.2, 0.9})
	require.NoError(t, err)
	_, err = g.Backward([]float64{1, -1})
	require.NoError(t, err)
	g.Update(0.05)

	after := g.Parameters()
	for b := range before {
		for i := range before[b].Values {
			assert.NotEqual(t, before[b].Values[i], after[b].Values[i])
			assert.Zero(t, after[b].Grads[i], "gradient consumed")
		}
	}
}
