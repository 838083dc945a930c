package activation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePoints = []float64{-50, -3.5, -1, -1e-9, 0, 1e-9, 0.5, 2, 7.25, 50}

func TestReLU(t *testing.T) {
	r := ReLU{}
	for _, z := range samplePoints {
		assert.GreaterOrEqual(t, r.Activate(z), 0.0)
		d := r.Derivative(z)
		assert.True(t, d == 0 || d == 1, "ReLU'(%v) = %v", z, d)
	}
	assert.Equal(t, 2.0, r.Activate(2))
	assert.Equal(t, 0.0, r.Activate(-2))
}

func TestSigmoidRange(t *testing.T) {
	s := Sigmoid{}
	for _, z := range []float64{-20, -1, 0, 1, 20} {
		a := s.Activate(z)
		assert.Greater(t, a, 0.0)
		assert.Less(t, a, 1.0)
	}
	assert.InDelta(t, 0.5, s.Activate(0), 1e-12)
	assert.InDelta(t, 0.25, s.Derivative(0), 1e-12)
}

func TestTanhRange(t *testing.T) {
	th := Tanh{}
	for _, z := range []float64{-10, -1, 0, 1, 10} {
		a := th.Activate(z)
		assert.Greater(t, a, -1.0)
		assert.Less(t, a, 1.0)
	}
	assert.InDelta(t, 1.0, th.Derivative(0), 1e-12)
}

func TestSoftmaxSumsToOne(t *testing.T) {
	tests := []struct {
		name string
		z    []float64
	}{
		{"small", []float64{1, 2, 3}},
		{"negative", []float64{-5, -1, -0.5, -10}},
		{"large", []float64{1000, 1001, 999}},
		{"single", []float64{42}},
		{"uniform", []float64{3, 3, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]float64, len(tt.z))
			Softmax{}.ActivateVector(tt.z, out)
			sum := 0.0
			for _, v := range out {
				require.False(t, math.IsNaN(v))
				assert.GreaterOrEqual(t, v, 0.0)
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-12)
		})
	}
}

func TestSoftmaxScalarPanics(t *testing.T) {
	assert.Panics(t, func() { Softmax{}.Activate(1) })
}

func TestApplyAndDelta(t *testing.T) {
	z := []float64{-1, 0, 2}
	out := make([]float64, 3)
	Apply(ReLU{}, z, out)
	assert.Equal(t, []float64{0, 0, 2}, out)

	Apply(Softmax{}, z, out)
	assert.InDelta(t, 1.0, out[0]+out[1]+out[2], 1e-12)

	delta := make([]float64, 3)
	Delta(ReLU{}, z, []float64{5, 5, 5}, delta)
	assert.Equal(t, []float64{0, 0, 5}, delta)
}

func TestParse(t *testing.T) {
	for _, name := range []string{NameReLU, NameSigmoid, NameTanh, NameSoftmax, NameLinear} {
		act, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, name, act.Name())
	}
	_, err := Parse("swish")
	assert.Error(t, err)
}
