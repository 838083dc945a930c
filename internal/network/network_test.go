package network

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synapse/internal/activation"
	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/backend/cpu"
	"github.com/born-ml/synapse/internal/nn"
	"github.com/born-ml/synapse/internal/optim"
	"github.com/born-ml/synapse/internal/serialization"
)

func TestMain(m *testing.M) {
	backend.SetDefault(cpu.New())
	os.Exit(m.Run())
}

func seeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic tests
}

var (
	xorInputs  = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	xorTargets = [][]float64{{0}, {1}, {1}, {0}}
)

func xorNetwork(t *testing.T, seed int64) *Network {
	t.Helper()
	rng := seeded(seed)
	adam := optim.NewAdam(optim.AdamConfig{})
	net := New(Config{LearningRate: 0.05, Optimizer: adam})

	hidden, err := nn.NewDense(2, 4, activation.NameReLU, adam, rng)
	require.NoError(t, err)
	out, err := nn.NewDense(4, 1, activation.NameSigmoid, adam, rng)
	require.NoError(t, err)
	require.NoError(t, net.Add(hidden))
	require.NoError(t, net.Add(out))
	return net
}

func TestXOR(t *testing.T) {
	// A 2-4-1 ReLU network occasionally starts with too many dead units;
	// retry a few seeds before judging.
	var net *Network
	for seed := int64(1); seed <= 5; seed++ {
		net = xorNetwork(t, seed)
		var loss float64
		for range 2000 {
			var err error
			loss, err = net.TrainBatch(xorInputs, xorTargets)
			require.NoError(t, err)
		}
		if loss < 0.05 {
			break
		}
	}

	for i, in := range xorInputs {
		out, err := net.Predict(in)
		require.NoError(t, err)
		if xorTargets[i][0] == 1 {
			assert.Greater(t, out[0], 0.5, "input %v", in)
		} else {
			assert.Less(t, out[0], 0.5, "input %v", in)
		}
	}
}

func TestEmptyNetwork(t *testing.T) {
	net := New(Config{})
	_, err := net.Forward([]float64{1})
	assert.ErrorIs(t, err, ErrNoLayers)
	assert.ErrorIs(t, net.Backward([]float64{1}), ErrNoLayers)
	_, err = net.TrainStep([]float64{1}, []float64{1})
	assert.ErrorIs(t, err, ErrNoLayers)
	assert.Zero(t, net.InputSize())
	assert.Zero(t, net.OutputSize())
}

func TestDefaults(t *testing.T) {
	net := New(Config{})
	assert.Equal(t, DefaultLearningRate, net.LearningRate())
	assert.Equal(t, nn.LossMSE, net.LossFunc().Name())
	assert.Equal(t, optim.NameSGD, net.Optimizer().Name())

	net.SetLearningRate(0.5)
	assert.Equal(t, 0.5, net.LearningRate())
}

func TestDimensionChecks(t *testing.T) {
	net := xorNetwork(t, 1)

	l, err := nn.NewDense(3, 2, activation.NameLinear, nil, seeded(1))
	require.NoError(t, err)
	var de *nn.DimensionError
	require.ErrorAs(t, net.Add(l), &de)
	assert.Equal(t, 1, de.Want)
	assert.Equal(t, 3, de.Got)
	assert.Len(t, net.Layers(), 2)

	_, err = net.Forward([]float64{1, 2, 3})
	assert.ErrorIs(t, err, nn.ErrDimensionMismatch)

	assert.ErrorIs(t, net.Backward([]float64{1}), ErrNoForward)

	_, err = net.Forward([]float64{1, 0})
	require.NoError(t, err)
	assert.ErrorIs(t, net.Backward([]float64{1, 2}), nn.ErrDimensionMismatch)

	_, err = net.TrainBatch(xorInputs, xorTargets[:2])
	assert.ErrorIs(t, err, nn.ErrDimensionMismatch)
	_, err = net.Loss(xorInputs[:1], xorTargets)
	assert.ErrorIs(t, err, nn.ErrDimensionMismatch)
}

func TestUpdateTouchesEveryParameter(t *testing.T) {
	net := New(Config{LearningRate: 0.1})
	rng := seeded(3)
	g, err := nn.NewGraphDense(3, 4, activation.NameTanh, optim.NewSGD(optim.SGDConfig{}), rng)
	require.NoError(t, err)
	d, err := nn.NewDense(4, 2, activation.NameLinear, optim.NewRMSprop(optim.RMSpropConfig{}), rng)
	require.NoError(t, err)
	require.NoError(t, net.Add(g))
	require.NoError(t, net.Add(d))

	var before [][]*optim.Block
	for _, l := range net.Layers() {
		before = append(before, l.Parameters())
	}

	_, err = net.TrainStep([]float64{0.3, -0.7, 0.5}, []float64{2, -2})
	require.NoError(t, err)

	for i, l := range net.Layers() {
		for j, b := range l.Parameters() {
			for k := range b.Values {
				assert.NotEqual(t, before[i][j].Values[k], b.Values[k], "layer %d block %d param %d", i, j, k)
				assert.Zero(t, b.Grads[k], "gradient cleared")
			}
		}
	}
}

func TestBackwardOnlyAccumulates(t *testing.T) {
	net := xorNetwork(t, 2)
	before := net.Layers()[1].Parameters()[0].Clone()

	for range 2 {
		_, err := net.Forward([]float64{1, 0})
		require.NoError(t, err)
		require.NoError(t, net.Backward([]float64{1}))
	}
	after := net.Layers()[1].Parameters()[0]
	assert.Equal(t, before.Values, after.Values)
}

func TestRejectedBatchLeavesGradientsUntouched(t *testing.T) {
	net := xorNetwork(t, 2)
	var before [][]float64
	for _, l := range net.Layers() {
		for _, b := range l.Parameters() {
			before = append(before, b.Values)
		}
	}

	_, err := net.TrainBatch([][]float64{{1, 1}, {1, 1, 1}}, [][]float64{{1}, {0}})
	assert.ErrorIs(t, err, nn.ErrDimensionMismatch)
	_, err = net.TrainBatch([][]float64{{1, 1}, {0, 1}}, [][]float64{{1}, {0, 1}})
	assert.ErrorIs(t, err, nn.ErrDimensionMismatch)

	i := 0
	for _, l := range net.Layers() {
		for _, b := range l.Parameters() {
			assert.Equal(t, make([]float64, len(b.Grads)), b.Grads)
			assert.Equal(t, before[i], b.Values)
			i++
		}
	}
	assert.Zero(t, net.Optimizer().(*optim.Adam).Timestep())
}

func TestAddNilLayer(t *testing.T) {
	net := xorNetwork(t, 1)
	assert.ErrorIs(t, net.Add(nil), ErrNilLayer)
	assert.Len(t, net.Layers(), 2)
	assert.ErrorIs(t, New(Config{}).Add(nil), ErrNilLayer)
}

func TestStepCounterAdvancesOncePerUpdate(t *testing.T) {
	net := xorNetwork(t, 4)
	adam := net.Optimizer().(*optim.Adam)

	_, err := net.TrainStep([]float64{0, 1}, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1, adam.Timestep(), "shared by both layers")

	_, err = net.TrainBatch(xorInputs, xorTargets)
	require.NoError(t, err)
	assert.Equal(t, 2, adam.Timestep())

	net.InitializeOptimizers()
	assert.Zero(t, adam.Timestep())
}

func TestPredictRestoresTrainingMode(t *testing.T) {
	net := New(Config{})
	drop, err := nn.NewDropout(4, 0.5, seeded(5))
	require.NoError(t, err)
	require.NoError(t, net.Add(drop))

	in := []float64{1, 2, 3, 4}
	out, err := net.Predict(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, drop.Training())

	net.SetTraining(false)
	assert.False(t, drop.Training())
}

func mixedNetwork(t *testing.T) *Network {
	t.Helper()
	rng := seeded(11)
	adam := optim.NewAdam(optim.AdamConfig{})
	net := New(Config{LearningRate: 0.02, Loss: nn.MSE{}, Optimizer: adam})

	g, err := nn.NewGraphDense(3, 4, activation.NameTanh, adam, rng)
	require.NoError(t, err)
	bn, err := nn.NewBatchNorm(nn.BatchNormConfig{Size: 4}, adam)
	require.NoError(t, err)
	r, err := nn.NewRecurrent(4, 3, activation.NameTanh, optim.NewRMSprop(optim.RMSpropConfig{}), rng)
	require.NoError(t, err)
	drop, err := nn.NewDropout(3, 0.2, rng)
	require.NoError(t, err)
	d, err := nn.NewDense(3, 2, activation.NameSoftmax, optim.NewSGD(optim.SGDConfig{Decay: 0.01}), rng)
	require.NoError(t, err)
	for _, l := range []nn.Layer{g, bn, r, drop, d} {
		require.NoError(t, net.Add(l))
	}

	for i := range 10 {
		x := []float64{float64(i) / 10, 1 - float64(i)/10, 0.5}
		_, err := net.TrainStep(x, []float64{1, 0})
		require.NoError(t, err)
	}
	return net
}

func TestSaveLoadRoundTrip(t *testing.T) {
	net := mixedNetwork(t)

	var buf bytes.Buffer
	require.NoError(t, net.Save(&buf))
	loaded, err := Load(&buf)
	require.NoError(t, err)

	require.Len(t, loaded.Layers(), len(net.Layers()))
	assert.Equal(t, net.LearningRate(), loaded.LearningRate())
	assert.Equal(t, net.LossFunc().Name(), loaded.LossFunc().Name())
	assert.Same(t, loaded.Layers()[0].Optimizer(), loaded.Layers()[1].Optimizer(), "shared optimizer")
	assert.Same(t, loaded.Optimizer(), loaded.Layers()[0].Optimizer())
	assert.Equal(t, 10, loaded.Optimizer().(*optim.Adam).Timestep())

	x := []float64{0.2, -0.4, 0.9}
	for range 3 {
		want, err := net.Predict(x)
		require.NoError(t, err)
		got, err := loaded.Predict(x)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, 1e-9)
	}

	// Optimizer scratch survives, so further training stays in lockstep.
	net.SetTraining(false)
	loaded.SetTraining(false)
	_, err = net.TrainStep(x, []float64{0, 1})
	require.NoError(t, err)
	_, err = loaded.TrainStep(x, []float64{0, 1})
	require.NoError(t, err)
	want, err := net.Predict(x)
	require.NoError(t, err)
	got, err := loaded.Predict(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)
}

func TestSaveLoadFile(t *testing.T) {
	net := xorNetwork(t, 7)
	path := filepath.Join(t.TempDir(), "xor.syn")
	require.NoError(t, net.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	for _, in := range xorInputs {
		want, err := net.Predict(in)
		require.NoError(t, err)
		got, err := loaded.Predict(in)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, 1e-9)
	}
}

func TestLoadRejectsOtherModels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serialization.Encode(&buf, serialization.Header{ModelType: "other"}, nil))
	_, err := Load(&buf)
	assert.Error(t, err)

	_, err = Load(bytes.NewReader([]byte("not a model")))
	assert.Error(t, err)
}

func TestResetState(t *testing.T) {
	net := New(Config{})
	r, err := nn.NewRecurrent(2, 2, activation.NameTanh, nil, seeded(9))
	require.NoError(t, err)
	require.NoError(t, net.Add(r))

	first, err := net.Forward([]float64{1, 1})
	require.NoError(t, err)
	second, err := net.Forward([]float64{1, 1})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	net.ResetState()
	again, err := net.Forward([]float64{1, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, first, again, 1e-12)
}
