package tuner

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/backend/cpu"
)

func TestTune(t *testing.T) {
	tn := New(cpu.New(), Config{Candidates: []int{1, 4, 16}, Iterations: 2, Warmup: 1})
	rec, err := tn.Tune(context.Background(), 32, 64, 16)
	require.NoError(t, err)
	require.Len(t, rec.Results, 3)

	assert.Contains(t, []int{1, 4, 16}, rec.Optimal)
	assert.Equal(t, max(1, rec.Optimal/2), rec.Conservative)
	assert.Equal(t, min(16, rec.Optimal*2), rec.Aggressive)

	for i, r := range rec.Results {
		assert.Positive(t, r.MemoryMB)
		assert.GreaterOrEqual(t, r.ForwardTime, 0.0)
		assert.Equal(t, score(r), r.Score)
		if i > 0 {
			assert.Greater(t, r.MemoryMB, rec.Results[i-1].MemoryMB)
		}
	}

	var best Result
	for _, r := range rec.Results {
		if r.BatchSize == rec.Optimal {
			best = r
		}
	}
	for _, r := range rec.Results {
		assert.LessOrEqual(t, r.Score, best.Score)
	}
}

func TestTuneErrors(t *testing.T) {
	tn := New(cpu.New(), Config{Candidates: []int{1, 2}, Iterations: 1})
	_, err := tn.Tune(context.Background(), 0, 4, 4)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tn.Tune(ctx, 4, 4, 4)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New(cpu.New(), Config{Candidates: []int{0}}).Tune(context.Background(), 4, 4, 4)
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	t.Setenv(backend.EnvBackend, "cpu")
	tn := New(nil, Config{})
	assert.Equal(t, []int{1, 2, 4, 8, 16, 32, 64, 128, 256, 512}, tn.cfg.Candidates)
	assert.Equal(t, 10, tn.cfg.Iterations)
	assert.NotNil(t, tn.ops)
}

func TestScore(t *testing.T) {
	r := Result{Throughput: 2000, MemoryMB: 50, ForwardTime: 10, BackwardTime: 30, StepTime: 10}
	want := 2.0*0.5 + (1/0.5)*0.3 + (1/0.5)*0.2
	assert.InDelta(t, want, score(r), 1e-12)

	assert.Zero(t, score(Result{}), "zero denominators are skipped")
	assert.InDelta(t, float64(8*(2*3+3*4)+8*4*(2+3+4))/(1024*1024), memoryMB(2, 3, 4, 4), 1e-15)
}

func TestSyntheticNetwork(t *testing.T) {
	ops := cpu.New()
	n := newNet(ops, rand.New(rand.NewSource(1)), 3, 4, 2, 5) //nolint:gosec // deterministic tests
	defer n.free()
	n.forward()

	for b := range 5 {
		for o := range 2 {
			var want float64
			for h := range 4 {
				var hv float64
				for i := range 3 {
					hv += n.x[b*3+i] * n.w1[i*4+h]
				}
				want += hv * n.w2[h*2+o]
			}
			assert.InDelta(t, want, n.y[b*2+o], 1e-12)
		}
	}

	n.backward()
	// dW2 = Hᵀ·dY
	for h := range 4 {
		for o := range 2 {
			var want float64
			for b := range 5 {
				want += n.h[b*4+h] * n.dy[b*2+o]
			}
			assert.InDelta(t, want, n.dw2[h*2+o], 1e-12)
		}
	}
}

func TestMeasureReusesPooledBuffers(t *testing.T) {
	ops := cpu.New()
	tn := New(ops, Config{Iterations: 1})
	tn.Measure(32, 64, 16, 8)
	before := ops.PoolStats().Hits
	tn.Measure(32, 64, 16, 8)
	assert.Greater(t, ops.PoolStats().Hits, before)
}
