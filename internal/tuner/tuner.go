// Package tuner picks a training batch size by timing a synthetic
// two-layer network on a matrix backend.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/synapse/internal/backend"
)

// Score weights.
const (
	throughputWeight = 0.5
	memoryWeight     = 0.3
	timeWeight       = 0.2
)

// Config holds configuration for a Tuner.
type Config struct {
	Candidates []int // Batch sizes to try (default: 1, 2, 4, ..., 512)
	Iterations int   // Timed runs per candidate (default: 10)
	Warmup     int   // Untimed runs per candidate (default: 2)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	var candidates []int
	for b := 1; b <= 512; b *= 2 {
		candidates = append(candidates, b)
	}
	return Config{Candidates: candidates, Iterations: 10, Warmup: 2}
}

// Result is the measurement of one batch size. Times are mean milliseconds
// per iteration.
type Result struct {
	BatchSize    int
	Throughput   float64 // samples per second
	MemoryMB     float64
	ForwardTime  float64
	BackwardTime float64
	StepTime     float64
	Score        float64
}

// TotalTime returns the mean time of a full training iteration in ms.
func (r Result) TotalTime() float64 { return r.ForwardTime + r.BackwardTime + r.StepTime }

func (r Result) String() string {
	return fmt.Sprintf("batch=%d throughput=%.1f/s memory=%.3fMB forward=%.3fms backward=%.3fms step=%.3fms score=%.3f",
		r.BatchSize, r.Throughput, r.MemoryMB, r.ForwardTime, r.BackwardTime, r.StepTime, r.Score)
}

// Recommendation is the outcome of Tune.
type Recommendation struct {
	Optimal      int
	Conservative int // max(1, Optimal/2)
	Aggressive   int // min(largest candidate, Optimal*2)
	Results      []Result
}

// Tuner measures batch sizes on a backend.
type Tuner struct {
	ops backend.Ops
	cfg Config
	rng *rand.Rand
}

// New creates a tuner. A nil ops means backend.Default().
func New(ops backend.Ops, cfg Config) *Tuner {
	if ops == nil {
		ops = backend.Default()
	}
	def := DefaultConfig()
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = def.Candidates
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = def.Iterations
	}
	if cfg.Warmup < 0 {
		cfg.Warmup = 0
	}
	return &Tuner{ops: ops, cfg: cfg, rng: rand.New(rand.NewSource(1))} //nolint:gosec // synthetic data
}

// Tune measures every candidate for an input→hidden→output network and
// recommends the batch size with the highest score. Cancellation is checked
// between candidates.
func (t *Tuner) Tune(ctx context.Context, input, hidden, output int) (Recommendation, error) {
	if input <= 0 || hidden <= 0 || output <= 0 {
		return Recommendation{}, fmt.Errorf("tuner: layer sizes must be positive, got %d-%d-%d", input, hidden, output)
	}
	var rec Recommendation
	for _, b := range t.cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return rec, err
		}
		if b <= 0 {
			return rec, fmt.Errorf("tuner: batch size must be positive, got %d", b)
		}
		rec.Results = append(rec.Results, t.Measure(input, hidden, output, b))
	}
	if len(rec.Results) == 0 {
		return rec, errors.New("tuner: no candidates")
	}

	best := rec.Results[0]
	for _, r := range rec.Results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	rec.Optimal = best.BatchSize
	rec.Conservative = max(1, best.BatchSize/2)
	rec.Aggressive = min(slices.Max(t.cfg.Candidates), best.BatchSize*2)
	return rec, nil
}

// Measure times forward, backward and update passes of a synthetic network
// at one batch size.
func (t *Tuner) Measure(input, hidden, output, batch int) Result {
	n := newNet(t.ops, t.rng, input, hidden, output, batch)
	defer n.free()

	for range t.cfg.Warmup {
		n.forward()
		n.backward()
		n.step()
	}
	fwd := make([]float64, t.cfg.Iterations)
	bwd := make([]float64, t.cfg.Iterations)
	upd := make([]float64, t.cfg.Iterations)
	for i := range t.cfg.Iterations {
		fwd[i] = timed(n.forward)
		bwd[i] = timed(n.backward)
		upd[i] = timed(n.step)
	}

	r := Result{
		BatchSize:    batch,
		ForwardTime:  stat.Mean(fwd, nil),
		BackwardTime: stat.Mean(bwd, nil),
		StepTime:     stat.Mean(upd, nil),
		MemoryMB:     memoryMB(input, hidden, output, batch),
	}
	if total := r.TotalTime(); total > 0 {
		r.Throughput = float64(batch) * 1000 / total
	}
	r.Score = score(r)
	return r
}

func timed(f func()) float64 {
	start := time.Now()
	f()
	return float64(time.Since(start).Nanoseconds()) / 1e6
}

// memoryMB estimates the float64 footprint of weights plus per-sample
// activations.
func memoryMB(input, hidden, output, batch int) float64 {
	weights := input*hidden + hidden*output
	activations := (input + hidden + output) * batch
	return float64(weights+activations) * 8 / (1024 * 1024)
}

func score(r Result) float64 {
	s := r.Throughput / 1000 * throughputWeight
	if r.MemoryMB > 0 {
		s += 1 / (r.MemoryMB / 100) * memoryWeight
	}
	if total := r.TotalTime(); total > 0 {
		s += 1 / (total / 100) * timeWeight
	}
	return s
}
