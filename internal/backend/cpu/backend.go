// Package cpu implements the host matrix backend on gonum BLAS. It is the
// fallback behind every accelerated backend.
package cpu

import (
	"fmt"
	"runtime"

	"github.com/born-ml/synapse/internal/backend/device"
	"github.com/born-ml/synapse/internal/backend/pool"
	"github.com/born-ml/synapse/internal/parallel"
)

// Backend implements the matrix operations on the CPU.
type Backend struct {
	par  parallel.Config
	host *pool.Pool[[]float64]
}

// Config configures the CPU backend.
type Config struct {
	Parallel parallel.Config
	Pool     pool.Config
}

// DefaultConfig returns the default CPU backend configuration.
func DefaultConfig() Config {
	return Config{Parallel: parallel.DefaultConfig(), Pool: pool.DefaultConfig()}
}

// New creates a CPU backend with the default configuration.
func New() *Backend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a CPU backend.
func NewWithConfig(cfg Config) *Backend {
	return &Backend{
		par: cfg.Parallel,
		host: pool.New(cfg.Pool,
			func(size int) ([]float64, error) { return make([]float64, size/8), nil },
			nil,
		),
	}
}

// Kind returns device.CPU.
func (cpu *Backend) Kind() device.Kind { return device.CPU }

// Info reports the host as a compute device.
func (cpu *Backend) Info() device.Info {
	return device.Info{
		Kind:             device.CPU,
		Name:             fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		ComputeUnits:     runtime.NumCPU(),
		MaxWorkGroupSize: 1,
	}
}

// Alloc returns a zeroed host buffer of n float64s from the pool.
func (cpu *Backend) Alloc(n int) []float64 {
	buf, _ := cpu.host.Allocate(n * 8) // host allocation cannot fail
	clear(buf)
	return buf
}

// Free hands a buffer from Alloc back to the pool.
func (cpu *Backend) Free(buf []float64) {
	cpu.host.Free(buf, len(buf)*8)
}

// PoolStats returns host pool statistics.
func (cpu *Backend) PoolStats() pool.Stats { return cpu.host.Stats() }

// OptimizePool shrinks the host pool buckets.
func (cpu *Backend) OptimizePool() { cpu.host.Optimize() }

// Close releases pooled host buffers.
func (cpu *Backend) Close() error {
	cpu.host.Clear()
	return nil
}

func checkLen(op, name string, got, want int) {
	if got < want {
		panic(fmt.Sprintf("%s: %s has %d elements, need %d", op, name, got, want))
	}
}
