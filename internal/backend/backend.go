// Package backend selects the matrix backend used by the network layers.
//
// On first use the dispatcher probes backend A (go-webgpu), then backend B
// (wgpu-native), and falls back to the CPU. The decision is cached for the
// life of the process. The SYNAPSE_BACKEND environment variable ("cpu",
// "webgpu", "wgpunative") pins the choice.
package backend

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/born-ml/synapse/internal/backend/cpu"
	"github.com/born-ml/synapse/internal/backend/device"
	"github.com/born-ml/synapse/internal/backend/pool"
	"github.com/born-ml/synapse/internal/backend/webgpu"
	"github.com/born-ml/synapse/internal/backend/wgpunative"
)

// EnvBackend names the environment variable that pins the backend kind.
const EnvBackend = "SYNAPSE_BACKEND"

// Ops is the matrix operation set shared by every backend. All matrices are
// row-major float64 slices. Passing a buffer shorter than the dimensions
// require panics.
type Ops interface {
	Kind() device.Kind
	Info() device.Info

	// MatrixMultiply computes C = alpha·A·B + beta·C for A (m×k), B (k×n)
	// and C (m×n).
	MatrixMultiply(a, b, c []float64, m, n, k int, alpha, beta float64)
	// BatchMatrixMultiply applies MatrixMultiply to each batch element.
	BatchMatrixMultiply(a, b, c [][]float64, m, n, k int, alpha, beta float64)
	// VectorAdd computes y += alpha·x.
	VectorAdd(x, y []float64, alpha float64)
	// ElementWiseMultiply computes y *= x.
	ElementWiseMultiply(x, y []float64)
	// MatrixTranspose returns a new cols×rows matrix.
	MatrixTranspose(a []float64, rows, cols int) []float64

	Alloc(n int) []float64
	Free(buf []float64)
	PoolStats() pool.Stats
	OptimizePool()
	Close() error
}

var (
	_ Ops = (*cpu.Backend)(nil)
	_ Ops = (*webgpu.Backend)(nil)
	_ Ops = (*wgpunative.Backend)(nil)
)

var (
	mu       sync.Mutex
	selected Ops
	logger   *log.Logger
)

// SetLogger sets the logger used for probe diagnostics. nil restores
// log.Default().
func SetLogger(l *log.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func logf(format string, args ...any) {
	l := logger
	if l == nil {
		l = log.Default()
	}
	l.Printf(format, args...)
}

// Default returns the process-wide backend, probing on the first call.
func Default() Ops {
	mu.Lock()
	defer mu.Unlock()
	if selected == nil {
		selected = probe()
	}
	return selected
}

// SetDefault replaces the process-wide backend and returns the previous
// one, which the caller may close. Passing nil forces a new probe on the
// next Default call.
func SetDefault(ops Ops) Ops {
	mu.Lock()
	defer mu.Unlock()
	prev := selected
	selected = ops
	return prev
}

// DeviceInfo reports the device behind the process-wide backend.
func DeviceInfo() device.Info {
	return Default().Info()
}

// Open creates a backend of the given kind.
func Open(kind device.Kind) (Ops, error) {
	switch kind {
	case device.CPU:
		return cpu.New(), nil
	case device.WebGPU:
		b, err := webgpu.New()
		if err != nil {
			return nil, err
		}
		return b, nil
	case device.WGPUNative:
		b, err := wgpunative.New()
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("backend: unknown kind %v", kind)
	}
}

func probe() Ops {
	if name := os.Getenv(EnvBackend); name != "" {
		kind, err := device.ParseKind(name)
		if err != nil {
			logf("backend: %v, probing instead", err)
		} else {
			ops, err := Open(kind)
			if err == nil {
				return ops
			}
			logf("backend: %s requested but unavailable: %v, falling back to CPU", kind, err)
			return cpu.New()
		}
	}

	for _, kind := range []device.Kind{device.WebGPU, device.WGPUNative} {
		ops, err := Open(kind)
		if err == nil {
			return ops
		}
		logf("backend: %s not available: %v", kind, err)
	}
	logf("backend: GPU not available, falling back to CPU")
	return cpu.New()
}
