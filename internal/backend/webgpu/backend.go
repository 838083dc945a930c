//go:build windows

// Package webgpu implements backend A: matrix kernels on WebGPU through
// go-webgpu (zero-CGO bindings).
package webgpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/synapse/internal/backend/cpu"
	"github.com/born-ml/synapse/internal/backend/device"
	"github.com/born-ml/synapse/internal/backend/kernels"
	"github.com/born-ml/synapse/internal/backend/pool"
)

// Backend runs matrix operations on the GPU. Calls below
// kernels.MinGPUWork run on the embedded CPU backend.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	// Serializes command submission and readback.
	submitMu sync.Mutex

	name    string
	buffers *pool.Pool[*wgpu.Buffer]
	host    *cpu.Backend
}

// New creates a new WebGPU backend.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", instErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	info, infoErr := adapter.GetInfo()
	if infoErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to query adapter: %w", infoErr)
	}

	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	b := &Backend{
		instance:  instance,
		adapter:   adapter,
		device:    dev,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
		name:      fmt.Sprintf("%s %s", info.Vendor, info.Device),
		host:      cpu.New(),
	}
	b.buffers = pool.New(pool.DefaultConfig(), b.allocStorage, func(buf *wgpu.Buffer) { buf.Release() })
	return b, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Kind returns device.WebGPU.
func (b *Backend) Kind() device.Kind { return device.WebGPU }

// Info reports the adapter. WebGPU does not expose memory size or compute
// unit counts, so those stay zero.
func (b *Backend) Info() device.Info {
	return device.Info{
		Kind:             device.WebGPU,
		Name:             b.name,
		MaxWorkGroupSize: kernels.WorkgroupSize,
	}
}

// Alloc returns a host buffer from the CPU pool.
func (b *Backend) Alloc(n int) []float64 { return b.host.Alloc(n) }

// Free returns a host buffer to the CPU pool.
func (b *Backend) Free(buf []float64) { b.host.Free(buf) }

// PoolStats returns device buffer pool statistics.
func (b *Backend) PoolStats() pool.Stats { return b.buffers.Stats() }

// OptimizePool shrinks the device buffer pool.
func (b *Backend) OptimizePool() { b.buffers.Optimize() }

// Close releases all WebGPU resources.
func (b *Backend) Close() error {
	b.buffers.Clear()
	_ = b.host.Close()

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	return nil
}
