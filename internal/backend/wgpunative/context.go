//go:build cgo && (linux || darwin)

// Package wgpunative implements backend B: the matrix kernels on
// wgpu-native through the openfluke/webgpu bindings.
package wgpunative

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/born-ml/synapse/internal/backend/cpu"
	"github.com/born-ml/synapse/internal/backend/device"
	"github.com/born-ml/synapse/internal/backend/kernels"
	"github.com/born-ml/synapse/internal/backend/pool"
)

// MapTimeout bounds a single buffer readback.
const MapTimeout = 2 * time.Second

// Backend runs the matrix kernels on a wgpu-native device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.Mutex
	pipelines map[string]*wgpu.ComputePipeline

	submitMu sync.Mutex

	info    device.Info
	buffers *pool.Pool[*wgpu.Buffer]
	host    *cpu.Backend
}

// New acquires an adapter and device. Adapters are tried in order of
// preference: high performance, low power, then the default.
func New() (b *Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("wgpunative: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, fmt.Errorf("wgpunative: failed to create instance")
	}

	var adapter *wgpu.Adapter
	for _, opts := range []*wgpu.RequestAdapterOptions{
		{PowerPreference: wgpu.PowerPreferenceHighPerformance},
		{PowerPreference: wgpu.PowerPreferenceLowPower},
		nil,
	} {
		adapter, err = instance.RequestAdapter(opts)
		if err == nil && adapter != nil {
			break
		}
	}
	if adapter == nil {
		instance.Release()
		return nil, fmt.Errorf("wgpunative: all adapter requests failed: %v", err)
	}

	dev, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("wgpunative: failed to request device: %w", err)
	}

	ai := adapter.GetInfo()
	name := strings.TrimSpace(fmt.Sprintf("%s %s", ai.VendorName, ai.Name))
	limits := adapter.GetLimits()

	b = &Backend{
		instance:  instance,
		adapter:   adapter,
		device:    dev,
		queue:     dev.GetQueue(),
		pipelines: make(map[string]*wgpu.ComputePipeline),
		info: device.Info{
			Kind:             device.WGPUNative,
			Name:             name,
			GlobalMemory:     limits.Limits.MaxBufferSize,
			MaxWorkGroupSize: int(limits.Limits.MaxComputeInvocationsPerWorkgroup),
		},
		host: cpu.New(),
	}
	b.buffers = pool.New(pool.DefaultConfig(), b.allocStorage, func(buf *wgpu.Buffer) { buf.Destroy() })
	return b, nil
}

// Kind returns device.WGPUNative.
func (b *Backend) Kind() device.Kind { return device.WGPUNative }

// Info reports the adapter name and device limits.
func (b *Backend) Info() device.Info { return b.info }

// Alloc returns a host buffer from the CPU pool.
func (b *Backend) Alloc(n int) []float64 { return b.host.Alloc(n) }

// Free returns a host buffer to the CPU pool.
func (b *Backend) Free(buf []float64) { b.host.Free(buf) }

// PoolStats returns device buffer pool statistics.
func (b *Backend) PoolStats() pool.Stats { return b.buffers.Stats() }

// OptimizePool shrinks the device buffer pool.
func (b *Backend) OptimizePool() { b.buffers.Optimize() }

// Close destroys pooled buffers and releases the device.
func (b *Backend) Close() error {
	b.buffers.Clear()
	_ = b.host.Close()

	b.mu.Lock()
	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	b.mu.Unlock()

	b.queue = nil
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

func (b *Backend) allocStorage(size int) (*wgpu.Buffer, error) {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "synapse_storage",
		Size:  uint64(size), //nolint:gosec // positive byte count
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
}

// pipeline compiles and caches a compute pipeline with an automatic layout.
func (b *Backend) pipeline(name, code string) (*wgpu.ComputePipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pipelines[name]; ok {
		return p, nil
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpunative: compile %s: %w", name, err)
	}
	defer module.Release()

	p, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: name,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpunative: pipeline %s: %w", name, err)
	}
	b.pipelines[name] = p
	return p, nil
}

// upload fills a pooled storage buffer with src.
func (b *Backend) upload(src []float64) (*wgpu.Buffer, int, error) {
	data := kernels.ToBytes(src)
	buf, err := b.buffers.Allocate(len(data))
	if err != nil {
		return nil, 0, err
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, len(data), nil
}

// read copies src into a staging buffer, waits for the map and decodes
// the result into dst.
func (b *Backend) read(enc *wgpu.CommandEncoder, src *wgpu.Buffer, dst []float64) error {
	size := uint64(len(dst) * 4)
	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "synapse_staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpunative: staging buffer: %w", err)
	}
	defer staging.Destroy()

	enc.CopyBufferToBuffer(src, 0, staging, 0, size)
	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpunative: finish: %w", err)
	}

	b.submitMu.Lock()
	defer b.submitMu.Unlock()
	b.queue.Submit(cmd)

	done := make(chan struct{})
	var mapErr error
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("wgpunative: map failed: %v", status)
		}
		close(done)
	})
	if err != nil {
		return fmt.Errorf("wgpunative: map: %w", err)
	}

	timeout := time.After(MapTimeout)
poll:
	for {
		b.device.Poll(false, nil)
		select {
		case <-done:
			break poll
		case <-timeout:
			return fmt.Errorf("wgpunative: readback timed out after %v", MapTimeout)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if mapErr != nil {
		return mapErr
	}

	data := staging.GetMappedRange(0, uint(size))
	if data == nil {
		return fmt.Errorf("wgpunative: empty mapped range")
	}
	kernels.FromBytes(dst, data)
	staging.Unmap()
	return nil
}
