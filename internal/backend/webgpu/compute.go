//go:build windows

package webgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/synapse/internal/backend/kernels"
)

const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// compileShader compiles WGSL shader code into a cached ShaderModule.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()
	return shader
}

// pipeline returns a cached ComputePipeline for the named shader.
func (b *Backend) pipeline(name, code string) *wgpu.ComputePipeline {
	b.mu.RLock()
	if p, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return p
	}
	b.mu.RUnlock()

	shader := b.compileShader(name, code)
	p := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = p
	b.mu.Unlock()
	return p
}

// allocStorage is the pool allocator for storage buffers.
func (b *Backend) allocStorage(size int) (*wgpu.Buffer, error) {
	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: storageUsage,
		Size:  uint64(size), //nolint:gosec // size is a positive byte count
	})
	if buf == nil {
		return nil, fmt.Errorf("webgpu: CreateBuffer returned nil for %d bytes", size)
	}
	return buf, nil
}

// mapped creates a buffer initialized with data through MappedAtCreation.
func (b *Backend) mapped(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()
	return buffer
}

// job collects the buffers of one kernel launch so they can be returned to
// the pool together.
type job struct {
	b        *Backend
	encoder  *wgpu.CommandEncoder
	pooled   []*wgpu.Buffer
	sizes    []int
	released []*wgpu.Buffer
}

func (b *Backend) newJob() *job {
	return &job{b: b, encoder: b.device.CreateCommandEncoder(nil)}
}

// storage acquires a pooled storage buffer and schedules an upload of src.
func (j *job) storage(src []float64) (*wgpu.Buffer, error) {
	data := kernels.ToBytes(src)
	buf, err := j.b.buffers.Allocate(len(data))
	if err != nil {
		return nil, err
	}
	j.pooled = append(j.pooled, buf)
	j.sizes = append(j.sizes, len(data))

	upload := j.b.mapped(data, wgpu.BufferUsageCopySrc)
	j.released = append(j.released, upload)
	j.encoder.CopyBufferToBuffer(upload, 0, buf, 0, uint64(len(data)))
	return buf, nil
}

// uniform creates an unpooled uniform buffer.
func (j *job) uniform(params []byte) *wgpu.Buffer {
	buf := j.b.mapped(params, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	j.released = append(j.released, buf)
	return buf
}

// dispatch records one compute pass.
func (j *job) dispatch(name, code string, x, y uint32, entries []wgpu.BindGroupEntry) {
	p := j.b.pipeline(name, code)
	bindGroup := j.b.device.CreateBindGroupSimple(p.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	pass := j.encoder.BeginComputePass(nil)
	pass.SetPipeline(p)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(x, y, 1)
	pass.End()
}

// finish submits the recorded commands, reads dst back from src and
// returns every buffer.
func (j *job) finish(src *wgpu.Buffer, dst []float64) error {
	defer j.close()

	size := uint64(len(dst) * 4)
	staging := j.b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	j.released = append(j.released, staging)
	j.encoder.CopyBufferToBuffer(src, 0, staging, 0, size)

	j.b.submitMu.Lock()
	defer j.b.submitMu.Unlock()
	j.b.queue.Submit(j.encoder.Finish(nil))

	if err := staging.MapAsync(j.b.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	kernels.FromBytes(dst, unsafe.Slice((*byte)(mappedPtr), size))
	staging.Unmap()
	return nil
}

func (j *job) close() {
	for i, buf := range j.pooled {
		j.b.buffers.Free(buf, j.sizes[i])
	}
	for _, buf := range j.released {
		buf.Release()
	}
	j.pooled, j.sizes, j.released = nil, nil, nil
}

func entry(binding uint32, buf *wgpu.Buffer, size int) wgpu.BindGroupEntry {
	return wgpu.BufferBindingEntry(binding, buf, 0, uint64(size)) //nolint:gosec // size is a positive byte count
}
