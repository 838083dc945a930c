//go:build cgo && (linux || darwin)

package wgpunative

import (
	"log"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/born-ml/synapse/internal/backend/kernels"
)

type binding struct {
	buf  *wgpu.Buffer
	size int
}

// launch runs one kernel over the given bindings and reads binding out
// back into dst. Storage bindings return to the pool afterwards.
func (b *Backend) launch(name, code string, x, y uint32, params []byte, inputs [][]float64, out int, dst []float64) error {
	bindings := make([]binding, 0, len(inputs)+1)
	defer func() {
		for _, bd := range bindings {
			b.buffers.Free(bd.buf, bd.size)
		}
	}()
	for _, in := range inputs {
		buf, size, err := b.upload(in)
		if err != nil {
			return err
		}
		bindings = append(bindings, binding{buf, size})
	}

	uniform, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    name + "_params",
		Contents: params,
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	defer uniform.Destroy()

	p, err := b.pipeline(name, code)
	if err != nil {
		return err
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(bindings)+1)
	for i, bd := range bindings {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(i), Buffer: bd.buf, Size: uint64(bd.size)}) //nolint:gosec // small index and byte count
	}
	entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(len(bindings)), Buffer: uniform, Size: kernels.ParamsSize}) //nolint:gosec // small index

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   name + "_bind",
		Layout:  p.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		return err
	}
	defer bg.Release()

	enc, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(p)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(x, y, 1)
	pass.End()

	return b.read(enc, bindings[out].buf, dst)
}

// MatrixMultiply computes C = alpha·A·B + beta·C.
func (b *Backend) MatrixMultiply(a, bm, c []float64, m, n, k int, alpha, beta float64) {
	if m*n*k < kernels.MinGPUWork {
		b.host.MatrixMultiply(a, bm, c, m, n, k, alpha, beta)
		return
	}
	err := b.launch(kernels.NameMatMul, kernels.MatMul,
		kernels.Groups(n, kernels.TileSize), kernels.Groups(m, kernels.TileSize),
		kernels.Params(m, n, k, alpha, beta),
		[][]float64{a[:m*k], bm[:k*n], c[:m*n]}, 2, c[:m*n])
	if err != nil {
		log.Printf("wgpunative: matmul failed, using CPU: %v", err)
		b.host.MatrixMultiply(a, bm, c, m, n, k, alpha, beta)
	}
}

// BatchMatrixMultiply runs MatrixMultiply for each batch element.
func (b *Backend) BatchMatrixMultiply(a, bm, c [][]float64, m, n, k int, alpha, beta float64) {
	if len(a) != len(bm) || len(a) != len(c) {
		panic("batch matmul: batch sizes differ")
	}
	for i := range a {
		b.MatrixMultiply(a[i], bm[i], c[i], m, n, k, alpha, beta)
	}
}

// VectorAdd computes y += alpha·x.
func (b *Backend) VectorAdd(x, y []float64, alpha float64) {
	if len(x) != len(y) || len(y) < kernels.MinGPUWork {
		b.host.VectorAdd(x, y, alpha)
		return
	}
	err := b.launch(kernels.NameAXPY, kernels.AXPY, kernels.Groups(len(y), kernels.WorkgroupSize), 1,
		kernels.Params(len(y), alpha), [][]float64{x, y}, 1, y)
	if err != nil {
		log.Printf("wgpunative: vector add failed, using CPU: %v", err)
		b.host.VectorAdd(x, y, alpha)
	}
}

// ElementWiseMultiply computes y *= x.
func (b *Backend) ElementWiseMultiply(x, y []float64) {
	if len(x) != len(y) || len(y) < kernels.MinGPUWork {
		b.host.ElementWiseMultiply(x, y)
		return
	}
	err := b.launch(kernels.NameMul, kernels.Mul, kernels.Groups(len(y), kernels.WorkgroupSize), 1,
		kernels.Params(len(y)), [][]float64{x, y}, 1, y)
	if err != nil {
		log.Printf("wgpunative: multiply failed, using CPU: %v", err)
		b.host.ElementWiseMultiply(x, y)
	}
}

// MatrixTranspose returns the transpose of the rows×cols matrix a.
func (b *Backend) MatrixTranspose(a []float64, rows, cols int) []float64 {
	if rows*cols < kernels.MinGPUWork {
		return b.host.MatrixTranspose(a, rows, cols)
	}
	out := make([]float64, rows*cols)
	err := b.launch(kernels.NameTranspose, kernels.Transpose,
		kernels.Groups(cols, kernels.TileSize), kernels.Groups(rows, kernels.TileSize),
		kernels.Params(rows, cols), [][]float64{a[:rows*cols], out}, 1, out)
	if err != nil {
		log.Printf("wgpunative: transpose failed, using CPU: %v", err)
		return b.host.MatrixTranspose(a, rows, cols)
	}
	return out
}
