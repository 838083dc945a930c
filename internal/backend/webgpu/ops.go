//go:build windows

package webgpu

import (
	"log"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/synapse/internal/backend/kernels"
)

// MatrixMultiply computes C = alpha·A·B + beta·C.
func (b *Backend) MatrixMultiply(a, bm, c []float64, m, n, k int, alpha, beta float64) {
	if m*n*k < kernels.MinGPUWork {
		b.host.MatrixMultiply(a, bm, c, m, n, k, alpha, beta)
		return
	}
	if err := b.matmul(a[:m*k], bm[:k*n], c[:m*n], m, n, k, alpha, beta); err != nil {
		log.Printf("webgpu: matmul failed, using CPU: %v", err)
		b.host.MatrixMultiply(a, bm, c, m, n, k, alpha, beta)
	}
}

func (b *Backend) matmul(a, bm, c []float64, m, n, k int, alpha, beta float64) error {
	j := b.newJob()
	bufA, err := j.storage(a)
	if err != nil {
		j.close()
		return err
	}
	bufB, err := j.storage(bm)
	if err != nil {
		j.close()
		return err
	}
	bufC, err := j.storage(c)
	if err != nil {
		j.close()
		return err
	}
	params := j.uniform(kernels.Params(m, n, k, alpha, beta))

	j.dispatch(kernels.NameMatMul, kernels.MatMul,
		kernels.Groups(n, kernels.TileSize), kernels.Groups(m, kernels.TileSize),
		[]wgpu.BindGroupEntry{
			entry(0, bufA, len(a)*4),
			entry(1, bufB, len(bm)*4),
			entry(2, bufC, len(c)*4),
			entry(3, params, kernels.ParamsSize),
		})
	return j.finish(bufC, c)
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
	if err := b.elementwise(kernels.NameAXPY, kernels.AXPY, x, y, kernels.Params(len(y), alpha)); err != nil {
		log.Printf("webgpu: vector add failed, using CPU: %v", err)
		b.host.VectorAdd(x, y, alpha)
	}
}

// ElementWiseMultiply computes y *= x.
func (b *Backend) ElementWiseMultiply(x, y []float64) {
	if len(x) != len(y) || len(y) < kernels.MinGPUWork {
		b.host.ElementWiseMultiply(x, y)
		return
	}
	if err := b.elementwise(kernels.NameMul, kernels.Mul, x, y, kernels.Params(len(y))); err != nil {
		log.Printf("webgpu: elementwise multiply failed, using CPU: %v", err)
		b.host.ElementWiseMultiply(x, y)
	}
}

func (b *Backend) elementwise(name, code string, x, y []float64, params []byte) error {
	j := b.newJob()
	bufX, err := j.storage(x)
	if err != nil {
		j.close()
		return err
	}
	bufY, err := j.storage(y)
	if err != nil {
		j.close()
		return err
	}
	u := j.uniform(params)
	j.dispatch(name, code, kernels.Groups(len(y), kernels.WorkgroupSize), 1, []wgpu.BindGroupEntry{
		entry(0, bufX, len(x)*4),
		entry(1, bufY, len(y)*4),
		entry(2, u, kernels.ParamsSize),
	})
	return j.finish(bufY, y)
}

// MatrixTranspose returns the transpose of the rows×cols matrix a.
func (b *Backend) MatrixTranspose(a []float64, rows, cols int) []float64 {
	if rows*cols < kernels.MinGPUWork {
		return b.host.MatrixTranspose(a, rows, cols)
	}
	out := make([]float64, rows*cols)
	j := b.newJob()
	bufIn, err := j.storage(a[:rows*cols])
	if err == nil {
		var bufOut *wgpu.Buffer
		bufOut, err = j.storage(out)
		if err == nil {
			u := j.uniform(kernels.Params(rows, cols))
			j.dispatch(kernels.NameTranspose, kernels.Transpose,
				kernels.Groups(cols, kernels.TileSize), kernels.Groups(rows, kernels.TileSize),
				[]wgpu.BindGroupEntry{
					entry(0, bufIn, rows*cols*4),
					entry(1, bufOut, rows*cols*4),
					entry(2, u, kernels.ParamsSize),
				})
			err = j.finish(bufOut, out)
		}
	}
	if err != nil {
		j.close()
		log.Printf("webgpu: transpose failed, using CPU: %v", err)
		return b.host.MatrixTranspose(a, rows, cols)
	}
	return out
}
