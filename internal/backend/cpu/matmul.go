package cpu

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/synapse/internal/parallel"
)

// MatrixMultiply computes C = alpha·A·B + beta·C for row-major A (m×k),
// B (k×n) and C (m×n).
func (cpu *Backend) MatrixMultiply(a, b, c []float64, m, n, k int, alpha, beta float64) {
	checkLen("matmul", "A", len(a), m*k)
	checkLen("matmul", "B", len(b), k*n)
	checkLen("matmul", "C", len(c), m*n)
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		scale(c[:m*n], beta)
		return
	}
	gemm(a, b, c, m, n, k, alpha, beta)
}

func gemm(a, b, c []float64, m, n, k int, alpha, beta float64) {
	blas64.Gemm(blas.NoTrans, blas.NoTrans, alpha,
		blas64.General{Rows: m, Cols: k, Stride: k, Data: a[:m*k]},
		blas64.General{Rows: k, Cols: n, Stride: n, Data: b[:k*n]},
		beta,
		blas64.General{Rows: m, Cols: n, Stride: n, Data: c[:m*n]},
	)
}

func scale(c []float64, beta float64) {
	for i := range c {
		c[i] *= beta
	}
}

// BatchMatrixMultiply runs MatrixMultiply for each batch element. Batches are
// independent and fan out over goroutines.
func (cpu *Backend) BatchMatrixMultiply(a, b, c [][]float64, m, n, k int, alpha, beta float64) {
	if len(a) != len(b) || len(a) != len(c) {
		panic("batch matmul: batch sizes differ")
	}
	parallel.For(len(a), func(i int) {
		cpu.MatrixMultiply(a[i], b[i], c[i], m, n, k, alpha, beta)
	}, cpu.par)
}
