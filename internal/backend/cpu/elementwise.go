package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

// VectorAdd computes y += alpha·x.
func (cpu *Backend) VectorAdd(x, y []float64, alpha float64) {
	if len(x) != len(y) {
		panic(fmt.Sprintf("vector add: length mismatch %d vs %d", len(x), len(y)))
	}
	floats.AddScaled(y, alpha, x)
}

// ElementWiseMultiply computes y *= x in place.
func (cpu *Backend) ElementWiseMultiply(x, y []float64) {
	if len(x) != len(y) {
		panic(fmt.Sprintf("elementwise multiply: length mismatch %d vs %d", len(x), len(y)))
	}
	floats.Mul(y, x)
}

// MatrixTranspose returns the cols×rows transpose of the row-major rows×cols
// matrix a. The input is not modified.
func (cpu *Backend) MatrixTranspose(a []float64, rows, cols int) []float64 {
	checkLen("transpose", "A", len(a), rows*cols)
	if rows <= 1 || cols <= 1 {
		return append([]float64(nil), a[:rows*cols]...)
	}

	backing := append([]float64(nil), a[:rows*cols]...)
	t := tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}
	if err := t.Transpose(); err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}
	return t.Data().([]float64)
}
