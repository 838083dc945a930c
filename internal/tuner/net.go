package tuner

import (
	"math/rand"

	"github.com/born-ml/synapse/internal/backend"
)

// net is a linear input→hidden→output network in batch-major matrices.
type net struct {
	ops                  backend.Ops
	in, hidden, out, bsz int

	x, w1, h, w2, y  []float64 // forward
	dy, dh, dw1, dw2 []float64 // backward
}

func newNet(ops backend.Ops, rng *rand.Rand, in, hidden, out, batch int) *net {
	n := &net{ops: ops, in: in, hidden: hidden, out: out, bsz: batch}
	fill := func(size int) []float64 {
		buf := ops.Alloc(size)
		for i := range buf {
			buf[i] = rng.Float64()*2 - 1
		}
		return buf
	}
	n.x = fill(batch * in)
	n.w1 = fill(in * hidden)
	n.w2 = fill(hidden * out)
	n.dy = fill(batch * out)
	n.h = ops.Alloc(batch * hidden)
	n.y = ops.Alloc(batch * out)
	n.dh = ops.Alloc(batch * hidden)
	n.dw1 = ops.Alloc(in * hidden)
	n.dw2 = ops.Alloc(hidden * out)
	return n
}

func (n *net) forward() {
	n.ops.MatrixMultiply(n.x, n.w1, n.h, n.bsz, n.hidden, n.in, 1, 0)
	n.ops.MatrixMultiply(n.h, n.w2, n.y, n.bsz, n.out, n.hidden, 1, 0)
}

func (n *net) backward() {
	hT := n.ops.MatrixTranspose(n.h, n.bsz, n.hidden)
	n.ops.MatrixMultiply(hT, n.dy, n.dw2, n.hidden, n.out, n.bsz, 1, 0)

	w2T := n.ops.MatrixTranspose(n.w2, n.hidden, n.out)
	n.ops.MatrixMultiply(n.dy, w2T, n.dh, n.bsz, n.hidden, n.out, 1, 0)

	xT := n.ops.MatrixTranspose(n.x, n.bsz, n.in)
	n.ops.MatrixMultiply(xT, n.dh, n.dw1, n.in, n.hidden, n.bsz, 1, 0)
}

func (n *net) step() {
	n.ops.VectorAdd(n.dw1, n.w1, -1e-3)
	n.ops.VectorAdd(n.dw2, n.w2, -1e-3)
}

func (n *net) free() {
	for _, buf := range [][]float64{n.x, n.w1, n.h, n.w2, n.y, n.dy, n.dh, n.dw1, n.dw2} {
		n.ops.Free(buf)
	}
}
