// Package kernels holds the WGSL compute shaders and host-side helpers shared
// by the two GPU backends.
package kernels

import (
	"encoding/binary"
	"math"
)

// WorkgroupSize is the thread count of the 1-D kernels.
const WorkgroupSize = 256

// TileSize is the edge of the 2-D matmul and transpose workgroups.
const TileSize = 16

// ParamsSize is the byte size of every uniform block (16-byte aligned).
const ParamsSize = 32

// MinGPUWork is the smallest m·n·k (or element count) worth a device round
// trip; smaller calls run on the CPU fallback.
const MinGPUWork = 1 << 15

// Shader names used as pipeline cache keys.
const (
	NameMatMul    = "matmul"
	NameAXPY      = "axpy"
	NameMul       = "mul"
	NameTranspose = "transpose"
)

// MatMul computes C = alpha·A·B + beta·C (A is M×K, B is K×N).
const MatMul = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> c: array<f32>;

struct Params {
    M: u32,
    N: u32,
    K: u32,
    alpha: f32,
    beta: f32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;
    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        sum = sum + a[row * params.K + k] * b[k * params.N + col];
    }

    let idx = row * params.N + col;
    c[idx] = params.alpha * sum + params.beta * c[idx];
}
`

// AXPY computes y = y + alpha·x.
const AXPY = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> y: array<f32>;

struct Params {
    size: u32,
    alpha: f32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
    _pad3: u32,
    _pad4: u32,
    _pad5: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        y[idx] = y[idx] + params.alpha * x[idx];
    }
}
`

// Mul computes y = y * x element-wise.
const Mul = `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> y: array<f32>;

struct Params {
    size: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
    _pad3: u32,
    _pad4: u32,
    _pad5: u32,
    _pad6: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        y[idx] = y[idx] * x[idx];
    }
}
`

// Transpose writes the cols×rows transpose of a rows×cols matrix.
const Transpose = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    rows: u32,
    cols: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
    _pad3: u32,
    _pad4: u32,
    _pad5: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;
    if (row >= params.rows || col >= params.cols) {
        return;
    }
    result[col * params.rows + row] = input[row * params.cols + col];
}
`

// Params packs up to eight 32-bit words into a uniform block. Each word is
// either a uint32 or a float32.
func Params(words ...any) []byte {
	buf := make([]byte, ParamsSize)
	for i, w := range words {
		off := i * 4
		switch v := w.(type) {
		case uint32:
			binary.LittleEndian.PutUint32(buf[off:], v)
		case int:
			binary.LittleEndian.PutUint32(buf[off:], uint32(v)) //nolint:gosec // dimensions are non-negative
		case float32:
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		case float64:
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v)))
		default:
			panic("kernels: unsupported param type")
		}
	}
	return buf
}

// ToBytes converts host float64 values to little-endian float32 bytes.
func ToBytes(src []float64) []byte {
	buf := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}

// FromBytes decodes little-endian float32 bytes into dst.
func FromBytes(dst []float64, src []byte) {
	for i := range dst {
		dst[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:])))
	}
}

// Groups returns ceil(n/size).
func Groups(n, size int) uint32 {
	return uint32((n + size - 1) / size) //nolint:gosec // n is a non-negative dimension
}
