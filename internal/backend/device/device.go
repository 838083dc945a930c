// Package device describes the compute device behind a matrix backend.
package device

import "fmt"

// Kind identifies a backend implementation.
type Kind int

const (
	// CPU is the gonum-based host implementation.
	CPU Kind = iota
	// WebGPU is backend A (go-webgpu, zero-CGO).
	WebGPU
	// WGPUNative is backend B (wgpu-native through cgo).
	WGPUNative
)

// String returns the kind name used in logs and the SYNAPSE_BACKEND variable.
func (k Kind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	case WGPUNative:
		return "wgpunative"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "cpu":
		return CPU, nil
	case "webgpu":
		return WebGPU, nil
	case "wgpunative":
		return WGPUNative, nil
	default:
		return CPU, fmt.Errorf("device: unknown backend %q", s)
	}
}

// Info is a read-only diagnostic snapshot. Zero means unknown.
type Info struct {
	Kind             Kind
	Name             string
	GlobalMemory     uint64 // bytes
	ComputeUnits     int
	MaxWorkGroupSize int
}

// String formats the info for diagnostics.
func (i Info) String() string {
	return fmt.Sprintf("%s: %s (memory=%d MB, compute units=%d, max work-group=%d)",
		i.Kind, i.Name, i.GlobalMemory/(1024*1024), i.ComputeUnits, i.MaxWorkGroupSize)
}
