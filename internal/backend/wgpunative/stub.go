//go:build !cgo || !(linux || darwin)

package wgpunative

import (
	"errors"

	"github.com/born-ml/synapse/internal/backend/cpu"
)

// ErrUnsupportedPlatform is returned by New when the package is built
// without cgo or for an unsupported OS.
var ErrUnsupportedPlatform = errors.New("wgpunative: requires cgo on linux or darwin")

// Backend is the CPU backend on platforms without backend B.
type Backend = cpu.Backend

// New always returns ErrUnsupportedPlatform.
func New() (*Backend, error) {
	return nil, ErrUnsupportedPlatform
}
