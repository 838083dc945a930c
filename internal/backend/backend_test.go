package backend

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/synapse/internal/backend/device"
)

func withCPU(t *testing.T) {
	t.Helper()
	t.Setenv(EnvBackend, "cpu")
	prev := SetDefault(nil)
	t.Cleanup(func() {
		if cur := SetDefault(prev); cur != nil && cur != prev {
			_ = cur.Close()
		}
	})
}

func TestDefaultHonorsEnvironment(t *testing.T) {
	withCPU(t)

	ops := Default()
	require.NotNil(t, ops)
	assert.Equal(t, device.CPU, ops.Kind())
	assert.Same(t, ops, Default(), "decision is cached")
	assert.Equal(t, device.CPU, DeviceInfo().Kind)
}

func TestUnknownEnvironmentValueIsLogged(t *testing.T) {
	t.Setenv(EnvBackend, "quantum")
	var buf bytes.Buffer
	SetLogger(log.New(&buf, "", 0))
	t.Cleanup(func() { SetLogger(nil) })

	prev := SetDefault(nil)
	t.Cleanup(func() {
		if cur := SetDefault(prev); cur != nil && cur != prev {
			_ = cur.Close()
		}
	})

	ops := Default()
	require.NotNil(t, ops)
	assert.Contains(t, buf.String(), `unknown backend "quantum"`)
}

func TestOpenUnknownKind(t *testing.T) {
	_, err := Open(device.Kind(42))
	assert.Error(t, err)
}

func TestCPUFallbackComputes(t *testing.T) {
	withCPU(t)

	ops := Default()
	c := []float64{1, 1, 1, 1}
	ops.MatrixMultiply([]float64{1, 2, 3, 4}, []float64{5, 6, 7, 8}, c, 2, 2, 2, 1, 1)
	assert.Equal(t, []float64{20, 23, 44, 51}, c)

	y := []float64{1, 2, 3}
	ops.VectorAdd([]float64{1, 1, 1}, y, 2)
	assert.Equal(t, []float64{3, 4, 5}, y)

	ops.ElementWiseMultiply([]float64{2, 0, -1}, y)
	assert.Equal(t, []float64{6, 0, -5}, y)

	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, ops.MatrixTranspose([]float64{1, 2, 3, 4, 5, 6}, 2, 3))
}
