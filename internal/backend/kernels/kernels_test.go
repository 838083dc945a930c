package kernels

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsLayout(t *testing.T) {
	buf := Params(3, uint32(4), 5, float32(1.5), 0.25)
	assert.Len(t, buf, ParamsSize)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(buf[4:]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(buf[8:]))
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[12:])))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[16:])))
	assert.Panics(t, func() { Params("x") })
}

func TestByteConversion(t *testing.T) {
	src := []float64{1, -2.5, 0.125, 1e6}
	dst := make([]float64, len(src))
	FromBytes(dst, ToBytes(src))
	assert.Equal(t, src, dst)
}

func TestGroups(t *testing.T) {
	assert.Equal(t, uint32(1), Groups(1, WorkgroupSize))
	assert.Equal(t, uint32(1), Groups(256, WorkgroupSize))
	assert.Equal(t, uint32(2), Groups(257, WorkgroupSize))
	assert.Equal(t, uint32(0), Groups(0, TileSize))
}
