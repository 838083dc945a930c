package serialization

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Tensor {
	return []Tensor{
		{Name: "layer.0.weights", Shape: []int{2, 3}, Data: []float64{1, -2, 3.5, math.Pi, 0, -1e-300}},
		{Name: "layer.0.biases", Shape: []int{3}, Data: []float64{0.1, 0.2, 0.3}},
		{Name: "empty", Shape: []int{0}, Data: nil},
	}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	model := json.RawMessage(`{"layers":2}`)
	require.NoError(t, Encode(&buf, Header{ModelType: "network", Model: model, Flags: FlagHasOptimizer}, sample()))

	m, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, m.Header.FormatVersion)
	assert.Equal(t, "network", m.Header.ModelType)
	assert.JSONEq(t, string(model), string(m.Header.Model))
	assert.Equal(t, FlagHasOptimizer, m.Header.Flags)
	_, err = uuid.Parse(m.Header.ModelID)
	assert.NoError(t, err)

	require.Len(t, m.Tensors, 3)
	for i, want := range sample() {
		got := m.Tensors[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Shape, got.Shape)
		assert.Len(t, got.Data, len(want.Data))
		for j := range want.Data {
			assert.Equal(t, math.Float64bits(want.Data[j]), math.Float64bits(got.Data[j]), "bit exact")
		}
	}

	w, err := m.Tensor("layer.0.biases")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, w.Data)
	_, err = m.Tensor("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestDataIsAligned(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Header{Metadata: map[string]string{"k": "v"}}, sample()))
	dataSize := (6 + 3) * 8
	assert.Zero(t, (buf.Len()-dataSize)%HeaderAlignment)
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.syn")
	id := uuid.NewString()
	require.NoError(t, WriteFile(path, Header{ModelID: id}, sample()))

	m, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, id, m.Header.ModelID)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.syn"))
	assert.Error(t, err)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Header{}, sample()))
	good := buf.Bytes()

	tests := []struct {
		name   string
		mutate func(b []byte)
		want   error
	}{
		{"magic", func(b []byte) { b[0] = 'X' }, ErrInvalidMagic},
		{"version", func(b []byte) { b[4] = 9 }, ErrUnsupportedVersion},
		{"data", func(b []byte) { b[len(b)-1] ^= 0xFF }, ErrChecksumMismatch},
		{"header size", func(b []byte) { b[23] = 0x7F }, ErrHeaderTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bytes.Clone(good)
			tt.mutate(b)
			_, err := Decode(bytes.NewReader(b))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Decode(bytes.NewReader(good[:10]))
	assert.Error(t, err, "truncated")
}

func TestEncodeRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "a/b", "a\\b", "nul\x00"} {
		err := Encode(&bytes.Buffer{}, Header{}, []Tensor{{Name: name, Shape: []int{1}, Data: []float64{1}}})
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "name %q", name)
	}

	err := Encode(&bytes.Buffer{}, Header{}, []Tensor{{Name: "w", Shape: []int{2, 2}, Data: []float64{1}}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "size_mismatch", ve.Type)
}

func TestValidateHeaderOffsets(t *testing.T) {
	meta := func(name string, off, size int64) TensorMeta {
		return TensorMeta{Name: name, DType: DTypeFloat64, Shape: []int{int(size / 8)}, Offset: off, Size: size}
	}
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantType string
	}{
		{"ok", []TensorMeta{meta("a", 0, 16), meta("b", 16, 8)}, 24, ""},
		{"overlap", []TensorMeta{meta("a", 0, 16), meta("b", 8, 16)}, 32, "offset_overlap"},
		{"out of bounds", []TensorMeta{meta("a", 8, 16)}, 16, "out_of_bounds"},
		{"negative", []TensorMeta{meta("a", -8, 8)}, 16, "negative_offset"},
		{"dtype", []TensorMeta{{Name: "a", DType: "float32", Shape: []int{1}, Size: 4}}, 4, "unsupported_dtype"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(&Header{Tensors: tt.tensors}, tt.dataSize)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantType, ve.Type)
		})
	}
}
