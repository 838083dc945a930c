package serialization

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Model is a decoded .syn file.
type Model struct {
	Header  Header
	Tensors []Tensor
	index   map[string]int
}

// Tensor returns the tensor called name.
func (m *Model) Tensor(name string) (Tensor, error) {
	i, ok := m.index[name]
	if !ok {
		return Tensor{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return m.Tensors[i], nil
}

// Decode reads a model from r, verifying the magic, version, checksum and
// tensor table.
func Decode(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)

	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(br, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMagic, fixed[0:4])
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	flags := binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var checksum [ChecksumSize]byte
	copy(checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(br, headerJSON); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	header.Flags = flags

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	if _, err := br.Discard(int(padding(int64(FixedHeaderSize) + int64(headerSize)))); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}
	if err := ValidateHeader(&header, int64(dataSize)); err != nil { //nolint:gosec // checked against the tensor table
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var end int64
	for _, t := range header.Tensors {
		end = max(end, t.Offset+t.Size)
	}
	if uint64(end) != dataSize { //nolint:gosec // end is non-negative after validation
		return nil, &ValidationError{
			Type:    "data_size_mismatch",
			Details: fmt.Sprintf("tensors end at %d, data section is %d bytes", end, dataSize),
		}
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if sha256.Sum256(data) != checksum {
		return nil, ErrChecksumMismatch
	}

	m := &Model{Header: header, index: make(map[string]int, len(header.Tensors))}
	for i, meta := range header.Tensors {
		values := make([]float64, meta.NumElements())
		raw := data[meta.Offset : meta.Offset+meta.Size]
		for j := range values {
			values[j] = math.Float64frombits(binary.LittleEndian.Uint64(raw[j*8:]))
		}
		m.Tensors = append(m.Tensors, Tensor{Name: meta.Name, Shape: meta.Shape, Data: values})
		m.index[meta.Name] = i
	}
	return m, nil
}

// ReadFile decodes the model stored at path.
func ReadFile(path string) (*Model, error) {
	//nolint:gosec // G304: model paths come from the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
