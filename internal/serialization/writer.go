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
	"time"

	"github.com/google/uuid"
)

// Version is recorded in every header.
const Version = "0.1.0"

// Encode writes header and tensors to w. The tensor table, format version,
// creation time and data checksum are filled in; a missing ModelID is
// generated.
func Encode(w io.Writer, header Header, tensors []Tensor) error {
	header.FormatVersion = FormatVersion
	header.SynapseVersion = Version
	if header.ModelID == "" {
		header.ModelID = uuid.NewString()
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if len(header.Metadata) > 0 {
		header.Flags |= FlagHasMetadata
	}

	var (
		offset int64
		data   []byte
	)
	header.Tensors = make([]TensorMeta, 0, len(tensors))
	for _, t := range tensors {
		meta := TensorMeta{Name: t.Name, DType: DTypeFloat64, Shape: t.Shape, Offset: offset, Size: int64(len(t.Data)) * 8}
		if err := validateTensor(meta); err != nil {
			return err
		}
		header.Tensors = append(header.Tensors, meta)
		for _, v := range t.Data {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
		offset += meta.Size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], header.Flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	sum := sha256.Sum256(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], sum[:])

	bw := bufio.NewWriter(w)
	pad := padding(int64(FixedHeaderSize + len(headerJSON)))
	for _, chunk := range [][]byte{fixed, headerJSON, make([]byte, pad), data} {
		if _, err := bw.Write(chunk); err != nil {
			return fmt.Errorf("failed to write model: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile encodes a model into path.
func WriteFile(path string, header Header, tensors []Tensor) error {
	//nolint:gosec // G304: model paths come from the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Encode(f, header, tensors); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
