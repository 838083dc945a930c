// Package serialization implements the .syn model container.
//
//	Layout (little endian):
//	  0x00  [4]byte  magic "SYNP"
//	  0x04  uint32   format version
//	  0x08  uint32   flags
//	  0x0C  uint32   reserved
//	  0x10  uint64   header size
//	  0x18  uint64   data size
//	  0x20  [32]byte SHA-256 of the data section
//	  0x40  header JSON, zero padded to a 64-byte boundary
//	  ...   tensor data, float64 values back to back
//
// The JSON header lists every tensor with its offset inside the data
// section and carries the model description as an opaque document.
package serialization

import (
	"encoding/json"
	"time"
)

// Format constants.
const (
	MagicBytes      = "SYNP"
	FormatVersion   = 1
	HeaderAlignment = 64
	FixedHeaderSize = 64
	ChecksumOffset  = 0x20
	ChecksumSize    = 32
	DTypeFloat64    = "float64"
)

// Flags stored in the fixed header.
const (
	FlagHasOptimizer uint32 = 1 << 0 // optimizer scratch tensors present
	FlagHasState     uint32 = 1 << 1 // layer state tensors present
	FlagHasMetadata  uint32 = 1 << 2 // custom metadata present
)

// Header is the JSON header of a .syn file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	SynapseVersion string            `json:"synapse_version"`
	ModelID        string            `json:"model_id"`
	ModelType      string            `json:"model_type"`
	CreatedAt      time.Time         `json:"created_at"`
	Flags          uint32            `json:"-"`
	Tensors        []TensorMeta      `json:"tensors"`
	Model          json.RawMessage   `json:"model,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// TensorMeta locates a tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

// Tensor is a named float64 array with a shape.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float64
}

// NumElements returns the product of the shape.
func (m TensorMeta) NumElements() int64 {
	n := int64(1)
	for _, d := range m.Shape {
		n *= int64(d)
	}
	return n
}

func padding(pos int64) int64 {
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}
