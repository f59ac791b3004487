// Package format defines the small closed enumerations that appear on the
// wire: the per-value type tag, the compressor id, and the container hint
// recorded in the file header's flag bits.
package format

import "fmt"

// ValueTag is the 3-bit code identifying the JSON variant of a present
// value (spec §3, §4.1). Code 7 is reserved and must never appear on the
// wire.
type ValueTag uint8

const (
	TagNull ValueTag = iota
	TagBool
	TagInt
	TagDecimal
	TagString
	TagObject
	TagArray
	tagReserved // 7, MUST NOT appear
)

func (t ValueTag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagBool:
		return "Bool"
	case TagInt:
		return "Int"
	case TagDecimal:
		return "Decimal"
	case TagString:
		return "String"
	case TagObject:
		return "Object"
	case TagArray:
		return "Array"
	default:
		return fmt.Sprintf("ValueTag(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the seven defined tags (not the
// reserved code 7, and not out of range).
func (t ValueTag) Valid() bool {
	return t <= TagArray
}

// CompressorID identifies the per-field or file-default codec. Only None
// and Zstd are implemented in v1; Brotli and Deflate are reserved ids that
// MUST be rejected at encode time.
type CompressorID uint8

const (
	CompressorNone CompressorID = iota
	CompressorZstd
	CompressorBrotliReserved
	CompressorDeflateReserved
)

func (c CompressorID) String() string {
	switch c {
	case CompressorNone:
		return "None"
	case CompressorZstd:
		return "Zstd"
	case CompressorBrotliReserved:
		return "BrotliReserved"
	case CompressorDeflateReserved:
		return "DeflateReserved"
	default:
		return fmt.Sprintf("CompressorID(%d)", uint8(c))
	}
}

// Supported reports whether this id is implemented in v1 (None or Zstd).
func (c CompressorID) Supported() bool {
	return c == CompressorNone || c == CompressorZstd
}

// ContainerHint records the shape of the ingested JSON, stored in file
// header flag bits 3-4.
type ContainerHint uint8

const (
	ContainerUnknown ContainerHint = iota
	ContainerNdjson
	ContainerJSONArray
	containerReserved // 11, MUST yield UnsupportedFeature
)

func (h ContainerHint) String() string {
	switch h {
	case ContainerUnknown:
		return "Unknown"
	case ContainerNdjson:
		return "Ndjson"
	case ContainerJSONArray:
		return "JsonArray"
	default:
		return fmt.Sprintf("ContainerHint(%d)", uint8(h))
	}
}

// Valid reports whether h is a defined, non-reserved hint.
func (h ContainerHint) Valid() bool {
	return h <= ContainerJSONArray
}
