// Package compress implements the field-segment codecs named in the
// container format: none (identity) and Zstandard (spec §4.5). Codec ids
// 2 (Brotli) and 3 (Deflate) are reserved in the wire enumeration but have
// no implementation in v1 — CreateCodec/GetCodec reject them with
// errs.ErrUnsupportedCompression rather than silently falling back.
package compress

import (
	"fmt"

	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
)

// Compressor compresses one field segment's uncompressed payload.
//
// Memory management: the returned slice is newly allocated and owned by
// the caller; the input slice is never modified.
type Compressor interface {
	Compress(data []byte, level int) ([]byte, error)
}

// Decompressor decompresses one field segment.
//
// Decompress must be called only after the caller has validated
// expectedLen against the effective segment-size ceiling (spec §4.6 step
// 1) — this package does not itself know about limits.Limits, so the
// pre-allocation guard lives in the block decoder, one layer up.
type Decompressor interface {
	Decompress(data []byte, expectedLen int) ([]byte, error)
}

// Codec combines both directions for one compressor id.
type Codec interface {
	Compressor
	Decompressor
}

// CompressionStats summarizes one segment's compression outcome. Nothing
// in this module populates it; the writer's Metrics and the file-level
// CompressSummary are counted separately.
type CompressionStats struct {
	Algorithm      format.CompressorID
	OriginalSize   int64
	CompressedSize int64
}

// Ratio returns CompressedSize / OriginalSize, or 0 if OriginalSize is 0.
func (s CompressionStats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// CreateCodec returns a fresh Codec for id. Only CompressorNone and
// CompressorZstd are implemented; any other id, including the reserved
// Brotli/Deflate slots, yields ErrUnsupportedCompression immediately —
// this is the encode-time rejection spec §4.5 requires.
func CreateCodec(id format.CompressorID) (Codec, error) {
	switch id {
	case format.CompressorNone:
		return NewNoOpCodec(), nil
	case format.CompressorZstd:
		return NewZstdCodec(), nil
	default:
		return nil, fmt.Errorf("%w: codec id %s", errs.ErrUnsupportedCompression, id)
	}
}

var builtinCodecs = map[format.CompressorID]Codec{
	format.CompressorNone: NewNoOpCodec(),
	format.CompressorZstd: NewZstdCodec(),
}

// GetCodec retrieves a shared built-in Codec for id, for the read path
// where a fresh allocation per segment would be wasteful.
func GetCodec(id format.CompressorID) (Codec, error) {
	if codec, ok := builtinCodecs[id]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: codec id %s", errs.ErrUnsupportedCompression, id)
}
