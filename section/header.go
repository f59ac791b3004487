package section

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/varint"
)

var metadataAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// userMetadata is the suggested JSON shape for FileHeader.UserMetadata
// (spec §4.2, §4.1's segment_max_bytes override).
type userMetadata struct {
	SegmentMaxBytes int `json:"segment_max_bytes,omitempty"`
}

// FileHeader is the fixed-prefix structure written once at the start of a
// .jac file (spec §4.2).
type FileHeader struct {
	Flags                  uint32
	DefaultCompressor      format.CompressorID
	DefaultCompressionLevel uint8
	BlockSizeHintRecords   uint64
	UserMetadata           []byte
}

// NewFileHeader returns a header with nested-opaque set (mandatory in v1)
// and the given container hint.
func NewFileHeader(hint format.ContainerHint) FileHeader {
	h := FileHeader{
		DefaultCompressor: format.CompressorZstd,
	}
	h.Flags |= FlagNestedOpaque
	h.SetContainerHint(hint)

	return h
}

// SetContainerHint packs hint into flag bits 3-4.
func (h *FileHeader) SetContainerHint(hint format.ContainerHint) {
	h.Flags &^= containerHintMask << containerHintShift
	h.Flags |= uint32(hint) << containerHintShift
}

// ContainerHint unpacks flag bits 3-4.
func (h FileHeader) ContainerHint() format.ContainerHint {
	return format.ContainerHint((h.Flags >> containerHintShift) & containerHintMask)
}

// CanonicalizeKeys reports flag bit 0.
func (h FileHeader) CanonicalizeKeys() bool { return h.Flags&FlagCanonicalizeKeys != 0 }

// CanonicalizeNumbers reports flag bit 1.
func (h FileHeader) CanonicalizeNumbers() bool { return h.Flags&FlagCanonicalizeNumbers != 0 }

// NestedOpaque reports flag bit 2, which MUST be set in v1.
func (h FileHeader) NestedOpaque() bool { return h.Flags&FlagNestedOpaque != 0 }

// SetSegmentMaxBytesOverride records n as this file's raised segment
// ceiling in UserMetadata (spec §4.1: "A producer MAY raise the segment
// ceiling above 64 MiB by recording segment_max_bytes (JSON blob) in
// user_metadata"). Overwrites any existing UserMetadata.
func (h *FileHeader) SetSegmentMaxBytesOverride(n int) {
	// Errors are impossible: userMetadata has no type that Marshal can fail
	// on.
	b, _ := metadataAPI.Marshal(userMetadata{SegmentMaxBytes: n}) //nolint:errcheck
	h.UserMetadata = b
}

// SegmentMaxBytesOverride reports the producer-raised segment ceiling
// recorded in UserMetadata, if any. Malformed or absent user_metadata is
// not an error — it simply means no override applies, per spec §4.2's
// forward-compatibility rule that unknown user_metadata is opaque.
func (h FileHeader) SegmentMaxBytesOverride() (int, bool) {
	if len(h.UserMetadata) == 0 {
		return 0, false
	}

	var m userMetadata
	if err := metadataAPI.Unmarshal(h.UserMetadata, &m); err != nil {
		return 0, false
	}

	if m.SegmentMaxBytes <= 0 {
		return 0, false
	}

	return m.SegmentMaxBytes, true
}

// Bytes encodes the header per spec §4.2: magic, flags (LE u32), default
// compressor (u8), default compression level (u8), block size hint
// (varint), user metadata length (varint) + bytes.
func (h FileHeader) Bytes() []byte {
	out := make([]byte, 0, 4+4+1+1+5+5+len(h.UserMetadata))
	out = append(out, FileMagic[:]...)
	out = appendU32LE(out, h.Flags)
	out = append(out, byte(h.DefaultCompressor), h.DefaultCompressionLevel)
	out = varint.AppendUvarint(out, h.BlockSizeHintRecords)
	out = varint.AppendUvarint(out, uint64(len(h.UserMetadata)))
	out = append(out, h.UserMetadata...)

	return out
}

// ParseFileHeader decodes a FileHeader from the front of buf, returning
// the header and the number of bytes consumed.
//
// Validation: magic's first 3 bytes must match "JAC"; the version byte
// (magic[3]) must equal FileVersion, else ErrUnsupportedVersion; the
// container hint must not be the reserved value 11, else
// ErrUnsupportedFeature; a user_metadata_len that would overflow the
// remaining buffer yields ErrCorruptHeader.
func ParseFileHeader(buf []byte) (FileHeader, int, error) {
	if len(buf) < 4 {
		return FileHeader{}, 0, errs.ErrUnexpectedEOF
	}

	if buf[0] != FileMagic[0] || buf[1] != FileMagic[1] || buf[2] != FileMagic[2] {
		return FileHeader{}, 0, errs.ErrInvalidMagic
	}

	if buf[3] != FileVersion {
		return FileHeader{}, 0, errs.ErrUnsupportedVersion
	}

	pos := 4

	if len(buf) < pos+6 {
		return FileHeader{}, 0, errs.ErrUnexpectedEOF
	}

	flags := readU32LE(buf[pos:])
	pos += 4

	compressor := format.CompressorID(buf[pos])
	pos++
	level := buf[pos]
	pos++

	var h FileHeader
	h.Flags = flags
	h.DefaultCompressor = compressor
	h.DefaultCompressionLevel = level

	if (flags&FlagNestedOpaque) == 0 {
		return FileHeader{}, 0, errs.ErrUnsupportedFeature
	}

	if h.ContainerHint() > format.ContainerJSONArray {
		return FileHeader{}, 0, errs.ErrUnsupportedFeature
	}

	hint, n, err := varint.Uvarint(buf[pos:])
	if err != nil {
		return FileHeader{}, 0, err
	}

	h.BlockSizeHintRecords = hint
	pos += n

	metaLen, n, err := varint.Uvarint(buf[pos:])
	if err != nil {
		return FileHeader{}, 0, err
	}

	pos += n

	if pos+int(metaLen) > len(buf) || metaLen > 1<<31 {
		return FileHeader{}, 0, errs.ErrCorruptHeader
	}

	h.UserMetadata = append([]byte(nil), buf[pos:pos+int(metaLen)]...)
	pos += int(metaLen)

	return h, pos, nil
}

func appendU32LE(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readU32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
