// Package section implements the container's binary structures: the file
// header, the block header and field directory, and the optional index
// footer (spec §4.2-§4.3, §6). Layout and validation order follow the
// format spec exactly; this package does not compress or decompress field
// payloads, only the framing around them.
package section

// Magic numbers (spec §6). Stored little-endian on the wire, as 4 raw
// bytes.
var (
	FileMagic   = [4]byte{'J', 'A', 'C', 0x01}
	BlockMagic  = [4]byte{'B', 'L', 'K', '1'}
	FooterMagic = [4]byte{'I', 'D', 'X', '1'}
)

// FileVersion is the single supported version byte, the last byte of
// FileMagic.
const FileVersion = 0x01

// File header flag bits (spec §4.2).
const (
	FlagCanonicalizeKeys    uint32 = 1 << 0
	FlagCanonicalizeNumbers uint32 = 1 << 1
	FlagNestedOpaque        uint32 = 1 << 2
	// Bits 3-4 hold the container hint, masked and shifted via
	// containerHintShift/containerHintMask below.
)

const (
	containerHintShift = 3
	containerHintMask  = 0x3
)

// Directory entry encoding_flags bits (spec §4.3).
const (
	EncodingFlagDictionary uint64 = 1 << 0
	EncodingFlagDelta      uint64 = 1 << 1
)

// CRCSize is the CRC32C trailer width, shared by both block and footer
// framing.
const CRCSize = 4

// PointerSize is the trailing absolute footer-offset pointer's width.
const PointerSize = 8
