package section

import (
	"sort"

	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/varint"
)

// DirEntry is one field's directory metadata inside a block header (spec
// §4.3).
type DirEntry struct {
	FieldName              string
	Compressor             format.CompressorID
	CompressionLevel       uint8
	PresenceBytes          int
	TagBytes               int
	ValueCountPresent      int
	EncodingFlags          uint64
	DictEntryCount         int
	SegmentUncompressedLen int
	SegmentCompressedLen   int
	SegmentOffset          int
}

// HasDictionary reports encoding_flags bit 0.
func (e DirEntry) HasDictionary() bool { return e.EncodingFlags&EncodingFlagDictionary != 0 }

// HasDelta reports encoding_flags bit 1.
func (e DirEntry) HasDelta() bool { return e.EncodingFlags&EncodingFlagDelta != 0 }

func (e DirEntry) bytes() []byte {
	out := make([]byte, 0, len(e.FieldName)+48)
	out = varint.AppendUvarint(out, uint64(len(e.FieldName)))
	out = append(out, e.FieldName...)
	out = append(out, byte(e.Compressor), e.CompressionLevel)
	out = varint.AppendUvarint(out, uint64(e.PresenceBytes))
	out = varint.AppendUvarint(out, uint64(e.TagBytes))
	out = varint.AppendUvarint(out, uint64(e.ValueCountPresent))
	out = varint.AppendUvarint(out, e.EncodingFlags)
	out = varint.AppendUvarint(out, uint64(e.DictEntryCount))
	out = varint.AppendUvarint(out, uint64(e.SegmentUncompressedLen))
	out = varint.AppendUvarint(out, uint64(e.SegmentCompressedLen))
	out = varint.AppendUvarint(out, uint64(e.SegmentOffset))

	return out
}

func parseDirEntry(buf []byte, lim limits.Limits) (DirEntry, int, error) {
	var e DirEntry

	nameLen, n, err := varint.Uvarint(buf)
	if err != nil {
		return e, 0, err
	}

	pos := n

	if err := limits.CheckUint64(nameLen, 1<<20); err != nil {
		return e, 0, err
	}

	if pos+int(nameLen) > len(buf) {
		return e, 0, errs.ErrUnexpectedEOF
	}

	e.FieldName = string(buf[pos : pos+int(nameLen)])
	pos += int(nameLen)

	if pos+2 > len(buf) {
		return e, 0, errs.ErrUnexpectedEOF
	}

	e.Compressor = format.CompressorID(buf[pos])
	e.CompressionLevel = buf[pos+1]
	pos += 2

	readVarintInto := func(dst *int, max int) error {
		v, n, err := varint.Uvarint(buf[pos:])
		if err != nil {
			return err
		}

		if err := limits.CheckUint64(v, max); err != nil {
			return err
		}

		*dst = int(v)
		pos += n

		return nil
	}

	if err := readVarintInto(&e.PresenceBytes, lim.MaxPresenceBytesPerField); err != nil {
		return e, 0, err
	}

	if err := readVarintInto(&e.TagBytes, lim.MaxTagStreamBytesPerField); err != nil {
		return e, 0, err
	}

	if err := readVarintInto(&e.ValueCountPresent, lim.MaxRecordsPerBlock); err != nil {
		return e, 0, err
	}

	flags, n, err := varint.Uvarint(buf[pos:])
	if err != nil {
		return e, 0, err
	}

	e.EncodingFlags = flags
	pos += n

	if err := readVarintInto(&e.DictEntryCount, lim.MaxDictEntriesPerField); err != nil {
		return e, 0, err
	}

	if err := readVarintInto(&e.SegmentUncompressedLen, lim.MaxSegmentUncompressed); err != nil {
		return e, 0, err
	}

	if err := readVarintInto(&e.SegmentCompressedLen, lim.MaxSegmentUncompressed); err != nil {
		return e, 0, err
	}

	if err := readVarintInto(&e.SegmentOffset, 1<<31); err != nil {
		return e, 0, err
	}

	return e, pos, nil
}

// BlockHeader is the fixed-prefix structure preceding a block's field
// directory (spec §4.3).
type BlockHeader struct {
	RecordCount int
	FieldCount  int
	Entries     []DirEntry
}

// Bytes encodes the block magic, header_len, record_count, field_count,
// and the directory entries, in that order. header_len covers everything
// from block_magic up to (not including) the first segment.
func (h BlockHeader) Bytes() []byte {
	body := make([]byte, 0, 64)
	body = varint.AppendUvarint(body, uint64(h.RecordCount))
	body = varint.AppendUvarint(body, uint64(len(h.Entries)))

	for _, e := range h.Entries {
		body = append(body, e.bytes()...)
	}

	headerLen := 4 + varint.Len(uint64(len(body)+4)) + len(body) // magic + header_len varint + body, self-describing
	// header_len includes itself; solve by trying increasing varint
	// widths until stable, matching the self-referential length
	// prefixes used elsewhere in the format.
	for {
		n := varint.Len(uint64(headerLen))
		candidate := 4 + n + len(body)
		if candidate == headerLen {
			break
		}

		headerLen = candidate
	}

	out := make([]byte, 0, headerLen)
	out = append(out, BlockMagic[:]...)
	out = varint.AppendUvarint(out, uint64(headerLen))
	out = append(out, body...)

	return out
}

// ParseBlockHeader decodes the block magic, header_len, record_count,
// field_count, and all directory entries, validating each entry's lengths
// against the effective lim and its segment_offset as contiguous with the
// previous segment (the first at header_len). Whether the segments fit in
// buf is left to the caller (block.NewDecoder). Unrecognized trailing
// directory bytes within header_len are skipped (forward compatibility).
func ParseBlockHeader(buf []byte, lim limits.Limits) (BlockHeader, int, error) {
	if len(buf) < 4 {
		return BlockHeader{}, 0, errs.ErrUnexpectedEOF
	}

	if buf[0] != BlockMagic[0] || buf[1] != BlockMagic[1] || buf[2] != BlockMagic[2] || buf[3] != BlockMagic[3] {
		return BlockHeader{}, 0, errs.ErrInvalidMagic
	}

	pos := 4

	headerLen, n, err := varint.Uvarint(buf[pos:])
	if err != nil {
		return BlockHeader{}, 0, err
	}

	pos += n

	if headerLen < uint64(pos) || int(headerLen) > len(buf) {
		return BlockHeader{}, 0, errs.ErrCorruptBlock
	}

	bodyEnd := int(headerLen)

	recordCount, n, err := varint.Uvarint(buf[pos:bodyEnd])
	if err != nil {
		return BlockHeader{}, 0, err
	}

	pos += n

	if err := limits.CheckUint64(recordCount, lim.MaxRecordsPerBlock); err != nil {
		return BlockHeader{}, 0, err
	}

	fieldCount, n, err := varint.Uvarint(buf[pos:bodyEnd])
	if err != nil {
		return BlockHeader{}, 0, err
	}

	pos += n

	if err := limits.CheckUint64(fieldCount, lim.MaxFieldsPerBlock); err != nil {
		return BlockHeader{}, 0, err
	}

	h := BlockHeader{
		RecordCount: int(recordCount),
		FieldCount:  int(fieldCount),
		Entries:     make([]DirEntry, 0, fieldCount),
	}

	nextOffset := headerLen

	for i := uint64(0); i < fieldCount; i++ {
		entry, n, err := parseDirEntry(buf[pos:bodyEnd], lim)
		if err != nil {
			return BlockHeader{}, 0, err
		}

		pos += n

		if uint64(entry.SegmentOffset) != nextOffset {
			return BlockHeader{}, 0, errs.ErrCorruptBlock
		}

		nextOffset = uint64(entry.SegmentOffset) + uint64(entry.SegmentCompressedLen)

		h.Entries = append(h.Entries, entry)
	}

	// Unrecognized trailing directory bytes within header_len are
	// forward-compatible and silently skipped; pos is simply advanced to
	// bodyEnd.
	return h, bodyEnd, nil
}

// SortEntriesCanonical sorts entries lexicographically by field name, the
// order canonicalize-keys calls for (spec §4.7). block.Builder does not
// call it; it sorts field names itself before building entries.
func SortEntriesCanonical(entries []DirEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].FieldName < entries[j].FieldName
	})
}
