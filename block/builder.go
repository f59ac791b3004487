package block

import (
	"fmt"
	"sort"

	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/compress"
	"github.com/jac-archive/jac/crc32c"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/internal/pool"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
)

// AddResult reports the outcome of TryAddRecord.
type AddResult int

const (
	// Added indicates the record was committed to the block.
	Added AddResult = iota
	// BlockFull indicates admission control rejected the record; the
	// caller should Finish this block and start a new one with the same
	// record (spec §4.7).
	BlockFull
)

// Builder accumulates records into one block, lazily creating a column
// builder per distinct field and enforcing admission control before the
// block is compressed and assembled (spec §4.7).
type Builder struct {
	lim               limits.Limits
	targetRecords     int
	defaultCompressor format.CompressorID
	defaultLevel      uint8
	canonicalizeKeys  bool

	fieldOrder     []string
	fields         map[string]*column.Builder
	recordCount    int
	estimatedBytes int
}

// NewBuilder creates an empty block builder.
func NewBuilder(lim limits.Limits, targetRecords int, defaultCompressor format.CompressorID, defaultLevel uint8, canonicalizeKeys bool) *Builder {
	return &Builder{
		lim:               lim,
		targetRecords:     targetRecords,
		defaultCompressor: defaultCompressor,
		defaultLevel:      defaultLevel,
		canonicalizeKeys:  canonicalizeKeys,
		fields:            make(map[string]*column.Builder),
	}
}

// RecordCount returns the number of records committed so far.
func (b *Builder) RecordCount() int { return b.recordCount }

// IsEmpty reports whether no record has been committed yet.
func (b *Builder) IsEmpty() bool { return b.recordCount == 0 }

// estimateValueSize approximates one value's encoded byte cost for
// admission control only; Finalize computes the exact size.
func estimateValueSize(v column.Value) int {
	switch v.Tag {
	case format.TagBool:
		return 1
	case format.TagInt:
		return 9
	case format.TagDecimal:
		return 6 + len(v.Decimal.Digits)
	case format.TagString, format.TagObject, format.TagArray:
		return 5 + len(v.Text)
	default: // Null
		return 0
	}
}

// TryAddRecord attempts to commit rec as the next record. It returns
// BlockFull without mutating the builder if record_count has reached its
// target, any single column's projected payload would breach the segment
// ceiling, or the block's estimated aggregate would breach the block
// total ceiling — in all three cases the caller should Finish this block
// and retry rec against a fresh Builder (spec §4.7).
func (b *Builder) TryAddRecord(rec Record) (AddResult, error) {
	if b.recordCount >= b.targetRecords {
		return BlockFull, nil
	}

	recordEstimate := 0

	for _, f := range rec {
		cur := 0
		if cb, ok := b.fields[f.Name]; ok {
			cur = cb.EstimatedSize()
		}

		vs := estimateValueSize(f.Value)
		if cur+vs > b.lim.MaxSegmentUncompressed {
			return BlockFull, nil
		}

		recordEstimate += vs
	}

	if b.estimatedBytes+recordEstimate > b.lim.MaxBlockUncompressed {
		return BlockFull, nil
	}

	idx := b.recordCount

	for _, f := range rec {
		cb, ok := b.fields[f.Name]
		if !ok {
			cb = column.NewBuilder(f.Name)
			b.fields[f.Name] = cb
			b.fieldOrder = append(b.fieldOrder, f.Name)
		}

		if err := cb.Append(idx, f.Value); err != nil {
			return Added, err
		}
	}

	b.estimatedBytes += recordEstimate
	b.recordCount++

	return Added, nil
}

type preparedField struct {
	name string
	seg  column.Segment
}

// prepare finalizes every column builder without compressing (spec
// §4.7's "Prepare" stage). Field order follows insertion order, or
// lexicographic order when canonicalizeKeys is set.
func (b *Builder) prepare() ([]preparedField, error) {
	names := make([]string, len(b.fieldOrder))
	copy(names, b.fieldOrder)

	if b.canonicalizeKeys {
		sort.Strings(names)
	}

	out := make([]preparedField, 0, len(names))

	for _, name := range names {
		seg, err := b.fields[name].Finalize(b.recordCount, b.lim)
		if err != nil {
			return nil, err
		}

		out = append(out, preparedField{name: name, seg: seg})
	}

	return out, nil
}

// buildHeader assigns segment_offset to each entry and re-encodes the
// header until the header's own encoded length stops changing, mirroring
// BlockHeader.Bytes()'s self-referential header_len convergence: growing
// an offset's varint width can grow header_len, which shifts every
// offset after it.
func buildHeader(recordCount int, entries []section.DirEntry) section.BlockHeader {
	prevLen := -1

	var h section.BlockHeader

	for iter := 0; iter < 8; iter++ {
		h = section.BlockHeader{RecordCount: recordCount, FieldCount: len(entries), Entries: entries}
		curLen := len(h.Bytes())

		if curLen == prevLen {
			break
		}

		prevLen = curLen

		offset := curLen
		for i := range entries {
			entries[i].SegmentOffset = offset
			offset += entries[i].SegmentCompressedLen
		}
	}

	return h
}

// Finish compresses every prepared segment, assembles the block header
// and directory, and appends the trailing CRC32C computed over
// header_bytes || segment_0 || … || segment_{F-1} (spec §4.7's
// "Compress" stage). The builder is not reusable afterward.
func (b *Builder) Finish() ([]byte, error) {
	if b.recordCount == 0 {
		return nil, fmt.Errorf("%w: cannot finish an empty block", errs.ErrInternal)
	}

	prepared, err := b.prepare()
	if err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(b.defaultCompressor)
	if err != nil {
		return nil, err
	}

	entries := make([]section.DirEntry, len(prepared))
	segments := make([][]byte, len(prepared))

	for i, pf := range prepared {
		compressed, err := codec.Compress(pf.seg.Payload, int(b.defaultLevel))
		if err != nil {
			return nil, err
		}

		segments[i] = compressed
		entries[i] = section.DirEntry{
			FieldName:              pf.name,
			Compressor:             b.defaultCompressor,
			CompressionLevel:       b.defaultLevel,
			PresenceBytes:          pf.seg.PresenceBytes,
			TagBytes:               pf.seg.TagBytes,
			ValueCountPresent:      pf.seg.ValueCountPresent,
			EncodingFlags:          pf.seg.EncodingFlags,
			DictEntryCount:         pf.seg.DictEntryCount,
			SegmentUncompressedLen: pf.seg.SegmentUncompressedLen,
			SegmentCompressedLen:   len(compressed),
		}
	}

	header := buildHeader(b.recordCount, entries)
	headerBytes := header.Bytes()

	digest := crc32c.NewDigest()
	digest.Write(headerBytes) //nolint:errcheck // Digest.Write never errors

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)

	buf.MustWrite(headerBytes)

	for _, seg := range segments {
		digest.Write(seg) //nolint:errcheck // Digest.Write never errors
		buf.MustWrite(seg)
	}

	crc := digest.Sum32()

	out := make([]byte, buf.Len()+section.CRCSize)
	copy(out, buf.Bytes())
	copy(out[buf.Len():], appendU32LE(nil, crc))

	return out, nil
}

func appendU32LE(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
