package column

import (
	"fmt"

	"github.com/jac-archive/jac/bitstream"
	"github.com/jac-archive/jac/decimal"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/internal/pool"
	"github.com/jac-archive/jac/varint"
)

// Segment is the finalized, uncompressed payload for one field plus the
// directory metadata the block builder needs to describe it (spec §4.3's
// DirEntry fields that a column, rather than the enclosing block, owns).
type Segment struct {
	Payload                []byte
	PresenceBytes          int
	TagBytes               int
	ValueCountPresent      int
	EncodingFlags          uint64
	DictEntryCount         int
	SegmentUncompressedLen int
}

// Builder accumulates one field's values across a block's records. Callers
// append values in record order; a builder is created lazily by the block
// builder on first observation of a field (spec §4.7).
type Builder struct {
	fieldName string

	present  []bool // grows to cursor; true at present positions
	cursor   int    // number of record positions considered so far
	presentN int

	tags []format.ValueTag // one per present position, in record order

	bools    []bool
	ints     []int64
	decimals []decimal.Decimal
	texts    []string // raw text for String|Object|Array, in record order
}

// NewBuilder creates a column builder for the named field.
func NewBuilder(fieldName string) *Builder {
	return &Builder{fieldName: fieldName}
}

// FieldName returns the field this builder accumulates.
func (b *Builder) FieldName() string { return b.fieldName }

// Append records v at record index i, padding any positions between the
// builder's current cursor and i as absent.
func (b *Builder) Append(i int, v Value) error {
	if i < b.cursor {
		return fmt.Errorf("%w: column append out of order", errs.ErrInternal)
	}

	for b.cursor < i {
		b.present = append(b.present, false)
		b.cursor++
	}

	b.present = append(b.present, true)
	b.cursor++
	b.presentN++

	b.tags = append(b.tags, v.Tag)

	switch v.Tag {
	case format.TagNull:
		// No sub-buffer entry.
	case format.TagBool:
		b.bools = append(b.bools, v.Bool)
	case format.TagInt:
		b.ints = append(b.ints, v.Int)
	case format.TagDecimal:
		b.decimals = append(b.decimals, v.Decimal)
	case format.TagString, format.TagObject, format.TagArray:
		b.texts = append(b.texts, v.Text)
	default:
		return fmt.Errorf("%w: unknown value tag %d", errs.ErrInternal, v.Tag)
	}

	return nil
}

// EstimatedSize returns a cheap running estimate of the uncompressed
// payload size accumulated so far, used by the block builder's admission
// control (spec §4.7) without fully materializing the segment.
func (b *Builder) EstimatedSize() int {
	size := bitstream.PresenceBytes(b.cursor) + bitstream.TagBytes(b.presentN)
	size += (len(b.bools) + 7) / 8
	size += len(b.ints) * 9
	for _, d := range b.decimals {
		size += 1 + varint.Len(uint64(len(d.Digits))) + len(d.Digits) + 5
	}
	for _, s := range b.texts {
		size += varint.Len(uint64(len(s))) + len(s)
	}

	return size
}

// Finalize pads presence to totalRecords, decides the dictionary and delta
// encodings, and materializes the segment payload in the exact order spec
// §4.4 requires: presence, tags, dictionary, bool, integer, decimal,
// string.
func (b *Builder) Finalize(totalRecords int, lim limits.Limits) (Segment, error) {
	for b.cursor < totalRecords {
		b.present = append(b.present, false)
		b.cursor++
	}

	presence := bitstream.NewPresenceBitmap(totalRecords)
	for i, ok := range b.present {
		if ok {
			presence.Set(i)
		}
	}

	if presence.PresentCount() != b.presentN {
		return Segment{}, fmt.Errorf("%w: presence/present-count mismatch", errs.ErrInternal)
	}

	if err := limits.Check(len(presence.Bytes()), lim.MaxPresenceBytesPerField); err != nil {
		return Segment{}, err
	}

	tagWriter := bitstream.NewTagWriter(len(b.tags))
	for _, t := range b.tags {
		tagWriter.Write(uint8(t))
	}

	if err := limits.Check(len(tagWriter.Bytes()), lim.MaxTagStreamBytesPerField); err != nil {
		return Segment{}, err
	}

	var flags uint64

	var dictBytes []byte

	var dictEntryCount int

	useDict := shouldUseDictionary(distinctTextCount(b.texts), len(b.texts), lim)
	var textIndices []int

	if useDict && len(b.texts) > 0 {
		dict := newDictionary()
		textIndices = make([]int, len(b.texts))

		for i, s := range b.texts {
			textIndices[i] = dict.indexFor(s)
		}

		if err := limits.Check(dict.count(), lim.MaxDictEntriesPerField); err != nil {
			return Segment{}, err
		}

		dictEntryCount = dict.count()
		flags |= 1 // encoding_flags bit 0: dictionary

		for _, s := range dict.entries {
			dictBytes = varint.AppendUvarint(dictBytes, uint64(len(s)))
			dictBytes = append(dictBytes, s...)
		}
	}

	useDelta := shouldUseDelta(b.ints)

	var intBytes []byte
	if useDelta {
		flags |= 2 // encoding_flags bit 1: delta

		intBytes = varint.AppendVarint(intBytes, b.ints[0])
		for i := 1; i < len(b.ints); i++ {
			intBytes = varint.AppendVarint(intBytes, b.ints[i]-b.ints[i-1])
		}
	} else {
		for _, v := range b.ints {
			intBytes = varint.AppendVarint(intBytes, v)
		}
	}

	var boolBytes []byte
	if len(b.bools) > 0 {
		boolBytes = make([]byte, (len(b.bools)+7)/8)
		for i, v := range b.bools {
			if v {
				boolBytes[i/8] |= 1 << uint(i%8)
			}
		}
	}

	var decimalBytes []byte
	for _, d := range b.decimals {
		decimalBytes = append(decimalBytes, d.Bytes()...)
	}

	var stringBytes []byte
	if useDict && len(b.texts) > 0 {
		for _, idx := range textIndices {
			stringBytes = varint.AppendUvarint(stringBytes, uint64(idx))
		}
	} else {
		for _, s := range b.texts {
			stringBytes = varint.AppendUvarint(stringBytes, uint64(len(s)))
			stringBytes = append(stringBytes, s...)
		}
	}

	buf := pool.GetSegmentBuffer()
	defer pool.PutSegmentBuffer(buf)

	buf.MustWrite(presence.Bytes())
	buf.MustWrite(tagWriter.Bytes())
	buf.MustWrite(dictBytes)
	buf.MustWrite(boolBytes)
	buf.MustWrite(intBytes)
	buf.MustWrite(decimalBytes)
	buf.MustWrite(stringBytes)

	if err := limits.Check(buf.Len(), lim.MaxSegmentUncompressed); err != nil {
		return Segment{}, err
	}

	payload := make([]byte, buf.Len())
	copy(payload, buf.Bytes())

	return Segment{
		Payload:                payload,
		PresenceBytes:          len(presence.Bytes()),
		TagBytes:               len(tagWriter.Bytes()),
		ValueCountPresent:      b.presentN,
		EncodingFlags:          flags,
		DictEntryCount:         dictEntryCount,
		SegmentUncompressedLen: len(payload),
	}, nil
}

func distinctTextCount(texts []string) int {
	seen := make(map[string]struct{}, len(texts))
	for _, s := range texts {
		seen[s] = struct{}{}
	}

	return len(seen)
}
