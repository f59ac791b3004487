package column

import (
	"github.com/jac-archive/jac/bitstream"
	"github.com/jac-archive/jac/decimal"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/internal/pool"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
	"github.com/jac-archive/jac/varint"
)

// Decoder holds one field's fully decoded column, indexed by record
// position. Decoding happens once, in Decode, so that At is a plain O(1)
// slice/bitmap lookup (spec §4.6 step 8's "O(1) amortized" requirement,
// satisfied here by amortizing the whole substream walk across the
// decode call rather than per-At).
type Decoder struct {
	recordCount int
	presence    *bitstream.PresenceBitmap
	values      []Value // only entries where presence.Get(i) is meaningful
}

// At returns the value at record index i. The second return is false if
// the field is absent in that record.
func (d *Decoder) At(i int) (Value, bool) {
	if i < 0 || i >= d.recordCount {
		return Value{}, false
	}

	if !d.presence.Get(i) {
		return Value{}, false
	}

	return d.values[i], true
}

// PresentCount returns the number of records in which the field is
// present.
func (d *Decoder) PresentCount() int { return d.presence.PresentCount() }

// Decode parses a field segment's uncompressed payload per spec §4.6.
// recordCount is the block's authoritative record_count (from the block
// header, not re-derived from presence_bytes, since presence_bytes only
// bounds it to a multiple of 8).
func Decode(payload []byte, entry section.DirEntry, recordCount int, lim limits.Limits) (*Decoder, error) {
	wantPresenceBytes := bitstream.PresenceBytes(recordCount)
	if wantPresenceBytes != entry.PresenceBytes {
		return nil, errs.ErrCorruptBlock
	}

	wantTagBytes := bitstream.TagBytes(entry.ValueCountPresent)
	if wantTagBytes != entry.TagBytes {
		return nil, errs.ErrCorruptBlock
	}

	pos := 0

	if pos+entry.PresenceBytes > len(payload) {
		return nil, errs.ErrUnexpectedEOF
	}

	presence := bitstream.ParsePresenceBitmap(payload[pos:pos+entry.PresenceBytes], recordCount)
	pos += entry.PresenceBytes

	if presence.PresentCount() != entry.ValueCountPresent {
		return nil, errs.ErrCorruptBlock
	}

	if pos+entry.TagBytes > len(payload) {
		return nil, errs.ErrUnexpectedEOF
	}

	tagReader := bitstream.NewTagReader(payload[pos : pos+entry.TagBytes])
	pos += entry.TagBytes

	tags := make([]format.ValueTag, entry.ValueCountPresent)

	var (
		boolCount, intCount, decCount, textCount int
	)

	for i := range tags {
		code := tagReader.Next()
		if code == 7 {
			return nil, errs.ErrUnsupportedFeature
		}

		t := format.ValueTag(code)
		if !t.Valid() {
			return nil, errs.ErrUnsupportedFeature
		}

		tags[i] = t

		switch t {
		case format.TagBool:
			boolCount++
		case format.TagInt:
			intCount++
		case format.TagDecimal:
			decCount++
		case format.TagString, format.TagObject, format.TagArray:
			textCount++
		}
	}

	var dictEntries []string

	if entry.HasDictionary() {
		if err := limits.Check(entry.DictEntryCount, lim.MaxDictEntriesPerField); err != nil {
			return nil, err
		}

		dictEntries = make([]string, entry.DictEntryCount)

		for i := range dictEntries {
			strLen, n, err := varint.Uvarint(payload[pos:])
			if err != nil {
				return nil, err
			}

			pos += n

			if err := limits.CheckUint64(strLen, lim.MaxStringLenPerValue); err != nil {
				return nil, err
			}

			if pos+int(strLen) > len(payload) {
				return nil, errs.ErrUnexpectedEOF
			}

			dictEntries[i] = string(payload[pos : pos+int(strLen)])
			pos += int(strLen)
		}
	}

	boolBytes := (boolCount + 7) / 8
	if pos+boolBytes > len(payload) {
		return nil, errs.ErrUnexpectedEOF
	}

	boolSubstream := payload[pos : pos+boolBytes]
	pos += boolBytes

	bools := make([]bool, boolCount)
	for i := range bools {
		bools[i] = boolSubstream[i/8]&(1<<uint(i%8)) != 0
	}

	ints, cleanupInts := pool.GetInt64Slice(intCount)
	defer cleanupInts()

	if entry.HasDelta() {
		if intCount > 0 {
			base, n, err := varint.Varint(payload[pos:])
			if err != nil {
				return nil, err
			}

			pos += n
			ints[0] = base

			for i := 1; i < intCount; i++ {
				d, n, err := varint.Varint(payload[pos:])
				if err != nil {
					return nil, err
				}

				pos += n
				ints[i] = ints[i-1] + d
			}
		}
	} else {
		for i := range ints {
			v, n, err := varint.Varint(payload[pos:])
			if err != nil {
				return nil, err
			}

			pos += n
			ints[i] = v
		}
	}

	decimals := make([]decimal.Decimal, decCount)
	for i := range decimals {
		d, n, err := decimal.Parse(payload[pos:], lim)
		if err != nil {
			return nil, err
		}

		pos += n
		decimals[i] = d
	}

	texts, cleanupTexts := pool.GetStringSlice(textCount)
	defer cleanupTexts()

	if entry.HasDictionary() {
		for i := range texts {
			idx, n, err := varint.Uvarint(payload[pos:])
			if err != nil {
				return nil, err
			}

			pos += n

			if idx >= uint64(len(dictEntries)) {
				return nil, errs.ErrDictionaryError
			}

			texts[i] = dictEntries[idx]
		}
	} else {
		for i := range texts {
			strLen, n, err := varint.Uvarint(payload[pos:])
			if err != nil {
				return nil, err
			}

			pos += n

			if err := limits.CheckUint64(strLen, lim.MaxStringLenPerValue); err != nil {
				return nil, err
			}

			if pos+int(strLen) > len(payload) {
				return nil, errs.ErrUnexpectedEOF
			}

			texts[i] = string(payload[pos : pos+int(strLen)])
			pos += int(strLen)
		}
	}

	values := make([]Value, recordCount)

	var (
		tagIdx, boolIdx, intIdx, decIdx, textIdx int
	)

	for i := 0; i < recordCount; i++ {
		if !presence.Get(i) {
			continue
		}

		t := tags[tagIdx]
		tagIdx++

		switch t {
		case format.TagNull:
			values[i] = Null()
		case format.TagBool:
			values[i] = BoolValue(bools[boolIdx])
			boolIdx++
		case format.TagInt:
			values[i] = IntValue(ints[intIdx])
			intIdx++
		case format.TagDecimal:
			values[i] = DecimalValue(decimals[decIdx])
			decIdx++
		case format.TagString:
			values[i] = StringValue(texts[textIdx])
			textIdx++
		case format.TagObject:
			values[i] = ObjectValue(texts[textIdx])
			textIdx++
		case format.TagArray:
			values[i] = ArrayValue(texts[textIdx])
			textIdx++
		}
	}

	return &Decoder{
		recordCount: recordCount,
		presence:    presence,
		values:      values,
	}, nil
}
