package block

import (
	"encoding/binary"
	"fmt"

	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/compress"
	"github.com/jac-archive/jac/crc32c"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
)

// Decoder validates and exposes a single block's fields for decoding
// (spec §4.8): header parse, pre-allocation guard, CRC32C verification,
// then lazy per-field column decoding.
type Decoder struct {
	header  section.BlockHeader
	raw     []byte // header_bytes || segments, up to (not including) the CRC trailer
	lim     limits.Limits
	columns map[string]*column.Decoder
}

// NewDecoder parses buf's block header, bounds-checks every directory
// entry's segment against buf's actual length, and — unless
// verifyChecksum is false for a trusted-source fast path — verifies the
// trailing CRC32C before returning. buf may extend past this block; only
// the bytes belonging to this block are consulted.
func NewDecoder(buf []byte, lim limits.Limits, verifyChecksum bool) (*Decoder, error) {
	header, headerLen, err := section.ParseBlockHeader(buf, lim)
	if err != nil {
		return nil, err
	}

	blockEnd := headerLen
	for _, e := range header.Entries {
		if end := e.SegmentOffset + e.SegmentCompressedLen; end > blockEnd {
			blockEnd = end
		}
	}

	if blockEnd+section.CRCSize > len(buf) {
		return nil, errs.ErrUnexpectedEOF
	}

	if verifyChecksum {
		digest := crc32c.NewDigest()
		digest.Write(buf[:blockEnd]) //nolint:errcheck // Digest.Write never errors

		want := binary.LittleEndian.Uint32(buf[blockEnd : blockEnd+section.CRCSize])
		if !crc32c.Verify(digest.Sum32(), want) {
			return nil, errs.ErrChecksumMismatch
		}
	}

	return &Decoder{
		header:  header,
		raw:     buf[:blockEnd],
		lim:     lim,
		columns: make(map[string]*column.Decoder),
	}, nil
}

// Size returns the total encoded size of this block, header through the
// CRC trailer, so callers can advance a stream cursor.
func (d *Decoder) Size() int { return len(d.raw) + section.CRCSize }

// RecordCount returns the block's total record count, present or absent.
func (d *Decoder) RecordCount() int { return d.header.RecordCount }

// Fields returns the directory's field names, in on-disk order.
func (d *Decoder) Fields() []string {
	names := make([]string, len(d.header.Entries))
	for i, e := range d.header.Entries {
		names[i] = e.FieldName
	}

	return names
}

// Field decodes (and caches) the named field's column. It returns
// (nil, nil) if the field is absent from this block's directory — every
// record is then treated as not having that field.
func (d *Decoder) Field(name string) (*column.Decoder, error) {
	if cd, ok := d.columns[name]; ok {
		return cd, nil
	}

	for _, e := range d.header.Entries {
		if e.FieldName == name {
			return d.decodeField(e)
		}
	}

	return nil, nil
}

// decodeField enforces the pre-allocation guard (spec §4.6 step 1) before
// decompressing, then hands the uncompressed payload to column.Decode.
func (d *Decoder) decodeField(e section.DirEntry) (*column.Decoder, error) {
	if err := limits.Check(e.SegmentUncompressedLen, d.lim.MaxSegmentUncompressed); err != nil {
		return nil, err
	}

	if e.SegmentOffset+e.SegmentCompressedLen > len(d.raw) {
		return nil, errs.ErrUnexpectedEOF
	}

	codec, err := compress.GetCodec(e.Compressor)
	if err != nil {
		return nil, err
	}

	compressed := d.raw[e.SegmentOffset : e.SegmentOffset+e.SegmentCompressedLen]

	payload, err := codec.Decompress(compressed, e.SegmentUncompressedLen)
	if err != nil {
		return nil, err
	}

	dec, err := column.Decode(payload, e, d.header.RecordCount, d.lim)
	if err != nil {
		return nil, err
	}

	d.columns[e.FieldName] = dec

	return dec, nil
}

// DecodeAll decodes every field's column, used for full-row
// materialization rather than single-field projection.
func (d *Decoder) DecodeAll() error {
	for _, e := range d.header.Entries {
		if _, err := d.decodeField(e); err != nil {
			return err
		}
	}

	return nil
}

// RecordAt reconstructs record i as an ordered Record, consulting every
// field in on-disk directory order and omitting fields absent at i. Call
// DecodeAll first; RecordAt does not decode a field on demand, since a
// caller materializing every record would otherwise re-walk the directory
// per row.
func (d *Decoder) RecordAt(i int) (Record, error) {
	if i < 0 || i >= d.header.RecordCount {
		return nil, fmt.Errorf("%w: record index %d out of range", errs.ErrInternal, i)
	}

	rec := make(Record, 0, len(d.header.Entries))

	for _, e := range d.header.Entries {
		cd, ok := d.columns[e.FieldName]
		if !ok {
			return nil, fmt.Errorf("%w: field %q not decoded before RecordAt", errs.ErrInternal, e.FieldName)
		}

		v, present := cd.At(i)
		if !present {
			continue
		}

		rec = append(rec, Field{Name: e.FieldName, Value: v})
	}

	return rec, nil
}
