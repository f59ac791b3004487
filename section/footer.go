package section

import (
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/varint"
)

// FooterEntry is one block's coordinates in the optional trailing index
// (spec §4.9, §6).
type FooterEntry struct {
	Offset      uint64
	Size        uint64
	RecordCount uint64
}

// Footer is the optional trailing block index: "IDX1", an entry per
// block, and its own CRC32C (computed by the caller over the encoded
// bytes, per stream.Writer.Finish).
type Footer struct {
	Entries []FooterEntry
}

// Bytes encodes the footer body (magic, index_len, block_count, entries)
// without the trailing CRC — the writer appends that separately since it
// covers exactly these bytes.
func (f Footer) Bytes() []byte {
	body := make([]byte, 0, len(f.Entries)*24+8)
	body = varint.AppendUvarint(body, uint64(len(f.Entries)))

	for _, e := range f.Entries {
		body = varint.AppendUvarint(body, e.Offset)
		body = varint.AppendUvarint(body, e.Size)
		body = varint.AppendUvarint(body, e.RecordCount)
	}

	out := make([]byte, 0, 4+varint.Len(uint64(len(body)))+len(body))
	out = append(out, FooterMagic[:]...)
	out = varint.AppendUvarint(out, uint64(len(body)))
	out = append(out, body...)

	return out
}

// ParseFooter decodes a Footer (without its trailing CRC) from the front
// of buf. The caller is responsible for verifying the CRC32C that follows
// the returned byte count.
func ParseFooter(buf []byte, lim limits.Limits) (Footer, int, error) {
	if len(buf) < 4 {
		return Footer{}, 0, errs.ErrUnexpectedEOF
	}

	if buf[0] != FooterMagic[0] || buf[1] != FooterMagic[1] || buf[2] != FooterMagic[2] || buf[3] != FooterMagic[3] {
		return Footer{}, 0, errs.ErrInvalidMagic
	}

	pos := 4

	indexLen, n, err := varint.Uvarint(buf[pos:])
	if err != nil {
		return Footer{}, 0, err
	}

	pos += n
	bodyStart := pos

	if uint64(len(buf)-pos) < indexLen {
		return Footer{}, 0, errs.ErrUnexpectedEOF
	}

	blockCount, n, err := varint.Uvarint(buf[pos:])
	if err != nil {
		return Footer{}, 0, err
	}

	pos += n

	if err := limits.CheckUint64(blockCount, 1<<24); err != nil {
		return Footer{}, 0, err
	}

	f := Footer{Entries: make([]FooterEntry, 0, blockCount)}

	for i := uint64(0); i < blockCount; i++ {
		var e FooterEntry

		e.Offset, n, err = varint.Uvarint(buf[pos:])
		if err != nil {
			return Footer{}, 0, err
		}

		pos += n

		e.Size, n, err = varint.Uvarint(buf[pos:])
		if err != nil {
			return Footer{}, 0, err
		}

		pos += n

		e.RecordCount, n, err = varint.Uvarint(buf[pos:])
		if err != nil {
			return Footer{}, 0, err
		}

		pos += n

		f.Entries = append(f.Entries, e)
	}

	return f, bodyStart + int(indexLen), nil
}
