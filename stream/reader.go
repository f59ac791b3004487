package stream

import (
	"encoding/binary"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/crc32c"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
)

// BlockHandle references one block's byte range within a fully buffered
// file. It does not alias any Reader-owned state, so handles remain
// valid for the life of the underlying buffer.
type BlockHandle struct {
	Offset int
	Size   int
}

// Reader validates a file header and iterates its blocks (spec §4.10).
// It operates over a fully buffered byte slice rather than a seekable
// stream: block offsets are either known from a trailing footer or
// derived by walking headers sequentially.
type Reader struct {
	buf             []byte
	header          section.FileHeader
	lim             limits.Limits
	strictMode      bool
	verifyChecksums bool
	index           []section.FooterEntry // non-nil only if a footer was found and validated
	blocksStart     int
	blocksEnd       int
}

// NewReader validates buf's file header and, if present, its trailing
// footer, and returns a Reader ready to iterate blocks. If hdr records a
// segment_max_bytes override (spec §4.1), lim.MaxSegmentUncompressed is
// raised to match before any block is decoded, bounded by
// limits.AbsoluteMaxSegmentUncompressed regardless of what the file
// claims.
func NewReader(buf []byte, lim limits.Limits, strictMode, verifyChecksums bool) (*Reader, error) {
	hdr, n, err := section.ParseFileHeader(buf)
	if err != nil {
		return nil, err
	}

	if override, ok := hdr.SegmentMaxBytesOverride(); ok {
		if override > limits.AbsoluteMaxSegmentUncompressed {
			override = limits.AbsoluteMaxSegmentUncompressed
		}

		if override > lim.MaxSegmentUncompressed {
			lim.MaxSegmentUncompressed = override
		}
	}

	r := &Reader{
		buf:             buf,
		header:          hdr,
		lim:             lim,
		strictMode:      strictMode,
		verifyChecksums: verifyChecksums,
		blocksStart:     n,
		blocksEnd:       len(buf),
	}

	r.tryLoadFooter()

	return r, nil
}

// Header returns the validated file header.
func (r *Reader) Header() section.FileHeader { return r.header }

// Index reports whether a trailing footer was found and loaded.
func (r *Reader) Index() ([]section.FooterEntry, bool) { return r.index, r.index != nil }

// tryLoadFooter inspects the trailing 8 bytes for a footer pointer and,
// if the pointed-to bytes parse as a footer, trims blocksEnd so Blocks()
// does not walk into the footer itself; the footer's entries become the
// index only if its CRC32C also matches. A malformed, corrupt, or absent
// footer is not an error — the file is still fully readable by walking
// block headers sequentially;
// this mirrors block.NewDecoder's verifyChecksums toggle rather than
// always requiring a match, so a trusted-source fast path can skip it.
func (r *Reader) tryLoadFooter() {
	if len(r.buf) < r.blocksStart+8 {
		return
	}

	pointer := binary.LittleEndian.Uint64(r.buf[len(r.buf)-8:])
	if pointer < uint64(r.blocksStart) || pointer > uint64(len(r.buf)-8) {
		return
	}

	body := r.buf[pointer : len(r.buf)-8]

	footer, n, err := section.ParseFooter(body, r.lim)
	if err != nil {
		return
	}

	// The pointer lands on a structurally valid footer, so the block
	// region ends there even if the footer's CRC check below fails.
	r.blocksEnd = int(pointer)

	if r.verifyChecksums {
		if n+section.CRCSize > len(body) {
			return
		}

		want := binary.LittleEndian.Uint32(body[n : n+section.CRCSize])
		if !crc32c.Verify(crc32c.Checksum(body[:n]), want) {
			return
		}
	}

	r.index = footer.Entries
}

// Blocks decodes each block in file order, invoking fn with a handle and
// the block's Decoder. Iteration stops at the first error fn returns. In
// strict mode (the default), the first block decode error aborts
// iteration; otherwise a failed block triggers a best-effort forward
// byte scan for the next BLK1 magic before resuming (spec §4.10).
func (r *Reader) Blocks(fn func(BlockHandle, *block.Decoder) error) error {
	pos := r.blocksStart

	for pos < r.blocksEnd {
		dec, err := block.NewDecoder(r.buf[pos:r.blocksEnd], r.lim, r.verifyChecksums)
		if err != nil {
			if r.strictMode {
				return err
			}

			next, ok := resync(r.buf, pos+1, r.blocksEnd)
			if !ok {
				return err
			}

			pos = next

			continue
		}

		size := dec.Size()
		if err := fn(BlockHandle{Offset: pos, Size: size}, dec); err != nil {
			return err
		}

		pos += size
	}

	return nil
}

// resync scans buf[from:limit) for the next BLK1 magic, returning its
// offset, or false if none remains. Best-effort: a byte sequence that
// coincidentally matches the magic produces a false positive.
func resync(buf []byte, from, limit int) (int, bool) {
	magic := section.BlockMagic

	for pos := from; pos+len(magic) <= limit; pos++ {
		if buf[pos] == magic[0] && buf[pos+1] == magic[1] && buf[pos+2] == magic[2] && buf[pos+3] == magic[3] {
			return pos, true
		}
	}

	return 0, false
}

// ProjectField decodes only the named field's column within the block at
// handle, decompressing no other segment. It returns (nil, nil) if the
// field is absent from that block's directory.
func (r *Reader) ProjectField(handle BlockHandle, fieldName string) (*column.Decoder, error) {
	dec, err := block.NewDecoder(r.buf[handle.Offset:handle.Offset+handle.Size], r.lim, r.verifyChecksums)
	if err != nil {
		return nil, err
	}

	return dec.Field(fieldName)
}
