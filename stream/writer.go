// Package stream implements the file-level writer and reader (spec §4.9,
// §4.10): the file header, the running block index, sequential block
// flush, the optional trailing footer, and block iteration with
// best-effort resync.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/crc32c"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
)

// FieldMetrics aggregates one field's write counters across a Writer's
// lifetime.
type FieldMetrics struct {
	RecordsWritten int
}

// Metrics aggregates a Writer's running totals, surfaced in a
// CompressSummary.
type Metrics struct {
	RecordsWritten int
	BlocksWritten  int
	BytesWritten   int64
	PerField       map[string]*FieldMetrics
}

// Writer owns an output sink, the file header, the in-progress block
// builder, and the running block index used to emit an optional footer
// (spec §4.9).
type Writer struct {
	out               io.Writer
	lim               limits.Limits
	targetRecords     int
	defaultCompressor format.CompressorID
	defaultLevel      uint8
	canonicalizeKeys  bool

	builder  *block.Builder
	index    []section.FooterEntry
	offset   int64
	metrics  Metrics
	finished bool
}

// NewWriter writes hdr to out and returns a Writer ready to accept
// records. If lim.MaxSegmentUncompressed exceeds the spec's default
// ceiling, the override is recorded in hdr's user_metadata (spec §4.1)
// so a reader adopts the same raised ceiling for this file.
func NewWriter(out io.Writer, hdr section.FileHeader, lim limits.Limits, targetRecords int) (*Writer, error) {
	if lim.MaxSegmentUncompressed > limits.DefaultMaxSegmentUncompressed {
		hdr.SetSegmentMaxBytesOverride(lim.MaxSegmentUncompressed)
	}

	n, err := out.Write(hdr.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	w := &Writer{
		out:               out,
		lim:               lim,
		targetRecords:     targetRecords,
		defaultCompressor: hdr.DefaultCompressor,
		defaultLevel:      hdr.DefaultCompressionLevel,
		canonicalizeKeys:  hdr.CanonicalizeKeys(),
		offset:            int64(n),
		metrics:           Metrics{PerField: make(map[string]*FieldMetrics)},
	}
	w.builder = w.newBuilder()

	return w, nil
}

func (w *Writer) newBuilder() *block.Builder {
	return block.NewBuilder(w.lim, w.targetRecords, w.defaultCompressor, w.defaultLevel, w.canonicalizeKeys)
}

// WriteRecord drives the in-progress block builder's admission control,
// flushing and starting a fresh block on BlockFull before retrying rec
// against it (spec §4.9).
func (w *Writer) WriteRecord(rec block.Record) error {
	if w.finished {
		return fmt.Errorf("%w: write after Finish", errs.ErrInternal)
	}

	res, err := w.builder.TryAddRecord(rec)
	if err != nil {
		return err
	}

	if res != block.Added {
		if err := w.FlushBlock(); err != nil {
			return err
		}

		res, err = w.builder.TryAddRecord(rec)
		if err != nil {
			return err
		}

		if res != block.Added {
			return fmt.Errorf("%w: record rejected by a freshly flushed block", errs.ErrInternal)
		}
	}

	w.trackFieldMetrics(rec)

	return nil
}

func (w *Writer) trackFieldMetrics(rec block.Record) {
	for _, f := range rec {
		fm, ok := w.metrics.PerField[f.Name]
		if !ok {
			fm = &FieldMetrics{}
			w.metrics.PerField[f.Name] = fm
		}

		fm.RecordsWritten++
	}

	w.metrics.RecordsWritten++
}

// FlushBlock finalizes, compresses, and writes the in-progress block,
// then starts a fresh one. It is a no-op on an empty builder.
func (w *Writer) FlushBlock() error {
	if w.builder.IsEmpty() {
		return nil
	}

	raw, err := w.builder.Finish()
	if err != nil {
		return err
	}

	recordCount := w.builder.RecordCount()
	w.builder = w.newBuilder()

	return w.writeCompressedBlock(raw, recordCount)
}

// WriteCompressedBlock writes an already prepared-and-compressed block's
// bytes directly, bypassing the in-process builder — the entry point the
// parallel pipeline uses so that index and metrics bookkeeping stay
// centralized in the writer (spec §4.9). recordCount is added to
// RecordsWritten; PerField is not updated on this path, since only the
// encoded block is seen here.
func (w *Writer) WriteCompressedBlock(raw []byte, recordCount int) error {
	if w.finished {
		return fmt.Errorf("%w: write after Finish", errs.ErrInternal)
	}

	if err := w.writeCompressedBlock(raw, recordCount); err != nil {
		return err
	}

	w.metrics.RecordsWritten += recordCount

	return nil
}

func (w *Writer) writeCompressedBlock(raw []byte, recordCount int) error {
	n, err := w.out.Write(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	w.index = append(w.index, section.FooterEntry{
		Offset:      uint64(w.offset),
		Size:        uint64(n),
		RecordCount: uint64(recordCount),
	})

	w.offset += int64(n)
	w.metrics.BlocksWritten++
	w.metrics.BytesWritten += int64(n)

	return nil
}

// Finish flushes any residual block, optionally emits the index footer
// and its trailing absolute pointer, and marks the writer done. Further
// writes return an error. If Finish is never called, the caller has
// discarded a writer that may hold a buffered, never-written block —
// callers SHOULD always call Finish before dropping a Writer.
func (w *Writer) Finish(emitIndex bool) (Metrics, error) {
	if w.finished {
		return w.metrics, fmt.Errorf("%w: writer already finished", errs.ErrInternal)
	}

	if err := w.FlushBlock(); err != nil {
		return w.metrics, err
	}

	if emitIndex {
		if err := w.writeFooter(); err != nil {
			return w.metrics, err
		}
	}

	w.finished = true

	return w.metrics, nil
}

func (w *Writer) writeFooter() error {
	footerOffset := w.offset

	footer := section.Footer{Entries: w.index}
	footerBytes := footer.Bytes()

	digest := crc32c.NewDigest()
	digest.Write(footerBytes) //nolint:errcheck // Digest.Write never errors

	out := append(footerBytes, u32le(digest.Sum32())...)
	out = append(out, u64le(uint64(footerOffset))...)

	n, err := w.out.Write(out)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	w.offset += int64(n)

	return nil
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)

	return b
}
