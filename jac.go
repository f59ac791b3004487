// Package jac implements the JAC archival binary container format: a
// compact, columnar encoding for newline-delimited or array-wrapped JSON
// collections, built for cold storage where files are written once and
// read back selectively — by field, not just by record.
//
// # Core Features
//
//   - Columnar per-field segments (presence bitmap, type-tag stream, typed
//     sub-payloads) rather than per-record blobs, so a reader can project a
//     single field without decompressing the rest
//   - Exact decimal representation for JSON numbers that do not fit a
//     signed 64-bit integer — never rounded through a float
//   - Zstandard compression per segment, with dictionary and delta
//     encodings chosen per field from the data itself
//   - CRC32C-protected blocks with an optional trailing footer index for
//     O(1) block lookup, and a best-effort resync mode for partially
//     corrupt files
//   - An opt-in multi-core compression pipeline that produces
//     byte-identical output regardless of worker count
//
// # Basic Usage
//
// Compressing NDJSON into a .jac file:
//
//	src := ingest.NewNDJSONSource(r, limits.Default())
//	req := jac.CompressRequest{
//	    Input:   src,
//	    Output:  w,
//	    Options: jac.DefaultCompressOptions(),
//	    EmitIndex: true,
//	}
//	summary, err := jac.Compress(context.Background(), req)
//
// Decompressing back to NDJSON:
//
//	summary, err := jac.Decompress(jac.DecompressRequest{
//	    Input:   buf,
//	    Output:  w,
//	    Options: jac.DefaultDecompressOptions(),
//	})
//
// Projecting a single field without decoding the rest:
//
//	it, err := jac.Project(jac.ProjectRequest{
//	    Input:     buf,
//	    FieldName: "user",
//	    Options:   jac.DefaultDecompressOptions(),
//	})
//	for i, v := range it {
//	    fmt.Println(i, v)
//	}
//
// # Package Structure
//
// This package provides the engine-exposed entry points named in the
// format's external interfaces: Compress, Decompress, and Project. For
// direct control over the container layout, block admission, or the
// columnar codec, use the block, column, stream, and compress packages.
package jac

import (
	"context"
	"io"
	"iter"
	"runtime"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/ingest"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/pipeline"
	"github.com/jac-archive/jac/section"
	"github.com/jac-archive/jac/stream"
)

// ContainerFormat selects how Decompress and Project interpret a .jac
// file's JSON shape on the way back out.
type ContainerFormat int

const (
	// Auto consults the file header's container hint (flag bits 3-4),
	// defaulting to Ndjson when the header reports Unknown.
	Auto ContainerFormat = iota
	Ndjson
	JsonArray
)

// ParallelOptions configures the optional multi-core compression pipeline
// (spec §4.11). Enabled opts in; the engine still applies its own
// core-count/memory/input-size gate and may run sequentially anyway.
type ParallelOptions struct {
	Enabled      bool
	WorkerCap    int   // user_cap passed to pipeline.WorkerCount; 0 means unlimited
	AvailableRAM int64 // bytes; 0 means unknown and unconstrained
}

// CompressOptions mirrors the CompressRequest.options fields named in the
// format's external interfaces.
type CompressOptions struct {
	BlockTargetRecords int
	DefaultCodec       format.CompressorID
	DefaultLevel       uint8
	CanonicalizeKeys   bool
	// ContainerHint overrides the hint the writer records in the file
	// header; ContainerUnknown means "ask Input.ContainerHint()".
	ContainerHint format.ContainerHint
	Limits        limits.Limits
	Parallel      ParallelOptions
}

// DefaultCompressOptions returns recommended defaults: Zstd at level 3,
// 8192-record blocks, the default limit set, and the parallel pipeline
// disabled (callers opt in explicitly since it trades latency for
// throughput on large inputs only).
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		BlockTargetRecords: 8192,
		DefaultCodec:       format.CompressorZstd,
		DefaultLevel:       3,
		Limits:             limits.Default(),
	}
}

// CompressRequest is the engine-exposed Compress entry point's input.
type CompressRequest struct {
	Input     ingest.Source
	Output    io.Writer
	Options   CompressOptions
	EmitIndex bool
}

// FieldMetric reports one field's write-side counters.
type FieldMetric struct {
	RecordsWritten int
}

// CompressSummary reports the aggregated counters a CompressRequest
// produces.
type CompressSummary struct {
	RecordsWritten int
	BlocksWritten  int
	BytesWritten   int64
	PerField       map[string]FieldMetric
	// ParallelDecision reports whether the pipeline actually engaged;
	// false whenever ParallelOptions.Enabled was false or the pipeline's
	// own gate (cores, memory, input size) rejected parallelizing.
	ParallelDecision bool
}

// Compress drives req.Input to completion against a stream.Writer wrapping
// req.Output, engaging the parallel pipeline when req.Options.Parallel
// opts in and the pipeline's own heuristics agree it is worthwhile.
func Compress(ctx context.Context, req CompressRequest) (CompressSummary, error) {
	opts := req.Options

	hint := opts.ContainerHint
	if hint == format.ContainerUnknown {
		hint = req.Input.ContainerHint()
	}

	hdr := section.NewFileHeader(hint)
	hdr.DefaultCompressor = opts.DefaultCodec
	hdr.DefaultCompressionLevel = opts.DefaultLevel

	if opts.CanonicalizeKeys {
		hdr.Flags |= section.FlagCanonicalizeKeys
	}

	w, err := stream.NewWriter(req.Output, hdr, opts.Limits, opts.BlockTargetRecords)
	if err != nil {
		return CompressSummary{}, err
	}

	pOpts := pipeline.Options{
		Lim:               opts.Limits,
		TargetRecords:     opts.BlockTargetRecords,
		DefaultCompressor: opts.DefaultCodec,
		DefaultLevel:      opts.DefaultLevel,
		CanonicalizeKeys:  opts.CanonicalizeKeys,
		WorkerCap:         opts.Parallel.WorkerCap,
	}

	parallelDecision := false

	if opts.Parallel.Enabled {
		cores := runtime.NumCPU()
		if pipeline.ShouldParallelize(cores, opts.Parallel.AvailableRAM, pOpts) {
			parallelDecision = true
			workers := pipeline.WorkerCount(cores, opts.Parallel.AvailableRAM, pOpts)

			if err := pipeline.Run(ctx, req.Input.Next, w, workers, pOpts); err != nil {
				return CompressSummary{}, err
			}
		}
	}

	if !parallelDecision {
		if err := runSequential(req.Input, w); err != nil {
			return CompressSummary{}, err
		}
	}

	metrics, err := w.Finish(req.EmitIndex)
	if err != nil {
		return CompressSummary{}, err
	}

	return toSummary(metrics, parallelDecision), nil
}

func runSequential(src ingest.Source, w *stream.Writer) error {
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if err := w.WriteRecord(rec); err != nil {
			return err
		}
	}
}

func toSummary(metrics stream.Metrics, parallelDecision bool) CompressSummary {
	perField := make(map[string]FieldMetric, len(metrics.PerField))
	for name, fm := range metrics.PerField {
		perField[name] = FieldMetric{RecordsWritten: fm.RecordsWritten}
	}

	return CompressSummary{
		RecordsWritten:   metrics.RecordsWritten,
		BlocksWritten:    metrics.BlocksWritten,
		BytesWritten:     metrics.BytesWritten,
		PerField:         perField,
		ParallelDecision: parallelDecision,
	}
}

// DecompressOptions configures the read side shared by Decompress and
// Project.
type DecompressOptions struct {
	Format          ContainerFormat
	Limits          limits.Limits
	StrictMode      bool
	VerifyChecksums bool
}

// DefaultDecompressOptions returns strict-mode, checksum-verifying
// defaults with Auto container detection.
func DefaultDecompressOptions() DecompressOptions {
	return DecompressOptions{
		Limits:          limits.Default(),
		StrictMode:      true,
		VerifyChecksums: true,
	}
}

// DecompressRequest is the engine-exposed Decompress entry point's input.
// Input must be the whole file's bytes: the reader needs random access to
// locate and validate the trailing footer, not just a forward stream.
type DecompressRequest struct {
	Input   []byte
	Output  io.Writer
	Options DecompressOptions
}

// DecompressSummary reports the read-side counters a DecompressRequest
// produces.
type DecompressSummary struct {
	RecordsRead int
	BlocksRead  int
}

// Decompress fully decodes req.Input and renders every record back to
// JSON on req.Output, in the container shape req.Options.Format selects
// (or the file header's recorded hint, under Auto).
func Decompress(req DecompressRequest) (DecompressSummary, error) {
	r, err := stream.NewReader(req.Input, req.Options.Limits, req.Options.StrictMode, req.Options.VerifyChecksums)
	if err != nil {
		return DecompressSummary{}, err
	}

	sink := newSink(req.Output, resolveFormat(req.Options.Format, r.Header()))

	var summary DecompressSummary

	err = r.Blocks(func(_ stream.BlockHandle, dec *block.Decoder) error {
		if err := dec.DecodeAll(); err != nil {
			return err
		}

		for i := 0; i < dec.RecordCount(); i++ {
			rec, err := dec.RecordAt(i)
			if err != nil {
				return err
			}

			if err := sink.WriteRecord(rec); err != nil {
				return err
			}

			summary.RecordsRead++
		}

		summary.BlocksRead++

		return nil
	})
	if err != nil {
		return summary, err
	}

	if err := sink.Close(); err != nil {
		return summary, err
	}

	return summary, nil
}

func resolveFormat(want ContainerFormat, hdr section.FileHeader) ContainerFormat {
	if want != Auto {
		return want
	}

	if hdr.ContainerHint() == format.ContainerJSONArray {
		return JsonArray
	}

	return Ndjson
}

func newSink(w io.Writer, f ContainerFormat) ingest.Sink {
	if f == JsonArray {
		return ingest.NewJSONArraySink(w)
	}

	return ingest.NewNDJSONSink(w)
}

// ProjectRequest is the engine-exposed Project entry point's input:
// symmetric with DecompressRequest but names a single field rather than
// an output sink.
type ProjectRequest struct {
	Input     []byte
	FieldName string
	Options   DecompressOptions
}

// Project decodes only the named field across every block of req.Input
// and returns an iterator over (record_index, value) pairs in file order,
// skipping records where the field is absent — the "Option<Value>" of
// the format's projection contract collapses to "present, so yielded" in
// this Go rendering, matching the closed-set iterator idiom the engine
// uses elsewhere (block decode errors surface from Project itself, before
// the returned iterator's first step, so the iterator can never fail
// mid-range).
func Project(req ProjectRequest) (iter.Seq2[int, column.Value], error) {
	r, err := stream.NewReader(req.Input, req.Options.Limits, req.Options.StrictMode, req.Options.VerifyChecksums)
	if err != nil {
		return nil, err
	}

	type slot struct {
		present bool
		value   column.Value
	}

	var slots []slot

	err = r.Blocks(func(_ stream.BlockHandle, dec *block.Decoder) error {
		col, err := dec.Field(req.FieldName)
		if err != nil {
			return err
		}

		for i := 0; i < dec.RecordCount(); i++ {
			if col == nil {
				slots = append(slots, slot{})
				continue
			}

			v, present := col.At(i)
			slots = append(slots, slot{present: present, value: v})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return func(yield func(int, column.Value) bool) {
		for i, s := range slots {
			if !s.present {
				continue
			}

			if !yield(i, s.value) {
				return
			}
		}
	}, nil
}
