// Package pipeline implements the parallel compression topology (spec
// §4.11): one sequential builder stage consuming the record stream, N
// concurrent compressor workers, and one writer stage that reassembles
// blocks into file order via a reorder buffer keyed by a monotonic block
// index. The whole run shares a single error slot via
// golang.org/x/sync/errgroup — the pack's only errgroup-style
// concurrency dependency — so any stage's failure cancels the others.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/stream"
)

// Producer supplies the next record for the builder stage to consume.
// It returns io.EOF once exhausted. Implementations are called from a
// single goroutine and need not be safe for concurrent use.
type Producer func() (block.Record, error)

// Options configures a parallel compression run.
type Options struct {
	Lim               limits.Limits
	TargetRecords     int
	DefaultCompressor format.CompressorID
	DefaultLevel      uint8
	CanonicalizeKeys  bool
	WorkerCap         int   // user_cap; 0 means unlimited
	InputSizeHint     int64 // bytes, 0 if unknown
}

const minParallelInputBytes = 10 * 1024 * 1024

// WorkerCount applies spec §4.11's formula:
// min(cores, floor(0.75*availableRAM / (2*max_block_uncompressed_total)), user_cap, 16).
// availableRAM <= 0 means unknown and is not used to bound the count.
func WorkerCount(cores int, availableRAM int64, opts Options) int {
	n := cores
	if n < 1 {
		n = 1
	}

	if availableRAM > 0 && opts.Lim.MaxBlockUncompressed > 0 {
		byRAM := int(0.75 * float64(availableRAM) / float64(2*opts.Lim.MaxBlockUncompressed))
		if byRAM < n {
			n = byRAM
		}
	}

	if opts.WorkerCap > 0 && opts.WorkerCap < n {
		n = opts.WorkerCap
	}

	if n > 16 {
		n = 16
	}

	if n < 1 {
		n = 1
	}

	return n
}

// ShouldParallelize applies spec §4.11's engagement gate: at least two
// cores, a resulting worker count above 1, and — when an input size hint
// is available — at least ~10 MiB of input. Below any of these the
// caller should run the builder stage directly against stream.Writer
// instead of standing up the pipeline.
func ShouldParallelize(cores int, availableRAM int64, opts Options) bool {
	if cores < 2 {
		return false
	}

	if opts.InputSizeHint > 0 && opts.InputSizeHint < minParallelInputBytes {
		return false
	}

	return WorkerCount(cores, availableRAM, opts) > 1
}

type indexedBuilder struct {
	idx int
	b   *block.Builder
}

type indexedBlock struct {
	idx         int
	raw         []byte
	recordCount int
}

// Run drives records through the builder stage, workers compressor
// goroutines, and an in-order writer onto w. It returns the first error
// encountered by any stage; on error, in-flight work in the other stages
// is abandoned via ctx cancellation rather than drained.
//
// Determinism (spec §4.11's contract): field ordering within a block is
// decided entirely inside block.Builder, independent of how many workers
// compress it, dictionaries are built in first-occurrence order, and
// compress.ZstdCodec always uses a single-threaded encoder — so the
// bytes written here are identical to a sequential run with workers=1.
func Run(ctx context.Context, next Producer, w *stream.Writer, workers int, opts Options) error {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)

	prepared := make(chan indexedBuilder, workers)
	compressed := make(chan indexedBlock, workers)

	g.Go(func() error { return runBuilderStage(ctx, next, prepared, opts) })

	var workerWG sync.WaitGroup

	workerWG.Add(workers)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			defer workerWG.Done()
			return runCompressorStage(ctx, prepared, compressed)
		})
	}

	g.Go(func() error {
		workerWG.Wait()
		close(compressed)

		return nil
	})

	g.Go(func() error { return runWriterStage(compressed, w) })

	return g.Wait()
}

// runBuilderStage pulls records sequentially from next — admission
// control must see them in order — and emits each completed block with a
// monotonic index as soon as it fills, closing prepared when next is
// exhausted. Calling next directly, rather than selecting on a channel
// fed by some other goroutine, means the only blocking operation this
// stage performs outside of ctx-aware sends is owned entirely by its own
// errgroup-managed goroutine — there is no separate producer goroutine
// left stranded watching an outer context that this stage's errgroup
// never cancels.
func runBuilderStage(ctx context.Context, next Producer, prepared chan<- indexedBuilder, opts Options) error {
	defer close(prepared)

	idx := 0
	b := newBuilder(opts)

	emit := func() error {
		if b.IsEmpty() {
			return nil
		}

		select {
		case prepared <- indexedBuilder{idx: idx, b: b}:
			idx++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := next()
		if err == io.EOF {
			return emit()
		}

		if err != nil {
			return err
		}

		res, err := b.TryAddRecord(rec)
		if err != nil {
			return err
		}

		if res == block.BlockFull {
			if err := emit(); err != nil {
				return err
			}

			b = newBuilder(opts)

			res, err = b.TryAddRecord(rec)
			if err != nil {
				return err
			}

			if res != block.Added {
				return fmt.Errorf("%w: record rejected by a freshly started block", errs.ErrInternal)
			}
		}
	}
}

func newBuilder(opts Options) *block.Builder {
	return block.NewBuilder(opts.Lim, opts.TargetRecords, opts.DefaultCompressor, opts.DefaultLevel, opts.CanonicalizeKeys)
}

// runCompressorStage finalizes and compresses whichever prepared blocks
// this worker pulls off the shared channel; block order across workers
// is unconstrained; the writer stage restores it.
func runCompressorStage(ctx context.Context, prepared <-chan indexedBuilder, compressed chan<- indexedBlock) error {
	for {
		var (
			pb indexedBuilder
			ok bool
		)

		select {
		case pb, ok = <-prepared:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		recordCount := pb.b.RecordCount()

		raw, err := pb.b.Finish()
		if err != nil {
			return err
		}

		select {
		case compressed <- indexedBlock{idx: pb.idx, raw: raw, recordCount: recordCount}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runWriterStage reassembles compressed blocks into index order using a
// reorder buffer before handing each one to w.WriteCompressedBlock,
// preserving the input-order writing guarantee (spec §5) despite
// out-of-order compressor completion.
func runWriterStage(compressed <-chan indexedBlock, w *stream.Writer) error {
	pending := make(map[int]indexedBlock)
	next := 0

	for ib := range compressed {
		pending[ib.idx] = ib

		for {
			blk, ok := pending[next]
			if !ok {
				break
			}

			if err := w.WriteCompressedBlock(blk.raw, blk.recordCount); err != nil {
				return err
			}

			delete(pending, next)

			next++
		}
	}

	if len(pending) != 0 {
		return fmt.Errorf("%w: pipeline ended with %d unwritten reordered blocks", errs.ErrInternal, len(pending))
	}

	return nil
}
