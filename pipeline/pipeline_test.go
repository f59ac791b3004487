package pipeline_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/pipeline"
	"github.com/jac-archive/jac/section"
	"github.com/jac-archive/jac/stream"
)

func runPipeline(t *testing.T, workers, targetRecords, n int) []byte {
	t.Helper()

	lim := limits.Default()
	hdr := section.NewFileHeader(format.ContainerNdjson)
	hdr.DefaultCompressor = format.CompressorNone

	var buf bytes.Buffer

	w, err := stream.NewWriter(&buf, hdr, lim, targetRecords)
	require.NoError(t, err)

	i := 0
	next := func() (block.Record, error) {
		if i >= n {
			return nil, io.EOF
		}

		rec := block.Record{{Name: "n", Value: column.IntValue(int64(i))}}
		i++

		return rec, nil
	}

	opts := pipeline.Options{
		Lim:               lim,
		TargetRecords:     targetRecords,
		DefaultCompressor: format.CompressorNone,
	}

	require.NoError(t, pipeline.Run(context.Background(), next, w, workers, opts))

	_, err = w.Finish(true)
	require.NoError(t, err)

	return buf.Bytes()
}

func TestPipelineIsDeterministicAcrossWorkerCounts(t *testing.T) {
	out1 := runPipeline(t, 1, 3, 37)
	out4 := runPipeline(t, 4, 3, 37)
	out8 := runPipeline(t, 8, 3, 37)

	require.Equal(t, out1, out4)
	require.Equal(t, out1, out8)
}

func TestPipelineRoundTripsAllRecords(t *testing.T) {
	raw := runPipeline(t, 4, 5, 23)

	lim := limits.Default()
	r, err := stream.NewReader(raw, lim, true, true)
	require.NoError(t, err)

	var got []int64

	err = r.Blocks(func(_ stream.BlockHandle, dec *block.Decoder) error {
		col, ferr := dec.Field("n")
		if ferr != nil {
			return ferr
		}

		for i := 0; i < dec.RecordCount(); i++ {
			if v, present := col.At(i); present {
				got = append(got, v.Int)
			}
		}

		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 23)
}

func TestWorkerCountRespectsCapAndCeiling(t *testing.T) {
	opts := pipeline.Options{Lim: limits.Default(), WorkerCap: 3}
	require.Equal(t, 3, pipeline.WorkerCount(32, 0, opts))

	opts = pipeline.Options{Lim: limits.Default()}
	require.Equal(t, 16, pipeline.WorkerCount(64, 0, opts))
}

func TestShouldParallelizeRejectsSmallInput(t *testing.T) {
	opts := pipeline.Options{Lim: limits.Default(), InputSizeHint: 1024}
	require.False(t, pipeline.ShouldParallelize(8, 0, opts))
}
