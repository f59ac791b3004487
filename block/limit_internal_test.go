package block

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
)

// TestDecodeFieldRejectsOversizedSegmentBeforeDecompressing covers
// scenario S4: a directory entry claiming a 2^32-byte uncompressed
// segment must fail with ErrLimitExceeded at decodeField's pre-allocation
// guard, before the codec is even looked up — not after a multi-gigabyte
// decompression attempt.
func TestDecodeFieldRejectsOversizedSegmentBeforeDecompressing(t *testing.T) {
	lim := limits.Default()

	d := &Decoder{
		lim:     lim,
		raw:     make([]byte, 16),
		columns: make(map[string]*column.Decoder),
	}

	entry := section.DirEntry{
		FieldName:              "huge",
		SegmentUncompressedLen: 1 << 32,
		SegmentCompressedLen:   8,
		SegmentOffset:          0,
	}

	_, err := d.decodeField(entry)
	require.ErrorIs(t, err, errs.ErrLimitExceeded)
	require.Empty(t, d.columns, "a rejected field must not be cached as decoded")
}
