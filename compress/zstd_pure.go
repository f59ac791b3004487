package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/jac-archive/jac/errs"
)

// ZstdCodec is codec id 1, the sole real wire compressor in v1 (spec
// §4.5). Encoders/decoders are pooled rather than held per-instance, so
// ZstdCodec itself carries no state and is safe to share.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec returns a ZstdCodec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

// zstdDecoderPool pools zstd decoders for reuse. klauspost/compress/zstd
// is explicitly designed for this: "The decoder has been designed to
// operate without allocations after a warmup. This means that you should
// store the decoder for best performance."
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// zstdEncoderPool pools the default-level encoder, used whenever the
// directory entry or file default requests a level that levelForEncoder
// (below) maps to SpeedDefault.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderCRC(false),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return encoder
	},
}

// Compress compresses data at the given archival level (spec §4.5
// recommends 15-19; any level outside klauspost's 1-22 range is clamped
// by levelForEncoder). Determinism (spec §4.11c) requires a
// single-threaded encoder, so both the pooled SpeedDefault writer and the
// per-call writer for other levels set WithEncoderConcurrency(1).
func (c ZstdCodec) Compress(data []byte, level int) ([]byte, error) {
	if lvl := levelForEncoder(level); lvl != zstd.SpeedDefault {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(lvl),
			zstd.WithEncoderCRC(false),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrInternal, err)
		}
		defer encoder.Close()

		return encoder.EncodeAll(data, nil), nil
	}

	encoder, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses data, pre-sizing the output buffer to
// expectedLen so a crafted segment_uncompressed_len cannot force an
// unbounded allocation before the actual decompressed length is known
// (spec §4.6 steps 1-2, scenario S4). The caller has already checked
// expectedLen against the effective segment ceiling before calling this.
func (c ZstdCodec) Decompress(data []byte, expectedLen int) ([]byte, error) {
	if len(data) == 0 && expectedLen == 0 {
		return nil, nil
	}

	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	dst := make([]byte, 0, expectedLen)

	decompressed, err := decoder.DecodeAll(data, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDecompress, err)
	}

	if len(decompressed) != expectedLen {
		return nil, errs.ErrDecompress
	}

	return decompressed, nil
}

// levelForEncoder maps an archival compression level (roughly zstd's 1-22
// scale) onto klauspost's coarser four-speed enum.
func levelForEncoder(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedDefault
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 15:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
