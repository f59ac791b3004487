package compress

import "github.com/jac-archive/jac/errs"

// NoOpCodec is codec id 0: the identity transform. It exists so "no
// compression" is a real codec rather than a special case threaded
// through every call site.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// NewNoOpCodec returns the identity codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Compress returns data unchanged; level is ignored.
//
// Note: the returned slice shares the input's backing array. Callers must
// not mutate data after calling Compress if they still hold the result.
func (c NoOpCodec) Compress(data []byte, _ int) ([]byte, error) {
	return data, nil
}

// Decompress returns data unchanged, after checking it matches
// expectedLen — the identity codec still participates in the segment's
// length invariant (spec §4.6 step 2).
func (c NoOpCodec) Decompress(data []byte, expectedLen int) ([]byte, error) {
	if len(data) != expectedLen {
		return nil, errs.ErrDecompress
	}

	return data, nil
}
