// Package limits holds the allocation ceilings that gate every
// length-derived buffer size in the decode path (spec §4.1). Limits are
// validated before anything is allocated, so a crafted
// segment_uncompressed_len of 2^32 fails with ErrLimitExceeded instead of
// attempting a multi-gigabyte allocation (scenario S4).
package limits

import (
	"github.com/jac-archive/jac/errs"
)

// Defaults, matching spec §4.1's table.
const (
	DefaultMaxRecordsPerBlock       = 100_000
	DefaultMaxFieldsPerBlock        = 4_096
	DefaultMaxSegmentUncompressed   = 64 * 1024 * 1024
	DefaultMaxBlockUncompressed     = 256 * 1024 * 1024
	DefaultMaxDictEntriesPerField   = 4_096
	DefaultMaxStringLenPerValue     = 16 * 1024 * 1024
	DefaultMaxDecimalDigitsPerValue = 65_536
	DefaultMaxPresenceBytesPerField = 32 * 1024 * 1024
	DefaultMaxTagStreamBytesPerField = 32 * 1024 * 1024
)

// Hard maxima from spec §4.1's table. Only WithMaxRecordsPerBlock clamps
// to one of them; Check and the Limits fields do not consult these
// constants, so a Limits value set above a hard maximum is used as is,
// and WithMaxSegmentUncompressed may raise the segment ceiling past
// HardMaxSegmentUncompressed up to AbsoluteMaxSegmentUncompressed.
const (
	HardMaxRecordsPerBlock       = 1_000_000
	HardMaxFieldsPerBlock        = 65_535
	HardMaxSegmentUncompressed   = 64 * 1024 * 1024
	HardMaxBlockUncompressed     = 256 * 1024 * 1024
	HardMaxDictEntriesPerField   = 65_535
	HardMaxStringLenPerValue     = 16 * 1024 * 1024
	HardMaxDecimalDigitsPerValue = 65_536
	HardMaxPresenceBytesPerField = 32 * 1024 * 1024
	HardMaxTagStreamBytesPerField = 32 * 1024 * 1024
)

// AbsoluteMaxSegmentUncompressed bounds how far a producer may raise the
// segment ceiling via the file header's segment_max_bytes override (spec
// §4.1's sole carve-out from "hard maxima are unconditional"). The spec
// names no upper bound for that override; this is the implementation's
// own backstop so a malicious segment_max_bytes can't reopen the
// unbounded-allocation risk Limits exists to close.
const AbsoluteMaxSegmentUncompressed = 1024 * 1024 * 1024 // 1 GiB

// Limits is the effective set of ceilings for one file. The zero value is
// not usable; construct with Default() and apply Option values.
type Limits struct {
	MaxRecordsPerBlock        int
	MaxFieldsPerBlock         int
	MaxSegmentUncompressed    int
	MaxBlockUncompressed      int
	MaxDictEntriesPerField    int
	MaxStringLenPerValue      int
	MaxDecimalDigitsPerValue  int
	MaxPresenceBytesPerField  int
	MaxTagStreamBytesPerField int
}

// Default returns the spec's default limits.
func Default() Limits {
	return Limits{
		MaxRecordsPerBlock:        DefaultMaxRecordsPerBlock,
		MaxFieldsPerBlock:         DefaultMaxFieldsPerBlock,
		MaxSegmentUncompressed:    DefaultMaxSegmentUncompressed,
		MaxBlockUncompressed:      DefaultMaxBlockUncompressed,
		MaxDictEntriesPerField:    DefaultMaxDictEntriesPerField,
		MaxStringLenPerValue:      DefaultMaxStringLenPerValue,
		MaxDecimalDigitsPerValue:  DefaultMaxDecimalDigitsPerValue,
		MaxPresenceBytesPerField:  DefaultMaxPresenceBytesPerField,
		MaxTagStreamBytesPerField: DefaultMaxTagStreamBytesPerField,
	}
}

// Option configures a Limits value, following the teacher's functional
// options pattern (internal/options) rather than a builder or struct
// literal with many zero-valued fields.
type Option func(*Limits)

// WithMaxSegmentUncompressed overrides the segment ceiling, the one
// limit spec §4.1 permits a producer to raise past its default/hard-max
// table entry (via the file header's segment_max_bytes override).
// AbsoluteMaxSegmentUncompressed still clamps n, since some finite bound
// must survive even a producer-chosen override.
func WithMaxSegmentUncompressed(n int) Option {
	return func(l *Limits) {
		if n > AbsoluteMaxSegmentUncompressed {
			n = AbsoluteMaxSegmentUncompressed
		}

		l.MaxSegmentUncompressed = n
	}
}

// WithMaxRecordsPerBlock overrides the per-block record target ceiling.
func WithMaxRecordsPerBlock(n int) Option {
	return func(l *Limits) {
		if n > HardMaxRecordsPerBlock {
			n = HardMaxRecordsPerBlock
		}

		l.MaxRecordsPerBlock = n
	}
}

// Apply builds a Limits from Default() plus the given options.
func Apply(opts ...Option) Limits {
	l := Default()
	for _, opt := range opts {
		opt(&l)
	}

	return l
}

// Check validates n against max, returning ErrLimitExceeded if it is
// breached. Call before sizing any buffer derived from untrusted wire
// data.
func Check(n, max int) error {
	if n < 0 || n > max {
		return errs.ErrLimitExceeded
	}

	return nil
}

// CheckUint64 is Check for a raw varint-decoded length that may exceed
// the range of int on 32-bit platforms before it is even compared.
func CheckUint64(n uint64, max int) error {
	if n > uint64(max) {
		return errs.ErrLimitExceeded
	}

	return nil
}
