// Package crc32c computes the Castagnoli CRC32 variant used to cover each
// block's header and field segments (spec §4.1, §4.7). No third-party
// CRC32C package appears anywhere in the retrieved example corpus, so this
// wraps the standard library's hash/crc32 with the Castagnoli polynomial
// table rather than reaching for a reimplementation.
package crc32c

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// Checksum returns the CRC32C of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, table)
}

// Digest accumulates a CRC32C over multiple byte ranges, mirroring the
// block format's "header || segment_0 || … || segment_{F-1}" coverage
// without requiring the caller to concatenate them first.
type Digest struct {
	crc uint32
}

// NewDigest returns a Digest ready to accumulate bytes.
func NewDigest() *Digest {
	return &Digest{}
}

// Write feeds p into the running checksum. It never returns an error.
func (d *Digest) Write(p []byte) (int, error) {
	d.crc = crc32.Update(d.crc, table, p)
	return len(p), nil
}

// Sum32 returns the checksum accumulated so far.
func (d *Digest) Sum32() uint32 {
	return d.crc
}

// Verify reports whether got equals want using the same constant-logic
// comparison operator Go uses for any integer equality — there is no
// timing side-channel concern for a structural checksum, but the
// comparison is expressed as a single `==`, matching the spec's
// "constant-logic" wording.
func Verify(got, want uint32) bool {
	return got == want
}
