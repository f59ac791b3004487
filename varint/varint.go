// Package varint implements the unsigned LEB128 varint and zig-zag signed
// mapping used throughout the container (spec §4.1). Every decode function
// is bounds-checked against its input slice and against the 10-byte cap for
// 64-bit values, since varint lengths are read directly from untrusted
// wire data.
package varint

import (
	"github.com/jac-archive/jac/errs"
)

// MaxBytes is the encoded length ceiling for a 64-bit unsigned value: 10
// groups of 7 bits cover 70 bits, more than enough for 64, and gives the
// decoder a hard stop against runaway continuation bytes.
const MaxBytes = 10

// AppendUvarint appends the LEB128 encoding of v to dst and returns the
// extended slice.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// AppendVarint zig-zag maps v then appends its varint encoding.
func AppendVarint(dst []byte, v int64) []byte {
	return AppendUvarint(dst, zigzagEncode(v))
}

// Uvarint decodes an unsigned varint from the front of buf, returning the
// value and the number of bytes consumed.
//
// Returns errs.ErrUnexpectedEOF if buf ends before a terminating byte is
// seen, and errs.ErrLimitExceeded if an 11th continuation byte is seen.
func Uvarint(buf []byte) (uint64, int, error) {
	var result uint64

	var shift uint

	for i := 0; i < MaxBytes; i++ {
		if i >= len(buf) {
			return 0, 0, errs.ErrUnexpectedEOF
		}

		b := buf[i]
		if i == MaxBytes-1 && b&0x80 != 0 {
			return 0, 0, errs.ErrLimitExceeded
		}

		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}

		shift += 7
	}

	return 0, 0, errs.ErrLimitExceeded
}

// Varint decodes a zig-zag varint from the front of buf, returning the
// signed value and bytes consumed.
func Varint(buf []byte) (int64, int, error) {
	u, n, err := Uvarint(buf)
	if err != nil {
		return 0, 0, err
	}

	return zigzagDecode(u), n, nil
}

// Len returns the number of bytes AppendUvarint would produce for v.
func Len(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}

	return n
}

// zigzagEncode maps a signed integer to an unsigned one so that small
// magnitudes (positive or negative) both produce small varints.
func zigzagEncode(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
