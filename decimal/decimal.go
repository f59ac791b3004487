// Package decimal implements the exact base-10 decimal wire type (spec
// §4.1): a sign, a digit string, and a base-10 exponent, preserving JSON
// number literals like 0.1 or 1e-20 that do not fit a signed 64-bit
// integer without representing them as a lossy float.
package decimal

import (
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/varint"
)

// Decimal is the exact (sign, digits, exp10) triple. Digits are ASCII
// '0'..'9', most-significant digit first, with no leading zero unless the
// value is exactly zero.
type Decimal struct {
	Negative bool
	Digits   []byte // ASCII '0'-'9'
	Exp10    int32
}

// Bytes encodes d per spec §4.1: sign_byte, digits_len varint, digits_len
// bytes, exp10 zigzag varint.
func (d Decimal) Bytes() []byte {
	out := make([]byte, 0, 1+varint.Len(uint64(len(d.Digits)))+len(d.Digits)+5)

	if d.Negative {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}

	out = varint.AppendUvarint(out, uint64(len(d.Digits)))
	out = append(out, d.Digits...)
	out = varint.AppendVarint(out, int64(d.Exp10))

	return out
}

// Parse decodes one Decimal from the front of buf, returning the value and
// bytes consumed.
//
// Validation order follows spec §4.1: reject sign >= 2, reject digits_len
// over the effective limit, reject a leading zero unless the value is the
// single digit "0", reject exp10 outside the 32-bit range (the varint
// decoder already caps magnitude, so out-of-range here means the decoded
// int64 does not fit int32).
func Parse(buf []byte, lim limits.Limits) (Decimal, int, error) {
	if len(buf) < 1 {
		return Decimal{}, 0, errs.ErrUnexpectedEOF
	}

	sign := buf[0]
	if sign >= 2 {
		return Decimal{}, 0, errs.ErrCorruptBlock
	}

	pos := 1

	digitsLen, n, err := varint.Uvarint(buf[pos:])
	if err != nil {
		return Decimal{}, 0, err
	}

	pos += n

	if err := limits.CheckUint64(digitsLen, lim.MaxDecimalDigitsPerValue); err != nil {
		return Decimal{}, 0, err
	}

	if pos+int(digitsLen) > len(buf) {
		return Decimal{}, 0, errs.ErrUnexpectedEOF
	}

	digits := buf[pos : pos+int(digitsLen)]
	pos += int(digitsLen)

	if len(digits) == 0 {
		return Decimal{}, 0, errs.ErrCorruptBlock
	}

	if len(digits) > 1 && digits[0] == '0' {
		return Decimal{}, 0, errs.ErrCorruptBlock
	}

	for _, c := range digits {
		if c < '0' || c > '9' {
			return Decimal{}, 0, errs.ErrCorruptBlock
		}
	}

	exp, n, err := varint.Varint(buf[pos:])
	if err != nil {
		return Decimal{}, 0, err
	}

	pos += n

	if exp > int64(1<<31-1) || exp < int64(-1<<31) {
		return Decimal{}, 0, errs.ErrCorruptBlock
	}

	cp := make([]byte, len(digits))
	copy(cp, digits)

	return Decimal{
		Negative: sign == 1,
		Digits:   cp,
		Exp10:    int32(exp),
	}, pos, nil
}

// String renders d in plain "[-]digits[eExp10]" form. It does not attempt
// to reproduce the original JSON literal's formatting — semantic
// round-trip preserves arithmetic value, not lexical form (spec §1, §8.7).
func (d Decimal) String() string {
	s := string(d.Digits)
	if d.Negative {
		s = "-" + s
	}

	if d.Exp10 != 0 {
		s += "e" + itoa(int64(d.Exp10))
	}

	return s
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}

	neg := v < 0
	if neg {
		v = -v
	}

	var buf [20]byte

	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}
