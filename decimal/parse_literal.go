package decimal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/limits"
)

// FromString converts a JSON number literal (e.g. "-123.450e7", "0.1",
// "42") into its exact (sign, digits, exp10) form — the "from_str_exact"
// conversion named in spec §4.1 — without ever rounding through a float.
func FromString(lit string, lim limits.Limits) (Decimal, error) {
	if lit == "" {
		return Decimal{}, fmt.Errorf("%w: empty number literal", errs.ErrCorruptBlock)
	}

	negative := false

	switch lit[0] {
	case '-':
		negative = true
		lit = lit[1:]
	case '+':
		lit = lit[1:]
	}

	mantissa := lit

	var explicitExp int64

	if idx := strings.IndexAny(lit, "eE"); idx >= 0 {
		mantissa = lit[:idx]

		exp, err := strconv.ParseInt(lit[idx+1:], 10, 32)
		if err != nil {
			return Decimal{}, fmt.Errorf("%w: invalid exponent in %q", errs.ErrCorruptBlock, lit)
		}

		explicitExp = exp
	}

	intPart := mantissa

	var fracPart string

	if idx := strings.IndexByte(mantissa, '.'); idx >= 0 {
		intPart = mantissa[:idx]
		fracPart = mantissa[idx+1:]
	}

	digits := intPart + fracPart
	if digits == "" {
		return Decimal{}, fmt.Errorf("%w: no digits in %q", errs.ErrCorruptBlock, lit)
	}

	for _, c := range []byte(digits) {
		if c < '0' || c > '9' {
			return Decimal{}, fmt.Errorf("%w: invalid digit in %q", errs.ErrCorruptBlock, lit)
		}
	}

	exp10 := explicitExp - int64(len(fracPart))

	i := 0
	for i < len(digits)-1 && digits[i] == '0' {
		i++
	}

	digits = digits[i:]

	if digits == "0" {
		exp10 = 0
		negative = false
	}

	if err := limits.Check(len(digits), lim.MaxDecimalDigitsPerValue); err != nil {
		return Decimal{}, err
	}

	if exp10 > int64(1<<31-1) || exp10 < int64(-1<<31) {
		return Decimal{}, fmt.Errorf("%w: exp10 out of range in %q", errs.ErrCorruptBlock, lit)
	}

	return Decimal{
		Negative: negative,
		Digits:   []byte(digits),
		Exp10:    int32(exp10),
	}, nil
}
