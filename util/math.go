package util

import (
	"github.com/shopspring/decimal"
)

// SignificantDigits is the minimum number of significant digits kept by Div.
const SignificantDigits = 28

// Tolerance is a relative/absolute pair used for approximate equality of
// decimal amounts.
type Tolerance struct {
	Relative decimal.Decimal
	Absolute decimal.Decimal
}

var DefaultTolerance = Tolerance{
	Relative: decimal.New(1, -9),
	Absolute: decimal.New(1, -9),
}

// IsClose reports whether |a-b| <= max(Relative*max(|a|,|b|), Absolute).
func (t Tolerance) IsClose(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	bound := t.Relative.Mul(decimal.Max(a.Abs(), b.Abs()))
	return diff.LessThanOrEqual(decimal.Max(bound, t.Absolute))
}

// IsClose compares with DefaultTolerance.
func IsClose(a, b decimal.Decimal) bool {
	return DefaultTolerance.IsClose(a, b)
}

// Div divides x by y keeping at least SignificantDigits significant digits,
// and never fewer fractional digits than decimal.DivisionPrecision. y must not
// be zero.
func Div(x, y decimal.Decimal) decimal.Decimal {
	if x.IsZero() {
		return decimal.Zero
	}
	// The quotient is below 10^(mag+1), and at least 10^(mag-1).
	mag := magnitude(x) - magnitude(y)
	prec := int32(SignificantDigits - mag + 1)
	if prec < int32(decimal.DivisionPrecision) {
		prec = int32(decimal.DivisionPrecision)
	}
	return x.DivRound(y, prec)
}

// magnitude returns n such that 10^(n-1) <= |d| < 10^n.
func magnitude(d decimal.Decimal) int {
	return d.NumDigits() + int(d.Exponent())
}

func DivOrZero(x, y decimal.Decimal) decimal.Decimal {
	if y.IsZero() {
		return decimal.Zero
	}
	return Div(x, y)
}
