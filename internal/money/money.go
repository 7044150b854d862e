// Package money implements fixed-point monetary amounts in minor units.
// All arithmetic that can produce fractional minor units rounds half up,
// away from zero, at the single point the fraction appears.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value in minor units (cents for two-decimal
// currencies). Using int64 keeps sums exact; floats never hold money.
type Amount int64

var ErrInvalidAmount = errors.New("invalid_amount")

const Zero Amount = 0

func (a Amount) Add(b Amount) Amount { return a + b }

func (a Amount) Sub(b Amount) Amount { return a - b }

// maxProduct bounds multiplication results to the range where float64
// still represents every integer exactly, so rounding cannot drift and
// the int64 conversion cannot wrap.
const maxProduct = 1 << 53

// MulQuantity multiplies a unit price by a possibly fractional quantity,
// rounding half up once on the result. Quantities that push the product
// outside the exact float64 integer range are rejected, as are NaN and
// infinite quantities.
func (a Amount) MulQuantity(qty float64) (Amount, error) {
	f := math.Round(float64(a) * qty)
	if !(f >= -maxProduct && f <= maxProduct) {
		return 0, ErrInvalidAmount
	}
	return Amount(f), nil
}

// ApplyRate applies a fractional rate (0.10 for 10%), rounding half up.
func (a Amount) ApplyRate(rate float64) Amount {
	return roundHalfUp(float64(a) * rate)
}

func (a Amount) IsNegative() bool { return a < 0 }

func (a Amount) IsZero() bool { return a == 0 }

// Compare returns -1, 0 or 1.
func (a Amount) Compare(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String renders the amount as a plain decimal with two fraction digits,
// e.g. 123456 -> "1234.56".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Parse converts a decimal string ("1234.56", "-0.5", "99") into minor
// units. More than two fraction digits is rejected rather than rounded so
// user input never loses precision silently.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" || s == "." {
		return 0, ErrInvalidAmount
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(frac) > 2 {
		return 0, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	// The sign was consumed above; anything non-digit from here on is
	// malformed ("--5" must not parse as 5).
	if !isDigits(whole) || !isDigits(frac) {
		return 0, ErrInvalidAmount
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if w > (math.MaxInt64-f)/100 {
		return 0, ErrInvalidAmount
	}

	v := w*100 + f
	if neg {
		v = -v
	}
	return Amount(v), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParse is Parse for test fixtures and constants known to be valid.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("money: parse %q: %v", s, err))
	}
	return a
}

func roundHalfUp(f float64) Amount {
	return Amount(int64(math.Round(f)))
}
