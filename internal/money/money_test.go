package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
	}{
		{"0", 0},
		{"1", 100},
		{"1234.56", 123456},
		{"0.5", 50},
		{"-0.5", -50},
		{".75", 75},
		{"+2.25", 225},
		{"99", 9900},
		{" 10.00 ", 1000},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{
		"", ".", "-", "abc", "1.234", "1,00", "1.2.3",
		"--5", "-+5", "+-5", "5-", "1e3", "92233720368547758.08",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "1234.56", Amount(123456).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-0.50", Amount(-50).String())
	assert.Equal(t, "0.00", Zero.String())
}

func TestStringParseRoundTrip(t *testing.T) {
	for _, a := range []Amount{0, 1, 99, 100, 123456, -123456, 1000000000} {
		got, err := Parse(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestMulQuantityRoundsHalfUp(t *testing.T) {
	// 333 * 0.5 = 166.5, rounds up to 167.
	got, err := Amount(333).MulQuantity(0.5)
	require.NoError(t, err)
	assert.Equal(t, Amount(167), got)

	// 10.00 * 2.5 hours = 25.00 exactly.
	got, err = Amount(1000).MulQuantity(2.5)
	require.NoError(t, err)
	assert.Equal(t, Amount(2500), got)

	got, err = Amount(1000).MulQuantity(0)
	require.NoError(t, err)
	assert.Equal(t, Amount(0), got)
}

func TestMulQuantityRejectsOverflow(t *testing.T) {
	// 100.00 * 1e15 would wrap int64; it must fail, not go negative.
	_, err := Amount(10000).MulQuantity(1e15)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Amount(10000).MulQuantity(math.MaxFloat64)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = Amount(10000).MulQuantity(math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = Amount(10000).MulQuantity(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestApplyRateRoundsHalfUp(t *testing.T) {
	// 10% of 0.05 is 0.005, rounds to 0.01.
	assert.Equal(t, Amount(1), Amount(5).ApplyRate(0.10))
	// 10% of 2000.00.
	assert.Equal(t, Amount(20000), Amount(200000).ApplyRate(0.10))
	assert.Equal(t, Amount(0), Amount(123).ApplyRate(0))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Amount(1).Compare(2))
	assert.Equal(t, 1, Amount(2).Compare(1))
	assert.Equal(t, 0, Amount(7).Compare(7))
}

func TestArithmetic(t *testing.T) {
	a := MustParse("2000.00")
	b := MustParse("200.00")
	assert.Equal(t, MustParse("2200.00"), a.Add(b))
	assert.Equal(t, MustParse("1800.00"), a.Sub(b))
	assert.True(t, a.Sub(a).IsZero())
	assert.True(t, b.Sub(a).IsNegative())
}
