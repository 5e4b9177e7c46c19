package types

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	var testCases = []struct {
		in     string
		out    string
		errStr string
	}{
		{in: "0", out: "0"},
		{in: "100", out: "100"},
		{in: " 42 ", out: "42"},
		{in: "-5", out: "-5"},
		{in: "1000000000000000000000000", out: "1000000000000000000000000"},
		{in: "", errStr: "empty string"},
		{in: "1.5", errStr: `"1.5" is not an integer`},
		{in: "abc", errStr: `"abc" is not an integer`},
	}

	for _, tc := range testCases {
		a, err := ParseAmount(tc.in)
		if tc.errStr != "" {
			require.ErrorIs(t, err, ErrInvalidAmount)
			require.ErrorContains(t, err, tc.errStr)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.out, a.String())
	}
}

func TestParseAmountOrZero(t *testing.T) {
	require.True(t, ParseAmountOrZero("not a number").IsZero())
	require.True(t, ParseAmountOrZero("").IsZero())
	require.Equal(t, "7", ParseAmountOrZero("7").String())
}

func TestTokenAmount(t *testing.T) {
	require.Equal(t, "1000000000000000", MustTokenAmount("0.001").String())
	require.Equal(t, "1000000000000000000", MustTokenAmount("1").String())
	require.Equal(t, "10000000000000000000", MustTokenAmount("10").String())

	_, err := TokenAmount("one")
	require.ErrorIs(t, err, ErrInvalidAmount)

	require.Equal(t, "0.001", MustTokenAmount("0.001").Tokens())
	require.Equal(t, "25", MustTokenAmount("25").Tokens())
	require.Equal(t, "0", ZeroAmount().Tokens())
}

func TestAmount_Arithmetic(t *testing.T) {
	a := NewAmount(100)
	b := NewAmount(30)

	require.Equal(t, "130", a.Add(b).String())
	require.Equal(t, "70", a.Sub(b).String())
	require.True(t, b.Sub(a).IsNegative())
	require.Equal(t, "1000", a.MulUint64(10).String())
	require.Equal(t, "12", a.MulPercent(MustParsePercent("12.5")).String())
	require.Equal(t, "33", a.MulFrac(NewAmount(1), NewAmount(3)).String())
	// intermediate product does not fit into 256 bits
	huge := MustParseAmount("1000000000000000000000000000000000000000")
	require.Equal(t, "500000000000000000000000000000000000000", huge.MulFrac(huge, huge.MulUint64(2)).String())
	require.Equal(t, "50000000000000000000000000000000000000", huge.MulPercent(NewPercent(5)).String())
	require.True(t, huge.FitsMul(50))
	largest := MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.True(t, largest.FitsMul(1))
	require.False(t, largest.FitsMul(2))
	require.Equal(t, "160", SumAmounts(a, b, b).String())
	require.True(t, SumAmounts().IsZero())

	// zero value behaves as zero
	var zero Amount
	require.True(t, zero.IsZero())
	require.Equal(t, "0", zero.String())
	require.Equal(t, "5", zero.Add(NewAmount(5)).String())
}

func TestAmount_Clamp(t *testing.T) {
	lo, hi := NewAmount(10), NewAmount(20)
	require.Equal(t, lo, NewAmount(5).Clamp(lo, hi))
	require.Equal(t, hi, NewAmount(25).Clamp(lo, hi))
	require.Equal(t, "15", NewAmount(15).Clamp(lo, hi).String())
}

func TestAmount_JSON(t *testing.T) {
	type wrapper struct {
		Fee Amount `json:"fee"`
	}

	b, err := json.Marshal(wrapper{Fee: NewAmount(100)})
	require.NoError(t, err)
	require.JSONEq(t, `{"fee":"100"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"fee":"250"}`), &w))
	require.Equal(t, "250", w.Fee.String())

	// number is accepted too
	require.NoError(t, json.Unmarshal([]byte(`{"fee":300}`), &w))
	require.Equal(t, "300", w.Fee.String())

	require.ErrorIs(t, json.Unmarshal([]byte(`{"fee":"1.5"}`), &w), ErrInvalidAmount)
}

func TestPercent(t *testing.T) {
	p := MustParsePercent("12.5")
	require.Equal(t, "12.5", p.String())
	require.Equal(t, "1250", p.BasisPoints().String())
	require.True(t, p.InRange())
	require.False(t, MustParsePercent("-1").InRange())
	require.False(t, MustParsePercent("100.01").InRange())
	require.True(t, NewPercent(100).InRange())
	require.Equal(t, "100", SumPercents(NewPercent(20), NewPercent(50), NewPercent(20), NewPercent(10)).String())
	require.Equal(t, "33.333333", PercentFromFloat(33.333333).String())
	require.InDelta(t, 12.5, p.Float64(), 1e-12)

	var zero Percent
	require.Equal(t, "0", zero.String())

	var w struct {
		P Percent `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":7.25}`), &w))
	require.Equal(t, "7.25", w.P.String())
	b, err := json.Marshal(w)
	require.NoError(t, err)
	require.JSONEq(t, `{"p":"7.25"}`, string(b))
}

func TestAddresses(t *testing.T) {
	a, err := ParseAddress("0x0000000000000000000000000000000000000002")
	require.NoError(t, err)
	b := common.HexToAddress("0x01")

	x, y := OrderedPair(a, b)
	require.Equal(t, b, x)
	require.Equal(t, a, y)
	x2, y2 := OrderedPair(b, a)
	require.Equal(t, x, x2)
	require.Equal(t, y, y2)

	_, err = ParseAddress("not an address")
	require.EqualError(t, err, `invalid address "not an address"`)
}
