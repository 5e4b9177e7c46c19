package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePercent(t *testing.T) {
	var testCases = []struct {
		in     string
		out    string
		errStr string
	}{
		{in: "0", out: "0"},
		{in: "20", out: "20"},
		{in: " 12.5 ", out: "12.5"},
		{in: "0.01", out: "0.01"},
		{in: "-3", out: "-3"},
		{in: "", errStr: `invalid percentage ""`},
		{in: "ten", errStr: `invalid percentage "ten"`},
	}

	for _, tc := range testCases {
		p, err := ParsePercent(tc.in)
		if tc.errStr != "" {
			require.ErrorContains(t, err, tc.errStr)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.out, p.String())
	}
}

func TestPercent_arithmetic(t *testing.T) {
	p := MustParsePercent("12.5")
	require.Equal(t, "1250", p.BasisPoints().String())
	require.Equal(t, "0.125000000000000000", p.Fraction().String())
	require.InDelta(t, 12.5, p.Float64(), 1e-12)
	require.True(t, p.InRange())

	require.True(t, NewPercent(100).InRange())
	require.False(t, MustParsePercent("100.000001").InRange())
	require.False(t, NewPercent(-1).InRange())
	require.True(t, NewPercent(-1).IsNegative())

	require.Equal(t, "100", SumPercents(NewPercent(20), NewPercent(50), MustParsePercent("29.5"), MustParsePercent("0.5")).String())
	require.Equal(t, "0", SumPercents().String())

	// zero value behaves as 0%
	var zero Percent
	require.Equal(t, "0", zero.String())
	require.Equal(t, "5", zero.Add(NewPercent(5)).String())
}

func TestPercentFromFloat(t *testing.T) {
	require.Equal(t, "0.1", PercentFromFloat(0.1).String())
	require.Equal(t, "33.333333", PercentFromFloat(100.0/3).String())
}

func TestPercent_JSON(t *testing.T) {
	var v struct {
		A Percent `json:"a"`
		B Percent `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12.5,"b":"7"}`), &v))
	require.Equal(t, "12.5", v.A.String())
	require.Equal(t, "7", v.B.String())

	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":"12.5","b":"7"}`, string(b))

	require.ErrorContains(t, json.Unmarshal([]byte(`{"a":"x"}`), &v), `invalid percentage "x"`)
}
