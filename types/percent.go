package types

import (
	"fmt"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
)

var hundred = sdkmath.LegacyNewDec(100)

/*
Percent is a fixed point (18 decimals) percentage value, ie 12.5 means 12.5%.

In JSON it can be given either as number or string, it is always marshaled
as string to avoid losing precision.
*/
type Percent struct {
	d sdkmath.LegacyDec
}

func NewPercent(p int64) Percent {
	return Percent{sdkmath.LegacyNewDec(p)}
}

func PercentFromDec(d sdkmath.LegacyDec) Percent {
	return Percent{d}
}

func ParsePercent(s string) (Percent, error) {
	d, err := sdkmath.LegacyNewDecFromStr(strings.TrimSpace(s))
	if err != nil {
		return Percent{}, fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	return Percent{d}, nil
}

func MustParsePercent(s string) Percent {
	p, err := ParsePercent(s)
	if err != nil {
		panic(err)
	}
	return p
}

/*
PercentFromFloat converts float to Percent, precision is limited to
6 decimal places which is more than enough for the fee configuration.
*/
func PercentFromFloat(f float64) Percent {
	d, err := sdkmath.LegacyNewDecFromStr(strconv.FormatFloat(f, 'f', 6, 64))
	if err != nil {
		// only possible for NaN and Inf
		return Percent{sdkmath.LegacyZeroDec()}
	}
	return Percent{d}
}

func (p Percent) Dec() sdkmath.LegacyDec {
	if p.d.IsNil() {
		return sdkmath.LegacyZeroDec()
	}
	return p.d
}

func (p Percent) Add(o Percent) Percent { return Percent{p.Dec().Add(o.Dec())} }

func (p Percent) IsNegative() bool { return p.Dec().IsNegative() }

// InRange returns true when 0 <= p <= 100.
func (p Percent) InRange() bool {
	return !p.Dec().IsNegative() && p.Dec().LTE(hundred)
}

// Fraction returns p/100.
func (p Percent) Fraction() sdkmath.LegacyDec {
	return p.Dec().Quo(hundred)
}

// BasisPoints returns the value in 1/100 of percent, truncated.
func (p Percent) BasisPoints() sdkmath.Int {
	return p.Dec().MulInt64(100).TruncateInt()
}

func (p Percent) Float64() float64 {
	f, err := p.Dec().Float64()
	if err != nil {
		return 0
	}
	return f
}

// String returns shortest representation of the value, ie "20" rather than "20.000000000000000000".
func (p Percent) String() string {
	s := p.Dec().String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

func (p Percent) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Percent) UnmarshalText(b []byte) error {
	v, err := ParsePercent(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	return p.UnmarshalText([]byte(strings.Trim(string(b), `"`)))
}

// SumPercents returns sum of all the values, zero for empty input.
func SumPercents(ps ...Percent) Percent {
	sum := Percent{sdkmath.LegacyZeroDec()}
	for _, p := range ps {
		sum = sum.Add(p)
	}
	return sum
}
