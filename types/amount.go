package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// Decimals is the number of decimal places of the token, ie one token is
// 10^Decimals minor units.
const Decimals = 18

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")

	oneToken = sdkmath.NewIntWithDecimal(1, Decimals)
	// largest value Amount can hold, 2^256-1
	maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	// 100% in the LegacyDec internal representation
	percentDenominator = new(big.Int).Mul(big.NewInt(100), sdkmath.LegacyOneDec().BigInt())
)

/*
Amount is a monetary value expressed as integer count of minor units.

On the wire amounts are always decimal strings of the minor unit count, ie
"100" is one hundred minor units, not one hundred tokens.
*/
type Amount struct {
	i sdkmath.Int
}

func ZeroAmount() Amount {
	return Amount{sdkmath.ZeroInt()}
}

func NewAmount(n uint64) Amount {
	return Amount{sdkmath.NewIntFromUint64(n)}
}

func AmountFromInt(i sdkmath.Int) Amount {
	if i.IsNil() {
		return ZeroAmount()
	}
	return Amount{i}
}

/*
ParseAmount parses decimal string of minor units. Negative values are
accepted by the parser, it is up to the caller to decide whether these are
allowed.
*/
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	i, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidAmount, s)
	}
	return Amount{i}, nil
}

/*
ParseAmountOrZero returns zero amount when "s" can't be parsed.

Used for risk parameters where malformed numeric input is scored as if it
were zero.
*/
func ParseAmountOrZero(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		return ZeroAmount()
	}
	return a
}

// MustParseAmount is like ParseAmount but panics on error. Meant for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

/*
TokenAmount converts decimal string of whole tokens ("0.001") into Amount
of minor units. Fractions smaller than one minor unit are truncated.
*/
func TokenAmount(tokens string) (Amount, error) {
	d, err := sdkmath.LegacyNewDecFromStr(tokens)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	return Amount{d.MulInt(oneToken).TruncateInt()}, nil
}

func MustTokenAmount(tokens string) Amount {
	a, err := TokenAmount(tokens)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) int() sdkmath.Int {
	if a.i.IsNil() {
		return sdkmath.ZeroInt()
	}
	return a.i
}

// BigInt returns copy of the underlying value.
func (a Amount) BigInt() *big.Int { return a.int().BigInt() }

// Int returns the amount as math.Int.
func (a Amount) Int() sdkmath.Int { return a.int() }

func (a Amount) Add(b Amount) Amount { return Amount{a.int().Add(b.int())} }

func (a Amount) Sub(b Amount) Amount { return Amount{a.int().Sub(b.int())} }

func (a Amount) MulUint64(n uint64) Amount {
	return Amount{a.int().Mul(sdkmath.NewIntFromUint64(n))}
}

// MulPercent returns a*p/100 truncated towards zero.
func (a Amount) MulPercent(p Percent) Amount {
	v := new(big.Int).Mul(a.BigInt(), p.Dec().BigInt())
	return Amount{sdkmath.NewIntFromBigInt(v.Quo(v, percentDenominator))}
}

// MulDec returns a*d truncated towards zero.
func (a Amount) MulDec(d sdkmath.LegacyDec) Amount {
	v := new(big.Int).Mul(a.BigInt(), d.BigInt())
	return Amount{sdkmath.NewIntFromBigInt(v.Quo(v, sdkmath.LegacyOneDec().BigInt()))}
}

/*
MulFrac returns a*num/den truncated towards zero. The intermediate product
may exceed 256 bits, only the result must fit. Panics when den is zero.
*/
func (a Amount) MulFrac(num, den Amount) Amount {
	return MulFracBig(a, num.BigInt(), den.BigInt())
}

// MulFracBig is like MulFrac but takes num and den as big.Int, ie when the
// denominator is a sum which might not fit into Amount.
func MulFracBig(a Amount, num, den *big.Int) Amount {
	v := new(big.Int).Mul(a.BigInt(), num)
	return Amount{sdkmath.NewIntFromBigInt(v.Quo(v, den))}
}

/*
FitsMul returns true when a*n does not exceed the largest value Amount can
hold, ie whether MulUint64(n) is safe to call.
*/
func (a Amount) FitsMul(n uint64) bool {
	v := new(big.Int).Mul(a.BigInt(), new(big.Int).SetUint64(n))
	return v.CmpAbs(maxAmount) <= 0
}

func (a Amount) IsZero() bool     { return a.int().IsZero() }
func (a Amount) IsNegative() bool { return a.int().IsNegative() }
func (a Amount) IsPositive() bool { return a.int().IsPositive() }

func (a Amount) Equal(b Amount) bool { return a.int().Equal(b.int()) }
func (a Amount) LT(b Amount) bool    { return a.int().LT(b.int()) }
func (a Amount) GT(b Amount) bool    { return a.int().GT(b.int()) }
func (a Amount) GTE(b Amount) bool   { return a.int().GTE(b.int()) }

// Clamp returns "a" limited into the closed range [lo, hi].
func (a Amount) Clamp(lo, hi Amount) Amount {
	if a.LT(lo) {
		return lo
	}
	if a.GT(hi) {
		return hi
	}
	return a
}

func (a Amount) String() string {
	return a.int().String()
}

/*
Tokens returns the amount formatted as whole tokens, ie "1000000000000000"
minor units is "0.001". Meant for human readable output only.
*/
func (a Amount) Tokens() string {
	s := sdkmath.LegacyNewDecFromIntWithPrec(a.int(), Decimals).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(b []byte) error {
	v, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON string and JSON number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.UnmarshalText([]byte(strings.Trim(string(b), `"`)))
}

// SumAmounts returns sum of all the amounts, zero for empty input.
func SumAmounts(amounts ...Amount) Amount {
	sum := ZeroAmount()
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum
}
