/*
Package invariant implements fail-fast assertions for the financial and
scoring computations.

Checks never correct the values they are given, a failed check returns one
of the Violation types which must abort the flow that triggered it.
Malformed user input must be rejected by validation before any computation,
so a violation always indicates an internal defect.
*/
package invariant

import (
	"github.com/alphabill-org/econsec/types"
)

const (
	MinRiskScore = 0
	MaxRiskScore = 100
)

// NamedAmount is an amount labeled for diagnostics.
type NamedAmount struct {
	Name   string
	Amount types.Amount
}

func Named(name string, amount types.Amount) NamedAmount {
	return NamedAmount{Name: name, Amount: amount}
}

/*
CheckPercentageSplit verifies that "parts" sum to "expectedTotal" within
"tolerance" (inclusive).
*/
func CheckPercentageSplit(origin string, parts []types.Percent, expectedTotal, tolerance types.Percent) error {
	sum := types.SumPercents(parts...)
	diff := sum.Dec().Sub(expectedTotal.Dec()).Abs()
	if diff.GT(tolerance.Dec()) {
		return &PercentageSplitViolation{
			Site:      origin,
			Parts:     append([]types.Percent(nil), parts...),
			Sum:       sum,
			Expected:  expectedTotal,
			Tolerance: tolerance,
		}
	}
	return nil
}

/*
CheckMoneyConservation verifies that the sum of "totalOut" equals "totalIn".

Amounts are integers of minor units so the comparison is exact, rounding
remainders must be assigned to some output by the caller.
*/
func CheckMoneyConservation(origin string, totalIn types.Amount, totalOut ...types.Amount) error {
	out := types.SumAmounts(totalOut...)
	if !out.Equal(totalIn) {
		return &ConservationViolation{Site: origin, TotalIn: totalIn, TotalOut: out}
	}
	return nil
}

// CheckNoNegativeAmounts returns violation for the first negative amount found.
func CheckNoNegativeAmounts(origin string, amounts ...NamedAmount) error {
	for _, a := range amounts {
		if a.Amount.IsNegative() {
			return &NegativeAmountViolation{Site: origin, Name: a.Name, Amount: a.Amount}
		}
	}
	return nil
}

// CheckRiskScoreBounds verifies that the score is within [0, 100]. NaN is out of bounds.
func CheckRiskScoreBounds(origin string, score float64) error {
	if !(score >= MinRiskScore && score <= MaxRiskScore) {
		return &ScoreBoundsViolation{Site: origin, Score: score, Min: MinRiskScore, Max: MaxRiskScore}
	}
	return nil
}
