package invariant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alphabill-org/econsec/types"
)

/*
ErrViolation matches (errors.Is) any invariant violation.

Invariant violation means that a computation which was given validated
input produced inconsistent result, ie it is an implementation defect and
never a user error. The enclosing flow must be aborted.
*/
var ErrViolation = errors.New("invariant violation")

/*
Violation is implemented by all the invariant violation types of the package:

  - *PercentageSplitViolation
  - *ConservationViolation
  - *NegativeAmountViolation
  - *ScoreBoundsViolation

The set is closed, callers may type switch over it.
*/
type Violation interface {
	error
	// Origin returns tag of the call site which detected the violation.
	Origin() string
	violation()
}

type (
	PercentageSplitViolation struct {
		Site      string
		Parts     []types.Percent
		Sum       types.Percent
		Expected  types.Percent
		Tolerance types.Percent
	}

	ConservationViolation struct {
		Site     string
		TotalIn  types.Amount
		TotalOut types.Amount
	}

	NegativeAmountViolation struct {
		Site   string
		Name   string
		Amount types.Amount
	}

	ScoreBoundsViolation struct {
		Site  string
		Score float64
		Min   float64
		Max   float64
	}
)

func (v *PercentageSplitViolation) Error() string {
	parts := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s: percentage split [%s] sums to %s, expected %s±%s",
		v.Site, strings.Join(parts, ", "), v.Sum, v.Expected, v.Tolerance)
}

func (v *ConservationViolation) Error() string {
	return fmt.Sprintf("%s: money not conserved, in %s, out %s", v.Site, v.TotalIn, v.TotalOut)
}

func (v *NegativeAmountViolation) Error() string {
	return fmt.Sprintf("%s: amount %q is negative: %s", v.Site, v.Name, v.Amount)
}

func (v *ScoreBoundsViolation) Error() string {
	return fmt.Sprintf("%s: risk score %v out of bounds [%v, %v]", v.Site, v.Score, v.Min, v.Max)
}

func (v *PercentageSplitViolation) Origin() string { return v.Site }
func (v *ConservationViolation) Origin() string    { return v.Site }
func (v *NegativeAmountViolation) Origin() string  { return v.Site }
func (v *ScoreBoundsViolation) Origin() string     { return v.Site }

func (v *PercentageSplitViolation) Is(target error) bool { return target == ErrViolation }
func (v *ConservationViolation) Is(target error) bool    { return target == ErrViolation }
func (v *NegativeAmountViolation) Is(target error) bool  { return target == ErrViolation }
func (v *ScoreBoundsViolation) Is(target error) bool     { return target == ErrViolation }

func (*PercentageSplitViolation) violation() {}
func (*ConservationViolation) violation()    {}
func (*NegativeAmountViolation) violation()  {}
func (*ScoreBoundsViolation) violation()     {}

/*
Kind returns short name of the violation type, suitable for metric attribute.
Returns empty string when "err" doesn't contain invariant violation.
*/
func Kind(err error) string {
	var v Violation
	if !errors.As(err, &v) {
		return ""
	}
	switch v.(type) {
	case *PercentageSplitViolation:
		return "percentage_split"
	case *ConservationViolation:
		return "conservation"
	case *NegativeAmountViolation:
		return "negative_amount"
	case *ScoreBoundsViolation:
		return "score_bounds"
	default:
		return "unknown"
	}
}
