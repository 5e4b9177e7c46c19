package risk

import (
	"fmt"
)

type Category string

const (
	CategorySafe      Category = "safe"
	CategoryModerate  Category = "moderate"
	CategoryRisky     Category = "risky"
	CategoryDangerous Category = "dangerous"
)

const (
	moderateFrom  = 20
	riskyFrom     = 40
	dangerousFrom = 70

	MaxTotalRisk = 100
)

// CategoryOf returns the category of the total risk score.
func CategoryOf(totalRisk float64) Category {
	switch {
	case totalRisk < moderateFrom:
		return CategorySafe
	case totalRisk < riskyFrom:
		return CategoryModerate
	case totalRisk < dangerousFrom:
		return CategoryRisky
	default:
		return CategoryDangerous
	}
}

func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategorySafe, CategoryModerate, CategoryRisky, CategoryDangerous:
		return c, nil
	default:
		return "", fmt.Errorf("unknown risk category %q", s)
	}
}

/*
Breakdown lists contribution of every risk factor to the total score.
All the values are non-negative.
*/
type Breakdown struct {
	PayoutCap           float64 `json:"payoutCapRisk"`
	SettlementDelay     float64 `json:"settlementDelayRisk"`
	TaskSchema          float64 `json:"taskSchemaRisk"`
	CustomScoring       float64 `json:"customScoringRisk"`
	InstantPayout       float64 `json:"instantPayoutRisk"`
	SingleValidator     float64 `json:"singleValidatorRisk"`
	NonDeterministic    float64 `json:"nonDeterministicRisk"`
	ValidatorSelfSelect float64 `json:"validatorSelfSelectRisk"`
	MaxPayout           float64 `json:"maxPayoutRisk"`
	ValidatorCount      float64 `json:"validatorCountRisk"`
	ConsensusThreshold  float64 `json:"consensusThresholdRisk"`
	DisputeWindow       float64 `json:"disputeWindowRisk"`
	StakeRequired       float64 `json:"stakeRequiredRisk"`
}

// Factors returns the factor values in declaration order, keyed by the JSON name.
func (b *Breakdown) Factors() []Factor {
	return []Factor{
		{"payoutCapRisk", b.PayoutCap},
		{"settlementDelayRisk", b.SettlementDelay},
		{"taskSchemaRisk", b.TaskSchema},
		{"customScoringRisk", b.CustomScoring},
		{"instantPayoutRisk", b.InstantPayout},
		{"singleValidatorRisk", b.SingleValidator},
		{"nonDeterministicRisk", b.NonDeterministic},
		{"validatorSelfSelectRisk", b.ValidatorSelfSelect},
		{"maxPayoutRisk", b.MaxPayout},
		{"validatorCountRisk", b.ValidatorCount},
		{"consensusThresholdRisk", b.ConsensusThreshold},
		{"disputeWindowRisk", b.DisputeWindow},
		{"stakeRequiredRisk", b.StakeRequired},
	}
}

// Sum returns unbounded sum of all the factors.
func (b *Breakdown) Sum() float64 {
	var sum float64
	for _, f := range b.Factors() {
		sum += f.Value
	}
	return sum
}

type Factor struct {
	Name  string
	Value float64
}

/*
Score is the result of evaluating network risk parameters. Once computed it
is stored as part of the network record and never recomputed.
*/
type Score struct {
	TotalRisk float64   `json:"totalRisk"`
	Breakdown Breakdown `json:"breakdown"`
	Category  Category  `json:"category"`
}

func (s *Score) String() string {
	return fmt.Sprintf("%s (%v)", s.Category, s.TotalRisk)
}
