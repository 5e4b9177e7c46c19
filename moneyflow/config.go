/*
Package moneyflow splits network creation fees and task payments between the
stakeholders of a network.

Routing never creates nor loses value: every result is verified by the
invariant package before it is returned.
*/
package moneyflow

import (
	"github.com/alphabill-org/econsec/types"
)

// ValidationSubject names the config in validation errors.
const ValidationSubject = "money flow config"

var (
	hundredPercent = types.NewPercent(100)
	splitTolerance = types.MustParsePercent("0.01")
)

type (
	// Config is supplied by network creator, validated once and immutable afterwards.
	Config struct {
		CreationFeeSplit CreationFeeSplit `json:"creationFeeSplit" yaml:"creationFeeSplit"`
		UsageCut         UsageCut         `json:"usageCut" yaml:"usageCut"`
		ValidatorPayment ValidatorPayment `json:"validatorPayment" yaml:"validatorPayment"`
	}

	// CreationFeeSplit percentages must sum to 100.
	CreationFeeSplit struct {
		CreatorReward     types.Percent `json:"creatorReward" yaml:"creatorReward"`
		MinerPool         types.Percent `json:"minerPool" yaml:"minerPool"`
		PurposeBoundSinks types.Percent `json:"purposeBoundSinks" yaml:"purposeBoundSinks"`
		Burn              types.Percent `json:"burn" yaml:"burn"`
	}

	// UsageCut is the network creator's share of every task payment.
	UsageCut struct {
		Enabled    bool          `json:"enabled" yaml:"enabled"`
		Percentage types.Percent `json:"percentage" yaml:"percentage"`
		MinCut     types.Amount  `json:"minCut" yaml:"minCut"`
		MaxCut     types.Amount  `json:"maxCut" yaml:"maxCut"`
	}

	// ValidatorPayment is the validators' share of every task payment, it can't be disabled.
	ValidatorPayment struct {
		Enabled    bool          `json:"enabled" yaml:"enabled"`
		Percentage types.Percent `json:"percentage" yaml:"percentage"`
		MinPayment types.Amount  `json:"minPayment" yaml:"minPayment"`
		MaxPayment types.Amount  `json:"maxPayment" yaml:"maxPayment"`
	}
)

func (s CreationFeeSplit) parts() []types.Percent {
	return []types.Percent{s.CreatorReward, s.MinerPool, s.PurposeBoundSinks, s.Burn}
}

/*
ValidateMoneyFlowConfig checks the shape of the config and reports all the
problems found. Config with disabled validator payment is always rejected.
*/
func ValidateMoneyFlowConfig(cfg *Config) *types.ValidationResult {
	res := types.NewValidationResult()
	if cfg == nil {
		res.Addf("%s is missing", ValidationSubject)
		return res
	}

	split := cfg.CreationFeeSplit
	for _, p := range []struct {
		name  string
		value types.Percent
	}{
		{"creationFeeSplit.creatorReward", split.CreatorReward},
		{"creationFeeSplit.minerPool", split.MinerPool},
		{"creationFeeSplit.purposeBoundSinks", split.PurposeBoundSinks},
		{"creationFeeSplit.burn", split.Burn},
		{"usageCut.percentage", cfg.UsageCut.Percentage},
		{"validatorPayment.percentage", cfg.ValidatorPayment.Percentage},
	} {
		if !p.value.InRange() {
			res.Addf("%s must be in range [0, 100], got %s", p.name, p.value)
		}
	}

	sum := types.SumPercents(split.parts()...)
	if sum.Dec().Sub(hundredPercent.Dec()).Abs().GT(splitTolerance.Dec()) {
		res.Addf("creationFeeSplit must sum to 100, got %s", sum)
	}

	validateBounds(res, "usageCut", "minCut", cfg.UsageCut.MinCut, "maxCut", cfg.UsageCut.MaxCut)
	validateBounds(res, "validatorPayment", "minPayment", cfg.ValidatorPayment.MinPayment, "maxPayment", cfg.ValidatorPayment.MaxPayment)

	if !cfg.ValidatorPayment.Enabled {
		res.Addf("validatorPayment must be enabled")
	}
	return res
}

func validateBounds(res *types.ValidationResult, prefix, minName string, minValue types.Amount, maxName string, maxValue types.Amount) {
	if minValue.IsNegative() {
		res.Addf("%s.%s must not be negative, got %s", prefix, minName, minValue)
	}
	if maxValue.IsNegative() {
		res.Addf("%s.%s must not be negative, got %s", prefix, maxName, maxValue)
	}
	if minValue.GT(maxValue) {
		res.Addf("%s.%s %s is greater than %s %s", prefix, minName, minValue, maxName, maxValue)
	}
}
