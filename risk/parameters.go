package risk

import (
	"github.com/alphabill-org/econsec/types"
)

/*
Parameters is the risk relevant part of a network creation request.

Monetary values are decimal strings of minor units as received from the
wire. The evaluator treats unparseable value as zero while ValidateParameters
reports it as an error.
*/
type Parameters struct {
	// Maximum amount a single payout may release.
	PayoutCap string `json:"payoutCap" yaml:"payoutCap"`
	// Mandatory wait before funds are released, in seconds.
	SettlementDelay int64 `json:"settlementDelay" yaml:"settlementDelay"`
	// Task input/output must follow one of the protocol defined schemas.
	TaskSchemaFixed     bool `json:"taskSchemaFixed" yaml:"taskSchemaFixed"`
	CustomScoring       bool `json:"customScoring" yaml:"customScoring"`
	InstantPayout       bool `json:"instantPayout" yaml:"instantPayout"`
	SingleValidator     bool `json:"singleValidator" yaml:"singleValidator"`
	NonDeterministic    bool `json:"nonDeterministic" yaml:"nonDeterministic"`
	ValidatorSelfSelect bool `json:"validatorSelfSelect" yaml:"validatorSelfSelect"`

	MaxPayoutPerTask   string  `json:"maxPayoutPerTask" yaml:"maxPayoutPerTask"`
	MinValidators      int64   `json:"minValidators" yaml:"minValidators"`
	ConsensusThreshold float64 `json:"consensusThreshold" yaml:"consensusThreshold"`
	// Dispute window in seconds.
	DisputeWindow int64  `json:"disputeWindow" yaml:"disputeWindow"`
	StakeRequired string `json:"stakeRequired" yaml:"stakeRequired"`
}

func (p *Parameters) payoutCap() types.Amount     { return types.ParseAmountOrZero(p.PayoutCap) }
func (p *Parameters) maxPayout() types.Amount     { return types.ParseAmountOrZero(p.MaxPayoutPerTask) }
func (p *Parameters) stakeRequired() types.Amount { return types.ParseAmountOrZero(p.StakeRequired) }

/*
ValidateParameters checks the shape of the parameters. Every problem found
is reported in the result.
*/
func ValidateParameters(p *Parameters) *types.ValidationResult {
	res := types.NewValidationResult()
	if p == nil {
		res.Addf("risk parameters are missing")
		return res
	}

	amounts := []struct {
		name  string
		value string
	}{
		{"payoutCap", p.PayoutCap},
		{"maxPayoutPerTask", p.MaxPayoutPerTask},
		{"stakeRequired", p.StakeRequired},
	}
	for _, a := range amounts {
		v, err := types.ParseAmount(a.value)
		switch {
		case err != nil:
			res.Addf("%s: %v", a.name, err)
		case v.IsNegative():
			res.Addf("%s must not be negative, got %s", a.name, v)
		}
	}
	// required stake is derived from the max payout
	if v, err := types.ParseAmount(p.MaxPayoutPerTask); err == nil && !v.FitsMul(maxStakeMultiplier) {
		res.Addf("maxPayoutPerTask is too large, got %s", v)
	}

	if p.SettlementDelay < 0 {
		res.Addf("settlementDelay must not be negative, got %d", p.SettlementDelay)
	}
	if p.DisputeWindow < 0 {
		res.Addf("disputeWindow must not be negative, got %d", p.DisputeWindow)
	}
	if p.MinValidators < 1 {
		res.Addf("minValidators must be at least 1, got %d", p.MinValidators)
	}
	if !(p.ConsensusThreshold >= 0 && p.ConsensusThreshold <= 1) {
		res.Addf("consensusThreshold must be in range [0, 1], got %v", p.ConsensusThreshold)
	}
	if p.SingleValidator && p.MinValidators > 1 {
		res.Addf("singleValidator conflicts with minValidators %d", p.MinValidators)
	}
	return res
}
