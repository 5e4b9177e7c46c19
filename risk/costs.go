package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/alphabill-org/econsec/invariant"
	"github.com/alphabill-org/econsec/types"
)

var (
	// DefaultBaseCreationFee is the creation fee of a "safe" network, 0.01 token.
	DefaultBaseCreationFee = types.MustTokenAmount("0.01")
	// DefaultPenaltyConfigFee is charged when creator opts out of protocol default penalty handling.
	DefaultPenaltyConfigFee = types.MustTokenAmount("0.005")
)

const (
	baseSettlementDelay = 3600 // seconds

	minCreatorRewardPercentage = 10
	maxCreatorRewardPercentage = 50

	// required stake is at most 10 * 100/20 times the max payout
	maxStakeMultiplier = 50
)

/*
RequiredCosts are economic requirements derived from the risk score. Once
recorded for a network they are never recomputed.
*/
type RequiredCosts struct {
	CreationFee             types.Amount  `json:"creationFee"`
	CreatorReward           types.Amount  `json:"creatorReward"`
	CreatorRewardPercentage types.Percent `json:"creatorRewardPercentage"`
	RequiredStake           types.Amount  `json:"requiredStake"`
	// SettlementDelay and EscrowLockup are in seconds.
	SettlementDelay  uint64       `json:"settlementDelay"`
	EscrowLockup     uint64       `json:"escrowLockup"`
	SlashingEnabled  bool         `json:"slashingEnabled"`
	SlashingRate     uint8        `json:"slashingRate"`
	PenaltyConfigFee types.Amount `json:"penaltyConfigFee"`
}

func (rc *RequiredCosts) SettlementDelayDuration() time.Duration {
	return time.Duration(rc.SettlementDelay) * time.Second
}

func (rc *RequiredCosts) EscrowLockupDuration() time.Duration {
	return time.Duration(rc.EscrowLockup) * time.Second
}

type (
	CostCalculator struct {
		baseFee          types.Amount
		penaltyConfigFee types.Amount
	}

	CostOption func(*CostCalculator)
)

func WithBaseCreationFee(fee types.Amount) CostOption {
	return func(cc *CostCalculator) {
		cc.baseFee = fee
	}
}

func WithPenaltyConfigFee(fee types.Amount) CostOption {
	return func(cc *CostCalculator) {
		cc.penaltyConfigFee = fee
	}
}

func NewCostCalculator(opts ...CostOption) (*CostCalculator, error) {
	cc := &CostCalculator{
		baseFee:          DefaultBaseCreationFee,
		penaltyConfigFee: DefaultPenaltyConfigFee,
	}
	for _, o := range opts {
		o(cc)
	}
	if !cc.baseFee.IsPositive() {
		return nil, fmt.Errorf("base creation fee must be positive, got %s", cc.baseFee)
	}
	if cc.penaltyConfigFee.IsNegative() {
		return nil, fmt.Errorf("penalty config fee must not be negative, got %s", cc.penaltyConfigFee)
	}
	return cc, nil
}

func (cc *CostCalculator) BaseCreationFee() types.Amount { return cc.baseFee }

/*
Calculate maps risk score to the costs a network creator must bear.

Returned error is always an invariant violation, ie either the score was
not produced by Evaluate or the caller didn't validate maxPayoutPerTask.
*/
func (cc *CostCalculator) Calculate(score Score, maxPayoutPerTask types.Amount, hasCustomPenaltyConfig bool) (RequiredCosts, error) {
	const origin = "RequiredCostCalculator.Calculate"
	risk := score.TotalRisk
	if err := invariant.CheckRiskScoreBounds(origin, risk); err != nil {
		return RequiredCosts{}, err
	}

	creationFee := cc.baseFee.MulUint64(riskMultiplier(risk))
	rewardPct := types.PercentFromFloat(max(minCreatorRewardPercentage, maxCreatorRewardPercentage-risk*0.4))
	settlementDelay := uint64(math.Floor(baseSettlementDelay * max(1, risk/30)))

	rc := RequiredCosts{
		CreationFee:             creationFee,
		CreatorReward:           creationFee.MulPercent(rewardPct),
		CreatorRewardPercentage: rewardPct,
		RequiredStake:           maxPayoutPerTask.MulDec(types.PercentFromFloat(max(1, risk/20) * 10).Dec()),
		SettlementDelay:         settlementDelay,
		EscrowLockup:            2 * settlementDelay,
		SlashingEnabled:         risk >= riskyFrom,
		SlashingRate:            slashingRate(risk),
		PenaltyConfigFee:        types.ZeroAmount(),
	}
	if hasCustomPenaltyConfig {
		rc.PenaltyConfigFee = cc.penaltyConfigFee
	}

	if err := invariant.CheckNoNegativeAmounts(origin,
		invariant.Named("creationFee", rc.CreationFee),
		invariant.Named("creatorReward", rc.CreatorReward),
		invariant.Named("requiredStake", rc.RequiredStake),
		invariant.Named("penaltyConfigFee", rc.PenaltyConfigFee),
	); err != nil {
		return RequiredCosts{}, err
	}
	return rc, nil
}

func riskMultiplier(risk float64) uint64 {
	switch {
	case risk < moderateFrom:
		return 1
	case risk < riskyFrom:
		return 2
	case risk < dangerousFrom:
		return 5
	default:
		return 10
	}
}

func slashingRate(risk float64) uint8 {
	switch {
	case risk >= dangerousFrom:
		return 50
	case risk >= riskyFrom:
		return 25
	default:
		return 0
	}
}
