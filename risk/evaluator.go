package risk

import (
	"github.com/alphabill-org/econsec/types"
)

// amount thresholds are in whole tokens
var (
	tokens0001 = types.MustTokenAmount("0.001")
	tokens001  = types.MustTokenAmount("0.01")
	tokens01   = types.MustTokenAmount("0.1")
	tokens1    = types.MustTokenAmount("1")
	tokens10   = types.MustTokenAmount("10")
)

const (
	hour = 3600
	day  = 24 * hour
	week = 7 * day
)

/*
Evaluate maps network risk parameters to a risk score. Every factor
contributes according to a monotonic step function and the total is capped
at MaxTotalRisk.

Evaluate has no error path, malformed numeric values are scored as zero.
*/
func Evaluate(p Parameters) Score {
	b := Breakdown{
		PayoutCap:           payoutCapRisk(p.payoutCap()),
		SettlementDelay:     settlementDelayRisk(p.SettlementDelay),
		TaskSchema:          flagRisk(!p.TaskSchemaFixed, 10),
		CustomScoring:       flagRisk(p.CustomScoring, 25),
		InstantPayout:       flagRisk(p.InstantPayout, 20),
		SingleValidator:     flagRisk(p.SingleValidator, 30),
		NonDeterministic:    flagRisk(p.NonDeterministic, 25),
		ValidatorSelfSelect: flagRisk(p.ValidatorSelfSelect, 15),
		MaxPayout:           maxPayoutRisk(p.maxPayout()),
		ValidatorCount:      validatorCountRisk(p.MinValidators),
		ConsensusThreshold:  consensusThresholdRisk(p.ConsensusThreshold),
		DisputeWindow:       disputeWindowRisk(p.DisputeWindow),
		StakeRequired:       stakeRequiredRisk(p.stakeRequired()),
	}
	total := min(b.Sum(), MaxTotalRisk)
	return Score{
		TotalRisk: total,
		Breakdown: b,
		Category:  CategoryOf(total),
	}
}

func flagRisk(set bool, risk float64) float64 {
	if set {
		return risk
	}
	return 0
}

func payoutCapRisk(v types.Amount) float64 {
	switch {
	case !v.IsPositive():
		return 0
	case v.LT(tokens0001):
		return 0
	case v.LT(tokens001):
		return 2
	case v.LT(tokens01):
		return 5
	case v.LT(tokens1):
		return 10
	default:
		return 15
	}
}

func maxPayoutRisk(v types.Amount) float64 {
	switch {
	case !v.IsPositive():
		return 0
	case v.LT(tokens0001):
		return 0
	case v.LT(tokens001):
		return 2
	case v.LT(tokens01):
		return 5
	case v.LT(tokens1):
		return 10
	case v.LT(tokens10):
		return 15
	default:
		return 20
	}
}

// longer delay is safer
func settlementDelayRisk(seconds int64) float64 {
	switch {
	case seconds >= day:
		return 0
	case seconds >= hour:
		return 2
	case seconds >= 300:
		return 5
	case seconds >= 60:
		return 10
	default:
		return 15
	}
}

func validatorCountRisk(n int64) float64 {
	switch {
	case n >= 5:
		return 0
	case n >= 3:
		return 5
	case n >= 2:
		return 15
	default:
		return 30
	}
}

// NaN threshold falls through to the riskiest bucket
func consensusThresholdRisk(t float64) float64 {
	switch {
	case t >= 0.8:
		return 0
	case t >= 0.6:
		return 3
	case t >= 0.5:
		return 8
	case t >= 0.33:
		return 15
	default:
		return 25
	}
}

func disputeWindowRisk(seconds int64) float64 {
	switch {
	case seconds >= week:
		return 0
	case seconds >= day:
		return 2
	case seconds >= hour:
		return 5
	case seconds >= 300:
		return 10
	default:
		return 15
	}
}

// zero (or negative) stake is the riskiest
func stakeRequiredRisk(v types.Amount) float64 {
	switch {
	case !v.IsPositive():
		return 20
	case v.LT(tokens0001):
		return 15
	case v.LT(tokens001):
		return 10
	case v.LT(tokens01):
		return 5
	default:
		return 0
	}
}
