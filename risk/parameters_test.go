package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/econsec/types"
)

func TestValidateParameters(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res := ValidateParameters(&Parameters{
			PayoutCap:          "100",
			MaxPayoutPerTask:   "100",
			StakeRequired:      "0",
			MinValidators:      1,
			ConsensusThreshold: 0.5,
		})
		require.True(t, res.Valid)
		require.Empty(t, res.Errors)
		require.NoError(t, res.Err("risk parameters"))

		p := safeParameters()
		require.True(t, ValidateParameters(&p).Valid)
		p = dangerousParameters()
		require.True(t, ValidateParameters(&p).Valid)
	})

	t.Run("max payout too large for required stake", func(t *testing.T) {
		p := dangerousParameters()
		// (2^256-1)/50 + 1
		p.MaxPayoutPerTask = "2315841784746323908471419700173758157065399693312811280789151680158262592799"
		res := ValidateParameters(&p)
		require.False(t, res.Valid)
		require.Contains(t, res.Errors, "maxPayoutPerTask is too large, got "+p.MaxPayoutPerTask)

		p.MaxPayoutPerTask = "2315841784746323908471419700173758157065399693312811280789151680158262592798"
		require.True(t, ValidateParameters(&p).Valid)
		cc, err := NewCostCalculator()
		require.NoError(t, err)
		var costs RequiredCosts
		require.NotPanics(t, func() { costs, err = cc.Calculate(Evaluate(p), types.MustParseAmount(p.MaxPayoutPerTask), false) })
		require.NoError(t, err)
		require.True(t, costs.RequiredStake.IsPositive())
	})

	t.Run("nil", func(t *testing.T) {
		res := ValidateParameters(nil)
		require.False(t, res.Valid)
		require.Equal(t, []string{"risk parameters are missing"}, res.Errors)
	})

	t.Run("all problems are reported", func(t *testing.T) {
		res := ValidateParameters(&Parameters{
			PayoutCap:          "x",
			SettlementDelay:    -1,
			SingleValidator:    true,
			MaxPayoutPerTask:   "-5",
			MinValidators:      3,
			ConsensusThreshold: 1.5,
			DisputeWindow:      -10,
			StakeRequired:      "",
		})
		require.False(t, res.Valid)
		require.Equal(t, []string{
			`payoutCap: invalid amount: "x" is not an integer`,
			"maxPayoutPerTask must not be negative, got -5",
			"stakeRequired: invalid amount: empty string",
			"settlementDelay must not be negative, got -1",
			"disputeWindow must not be negative, got -10",
			"consensusThreshold must be in range [0, 1], got 1.5",
			"singleValidator conflicts with minValidators 3",
		}, res.Errors)
		require.ErrorContains(t, res.Err("risk parameters"), "invalid risk parameters: payoutCap")
	})

	t.Run("NaN threshold", func(t *testing.T) {
		p := safeParameters()
		p.ConsensusThreshold = math.NaN()
		p.MinValidators = 0
		res := ValidateParameters(&p)
		require.Equal(t, []string{
			"minValidators must be at least 1, got 0",
			"consensusThreshold must be in range [0, 1], got NaN",
		}, res.Errors)
	})
}
