package moneyflow

import (
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/econsec/invariant"
	"github.com/alphabill-org/econsec/types"
)

var creator = common.HexToAddress("0x00000000000000000000000000000000000000c1")

func TestNewRouter(t *testing.T) {
	require.Equal(t, types.BurnAddress, NewRouter(common.Address{}).PurposeBoundSinksAddress())

	sinks := common.HexToAddress("0x5151515151515151515151515151515151515151")
	require.Equal(t, sinks, NewRouter(sinks).PurposeBoundSinksAddress())
}

func TestRouter_RouteCreationFee(t *testing.T) {
	r := NewRouter(common.Address{})

	t.Run("exact split", func(t *testing.T) {
		rt, err := r.RouteCreationFee(types.NewAmount(100), creator, validConfig())
		require.NoError(t, err)
		require.Equal(t, creator, rt.Creator)
		require.Equal(t, "20", rt.CreatorReward.String())
		require.Equal(t, "50", rt.MinerPool.String())
		require.Equal(t, "20", rt.PurposeBoundSinks.String())
		require.Equal(t, "10", rt.Burn.String())
		require.Equal(t, "100", rt.Total.String())
		require.Equal(t, types.BurnAddress, rt.PurposeBoundSinksAddress)
	})

	t.Run("rounding remainder is burned", func(t *testing.T) {
		cfg := validConfig()
		cfg.CreationFeeSplit = CreationFeeSplit{
			CreatorReward:     types.MustParsePercent("33.33"),
			MinerPool:         types.MustParsePercent("33.33"),
			PurposeBoundSinks: types.MustParsePercent("33.34"),
			Burn:              types.NewPercent(0),
		}
		rt, err := r.RouteCreationFee(types.NewAmount(10), creator, cfg)
		require.NoError(t, err)
		require.Equal(t, "3", rt.CreatorReward.String())
		require.Equal(t, "3", rt.MinerPool.String())
		require.Equal(t, "3", rt.PurposeBoundSinks.String())
		require.Equal(t, "1", rt.Burn.String())
	})

	t.Run("zero fee", func(t *testing.T) {
		rt, err := r.RouteCreationFee(types.ZeroAmount(), creator, validConfig())
		require.NoError(t, err)
		require.True(t, rt.Burn.IsZero())
		require.True(t, rt.CreatorReward.IsZero())
	})

	t.Run("conserved for random fees", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(1))
		cfg := validConfig()
		cfg.CreationFeeSplit.CreatorReward = types.MustParsePercent("17.123")
		cfg.CreationFeeSplit.MinerPool = types.MustParsePercent("52.877")
		for i := 0; i < 500; i++ {
			fee := types.NewAmount(rnd.Uint64()).MulUint64(uint64(rnd.Intn(1000) + 1))
			rt, err := r.RouteCreationFee(fee, creator, cfg)
			require.NoError(t, err)
			require.True(t, fee.Equal(types.SumAmounts(rt.CreatorReward, rt.MinerPool, rt.PurposeBoundSinks, rt.Burn)))
		}
	})

	t.Run("invalid split is invariant violation", func(t *testing.T) {
		cfg := validConfig()
		cfg.CreationFeeSplit.Burn = types.NewPercent(11)
		rt, err := r.RouteCreationFee(types.NewAmount(100), creator, cfg)
		require.Nil(t, rt)
		require.ErrorIs(t, err, invariant.ErrViolation)
		var v *invariant.PercentageSplitViolation
		require.ErrorAs(t, err, &v)
		require.Equal(t, "MoneyFlowRouter.RouteCreationFee", v.Origin())
	})

	t.Run("negative fee", func(t *testing.T) {
		_, err := r.RouteCreationFee(types.MustParseAmount("-100"), creator, validConfig())
		var v *invariant.NegativeAmountViolation
		require.ErrorAs(t, err, &v)
		require.Equal(t, "creatorReward", v.Name)
	})
}

func TestRouter_CalculateUsageCut(t *testing.T) {
	r := NewRouter(common.Address{})
	cfg := validConfig()

	t.Run("proportional", func(t *testing.T) {
		rt, err := r.CalculateUsageCut(types.NewAmount(1000), cfg)
		require.NoError(t, err)
		require.Equal(t, "50", rt.CreatorCut.String())
		require.Equal(t, "100", rt.ValidatorPayment.String())
		require.Equal(t, "850", rt.MinerPayment.String())
		require.False(t, rt.Reduced)
	})

	t.Run("minimums", func(t *testing.T) {
		// 5% of 100 is below minCut, 10% of 100 is below minPayment
		rt, err := r.CalculateUsageCut(types.NewAmount(100), cfg)
		require.NoError(t, err)
		require.Equal(t, cfg.UsageCut.MinCut, rt.CreatorCut)
		require.Equal(t, cfg.ValidatorPayment.MinPayment, rt.ValidatorPayment)
		require.Equal(t, "70", rt.MinerPayment.String())
	})

	t.Run("maximums", func(t *testing.T) {
		rt, err := r.CalculateUsageCut(types.NewAmount(1_000_000), cfg)
		require.NoError(t, err)
		require.Equal(t, cfg.UsageCut.MaxCut, rt.CreatorCut)
		require.Equal(t, cfg.ValidatorPayment.MaxPayment, rt.ValidatorPayment)
		require.Equal(t, "994000", rt.MinerPayment.String())
	})

	t.Run("cuts are computed from the same base", func(t *testing.T) {
		c := validConfig()
		c.UsageCut.Percentage = types.NewPercent(50)
		c.UsageCut.MaxCut = types.NewAmount(1_000_000)
		c.ValidatorPayment.Percentage = types.NewPercent(50)
		c.ValidatorPayment.MaxPayment = types.NewAmount(1_000_000)
		rt, err := r.CalculateUsageCut(types.NewAmount(10_000), c)
		require.NoError(t, err)
		require.Equal(t, "5000", rt.CreatorCut.String())
		require.Equal(t, "5000", rt.ValidatorPayment.String())
		require.True(t, rt.MinerPayment.IsZero())
		require.False(t, rt.Reduced)
	})

	t.Run("usage cut disabled", func(t *testing.T) {
		c := validConfig()
		c.UsageCut.Enabled = false
		rt, err := r.CalculateUsageCut(types.NewAmount(1000), c)
		require.NoError(t, err)
		require.True(t, rt.CreatorCut.IsZero())
		require.Equal(t, "100", rt.ValidatorPayment.String())
		require.Equal(t, "900", rt.MinerPayment.String())
	})

	t.Run("minimums exceeding payment are reduced", func(t *testing.T) {
		rt, err := r.CalculateUsageCut(types.NewAmount(15), cfg)
		require.NoError(t, err)
		// minCut 10 and minPayment 20 are scaled down to 15
		require.True(t, rt.Reduced)
		require.Equal(t, "5", rt.CreatorCut.String())
		require.Equal(t, "10", rt.ValidatorPayment.String())
		require.True(t, rt.MinerPayment.IsZero())

		rt, err = r.CalculateUsageCut(types.ZeroAmount(), cfg)
		require.NoError(t, err)
		require.True(t, rt.Reduced)
		require.True(t, rt.CreatorCut.IsZero())
		require.True(t, rt.ValidatorPayment.IsZero())
		require.True(t, rt.MinerPayment.IsZero())
	})

	t.Run("large amounts", func(t *testing.T) {
		for _, v := range []string{
			"1000000000000000000000000000000000000000",
			// 2^256-1
			"115792089237316195423570985008687907853269984665640564039457584007913129639935",
		} {
			a := types.MustParseAmount(v)
			c := validConfig()
			c.UsageCut.MinCut, c.UsageCut.MaxCut = a, a
			c.ValidatorPayment.MinPayment, c.ValidatorPayment.MaxPayment = a, a
			require.True(t, ValidateMoneyFlowConfig(c).Valid)

			var rt *TaskPaymentRouting
			var err error
			require.NotPanics(t, func() { rt, err = r.CalculateUsageCut(a, c) })
			require.NoError(t, err)
			require.True(t, rt.Reduced)
			require.True(t, rt.MinerPayment.IsZero())
			require.True(t, a.Equal(types.SumAmounts(rt.CreatorCut, rt.ValidatorPayment)))
		}
		rt, err := r.CalculateUsageCut(types.MustParseAmount("1000000000000000000000000000000000000000"), validConfig())
		require.NoError(t, err)
		require.Equal(t, "1000", rt.CreatorCut.String())
		require.Equal(t, "5000", rt.ValidatorPayment.String())
	})

	t.Run("conserved for random payments", func(t *testing.T) {
		rnd := rand.New(rand.NewSource(2))
		for i := 0; i < 500; i++ {
			payment := types.NewAmount(uint64(rnd.Int63n(10_000_000)))
			rt, err := r.CalculateUsageCut(payment, cfg)
			require.NoError(t, err)
			require.True(t, payment.Equal(types.SumAmounts(rt.CreatorCut, rt.ValidatorPayment, rt.MinerPayment)))
			require.False(t, rt.MinerPayment.IsNegative())
		}
	})

	t.Run("negative payment", func(t *testing.T) {
		_, err := r.CalculateUsageCut(types.MustParseAmount("-1"), cfg)
		var v *invariant.NegativeAmountViolation
		require.ErrorAs(t, err, &v)
		require.Equal(t, "taskPayment", v.Name)
		require.Equal(t, "MoneyFlowRouter.CalculateUsageCut", v.Origin())
	})
}
