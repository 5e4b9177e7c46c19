package moneyflow

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alphabill-org/econsec/invariant"
	"github.com/alphabill-org/econsec/types"
)

const (
	originRouteCreationFee  = "MoneyFlowRouter.RouteCreationFee"
	originCalculateUsageCut = "MoneyFlowRouter.CalculateUsageCut"
)

type (
	// CreationFeeRouting is a conserved allocation of a network creation fee.
	CreationFeeRouting struct {
		Creator                  common.Address `json:"creator"`
		CreatorReward            types.Amount   `json:"creatorReward"`
		MinerPool                types.Amount   `json:"minerPool"`
		PurposeBoundSinks        types.Amount   `json:"purposeBoundSinks"`
		PurposeBoundSinksAddress common.Address `json:"purposeBoundSinksAddress"`
		Burn                     types.Amount   `json:"burn"`
		Total                    types.Amount   `json:"total"`
	}

	// TaskPaymentRouting is a conserved allocation of a task payment.
	TaskPaymentRouting struct {
		TaskPayment      types.Amount `json:"taskPayment"`
		CreatorCut       types.Amount `json:"creatorCut"`
		ValidatorPayment types.Amount `json:"validatorPayment"`
		MinerPayment     types.Amount `json:"minerPayment"`
		// Reduced is set when creator cut and validator payment together
		// exceeded the task payment and both were scaled down to fit.
		Reduced bool `json:"reduced"`
	}

	/*
		Router splits money between stakeholders. It holds no mutable state and
		is safe for concurrent use.
	*/
	Router struct {
		sinks common.Address
	}
)

/*
NewRouter returns router sending the purpose bound share of fees to the
"sinks" address. Zero address means the share is burned.
*/
func NewRouter(sinks common.Address) *Router {
	if sinks == (common.Address{}) {
		sinks = types.BurnAddress
	}
	return &Router{sinks: sinks}
}

/*
PurposeBoundSinksAddress returns the address receiving purpose bound sinks
share. It is fixed for the lifetime of the process, there is no way to
retarget it.
*/
func (r *Router) PurposeBoundSinksAddress() common.Address {
	return r.sinks
}

/*
RouteCreationFee splits network creation fee according to the config.

Buckets are computed proportionally to the sum of the split percentages and
truncated to minor units, the rounding remainder goes to the burn bucket.
Config must have been validated with ValidateMoneyFlowConfig, an error
returned by this method is invariant violation, ie internal defect.
*/
func (r *Router) RouteCreationFee(totalFee types.Amount, creator common.Address, cfg *Config) (*CreationFeeRouting, error) {
	parts := cfg.CreationFeeSplit.parts()
	if err := invariant.CheckPercentageSplit(originRouteCreationFee, parts, hundredPercent, splitTolerance); err != nil {
		return nil, err
	}

	// fixed point percentages share the scale so their raw integers can be used as weights
	sum := types.SumPercents(parts...).Dec().BigInt()
	share := func(p types.Percent) types.Amount {
		v := new(big.Int).Mul(totalFee.BigInt(), p.Dec().BigInt())
		return types.AmountFromInt(sdkmath.NewIntFromBigInt(v.Quo(v, sum)))
	}

	rt := &CreationFeeRouting{
		Creator:                  creator,
		CreatorReward:            share(cfg.CreationFeeSplit.CreatorReward),
		MinerPool:                share(cfg.CreationFeeSplit.MinerPool),
		PurposeBoundSinks:        share(cfg.CreationFeeSplit.PurposeBoundSinks),
		PurposeBoundSinksAddress: r.sinks,
		Total:                    totalFee,
	}
	rt.Burn = totalFee.Sub(types.SumAmounts(rt.CreatorReward, rt.MinerPool, rt.PurposeBoundSinks))

	if err := invariant.CheckMoneyConservation(originRouteCreationFee, totalFee, rt.CreatorReward, rt.MinerPool, rt.PurposeBoundSinks, rt.Burn); err != nil {
		return nil, err
	}
	if err := invariant.CheckNoNegativeAmounts(originRouteCreationFee,
		invariant.Named("creatorReward", rt.CreatorReward),
		invariant.Named("minerPool", rt.MinerPool),
		invariant.Named("purposeBoundSinks", rt.PurposeBoundSinks),
		invariant.Named("burn", rt.Burn),
		invariant.Named("total", rt.Total),
	); err != nil {
		return nil, err
	}
	return rt, nil
}

/*
CalculateUsageCut splits task payment between network creator, validators
and miner.

Creator cut and validator payment are computed independently from the
task payment and clamped into their configured bounds, miner gets the rest.
When the clamped cuts together exceed the payment both are reduced
proportionally so that miner payment is zero rather than negative. Validator
payment is mandatory, its Enabled flag is only enforced by validation.
*/
func (r *Router) CalculateUsageCut(taskPayment types.Amount, cfg *Config) (*TaskPaymentRouting, error) {
	if err := invariant.CheckNoNegativeAmounts(originCalculateUsageCut, invariant.Named("taskPayment", taskPayment)); err != nil {
		return nil, err
	}

	rt := &TaskPaymentRouting{
		TaskPayment:      taskPayment,
		CreatorCut:       types.ZeroAmount(),
		ValidatorPayment: taskPayment.MulPercent(cfg.ValidatorPayment.Percentage).Clamp(cfg.ValidatorPayment.MinPayment, cfg.ValidatorPayment.MaxPayment),
	}
	if cfg.UsageCut.Enabled {
		rt.CreatorCut = taskPayment.MulPercent(cfg.UsageCut.Percentage).Clamp(cfg.UsageCut.MinCut, cfg.UsageCut.MaxCut)
	}

	// both cuts may be near the 256 bit limit so the sum is kept as big.Int
	if committed := new(big.Int).Add(rt.CreatorCut.BigInt(), rt.ValidatorPayment.BigInt()); committed.Cmp(taskPayment.BigInt()) > 0 {
		rt.CreatorCut = types.MulFracBig(rt.CreatorCut, taskPayment.BigInt(), committed)
		rt.ValidatorPayment = taskPayment.Sub(rt.CreatorCut)
		rt.Reduced = true
	}
	rt.MinerPayment = taskPayment.Sub(rt.CreatorCut).Sub(rt.ValidatorPayment)

	if err := invariant.CheckMoneyConservation(originCalculateUsageCut, taskPayment, rt.CreatorCut, rt.ValidatorPayment, rt.MinerPayment); err != nil {
		return nil, err
	}
	if err := invariant.CheckNoNegativeAmounts(originCalculateUsageCut,
		invariant.Named("creatorCut", rt.CreatorCut),
		invariant.Named("validatorPayment", rt.ValidatorPayment),
		invariant.Named("minerPayment", rt.MinerPayment),
	); err != nil {
		return nil, err
	}
	return rt, nil
}
