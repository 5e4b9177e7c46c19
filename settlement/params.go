/*
Package settlement converts the economic requirements of a network into the
parameters of the settlement contract deployment.

Deployment itself happens elsewhere, this package only produces the values
in the shape the contract expects: unsigned 256 bit integers, percentages in
basis points.
*/
package settlement

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"github.com/alphabill-org/econsec/moneyflow"
	"github.com/alphabill-org/econsec/risk"
	"github.com/alphabill-org/econsec/types"
)

const (
	paramsVersion = 1

	// TotalBasisPoints is 100% in basis points.
	TotalBasisPoints = 10_000
)

type DeploymentParams struct {
	CreationFee      *uint256.Int
	CreatorReward    *uint256.Int
	RequiredStake    *uint256.Int
	PenaltyConfigFee *uint256.Int
	SettlementDelay  *uint256.Int // seconds
	EscrowLockup     *uint256.Int // seconds
	SlashingEnabled  bool
	SlashingRateBps  *uint256.Int

	CreatorRewardBps     *uint256.Int
	MinerPoolBps         *uint256.Int
	PurposeBoundSinksBps *uint256.Int
	BurnBps              *uint256.Int
	PurposeBoundSinks    common.Address

	UsageCutEnabled     bool
	UsageCutBps         *uint256.Int
	MinCut              *uint256.Int
	MaxCut              *uint256.Int
	ValidatorPaymentBps *uint256.Int
	MinPayment          *uint256.Int
	MaxPayment          *uint256.Int
}

/*
NewDeploymentParams builds contract parameters out of the required costs and
validated money flow config. Creation fee split is converted into basis
points summing exactly to TotalBasisPoints, rounding remainder is added to
the burn share. Negative amounts and values not fitting into 256 bits are
rejected.
*/
func NewDeploymentParams(costs risk.RequiredCosts, cfg *moneyflow.Config, sinks common.Address) (*DeploymentParams, error) {
	if cfg == nil {
		return nil, fmt.Errorf("money flow config is nil")
	}
	c := &converter{}
	dp := &DeploymentParams{
		CreationFee:      c.amount("creationFee", costs.CreationFee),
		CreatorReward:    c.amount("creatorReward", costs.CreatorReward),
		RequiredStake:    c.amount("requiredStake", costs.RequiredStake),
		PenaltyConfigFee: c.amount("penaltyConfigFee", costs.PenaltyConfigFee),
		SettlementDelay:  uint256.NewInt(costs.SettlementDelay),
		EscrowLockup:     uint256.NewInt(costs.EscrowLockup),
		SlashingEnabled:  costs.SlashingEnabled,
		SlashingRateBps:  uint256.NewInt(uint64(costs.SlashingRate) * 100),

		PurposeBoundSinks: sinks,

		UsageCutEnabled:     cfg.UsageCut.Enabled,
		UsageCutBps:         c.bps("usageCut.percentage", cfg.UsageCut.Percentage),
		MinCut:              c.amount("usageCut.minCut", cfg.UsageCut.MinCut),
		MaxCut:              c.amount("usageCut.maxCut", cfg.UsageCut.MaxCut),
		ValidatorPaymentBps: c.bps("validatorPayment.percentage", cfg.ValidatorPayment.Percentage),
		MinPayment:          c.amount("validatorPayment.minPayment", cfg.ValidatorPayment.MinPayment),
		MaxPayment:          c.amount("validatorPayment.maxPayment", cfg.ValidatorPayment.MaxPayment),
	}
	split := cfg.CreationFeeSplit
	dp.CreatorRewardBps, dp.MinerPoolBps, dp.PurposeBoundSinksBps, dp.BurnBps = c.split(split.CreatorReward, split.MinerPool, split.PurposeBoundSinks, split.Burn)
	if c.err != nil {
		return nil, fmt.Errorf("converting deployment parameters: %w", c.err)
	}
	return dp, nil
}

// converter remembers the first error so that conversions can be chained.
type converter struct {
	err error
}

func (c *converter) amount(name string, a types.Amount) *uint256.Int {
	return c.bigInt(name, a.BigInt())
}

func (c *converter) bigInt(name string, v *big.Int) *uint256.Int {
	if c.err != nil {
		return nil
	}
	if v.Sign() < 0 {
		c.err = fmt.Errorf("%s must not be negative, got %s", name, v)
		return nil
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		c.err = fmt.Errorf("%s does not fit into 256 bits", name)
		return nil
	}
	return u
}

func (c *converter) bps(name string, p types.Percent) *uint256.Int {
	if c.err == nil && !p.InRange() {
		c.err = fmt.Errorf("%s must be in range [0, 100], got %s", name, p)
		return nil
	}
	return c.bigInt(name, p.BasisPoints().BigInt())
}

func (c *converter) split(creator, miner, sinks, burn types.Percent) (_, _, _, _ *uint256.Int) {
	if c.err != nil {
		return
	}
	sum := types.SumPercents(creator, miner, sinks, burn).Dec().BigInt()
	if sum.Sign() <= 0 {
		c.err = fmt.Errorf("creation fee split sums to %s", types.SumPercents(creator, miner, sinks, burn))
		return
	}
	share := func(name string, p types.Percent) *uint256.Int {
		v := new(big.Int).Mul(big.NewInt(TotalBasisPoints), p.Dec().BigInt())
		return c.bigInt(name, v.Quo(v, sum))
	}
	cr := share("creationFeeSplit.creatorReward", creator)
	mp := share("creationFeeSplit.minerPool", miner)
	ps := share("creationFeeSplit.purposeBoundSinks", sinks)
	if c.err != nil {
		return
	}
	rest := new(big.Int).Sub(big.NewInt(TotalBasisPoints), new(big.Int).Add(cr.ToBig(), new(big.Int).Add(mp.ToBig(), ps.ToBig())))
	return cr, mp, ps, c.bigInt("creationFeeSplit.burn", rest)
}

type wireParams struct {
	_                    struct{} `cbor:",toarray"`
	Version              uint32
	CreationFee          []byte
	CreatorReward        []byte
	RequiredStake        []byte
	PenaltyConfigFee     []byte
	SettlementDelay      []byte
	EscrowLockup         []byte
	SlashingEnabled      bool
	SlashingRateBps      []byte
	CreatorRewardBps     []byte
	MinerPoolBps         []byte
	PurposeBoundSinksBps []byte
	BurnBps              []byte
	PurposeBoundSinks    []byte
	UsageCutEnabled      bool
	UsageCutBps          []byte
	MinCut               []byte
	MaxCut               []byte
	ValidatorPaymentBps  []byte
	MinPayment           []byte
	MaxPayment           []byte
}

func word(v *uint256.Int) []byte {
	if v == nil {
		v = new(uint256.Int)
	}
	b := v.Bytes32()
	return b[:]
}

func fromWord(name string, b []byte) (*uint256.Int, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%s: expected 32 bytes, got %d", name, len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}

/*
Encode returns CBOR encoding of the parameters, every number is encoded as
32 byte big-endian word.
*/
func (dp *DeploymentParams) Encode() ([]byte, error) {
	return cbor.Marshal(&wireParams{
		Version:              paramsVersion,
		CreationFee:          word(dp.CreationFee),
		CreatorReward:        word(dp.CreatorReward),
		RequiredStake:        word(dp.RequiredStake),
		PenaltyConfigFee:     word(dp.PenaltyConfigFee),
		SettlementDelay:      word(dp.SettlementDelay),
		EscrowLockup:         word(dp.EscrowLockup),
		SlashingEnabled:      dp.SlashingEnabled,
		SlashingRateBps:      word(dp.SlashingRateBps),
		CreatorRewardBps:     word(dp.CreatorRewardBps),
		MinerPoolBps:         word(dp.MinerPoolBps),
		PurposeBoundSinksBps: word(dp.PurposeBoundSinksBps),
		BurnBps:              word(dp.BurnBps),
		PurposeBoundSinks:    dp.PurposeBoundSinks.Bytes(),
		UsageCutEnabled:      dp.UsageCutEnabled,
		UsageCutBps:          word(dp.UsageCutBps),
		MinCut:               word(dp.MinCut),
		MaxCut:               word(dp.MaxCut),
		ValidatorPaymentBps:  word(dp.ValidatorPaymentBps),
		MinPayment:           word(dp.MinPayment),
		MaxPayment:           word(dp.MaxPayment),
	})
}

// Decode parses parameters encoded by Encode.
func Decode(data []byte) (*DeploymentParams, error) {
	var w wireParams
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding deployment parameters: %w", err)
	}
	if w.Version != paramsVersion {
		return nil, fmt.Errorf("unsupported deployment parameters version %d", w.Version)
	}
	if len(w.PurposeBoundSinks) != common.AddressLength {
		return nil, fmt.Errorf("purposeBoundSinks: expected %d bytes, got %d", common.AddressLength, len(w.PurposeBoundSinks))
	}

	dp := &DeploymentParams{
		SlashingEnabled:   w.SlashingEnabled,
		UsageCutEnabled:   w.UsageCutEnabled,
		PurposeBoundSinks: common.BytesToAddress(w.PurposeBoundSinks),
	}
	for _, f := range []struct {
		name string
		src  []byte
		dst  **uint256.Int
	}{
		{"creationFee", w.CreationFee, &dp.CreationFee},
		{"creatorReward", w.CreatorReward, &dp.CreatorReward},
		{"requiredStake", w.RequiredStake, &dp.RequiredStake},
		{"penaltyConfigFee", w.PenaltyConfigFee, &dp.PenaltyConfigFee},
		{"settlementDelay", w.SettlementDelay, &dp.SettlementDelay},
		{"escrowLockup", w.EscrowLockup, &dp.EscrowLockup},
		{"slashingRateBps", w.SlashingRateBps, &dp.SlashingRateBps},
		{"creatorRewardBps", w.CreatorRewardBps, &dp.CreatorRewardBps},
		{"minerPoolBps", w.MinerPoolBps, &dp.MinerPoolBps},
		{"purposeBoundSinksBps", w.PurposeBoundSinksBps, &dp.PurposeBoundSinksBps},
		{"burnBps", w.BurnBps, &dp.BurnBps},
		{"usageCutBps", w.UsageCutBps, &dp.UsageCutBps},
		{"minCut", w.MinCut, &dp.MinCut},
		{"maxCut", w.MaxCut, &dp.MaxCut},
		{"validatorPaymentBps", w.ValidatorPaymentBps, &dp.ValidatorPaymentBps},
		{"minPayment", w.MinPayment, &dp.MinPayment},
		{"maxPayment", w.MaxPayment, &dp.MaxPayment},
	} {
		v, err := fromWord(f.name, f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return dp, nil
}

/*
MarshalJSON encodes numbers as decimal strings, the same way as amounts are
encoded everywhere else.
*/
func (dp *DeploymentParams) MarshalJSON() ([]byte, error) {
	dec := func(v *uint256.Int) string {
		if v == nil {
			return "0"
		}
		return v.ToBig().String()
	}
	return json.Marshal(map[string]any{
		"creationFee":          dec(dp.CreationFee),
		"creatorReward":        dec(dp.CreatorReward),
		"requiredStake":        dec(dp.RequiredStake),
		"penaltyConfigFee":     dec(dp.PenaltyConfigFee),
		"settlementDelay":      dec(dp.SettlementDelay),
		"escrowLockup":         dec(dp.EscrowLockup),
		"slashingEnabled":      dp.SlashingEnabled,
		"slashingRateBps":      dec(dp.SlashingRateBps),
		"creatorRewardBps":     dec(dp.CreatorRewardBps),
		"minerPoolBps":         dec(dp.MinerPoolBps),
		"purposeBoundSinksBps": dec(dp.PurposeBoundSinksBps),
		"burnBps":              dec(dp.BurnBps),
		"purposeBoundSinks":    dp.PurposeBoundSinks,
		"usageCutEnabled":      dp.UsageCutEnabled,
		"usageCutBps":          dec(dp.UsageCutBps),
		"minCut":               dec(dp.MinCut),
		"maxCut":               dec(dp.MaxCut),
		"validatorPaymentBps":  dec(dp.ValidatorPaymentBps),
		"minPayment":           dec(dp.MinPayment),
		"maxPayment":           dec(dp.MaxPayment),
	})
}
