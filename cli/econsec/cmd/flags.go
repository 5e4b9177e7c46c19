package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/alphabill-org/econsec/engine"
	"github.com/alphabill-org/econsec/risk"
	"github.com/alphabill-org/econsec/types"
	"github.com/alphabill-org/econsec/validators"
)

// amountValue is non-negative amount of minor units cli flag, implements github.com/spf13/pflag/flag.go#Value interface
type amountValue struct {
	value *types.Amount
}

func newAmountValue(def types.Amount, p *types.Amount) *amountValue {
	*p = def
	return &amountValue{value: p}
}

// String returns string value of given amount, used in Printf and help context
func (a *amountValue) String() string {
	if a.value == nil {
		return ""
	}
	return a.value.String()
}

func (a *amountValue) Set(v string) error {
	amount, err := types.ParseAmount(v)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return types.ErrNegativeAmount
	}
	*a.value = amount
	return nil
}

// Type used to show the type value in the help context
func (a *amountValue) Type() string {
	return "amount"
}

// addressValue is hex encoded address cli flag
type addressValue struct {
	value *common.Address
}

func (a *addressValue) String() string {
	if a.value == nil || *a.value == (common.Address{}) {
		return ""
	}
	return a.value.Hex()
}

func (a *addressValue) Set(v string) error {
	if !common.IsHexAddress(v) {
		return fmt.Errorf("%q is not a hex encoded address", v)
	}
	*a.value = common.HexToAddress(v)
	return nil
}

func (a *addressValue) Type() string {
	return "address"
}

type engineFlags struct {
	BaseCreationFee          types.Amount
	PenaltyConfigFee         types.Amount
	SinksAddress             common.Address
	HighCorrelationThreshold float64
}

func (f *engineFlags) addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Var(newAmountValue(risk.DefaultBaseCreationFee, &f.BaseCreationFee), "base-creation-fee",
		"base network creation fee in minor units, multiplied by the risk category multiplier")
	cmd.Flags().Var(newAmountValue(risk.DefaultPenaltyConfigFee, &f.PenaltyConfigFee), "penalty-config-fee",
		"fee in minor units charged for custom penalty configuration")
	cmd.Flags().Var(&addressValue{value: &f.SinksAddress}, "sinks-address",
		"receiver of the purpose bound sinks share of creation fees (default is the burn address)")
	cmd.Flags().Float64Var(&f.HighCorrelationThreshold, "high-correlation-threshold", validators.DefaultHighCorrelationThreshold,
		"absolute correlation score above which validators are considered to act in concert")
}

func (f *engineFlags) options() []engine.Option {
	opts := []engine.Option{
		engine.WithBaseCreationFee(f.BaseCreationFee),
		engine.WithPenaltyConfigFee(f.PenaltyConfigFee),
		engine.WithHighCorrelationThreshold(f.HighCorrelationThreshold),
	}
	if f.SinksAddress != (common.Address{}) {
		opts = append(opts, engine.WithSinksAddress(f.SinksAddress))
	}
	return opts
}
