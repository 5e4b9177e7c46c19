package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/alphabill-org/econsec/engine"
	"github.com/alphabill-org/econsec/moneyflow"
	"github.com/alphabill-org/econsec/types"
)

const flagNameMoneyFlowConfig = "moneyflow-config"

type moneyFlowFlags struct {
	*baseConfiguration
	engineFlags

	ConfigFile string
	Fee        types.Amount
	Payment    types.Amount
	Creator    common.Address
}

func newMoneyFlowCmd(baseConfig *baseConfiguration) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "moneyflow",
		Short: "Validates money flow configurations and routes payments",
	}
	cmd.AddCommand(moneyFlowValidateCmd(baseConfig))
	cmd.AddCommand(moneyFlowRouteCmd(baseConfig))
	cmd.AddCommand(moneyFlowUsageCutCmd(baseConfig))
	return cmd
}

func (f *moneyFlowFlags) addConfigFileFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ConfigFile, flagNameMoneyFlowConfig, "", "money flow configuration file, JSON or YAML")
	_ = cmd.MarkFlagRequired(flagNameMoneyFlowConfig)
}

func moneyFlowValidateCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &moneyFlowFlags{baseConfiguration: baseConfig}
	var cmd = &cobra.Command{
		Use:   "validate",
		Short: "Validates money flow configuration",
		Long:  `Validates money flow configuration, every problem found is reported. Exits with error when the configuration is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return moneyFlowValidateRun(cmd, flags)
		},
	}
	flags.addConfigFileFlag(cmd)
	return cmd
}

func moneyFlowRouteCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &moneyFlowFlags{baseConfiguration: baseConfig}
	var cmd = &cobra.Command{
		Use:   "route",
		Short: "Routes network creation fee",
		Long:  `Splits the network creation fee between the creator, miner pool, purpose bound sinks and burn.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return moneyFlowRouteRun(cmd, flags)
		},
	}
	flags.addConfigFileFlag(cmd)
	cmd.Flags().Var(newAmountValue(types.ZeroAmount(), &flags.Fee), "fee", "creation fee in minor units")
	cmd.Flags().Var(&addressValue{value: &flags.Creator}, "creator", "address of the network creator")
	_ = cmd.MarkFlagRequired("fee")
	_ = cmd.MarkFlagRequired("creator")
	flags.addEngineFlags(cmd)
	return cmd
}

func moneyFlowUsageCutCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &moneyFlowFlags{baseConfiguration: baseConfig}
	var cmd = &cobra.Command{
		Use:   "usage-cut",
		Short: "Routes task payment",
		Long:  `Splits the task payment between the network creator, validators and the miner.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return moneyFlowUsageCutRun(cmd, flags)
		},
	}
	flags.addConfigFileFlag(cmd)
	cmd.Flags().Var(newAmountValue(types.ZeroAmount(), &flags.Payment), "payment", "task payment in minor units")
	_ = cmd.MarkFlagRequired("payment")
	flags.addEngineFlags(cmd)
	return cmd
}

func (f *moneyFlowFlags) loadConfig() (*moneyflow.Config, error) {
	cfg := &moneyflow.Config{}
	if err := readInputFile(f.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("loading money flow configuration: %w", err)
	}
	return cfg, nil
}

func moneyFlowValidateRun(cmd *cobra.Command, flags *moneyFlowFlags) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	res := moneyflow.ValidateMoneyFlowConfig(cfg)
	if err := writeJSON(cmd, res); err != nil {
		return err
	}
	return res.Err(moneyflow.ValidationSubject)
}

func moneyFlowRouteRun(cmd *cobra.Command, flags *moneyFlowFlags) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	e, err := engine.New(flags.observe, flags.options()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	rt, err := e.RouteCreationFee(cmd.Context(), flags.Fee, flags.Creator, cfg)
	if err != nil {
		return err
	}
	return writeJSON(cmd, rt)
}

func moneyFlowUsageCutRun(cmd *cobra.Command, flags *moneyFlowFlags) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	e, err := engine.New(flags.observe, flags.options()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	rt, err := e.CalculateUsageCut(cmd.Context(), flags.Payment, cfg)
	if err != nil {
		return err
	}
	return writeJSON(cmd, rt)
}
