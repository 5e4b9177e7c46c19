package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alphabill-org/econsec/engine"
	"github.com/alphabill-org/econsec/risk"
)

const flagNameParams = "params"

type riskFlags struct {
	*baseConfiguration
	engineFlags

	ParamsFile          string
	CustomPenaltyConfig bool
}

func newScoreCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &riskFlags{baseConfiguration: baseConfig}
	var cmd = &cobra.Command{
		Use:   "score",
		Short: "Evaluates risk of the network parameters",
		Long:  `Evaluates risk of the network parameters and prints the risk score with its breakdown and category.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return scoreRun(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.ParamsFile, flagNameParams, "", "risk parameters file, JSON or YAML")
	_ = cmd.MarkFlagRequired(flagNameParams)
	flags.addEngineFlags(cmd)
	return cmd
}

func newCostsCmd(baseConfig *baseConfiguration) *cobra.Command {
	flags := &riskFlags{baseConfiguration: baseConfig}
	var cmd = &cobra.Command{
		Use:   "costs",
		Short: "Calculates costs required for the network",
		Long:  `Evaluates risk of the network parameters and calculates the creation fee, stake, delays and slashing the network requires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return costsRun(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.ParamsFile, flagNameParams, "", "risk parameters file, JSON or YAML")
	_ = cmd.MarkFlagRequired(flagNameParams)
	cmd.Flags().BoolVar(&flags.CustomPenaltyConfig, "custom-penalty", false, "network uses custom penalty configuration")
	flags.addEngineFlags(cmd)
	return cmd
}

func (f *riskFlags) load() (*engine.Engine, *risk.Parameters, error) {
	p := &risk.Parameters{}
	if err := readInputFile(f.ParamsFile, p); err != nil {
		return nil, nil, fmt.Errorf("loading risk parameters: %w", err)
	}
	e, err := engine.New(f.observe, f.options()...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, p, nil
}

func scoreRun(cmd *cobra.Command, flags *riskFlags) error {
	e, p, err := flags.load()
	if err != nil {
		return err
	}
	score, err := e.Evaluate(cmd.Context(), p)
	if err != nil {
		return err
	}
	return writeJSON(cmd, score)
}

func costsRun(cmd *cobra.Command, flags *riskFlags) error {
	e, p, err := flags.load()
	if err != nil {
		return err
	}
	res, err := e.Costs(cmd.Context(), p, flags.CustomPenaltyConfig)
	if err != nil {
		return err
	}
	return writeJSON(cmd, res)
}
