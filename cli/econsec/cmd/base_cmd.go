package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/alphabill-org/econsec/observability"
)

type (
	econsecApp struct {
		baseCmd    *cobra.Command
		baseConfig *baseConfiguration
	}
)

// New creates a new econsec application
func New(obsF observability.Factory) *econsecApp {
	baseCmd, baseConfig := newBaseCmd(obsF)
	return &econsecApp{baseCmd, baseConfig}
}

// Execute adds all child commands and runs the application
func (a *econsecApp) Execute(ctx context.Context) (err error) {
	defer func() {
		if a.baseConfig.observe != nil {
			err = errors.Join(err, a.baseConfig.observe.Shutdown())
		}
	}()

	return a.addAndExecuteCommand(ctx)
}

func (a *econsecApp) addAndExecuteCommand(ctx context.Context) error {
	a.baseCmd.AddCommand(newScoreCmd(a.baseConfig))
	a.baseCmd.AddCommand(newCostsCmd(a.baseConfig))
	a.baseCmd.AddCommand(newMoneyFlowCmd(a.baseConfig))
	a.baseCmd.AddCommand(newServeCmd(a.baseConfig))
	return a.baseCmd.ExecuteContext(ctx)
}

func newBaseCmd(obsF observability.Factory) (*cobra.Command, *baseConfiguration) {
	config := &baseConfiguration{observeF: obsF}
	// baseCmd represents the base command when called without any subcommands
	var baseCmd = &cobra.Command{
		Use:           "econsec",
		Short:         "The econsec CLI",
		Long:          `The econsec CLI evaluates economic risk of network parameters, calculates required costs, routes money flows and serves the REST API.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// If subcommand does not define PersistentPreRunE, the one from base cmd is used.
			if err := initializeConfig(cmd, config); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}
	config.addConfigurationFlags(baseCmd)

	return baseCmd, config
}

func initializeConfig(cmd *cobra.Command, config *baseConfiguration) error {
	if err := config.initializeConfig(cmd); err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	log, err := config.initLogger(cmd)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	metrics, err := cmd.Flags().GetString(keyMetrics)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", keyMetrics, err)
	}
	obs, err := config.observeF.Observability(metrics, log)
	if err != nil {
		return fmt.Errorf("initializing observability: %w", err)
	}
	config.observe = obs
	return nil
}

// initializeConfig reads in config file and ENV variables if set.
func (config *baseConfiguration) initializeConfig(cmd *cobra.Command) error {
	v := viper.New()

	config.initConfigFileLocation()

	if config.configFileExists() {
		v.SetConfigFile(config.CfgFile)
		// the default config file has no extension viper could detect the format from
		v.SetConfigType("props")
	}

	// It's okay if there isn't a config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	// flag like --log-level binds to an environment variable ECONSEC_LOG_LEVEL
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	return nil
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyHome || f.Name == keyConfig {
			// "home" and "config" are special configuration values, handled separately.
			return
		}

		// Environment variables can't have dashes in them
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("setting flag %q value: %w", f.Name, err))
				return
			}
		}
	})

	return errors.Join(bindFlagErr...)
}
