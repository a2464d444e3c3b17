package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/FranksOps/catgap/internal/config"
	"github.com/FranksOps/catgap/internal/logging"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// cfg and logger are populated before any subcommand runs.
	cfg      config.Config
	logger   *slog.Logger
	syncLogs func() error

	rootCmd = newRootCmd()
)

// configKeyAnnotation marks a flag as an override of a configuration key.
const configKeyAnnotation = "catgap_config_key"

// configFlag tags the named flag as overriding key.
func configFlag(flags *pflag.FlagSet, name, key string) {
	_ = flags.SetAnnotation(name, configKeyAnnotation, []string{key})
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catgap",
		Short: "Find missing category pages from search results",
		Long: `catgap searches a site for each keyword, classifies the ranked URLs,
asks a relevance provider about the most promising pages and decides whether
the site needs a new or more specific category page.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
		PersistentPostRun: func(*cobra.Command, []string) {
			if syncLogs != nil {
				_ = syncLogs()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	configFlag(cmd.PersistentFlags(), "log-level", "log.level")

	cmd.AddCommand(
		newAnalyzeCmd(),
		newClassifyCmd(),
		newListingsCmd(),
		newReportCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// initConfig reads the config file, .env and environment, applies flags
// the user set, and builds the process logger.
func initConfig(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	logger, syncLogs, err = logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

// bindFlags binds every flag of the running command tagged by configFlag.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || bindErr != nil {
			return
		}
		if err := v.BindPFlag(keys[0], f); err != nil {
			bindErr = fmt.Errorf("failed to bind %s flag: %w", f.Name, err)
		}
	})
	return bindErr
}
