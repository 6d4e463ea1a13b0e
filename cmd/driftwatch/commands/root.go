package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	dwerrors "github.com/yairfalse/driftwatch/internal/errors"
	"github.com/yairfalse/driftwatch/internal/output"
	"github.com/yairfalse/driftwatch/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driftwatch",
		Short: "Detect configuration drift in AWS environments",
		Long: `driftwatch compares the live state of an AWS environment against a stored
baseline and reports what was added, removed or changed, how risky the
changes are and what they cost.

  driftwatch baseline prod   # record the known-good state
  driftwatch detect prod     # compare the live state against it
  driftwatch detect-all      # every configured environment
  driftwatch watch           # detect-all on a schedule
  driftwatch serve           # HTTP trigger API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				runVersion(cmd, []string{})
				return nil
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	// Flag defaults mirror config.DefaultConfig; viper falls back to them
	// after env and config file.
	defaults := config.DefaultConfig()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.driftwatch/config.yaml)")
	flags.String("region", defaults.AWS.Region, "AWS region")
	flags.String("profile", defaults.AWS.Profile, "AWS shared config profile")
	flags.String("backend", defaults.Storage.Backend, "storage backend (s3, local)")
	flags.String("bucket", defaults.Storage.Bucket, "S3 bucket for baselines, scans and reports")
	flags.String("sns-topic", defaults.Alerts.SNSTopic, "SNS topic ARN for drift alerts")
	flags.String("min-risk", defaults.Alerts.MinRisk, "minimum risk level that triggers an alert")
	flags.String("log-level", defaults.Logging.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Logging.Format, "log format (text, json)")
	flags.StringP("output", "o", defaults.Output.Format, "output format (table, json, yaml, markdown)")
	flags.Bool("no-color", false, "disable colored output")
	cmd.Flags().Bool("version", false, "show version information")

	viper.BindPFlag("aws.region", flags.Lookup("region"))
	viper.BindPFlag("aws.profile", flags.Lookup("profile"))
	viper.BindPFlag("storage.backend", flags.Lookup("backend"))
	viper.BindPFlag("storage.bucket", flags.Lookup("bucket"))
	viper.BindPFlag("alerts.sns_topic", flags.Lookup("sns-topic"))
	viper.BindPFlag("alerts.min_risk", flags.Lookup("min-risk"))
	viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	viper.BindPFlag("output.format", flags.Lookup("output"))
	viper.BindPFlag("output.no_color", flags.Lookup("no-color"))

	cmd.AddCommand(newScanCommand())
	cmd.AddCommand(newBaselineCommand())
	cmd.AddCommand(newDetectCommand())
	cmd.AddCommand(newDetectAllCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		dwerrors.DisplayError(err)
		os.Exit(dwerrors.GetExitCode(err))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return fmt.Errorf("failed to expand config paths: %w", err)
	}

	output.ConfigureColor(cfg.Output.NoColor)
	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}
