package commands

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yairfalse/driftwatch/internal/detector"
	dwerrors "github.com/yairfalse/driftwatch/internal/errors"
	"github.com/yairfalse/driftwatch/internal/output"
	"github.com/yairfalse/driftwatch/pkg/config"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <environment>",
		Short: "Compare an environment against its baseline",
		Long: `Scan the environment, compare it with the stored baseline, score and price
the differences, store the report and send alerts when the overall risk
reaches alerts.min_risk. Exits non-zero only when no baseline exists.`,
		Example: `  driftwatch detect prod
  driftwatch detect prod --min-risk medium --output markdown`,
		Args: cobra.ExactArgs(1),
		RunE: runDetect,
	}
}

func newDetectAllCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect-all",
		Short: "Detect drift in every configured environment",
		Long: `Run detect for each environment in the configuration. Environments without
a baseline are reported and skipped.`,
		Example: `  driftwatch detect-all
  driftwatch detect-all --environments dev,prod --concurrency 2`,
		Args: cobra.NoArgs,
		RunE: runDetectAll,
	}

	cmd.Flags().StringSlice("environments", nil, "environments to check (default from config)")
	cmd.Flags().Int("concurrency", 0, "environments checked in parallel (default from config)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string) error {
	env := args[0]

	a, formatter, err := setup(cmd)
	if err != nil {
		return err
	}

	outcome, err := a.service.Detect(cmd.Context(), env)
	if err != nil {
		return wrapServiceError(env, "detect drift", err)
	}

	return formatter.FormatDetection(output.Detection{
		Environment:    env,
		Report:         outcome.Report,
		ReportLocation: outcome.ReportLocation,
		AlertSent:      outcome.AlertSent,
		AlertTarget:    a.alertTarget,
	}, cmd.OutOrStdout())
}

func runDetectAll(cmd *cobra.Command, args []string) error {
	applyDetectAllFlags(cmd)

	a, formatter, err := setup(cmd)
	if err != nil {
		return err
	}

	results, err := a.service.DetectAll(cmd.Context(), GetConfig().Environments)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if ferr := formatter.FormatResults(results, cmd.OutOrStdout()); ferr != nil {
		return ferr
	}
	return err
}

// applyDetectAllFlags lets per-command flags override the loaded config
func applyDetectAllFlags(cmd *cobra.Command) {
	cfg := GetConfig()
	if cmd.Flags().Changed("environments") {
		envs, _ := cmd.Flags().GetStringSlice("environments")
		cfg.Environments = trimAll(envs)
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// wrapServiceError turns detector failures into user-facing errors
func wrapServiceError(env, operation string, err error) error {
	if errors.Is(err, detector.ErrNoBaseline) {
		return dwerrors.MissingBaselineError(env, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return dwerrors.NetworkError(dwerrors.ProviderAWS, dnsErr.Name).Wrap(err)
	case errors.As(err, &opErr):
		return dwerrors.NetworkError(dwerrors.ProviderAWS, "the AWS API").Wrap(err)
	}

	provider := dwerrors.ProviderAWS
	if GetConfig() != nil && GetConfig().Storage.Backend == config.BackendLocal {
		provider = dwerrors.ProviderLocal
	}
	if strings.Contains(err.Error(), "AccessDenied") {
		return dwerrors.PermissionError(dwerrors.ProviderAWS, env).Wrap(err)
	}
	return dwerrors.StorageError(provider, operation, err)
}
