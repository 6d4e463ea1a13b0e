package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run detect-all on a schedule",
		Long: `Run detect-all immediately and then every --interval until interrupted.
This is the long-running replacement for a scheduled function invocation.`,
		Example: `  driftwatch watch --interval 1h
  driftwatch watch --once --output json`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	cmd.Flags().Duration("interval", 0, "time between runs (default schedule.interval)")
	cmd.Flags().Bool("once", false, "run a single round and exit")
	cmd.Flags().StringSlice("environments", nil, "environments to check (default from config)")
	cmd.Flags().Int("concurrency", 0, "environments checked in parallel (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	applyDetectAllFlags(cmd)
	cfg := GetConfig()

	interval := cfg.Schedule.Interval
	if cmd.Flags().Changed("interval") {
		interval, _ = cmd.Flags().GetDuration("interval")
	}
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	once, _ := cmd.Flags().GetBool("once")

	a, formatter, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := a.logger.WithFields(map[string]interface{}{
		"interval":     interval.String(),
		"environments": len(cfg.Environments),
	})

	round := func() error {
		started := time.Now()
		results, err := a.service.DetectAll(ctx, cfg.Environments)
		if err != nil {
			return err
		}
		log.WithField("duration_ms", time.Since(started).Milliseconds()).Info("Detection round complete")
		return formatter.FormatResults(results, cmd.OutOrStdout())
	}

	log.Info("Watch started")
	if err := round(); err != nil {
		return ignoreCancel(err)
	}
	if once {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Watch stopped")
			return nil
		case <-ticker.C:
			if err := round(); err != nil {
				return ignoreCancel(err)
			}
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
