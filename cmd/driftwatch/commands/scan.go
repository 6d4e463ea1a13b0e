package commands

import (
	"github.com/spf13/cobra"
	"github.com/yairfalse/driftwatch/internal/output"
)

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <environment>",
		Short: "Capture the current state of an environment",
		Long: `Scan VPCs, EC2 instances, RDS databases, S3 buckets, Lambda functions and
ECS services tagged Environment=<environment> and store the snapshot under
scans/<environment>/.`,
		Example: `  driftwatch scan prod
  driftwatch scan staging --output json`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	env := args[0]

	a, formatter, err := setup(cmd)
	if err != nil {
		return err
	}

	snapshot, location, err := a.service.Scan(cmd.Context(), env)
	if err != nil {
		return wrapServiceError(env, "save scan", err)
	}

	return formatter.FormatSaved(output.Saved{Kind: "scan", Location: location, Snapshot: snapshot}, cmd.OutOrStdout())
}
