package commands

import (
	"github.com/spf13/cobra"
	"github.com/yairfalse/driftwatch/internal/output"
)

func newBaselineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "baseline <environment>",
		Short: "Record the known-good state of an environment",
		Long: `Scan the environment and store the result as its baseline. Later detect
runs compare against this snapshot. An existing baseline is replaced.`,
		Example: `  driftwatch baseline prod`,
		Args:    cobra.ExactArgs(1),
		RunE:    runBaseline,
	}
}

func runBaseline(cmd *cobra.Command, args []string) error {
	env := args[0]

	a, formatter, err := setup(cmd)
	if err != nil {
		return err
	}

	snapshot, location, err := a.service.Baseline(cmd.Context(), env)
	if err != nil {
		return wrapServiceError(env, "save baseline", err)
	}

	return formatter.FormatSaved(output.Saved{Kind: "baseline", Location: location, Snapshot: snapshot}, cmd.OutOrStdout())
}
