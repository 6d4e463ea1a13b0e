package commands

import (
	"github.com/spf13/cobra"
	"github.com/yairfalse/driftwatch/internal/output"
)

// setup builds the application and the formatter for cmd
func setup(cmd *cobra.Command) (*app, output.Formatter, error) {
	cfg := GetConfig()

	formatter, err := output.NewFormatter(cfg.Output.Format)
	if err != nil {
		return nil, nil, err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, formatter, nil
}
