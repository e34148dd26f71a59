package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seclark/intact/internal/report"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <root> <catalog>",
		Short: "Refresh an existing catalog against the live tree",
		Long: `Reconcile <catalog> with the current state of <root>: unchanged files
are left alone, changed files get a recomputed fingerprint, files not
yet catalogued are added. All mutations commit as a single
transaction and the catalog's last-updated timestamp moves forward.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runUpdate(opts *RootOptions, root, catalogPath string, cmd *cobra.Command) error {
	configureLogging(opts)
	formatter := newFormatter(opts, cmd)

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error())
		return WrapExitError(ExitFailure, "invalid configuration", err)
	}

	eng, err := newEngine(root, catalogPath, cfg)
	if err != nil {
		formatter.Error(ErrCodePrecondition, err.Error())
		return WrapExitError(ExitFailure, "update precondition failed", err)
	}

	result, err := eng.Update(commandContext(cmd))
	if err != nil {
		formatter.Error(ErrCodePrecondition, err.Error())
		return WrapExitError(ExitFailure, "update failed", err)
	}

	if err := formatter.Summary(report.ForUpdate(result)); err != nil {
		return err
	}
	if opts.Format == "text" && result.NoChanges() && result.OK() {
		fmt.Fprintln(cmd.OutOrStdout(), "no changes")
	}
	if !result.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("update finished with %d file failure(s)", len(result.Failures)))
	}
	return nil
}
