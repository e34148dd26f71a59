package cli

import (
	"github.com/spf13/cobra"

	"github.com/seclark/intact/internal/report"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <root> <catalog>",
		Short: "Verify the live tree against the catalog, read-only",
		Long: `Check every file under <root> against its catalog record without
mutating either. Outcomes land in disjoint buckets: ok, failed
(content diverged under unchanged metadata), hash mismatch (the
catalog entry itself is corrupt), changed (metadata moved on), not
found (file never catalogued), and missing (catalogued but gone from
disk). The exit status is non-zero unless every file is ok.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, root, catalogPath string, cmd *cobra.Command) error {
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
		return WrapExitError(ExitFailure, "verify precondition failed", err)
	}

	result, err := eng.Verify(commandContext(cmd))
	if err != nil {
		formatter.Error(ErrCodePrecondition, err.Error())
		return WrapExitError(ExitFailure, "verify failed", err)
	}

	if err := formatter.Summary(report.ForVerify(result)); err != nil {
		return err
	}
	if !result.Clean() {
		return NewExitError(ExitFailure, "verification found problems")
	}
	return nil
}
