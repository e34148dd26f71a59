package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seclark/intact/internal/report"
)

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <root> <catalog>",
		Short: "Create the fingerprint catalog for a directory tree",
		Long: `Create a new catalog at <catalog> by fingerprinting every file under
<root>. The catalog must not already exist. Every record plus the
catalog metadata commits as a single transaction; per-file read
failures are reported and skipped, and their presence makes the exit
status non-zero even though the successes are durable.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runBuild(opts *RootOptions, root, catalogPath string, cmd *cobra.Command) error {
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
		return WrapExitError(ExitFailure, "build precondition failed", err)
	}

	result, err := eng.Build(commandContext(cmd))
	if err != nil {
		formatter.Error(ErrCodePrecondition, err.Error())
		return WrapExitError(ExitFailure, "build failed", err)
	}

	if err := formatter.Summary(report.ForBuild(result)); err != nil {
		return err
	}
	if !result.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("build finished with %d file failure(s)", len(result.Failures)))
	}
	return nil
}

// commandContext returns the command's context, falling back to
// Background when a test constructed the command bare.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
