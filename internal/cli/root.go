// Package cli wires the reconciliation engine to the command surface:
// three pass subcommands plus catalog introspection, with text or JSON
// output and a binary exit-code contract.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seclark/intact/internal/catalog/sqlite"
	"github.com/seclark/intact/internal/digest"
	"github.com/seclark/intact/internal/recon"
	"github.com/seclark/intact/internal/scan"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the intact CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "intact",
		Short: "intact - file integrity catalog",
		Long: `intact maintains a tamper-evident catalog of file content fingerprints
for a directory tree and reconciles it against the live filesystem.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// configureLogging sets the default slog handler for a command run.
func configureLogging(opts *RootOptions) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// newFormatter builds the output formatter for a command.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// newEngine assembles the reconciliation engine for one root/catalog
// pair from the loaded config.
func newEngine(root, catalogPath string, cfg Config) (*recon.Engine, error) {
	scanner, err := scan.New(root, catalogPath, cfg.Ignore)
	if err != nil {
		return nil, err
	}

	eng := recon.NewEngine(scanner, digest.NewSHA1(), sqlite.NewProvider(catalogPath),
		recon.WithLogger(slog.Default()),
		recon.WithWorkers(cfg.Workers),
		recon.WithProgressEvery(cfg.ProgressEvery),
	)
	return eng, nil
}
