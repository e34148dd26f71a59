package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seclark/intact/internal/catalog"
	"github.com/seclark/intact/internal/catalog/sqlite"
)

// CatalogInfo is the payload of the info command.
type CatalogInfo struct {
	Meta *catalog.Meta `json:"meta"`
	Runs []catalog.Run `json:"runs,omitempty"`
}

// Render produces the human-readable text form.
func (i *CatalogInfo) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "catalog format v%d, algorithm %s\n", i.Meta.FormatVersion, i.Meta.Algorithm)
	fmt.Fprintf(&b, "  root:         %s\n", i.Meta.RootPath)
	fmt.Fprintf(&b, "  created:      %s\n", formatUnix(i.Meta.CreatedAt))
	if i.Meta.LastUpdatedAt != nil {
		fmt.Fprintf(&b, "  last updated: %s\n", formatUnix(*i.Meta.LastUpdatedAt))
	} else {
		fmt.Fprintf(&b, "  last updated: never\n")
	}

	fmt.Fprintf(&b, "  runs:         %d\n", len(i.Runs))
	for _, r := range i.Runs {
		fmt.Fprintf(&b, "    %s  %-7s files=%d bytes=%d failures=%d\n",
			formatUnix(r.StartedAt), r.Mode, r.Files, r.Bytes, r.Failures)
	}
	return b.String()
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "info <catalog>",
		Short:         "Show catalog metadata and run history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, catalogPath string, cmd *cobra.Command) error {
	configureLogging(opts)
	formatter := newFormatter(opts, cmd)

	store, err := sqlite.Open(catalogPath)
	if err != nil {
		formatter.Error(ErrCodeCatalog, err.Error())
		return WrapExitError(ExitFailure, "cannot open catalog", err)
	}
	defer store.Close()

	ctx := commandContext(cmd)
	meta, err := store.Meta(ctx)
	if err != nil {
		formatter.Error(ErrCodeCatalog, err.Error())
		return WrapExitError(ExitFailure, "cannot read catalog", err)
	}
	runs, err := store.Runs(ctx)
	if err != nil {
		formatter.Error(ErrCodeCatalog, err.Error())
		return WrapExitError(ExitFailure, "cannot read catalog", err)
	}

	return formatter.Summary(&CatalogInfo{Meta: meta, Runs: runs})
}
