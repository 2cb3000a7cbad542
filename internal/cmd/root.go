package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for substrcount
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "substrcount",
		Short: "Count substring occurrences across a directory tree",
		Long: `substrcount counts the non-overlapping occurrences of a byte substring
in every regular file under a directory, scanning files in parallel with
bounded memory, and prints a path-to-count report as JSON or YAML.

Completed runs are recorded in a local history database and can be listed
and printed again later.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the error once
		SilenceErrors: true,
	}

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewFilesCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
