package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harrison/substrcount/internal/fileutil"
	"github.com/spf13/cobra"
)

// NewFilesCommand creates the 'substrcount files' command
func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files <directory>",
		Short: "List the files a scan would read",
		Long: `List, in sorted order, every regular file under <directory> that a scan
with the same filter flags would read. Nothing is opened or counted.

Traversal errors are printed to stderr; the listing continues past them.`,
		Args: cobra.ExactArgs(1),
		RunE: runFiles,
	}

	cmd.Flags().String("config", "", "Path to config file (default: $SUBSTRCOUNT_HOME/config.yaml)")
	cmd.Flags().StringSlice("exclude-dir", nil, "Directory name to skip (repeatable)")
	cmd.Flags().StringSlice("ext", nil, "Only list files with this extension (repeatable)")
	cmd.Flags().String("name-pattern", "", "Only list files whose name without extension matches this regexp")
	cmd.Flags().Int("max-depth", 0, "Maximum directory depth (0 = unlimited)")
	cmd.Flags().Bool("skip-hidden", false, "Skip dot-files and dot-directories")

	return cmd
}

func runFiles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(overrides)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	result, err := fileutil.ScanDirectory(args[0], filterOptions(cfg))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	for _, path := range result.Files {
		fmt.Fprintln(out, path)
	}

	red := color.New(color.FgRed)
	for _, scanErr := range result.Errors {
		red.Fprintln(cmd.ErrOrStderr(), scanErr.Error())
	}

	return nil
}
