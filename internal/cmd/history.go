package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/substrcount/internal/history"
	"github.com/harrison/substrcount/internal/models"
	"github.com/harrison/substrcount/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'substrcount history' command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scan runs",
		Long: `List scan runs recorded in the history database, most recent first.

Use 'substrcount history show <run-id>' to print the report of one run.
A unique prefix of the run ID is enough.`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: $SUBSTRCOUNT_HOME/config.yaml)")
	cmd.PersistentFlags().String("db", "", "Path to the history database (default: $SUBSTRCOUNT_HOME/history.db)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")

	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the report of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	cmd.Flags().String("format", "json", "Report format: json or yaml")
	cmd.Flags().Bool("sort", false, "Sort report keys")
	cmd.Flags().Bool("summary", false, "Print the run summary and failures instead of the report")

	return cmd
}

// openHistory opens the database named by --db, the configured one, or the
// default one. ok is false when no history has been recorded yet, in which
// case nothing is created on disk.
func openHistory(cmd *cobra.Command) (store *history.Store, dbPath string, ok bool, err error) {
	dbPath, _ = cmd.Flags().GetString("db")
	if dbPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, "", false, err
		}
		if dbPath, err = cfg.ResolveHistoryDBPath(); err != nil {
			return nil, "", false, fmt.Errorf("failed to get history database path: %w", err)
		}
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, dbPath, false, nil
	}

	store, err = history.NewStore(dbPath)
	if err != nil {
		return nil, dbPath, false, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, dbPath, true, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	store, dbPath, ok, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(output, "No runs recorded yet.\nDatabase path: %s\n", dbPath)
		return nil
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No runs recorded yet.")
		return nil
	}

	displayRuns(output, runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	store, dbPath, ok, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no history database at %s", dbPath)
	}
	defer store.Close()

	run, stored, err := store.LoadReport(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if showSummary, _ := cmd.Flags().GetBool("summary"); showSummary {
		displayRun(output, run)
		return nil
	}

	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}
	sorted, _ := cmd.Flags().GetBool("sort")

	return report.Write(output, stored, report.Options{Format: format, Sort: sorted})
}

// displayRuns prints one line per run.
func displayRuns(w io.Writer, runs []models.RunSummary) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "%-8s  %-19s  %7s  %6s  %9s  %8s  %s\n",
		"RUN", "STARTED", "FILES", "FAILED", "MATCHES", "DURATION", "ROOT / PATTERN")

	for _, run := range runs {
		fmt.Fprintf(w, "%-8s  %-19s  %7d  ", shortID(run.RunID), run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.FilesScanned)
		if run.FilesFailed > 0 {
			red.Fprintf(w, "%6d", run.FilesFailed)
		} else {
			fmt.Fprintf(w, "%6d", run.FilesFailed)
		}
		fmt.Fprintf(w, "  %9d  %8s  %s ", run.TotalMatches, run.Duration.Round(time.Millisecond), run.Root)
		gray.Fprintf(w, "%q\n", run.Pattern)
	}
}

// displayRun prints the summary of one run and its failures.
func displayRun(w io.Writer, run *models.RunSummary) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "=== Run %s ===\n", run.RunID)
	fmt.Fprintf(w, "  Root: %s\n", run.Root)
	fmt.Fprintf(w, "  Pattern: %q\n", run.Pattern)
	fmt.Fprintf(w, "  Strategy: %s (%d workers)\n", run.Strategy, run.Workers)
	fmt.Fprintf(w, "  Started: %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "  Duration: %s\n", run.Duration)
	fmt.Fprintf(w, "  Files scanned: %d\n", run.FilesScanned)
	fmt.Fprintf(w, "  Files failed: %d\n", run.FilesFailed)
	fmt.Fprintf(w, "  Total matches: %d\n", run.TotalMatches)

	if len(run.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "\n")
	cyan.Fprintf(w, "Failures:\n")
	for _, f := range run.Failures {
		fmt.Fprintf(w, "  [%s] %s: ", f.Phase, f.Path)
		red.Fprintf(w, "%s\n", strings.TrimSpace(f.Message))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
