package main

import (
	"fmt"
	"io"
	"os"

	"github.com/harrison/substrcount/internal/cmd"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the root command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	// Match GOMAXPROCS to the container CPU quota
	undo, err := maxprocs.Set()
	defer undo()
	if err != nil {
		fmt.Fprintf(stderr, "Warning: failed to set GOMAXPROCS: %v\n", err)
	}

	rootCmd := cmd.NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
