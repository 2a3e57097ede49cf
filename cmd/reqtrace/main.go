package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zarfld/reqtrace/internal/tracker"
)

const version = "0.1.0"

// errGateFailed distinguishes "the data has problems" (exit 1) from "the
// tool broke" (exit 2) so CI operators do not confuse the two.
var errGateFailed = errors.New("traceability gate failed")

func main() {
	var opts runOptions

	rootCmd := &cobra.Command{
		Use:     "reqtrace",
		Short:   "Requirements traceability graph engine for GitHub issues",
		Version: version,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch artifacts, build the traceability graph, and emit reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), &opts)
		},
		SilenceUsage: true,
	}

	runCmd.Flags().StringVar(&opts.configPath, "config", "", "Config file path (optional)")
	runCmd.Flags().StringVar(&opts.repo, "repo", "", "Repository in owner/name form (default: $GITHUB_REPOSITORY)")
	runCmd.Flags().StringVar(&opts.outputDir, "output", "", "Reports directory (default: build)")
	runCmd.Flags().StringVar(&opts.state, "state", "all", "Issue state filter: open, closed, or all")
	runCmd.Flags().BoolVar(&opts.exportNeo4j, "export-neo4j", false, "Also persist the graph to Neo4j")
	runCmd.Flags().BoolVar(&opts.jsonStdout, "json", false, "Print the machine-readable report to stdout")

	gatesCmd := &cobra.Command{
		Use:   "gates",
		Short: "Show the effective gate policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGates(opts.configPath)
		},
	}
	gatesCmd.Flags().StringVar(&opts.configPath, "config", "", "Config file path (optional)")

	rootCmd.AddCommand(runCmd, gatesCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errGateFailed) {
			os.Exit(1)
		}
		if errors.Is(err, tracker.ErrAuthentication) ||
			errors.Is(err, tracker.ErrRateLimited) ||
			errors.Is(err, tracker.ErrTransport) {
			fmt.Fprintln(os.Stderr, "reqtrace: fetch failed; no report was written")
		}
		os.Exit(2)
	}
}
