package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary DIR...",
	Short: "Aggregate conda environments across directory trees",
	Long: `Surveys each starting directory into an in-memory index and prints
aggregate counts: environments per base kind, per tracked package version,
and how many environments are still on Python 2.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	scanner, cleanup, err := newIndexedScanner(args)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := scanner.Query().Summarize()
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResult{Command: "summary", Results: summary})
	}
	formatSummaryText(os.Stdout, summary)
	return nil
}
