package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/condascan"
)

var flagReport string

var scanCmd = &cobra.Command{
	Use:   "scan DIR...",
	Short: "Survey directory trees and report each conda environment",
	Long: `Walks each starting directory in order and reports every conda
environment as it is found. Unreadable directories are logged to stderr and
skipped; they do not affect the exit status. A malformed conda-meta sidecar
file aborts the scan with a non-zero exit, naming the offending file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagReport, "report", "", "report format: jira|print|json (default from config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	format := flagReport
	if format == "" {
		format = cfg.Report
	}
	rep, err := newReporter(format, os.Stdout)
	if err != nil {
		return err
	}

	scanner := condascan.New(scannerOptions()...)
	for _, start := range args {
		if err := scanner.Survey(start, rep.Report, logTraversalError); err != nil {
			return err
		}
	}
	return rep.Flush()
}

// scannerOptions translates the loaded configuration into Scanner options.
func scannerOptions() []condascan.Option {
	var opts []condascan.Option
	if len(cfg.PruneNames) > 0 {
		opts = append(opts, condascan.WithPruneNames(cfg.PruneNames...))
	}
	if len(cfg.Packages) > 0 {
		opts = append(opts, condascan.WithPackages(cfg.Packages...))
	}
	return opts
}

// logTraversalError reports a recovered walk error on stderr. The scan
// carries on; only metadata parse failures are fatal.
func logTraversalError(err error) {
	logger.Error("traversal error", "err", err)
}
