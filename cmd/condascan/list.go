package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/condascan"
)

var (
	flagBaseKinds     []string
	flagPackage       string
	flagVersionPrefix string
	flagLimit         int
	flagOffset        int
	flagSort          string
	flagOrder         string
)

var listCmd = &cobra.Command{
	Use:   "list DIR...",
	Short: "Index directory trees and list matching conda environments",
	Long: `Surveys each starting directory into an in-memory index, then lists
the discovered environments with optional filtering, sorting, and paging.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSliceVar(&flagBaseKinds, "base-kind", nil, "filter by base kind: unknown|self|linked|unresolved (repeatable)")
	listCmd.Flags().StringVar(&flagPackage, "package", "", "only environments carrying this tracked package")
	listCmd.Flags().StringVar(&flagVersionPrefix, "version-prefix", "", "with --package, require this version prefix (e.g. 2.)")
	listCmd.Flags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	listCmd.Flags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	listCmd.Flags().StringVar(&flagSort, "sort", "path", "sort field: path|base_kind|scanned_at")
	listCmd.Flags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")
}

func runList(cmd *cobra.Command, args []string) error {
	scanner, cleanup, err := newIndexedScanner(args)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := scanner.Query().Environments(
		condascan.EnvironmentFilter{
			BaseKinds:     flagBaseKinds,
			Package:       flagPackage,
			VersionPrefix: flagVersionPrefix,
		},
		condascan.Sort{
			Field: condascan.SortField(flagSort),
			Order: condascan.SortOrder(flagOrder),
		},
		condascan.Pagination{Offset: flagOffset, Limit: flagLimit},
	)
	if err != nil {
		return fmt.Errorf("listing environments: %w", err)
	}

	if flagFormat == "json" {
		envs := make([]CLIEnvironment, 0, len(res.Items))
		for _, item := range res.Items {
			envs = append(envs, cliEnvironmentFromResult(item))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResult{
			Command:    "list",
			Results:    envs,
			TotalCount: &res.TotalCount,
		})
	}
	formatEnvironmentsText(os.Stdout, res)
	return nil
}

// newIndexedScanner builds a Scanner over a fresh in-memory index and
// surveys every root into it. The returned cleanup closes the index.
func newIndexedScanner(roots []string) (*condascan.Scanner, func(), error) {
	st, err := condascan.NewStore(condascan.InMemory)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}

	opts := append(scannerOptions(), condascan.WithStore(st))
	scanner := condascan.New(opts...)
	if err := scanner.Index(roots, logTraversalError); err != nil {
		st.Close()
		return nil, nil, err
	}
	return scanner, func() { st.Close() }, nil
}
