package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/condascan"
)

const (
	// notAvailable is the placeholder for values the scan could not learn.
	notAvailable = "(?)"
	// legacyMarker flags Python 2 versions in tabular output.
	legacyMarker = "(!)"
)

// reporter receives environments as the walk discovers them. Flush runs
// after the last start directory, for formats that buffer.
type reporter interface {
	Report(*condascan.Guess)
	Flush() error
}

// newReporter selects a reporter for the scan command's --report value.
func newReporter(format string, w io.Writer) (reporter, error) {
	switch format {
	case "print":
		return &plainReporter{w: w}, nil
	case "jira":
		return &jiraReporter{w: w, host: shortHostname()}, nil
	case "json":
		return &jsonReporter{w: w}, nil
	default:
		return nil, fmt.Errorf("invalid report format %q: must be jira, print, or json", format)
	}
}

// plainReporter prints one environment path per line.
type plainReporter struct {
	w io.Writer
}

func (r *plainReporter) Report(g *condascan.Guess) {
	fmt.Fprintln(r.w, g.Path)
}

func (r *plainReporter) Flush() error { return nil }

// jiraReporter prints pipe-delimited table rows, ready to paste into a
// ticket, annotated with the local hostname.
type jiraReporter struct {
	w    io.Writer
	host string
}

func (r *jiraReporter) Report(g *condascan.Guess) {
	fmt.Fprintln(r.w, jiraLine(r.host, g))
}

func (r *jiraReporter) Flush() error { return nil }

// jiraLine renders one table row: host, path, conda version, python version
// (Python 2 gets a warning marker), and the base installation. Base renders
// as "-" when the environment is its own base and the placeholder when no
// base could be inferred.
func jiraLine(host string, g *condascan.Guess) string {
	condaVer := g.Versions["conda"]
	if condaVer == "" {
		condaVer = notAvailable
	}
	pythonVer := g.Versions["python"]
	if pythonVer == "" {
		pythonVer = notAvailable
	}
	if strings.HasPrefix(pythonVer, "2.") {
		pythonVer += legacyMarker
	}

	base := notAvailable
	switch g.BaseKind {
	case condascan.BaseSelf:
		base = "-"
	case condascan.BaseLinked:
		base = g.Base.Path
	case condascan.BaseUnresolved:
		base = g.BasePath
	}

	return fmt.Sprintf("| %s | %s | %s | %s | %s |", host, g.Path, condaVer, pythonVer, base)
}

// shortHostname returns the local hostname up to the first dot.
func shortHostname() string {
	host, err := os.Hostname()
	if err != nil {
		return notAvailable
	}
	host, _, _ = strings.Cut(host, ".")
	return host
}

// jsonReporter buffers environments and emits one JSON envelope at the end.
type jsonReporter struct {
	w    io.Writer
	envs []CLIEnvironment
}

func (r *jsonReporter) Report(g *condascan.Guess) {
	r.envs = append(r.envs, cliEnvironment(g))
}

func (r *jsonReporter) Flush() error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResult{Command: "scan", Results: r.envs})
}

// formatEnvironmentsText renders a list query result as aligned columns.
func formatEnvironmentsText(w io.Writer, res *condascan.PagedResult[condascan.EnvironmentResult]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tCONDA\tPYTHON\tBASE KIND\tBASE")
	for _, item := range res.Items {
		conda := item.Versions["conda"]
		if conda == "" {
			conda = notAvailable
		}
		python := item.Versions["python"]
		if python == "" {
			python = notAvailable
		}
		basePath := item.BasePath
		if basePath == "" {
			basePath = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.Path, conda, python, item.BaseKind, basePath)
	}
	tw.Flush()

	if len(res.Items) < res.TotalCount {
		fmt.Fprintf(w, "\nShowing %d of %d results\n", len(res.Items), res.TotalCount)
	}
}

// formatSummaryText renders the aggregate summary as readable text.
func formatSummaryText(w io.Writer, s *condascan.Summary) {
	fmt.Fprintln(w, "Scan Summary")
	fmt.Fprintln(w, "============")
	fmt.Fprintf(w, "Environments: %d\n", s.Environments)
	if s.LegacyPython > 0 {
		fmt.Fprintf(w, "Still on Python 2: %d\n", s.LegacyPython)
	}

	if len(s.ByBaseKind) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By base:")
		for _, kind := range sortedKeys(s.ByBaseKind) {
			fmt.Fprintf(w, "  %s: %d\n", kind, s.ByBaseKind[kind])
		}
	}

	if len(s.VersionCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Versions:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  PACKAGE\tVERSION\tENVS")
		for _, pkg := range sortedKeys(s.VersionCounts) {
			for _, ver := range sortedKeys(s.VersionCounts[pkg]) {
				fmt.Fprintf(tw, "  %s\t%s\t%d\n", pkg, ver, s.VersionCounts[pkg][ver])
			}
		}
		tw.Flush()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validFormats lists accepted values for --format.
var validFormats = []string{"text", "json"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
