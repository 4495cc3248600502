package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jward/condascan/internal/config"
)

// Version is the semantic version (set via -ldflags).
var Version = "dev"

var (
	flagConfig string
	flagFormat string

	// cfg holds the loaded CLI configuration; commands read it after
	// PersistentPreRunE has run.
	cfg = config.Default()

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "condascan",
	})
)

var rootCmd = &cobra.Command{
	Use:           "condascan",
	Short:         "Search directories for conda environments",
	Long: `Condascan walks directory trees looking for conda environment
installations, works out which base installation each one derives from by
following bin/activate symlinks, and reports the conda and python versions
found in each environment's metadata.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: $XDG_CONFIG_HOME/condascan/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format for list/summary: text|json")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(summaryCmd)
}

// loadConfig honors --config when given; otherwise the default location,
// where a missing file just means defaults.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load()
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
