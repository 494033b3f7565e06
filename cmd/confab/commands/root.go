package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "confab",
	Short: "Realtime meeting intelligence server",
	Long: `Confab ingests live meeting audio over websockets, transcribes it,
and runs realtime analysis on the transcript stream:

  - sliding-window topic, sentiment and engagement analysis
  - configurable alert rules (keywords, commitments, thresholds)
  - decision tracking with stakeholder alignment
  - metric collection with anomaly detection
  - end-of-meeting summaries

Examples:
  # Run the server
  confab serve --config confab.yaml

  # Export a finished meeting's transcript and insights
  confab export --config confab.yaml --meeting m-42 --format json
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "confab.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger; --verbose enables debug level.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
