package main

import (
	"fmt"
	"os"

	"github.com/adedayo/checkmate-drone/pkg/config"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

//errReported marks an error that has already been shown to the user
var errReported = errors.New("reported")

var configPath string

var rootCmd = &cobra.Command{
	Use:   "drone",
	Short: "Deliver Brakeman reports to the importer",
	Long: `drone scans the configured input directories for Brakeman JSON reports, runs the configured
analysis plugins over their warnings and sends every warning to the importer. Reports whose
warnings were all delivered are zipped and moved to the archive directory; the rest stay in place
for the next run.

Examples:
  drone                                   # same as drone run
  drone run --config /etc/drone/config.yml
  drone history --client 1 --project 42   # list recorded deliveries
  drone version`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDrone,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to the configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sampleExclusionsCmd)
	rootCmd.AddCommand(serveTransformCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			for _, hint := range errors.GetAllHints(err) {
				fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
			}
		}
		os.Exit(1)
	}
}
