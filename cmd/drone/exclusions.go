package main

import (
	"fmt"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/spf13/cobra"
)

var sampleExclusionsCmd = &cobra.Command{
	Use:   "sample-exclusions",
	Short: "Print a commented sample of exclusion rules",
	Long: `Print a sample exclusion rules file for the "exclude" analysis plugin. Save it, uncomment the
rules you need and point analysis.exclude.file at it.`,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), diagnostics.GenerateSampleExclusion())
	},
}
