package main

import (
	"fmt"

	"github.com/adedayo/checkmate-drone/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the drone version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "drone %s\n", version.Version)
	},
}
