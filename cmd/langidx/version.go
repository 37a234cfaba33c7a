package main

import (
	"github.com/spf13/cobra"

	"langidx/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		d := version.Details()
		printResponse(&VersionResponseCLI{
			Version:   d["version"],
			Commit:    d["commit"],
			BuildDate: d["buildDate"],
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
