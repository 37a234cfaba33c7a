package main

import (
	"github.com/spf13/cobra"

	"langidx/internal/version"
)

var (
	// rootFlag is the workspace root; empty means the working directory.
	rootFlag   string
	formatFlag string
	verbosity  int
	quietFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "langidx",
	Short: "langidx - Java workspace indexer and language server",
	Long: `langidx compiles a Java workspace, indexes its declarations, type
references and usage sites, and answers symbol, reference, definition and
completion queries from the command line or over the Language Server Protocol.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("langidx version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (json, human, yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all log output")
}
