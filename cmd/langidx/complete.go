package main

import (
	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete <file>",
	Short: "List completion candidates for a file",
	Args:  cobra.ExactArgs(1),
	Run:   runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := loadConfig(root)
	logger := newLogger(cfg)

	uri, err := fileURI(args[0])
	if err != nil {
		fail(err)
	}
	engine := mustGetEngine(root, cfg, logger)

	printResponse(&CompletionResponseCLI{
		File:  displayPath(root, uri),
		Items: convertCompletions(engine.CompletionCandidates(uri)),
	})
}
