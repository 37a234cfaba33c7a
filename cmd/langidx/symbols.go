package main

import (
	"github.com/spf13/cobra"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the symbols declared in a file",
	Long: `Lists every class, interface, enum, field, method and variable declared in
a source file, in source order. Synthetic members such as record accessors
have no location and are listed without one.

Examples:
  langidx symbols src/main/java/zoo/Cat.java
  langidx symbols Cat.java --format=json`,
	Args: cobra.ExactArgs(1),
	Run:  runSymbols,
}

func init() {
	rootCmd.AddCommand(symbolsCmd)
}

func runSymbols(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := loadConfig(root)
	logger := newLogger(cfg)

	uri, err := fileURI(args[0])
	if err != nil {
		fail(err)
	}
	engine := mustGetEngine(root, cfg, logger)

	printResponse(&SymbolsResponseCLI{
		File:    displayPath(root, uri),
		Symbols: convertSymbols(root, engine.FileSymbols(uri)),
	})
}
