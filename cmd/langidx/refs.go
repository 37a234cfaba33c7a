package main

import (
	"github.com/spf13/cobra"
)

var refsIncludeDecl bool

var refsCmd = &cobra.Command{
	Use:   "refs <file> <line> <column>",
	Short: "Find references to the symbol at a position",
	Long: `Resolves the declaration or usage at a 1-based line and column and prints
the symbols that reference it together with every usage site.

Examples:
  langidx refs src/zoo/Cat.java 12 9
  langidx refs src/zoo/Cat.java 12 9 --include-declaration`,
	Args: cobra.ExactArgs(3),
	Run:  runRefs,
}

var defCmd = &cobra.Command{
	Use:   "def <file> <line> <column>",
	Short: "Go to the declaration of the usage at a position",
	Long: `Resolves the usage at a 1-based line and column to its declaration.

Examples:
  langidx def src/zoo/Zoo.java 7 15`,
	Args: cobra.ExactArgs(3),
	Run:  runDef,
}

func init() {
	refsCmd.Flags().BoolVar(&refsIncludeDecl, "include-declaration", false, "Include the declaration among the usages")
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(defCmd)
}

func runRefs(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := loadConfig(root)
	logger := newLogger(cfg)

	uri, err := fileURI(args[0])
	if err != nil {
		fail(err)
	}
	pos, err := parsePosition(args[1], args[2])
	if err != nil {
		fail(err)
	}

	engine := mustGetEngine(root, cfg, logger)
	res, err := engine.FindReferences(uri, pos, refsIncludeDecl)
	if err != nil {
		fail(err)
	}
	printResponse(convertReferences(root, uri, pos, res))
}

func runDef(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := loadConfig(root)
	logger := newLogger(cfg)

	uri, err := fileURI(args[0])
	if err != nil {
		fail(err)
	}
	pos, err := parsePosition(args[1], args[2])
	if err != nil {
		fail(err)
	}

	engine := mustGetEngine(root, cfg, logger)
	loc, err := engine.GotoDefinition(uri, pos)
	if err != nil {
		fail(err)
	}

	resp := &DefinitionResponseCLI{Position: convertPosition(root, uri, pos)}
	if loc != nil {
		resp.Definition = convertLocation(root, *loc)
		resp.Found = resp.Definition != nil
	}
	printResponse(resp)
}
