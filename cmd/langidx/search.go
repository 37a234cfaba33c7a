package main

import (
	"strings"

	"github.com/spf13/cobra"

	"langidx/internal/errors"
	"langidx/internal/index"
)

var (
	searchKinds string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search for symbols by name",
	Long: `Searches the workspace for symbols whose name fully matches a glob
pattern. '*' matches any run of characters and '?' exactly one.

Examples:
  langidx search Cat
  langidx search 'get*' --kinds=method
  langidx search '*Service' --kinds=class,interface --limit=10`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchKinds, "kinds", "", "Filter by kinds (comma-separated: class,interface,enum,field,method,variable)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum number of results (0 for no limit)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	root := mustGetRoot()
	cfg := loadConfig(root)
	logger := newLogger(cfg)
	pattern := args[0]

	kinds, err := parseKinds(searchKinds)
	if err != nil {
		fail(err)
	}

	engine := mustGetEngine(root, cfg, logger)
	matches := filterKinds(engine.FilteredSymbols(pattern), kinds)

	resp := &SearchResponseCLI{Query: pattern, TotalMatches: len(matches)}
	if searchLimit > 0 && len(matches) > searchLimit {
		matches = matches[:searchLimit]
	}
	resp.Symbols = convertSymbols(root, matches)
	printResponse(resp)
}

// parseKinds parses a comma-separated kind list. An empty list matches
// every kind.
func parseKinds(s string) (map[index.Kind]bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	kinds := make(map[index.Kind]bool)
	for _, name := range strings.Split(s, ",") {
		k, err := index.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, errors.New(errors.InvalidArgument, "invalid --kinds value", err, nil)
		}
		kinds[k] = true
	}
	return kinds, nil
}

func filterKinds(syms []index.Symbol, kinds map[index.Kind]bool) []index.Symbol {
	if len(kinds) == 0 {
		return syms
	}
	out := syms[:0:0]
	for _, sym := range syms {
		if kinds[sym.Kind] {
			out = append(out, sym)
		}
	}
	return out
}
