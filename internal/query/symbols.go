package query

import (
	"regexp"
	"sort"
	"strings"

	"langidx/internal/index"
)

// FileSymbols returns the symbols indexed for uri, or none if the file was
// never compiled.
func (e *Engine) FileSymbols(uri string) []index.Symbol {
	return e.snapshot().FileSymbols(uri)
}

// FilteredSymbols returns every symbol whose name fully matches the glob
// query. '*' matches any run of characters and '?' exactly one; everything
// else is literal.
func (e *Engine) FilteredSymbols(query string) []index.Symbol {
	match := compileGlob(query)

	var out []index.Symbol
	for _, sym := range e.snapshot().Symbols() {
		if match(sym.Name) {
			out = append(out, sym)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// compileGlob turns query into an anchored matcher. A pattern that fails
// to compile degrades to literal equality.
func compileGlob(query string) func(string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range query {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return func(name string) bool { return name == query }
	}
	return re.MatchString
}
