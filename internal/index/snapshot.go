package index

import (
	"sort"
	"time"
)

// Meta identifies the compile that produced a snapshot.
type Meta struct {
	RunID       string    `json:"runId"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot is an immutable symbol table, reference graph and usage-link
// graph. A new snapshot is built for every successful compile; readers
// holding an old one are never affected.
type Snapshot struct {
	meta       Meta
	files      map[string][]Symbol
	references map[string][]Symbol
	usages     map[string][]UsageLink
}

// Empty returns a snapshot with no symbols.
func Empty() *Snapshot {
	return NewSnapshot(Meta{}, nil, nil, nil)
}

// NewSnapshot assembles a snapshot from flat tables. Inputs are copied and
// sorted so equal contents always compare equal.
func NewSnapshot(meta Meta, symbols []Symbol, references map[string][]Symbol, usages []UsageLink) *Snapshot {
	s := &Snapshot{
		meta:       meta,
		files:      make(map[string][]Symbol),
		references: make(map[string][]Symbol, len(references)),
		usages:     make(map[string][]UsageLink),
	}
	for _, sym := range symbols {
		uri := sym.Location.URI
		s.files[uri] = append(s.files[uri], sym)
	}
	for uri := range s.files {
		sortSymbols(s.files[uri])
	}
	for key, syms := range references {
		if len(syms) == 0 {
			continue
		}
		s.references[key] = dedupeSymbols(syms)
	}
	for _, u := range usages {
		uri := u.Usage.URI
		s.usages[uri] = append(s.usages[uri], u)
	}
	for uri := range s.usages {
		s.usages[uri] = dedupeUsages(s.usages[uri])
	}
	return s
}

// Meta returns the compile metadata.
func (s *Snapshot) Meta() Meta { return s.meta }

// FileSymbols returns the symbols declared in uri, in source order.
func (s *Snapshot) FileSymbols(uri string) []Symbol {
	return append([]Symbol(nil), s.files[uri]...)
}

// Symbols returns every symbol, ordered by URI then position.
func (s *Snapshot) Symbols() []Symbol {
	var out []Symbol
	for _, uri := range s.URIs() {
		out = append(out, s.files[uri]...)
	}
	return out
}

// URIs returns the documents that declare at least one symbol, sorted.
func (s *Snapshot) URIs() []string {
	uris := make([]string, 0, len(s.files))
	for uri := range s.files {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// References returns the reference entry filed under key.
func (s *Snapshot) References(key string) []Symbol {
	return append([]Symbol(nil), s.references[key]...)
}

// ReferenceKeys returns every key with a non-empty reference entry, sorted.
func (s *Snapshot) ReferenceKeys() []string {
	keys := make([]string, 0, len(s.references))
	for k := range s.references {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Usages returns the usage links whose usage site lies in uri.
func (s *Snapshot) Usages(uri string) []UsageLink {
	return append([]UsageLink(nil), s.usages[uri]...)
}

// AllUsages returns every usage link, ordered by URI then position.
func (s *Snapshot) AllUsages() []UsageLink {
	uris := make([]string, 0, len(s.usages))
	for uri := range s.usages {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	var out []UsageLink
	for _, uri := range uris {
		out = append(out, s.usages[uri]...)
	}
	return out
}

// UsagesOf returns usage links anywhere in the workspace that resolve to decl.
func (s *Snapshot) UsagesOf(decl Symbol) []UsageLink {
	var out []UsageLink
	for _, u := range s.AllUsages() {
		if u.Decl == decl {
			out = append(out, u)
		}
	}
	return out
}

// SymbolCount returns the number of symbols across all files.
func (s *Snapshot) SymbolCount() int {
	n := 0
	for _, syms := range s.files {
		n += len(syms)
	}
	return n
}

func sortSymbols(syms []Symbol) {
	sort.SliceStable(syms, func(i, j int) bool { return symbolLess(syms[i], syms[j]) })
}

func dedupeSymbols(syms []Symbol) []Symbol {
	out := append([]Symbol(nil), syms...)
	sortSymbols(out)
	n := 0
	for i, sym := range out {
		if i > 0 && sym == out[n-1] {
			continue
		}
		out[n] = sym
		n++
	}
	return out[:n]
}

func dedupeUsages(links []UsageLink) []UsageLink {
	sort.SliceStable(links, func(i, j int) bool { return usageLess(links[i], links[j]) })
	n := 0
	for i, u := range links {
		if i > 0 && u == links[n-1] {
			continue
		}
		links[n] = u
		n++
	}
	return links[:n]
}
