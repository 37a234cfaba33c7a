package query

import (
	"langidx/internal/errors"
	"langidx/internal/index"
	"langidx/internal/ranges"
)

// ReferencesResult is the answer to a find-references request.
type ReferencesResult struct {
	// Declaration is the symbol the position resolved to, nil when nothing
	// was found.
	Declaration *index.Symbol `json:"declaration,omitempty" yaml:"declaration,omitempty"`
	// Symbols is the reference entry of the declaration.
	Symbols []index.Symbol `json:"symbols" yaml:"symbols"`
	// Usages lists usage sites that resolve to the declaration.
	Usages []ranges.Location `json:"usages" yaml:"usages"`
}

// Completion is a completion candidate with a generic kind tag.
type Completion struct {
	Label  string     `json:"label" yaml:"label"`
	Kind   index.Kind `json:"kind" yaml:"kind"`
	Detail string     `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type candidate struct {
	rng    ranges.Range
	decl   index.Symbol
	isDecl bool
}

// resolve picks the innermost declaration or usage site at pos in uri.
// Declarations win ties with usages over the same range.
func resolve(snap *index.Snapshot, uri string, pos ranges.Position, withDecls bool) (candidate, bool) {
	var cands []candidate
	if withDecls {
		for _, sym := range snap.FileSymbols(uri) {
			r := sym.Location.Range
			if ranges.IsValid(r) && ranges.MustContain(r, pos) {
				cands = append(cands, candidate{rng: r, decl: sym, isDecl: true})
			}
		}
	}
	for _, u := range snap.Usages(uri) {
		if ranges.MustContain(u.Usage.Range, pos) {
			cands = append(cands, candidate{rng: u.Usage.Range, decl: u.Decl})
		}
	}
	if len(cands) == 0 {
		return candidate{}, false
	}

	best := cands[0]
	for _, c := range cands[1:] {
		switch {
		case ranges.Innermost(c.rng, best.rng):
			best = c
		case c.rng == best.rng && c.isDecl && !best.isDecl:
			best = c
		}
	}
	return best, true
}

// FindReferences resolves the symbol at pos and returns its reference
// entry. includeDeclaration adds or removes the declaration itself.
func (e *Engine) FindReferences(uri string, pos ranges.Position, includeDeclaration bool) (*ReferencesResult, error) {
	if !pos.IsValid() {
		return nil, errors.Newf(errors.InvalidArgument, "invalid position %s", pos)
	}

	snap := e.snapshot()
	result := &ReferencesResult{Symbols: []index.Symbol{}, Usages: []ranges.Location{}}

	best, ok := resolve(snap, uri, pos, true)
	if !ok {
		return result, nil
	}
	decl := best.decl
	result.Declaration = &decl

	present := false
	for _, sym := range snap.References(decl.Key()) {
		if sym == decl {
			present = true
			if !includeDeclaration {
				continue
			}
		}
		result.Symbols = append(result.Symbols, sym)
	}
	if includeDeclaration && !present {
		result.Symbols = append([]index.Symbol{decl}, result.Symbols...)
	}

	for _, u := range snap.UsagesOf(decl) {
		result.Usages = append(result.Usages, u.Usage)
	}

	e.logger.Debug("find references",
		"uri", uri,
		"position", pos.String(),
		"declaration", decl.Name,
		"symbols", len(result.Symbols),
		"usages", len(result.Usages),
	)
	return result, nil
}

// GotoDefinition returns the location of the declaration that the usage
// at pos resolves to. It returns nil when there is no usage there or the
// declaration has no textual location.
func (e *Engine) GotoDefinition(uri string, pos ranges.Position) (*ranges.Location, error) {
	if !pos.IsValid() {
		return nil, errors.Newf(errors.InvalidArgument, "invalid position %s", pos)
	}

	best, ok := resolve(e.snapshot(), uri, pos, false)
	if !ok || best.decl.Synthetic() {
		return nil, nil
	}
	loc := best.decl.Location
	return &loc, nil
}

// CompletionCandidates offers the symbols of uri.
func (e *Engine) CompletionCandidates(uri string) []Completion {
	syms := e.snapshot().FileSymbols(uri)
	out := make([]Completion, 0, len(syms))
	seen := make(map[Completion]bool, len(syms))
	for _, sym := range syms {
		c := Completion{Label: sym.Name, Kind: sym.Kind, Detail: sym.ContainerName}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
