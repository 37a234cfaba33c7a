package export

import (
	"fmt"
	"path"
	"strings"

	"langidx/internal/index"
	"langidx/internal/ranges"
)

// namer assigns SCIP symbol strings to the symbols of one snapshot.
type namer struct {
	names  map[index.Symbol]string
	types  map[string]bool
	locals map[string]int
}

func newNamer() *namer {
	return &namer{
		names:  make(map[index.Symbol]string),
		types:  make(map[string]bool),
		locals: make(map[string]int),
	}
}

// nameFile names every symbol declared in one document. syms must be in
// source order so enclosing types are named before their members.
// Synthetic members are named last.
func (n *namer) nameFile(rel string, syms []index.Symbol) {
	var types []index.Symbol
	overloads := make(map[string]int)

	ordered := make([]index.Symbol, 0, len(syms))
	for _, sym := range syms {
		if !sym.Synthetic() {
			ordered = append(ordered, sym)
		}
	}
	for _, sym := range syms {
		if sym.Synthetic() {
			ordered = append(ordered, sym)
		}
	}

	for _, sym := range ordered {
		var name string
		switch {
		case sym.Kind == index.KindVariable:
			name = fmt.Sprintf("local %d", n.locals[sym.Location.URI])
			n.locals[sym.Location.URI]++
		case sym.Kind.IsType():
			prefix := namespaces(packageOf(sym))
			if outer, ok := enclosing(types, sym); ok {
				prefix = strings.TrimPrefix(n.names[outer], globalPrefix())
			}
			name = globalPrefix() + prefix + escape(sym.Name) + "#"
			types = append(types, sym)
			n.types[name] = true
		default:
			owner := scriptOwner(rel)
			if outer, ok := enclosing(types, sym); ok {
				owner = strings.TrimPrefix(n.names[outer], globalPrefix())
			}
			if sym.Kind == index.KindMethod {
				key := owner + sym.Name
				name = globalPrefix() + owner + escape(sym.Name) + disambiguator(overloads[key]) + "."
				overloads[key]++
			} else {
				name = globalPrefix() + owner + escape(sym.Name) + "."
			}
		}
		n.names[sym] = name
	}
}

func (n *namer) lookup(sym index.Symbol) (string, bool) {
	name, ok := n.names[sym]
	return name, ok
}

func globalPrefix() string {
	return symbolScheme + " " + symbolManager + " " + symbolPackage + " " + symbolVersion + " "
}

// packageOf returns the package part of a top-level type's qualified name.
func packageOf(sym index.Symbol) string {
	q := sym.QualifiedName
	if i := strings.LastIndex(q, "."); i >= 0 && strings.HasSuffix(q, "."+sym.Name) {
		return q[:i]
	}
	return ""
}

func namespaces(pkg string) string {
	if pkg == "" {
		return ""
	}
	var sb strings.Builder
	for _, part := range strings.Split(pkg, ".") {
		sb.WriteString(escape(part))
		sb.WriteString("/")
	}
	return sb.String()
}

// scriptOwner is the descriptor prefix for members of a file's loose
// statements and top-level methods.
func scriptOwner(rel string) string {
	return escape(strings.TrimSuffix(rel, path.Ext(rel))) + "/"
}

func disambiguator(n int) string {
	if n == 0 {
		return "()"
	}
	return fmt.Sprintf("(+%d)", n)
}

// enclosing returns the innermost type among types that contains sym and
// is named by its container. Synthetic members fall back to the last type
// with a matching name.
func enclosing(types []index.Symbol, sym index.Symbol) (index.Symbol, bool) {
	if sym.ContainerName == "" {
		return index.Symbol{}, false
	}
	var best index.Symbol
	found := false
	for _, t := range types {
		if t.Name != sym.ContainerName {
			continue
		}
		if sym.Synthetic() || t.Synthetic() {
			best, found = t, true
			continue
		}
		if ranges.MustContain(t.Location.Range, sym.Location.Range.Start) {
			if !found || ranges.Innermost(t.Location.Range, best.Location.Range) {
				best, found = t, true
			}
		}
	}
	return best, found
}

// escape backtick-quotes a descriptor name that is not a simple identifier.
func escape(name string) string {
	simple := name != ""
	for _, r := range name {
		if !(r == '_' || r == '+' || r == '-' || r == '$' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			simple = false
			break
		}
	}
	if simple {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
