package index

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/zeebo/xxh3"

	"langidx/internal/frontend"
	"langidx/internal/ranges"
)

// Build indexes a compiled forest into a new snapshot.
//
// All declared types are registered before any detail is indexed so that
// references to types declared later, in the same or another file, resolve.
// The returned snapshot is complete; nothing is published incrementally.
func Build(forest *frontend.Forest, runID string) *Snapshot {
	b := newBuilder()
	units := sortedUnits(forest)

	for _, u := range units {
		b.declare(u)
	}
	for _, t := range b.order {
		b.resolveHierarchy(t)
	}
	for _, t := range b.order {
		b.collectMembers(t)
	}
	for _, t := range b.order {
		b.detail(t)
	}

	meta := Meta{
		RunID:       runID,
		Fingerprint: Fingerprint(forest),
		CreatedAt:   time.Now().UTC(),
	}
	return NewSnapshot(meta, b.symbols, b.refs, b.usages)
}

// Fingerprint hashes the ordered (URI, content hash) pairs of a forest. Two
// forests built from identical inputs share a fingerprint.
func Fingerprint(forest *frontend.Forest) string {
	h := xxh3.New()
	var buf [8]byte
	for _, u := range sortedUnits(forest) {
		_, _ = h.WriteString(u.URI)
		binary.LittleEndian.PutUint64(buf[:], u.Hash)
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func sortedUnits(forest *frontend.Forest) []*frontend.Unit {
	if forest == nil {
		return nil
	}
	units := make([]*frontend.Unit, 0, len(forest.Units))
	for _, u := range forest.Units {
		if u != nil {
			units = append(units, u)
		}
	}
	sort.SliceStable(units, func(i, j int) bool { return units[i].URI < units[j].URI })
	return units
}

type builder struct {
	types    map[string]*typeInfo
	bySimple map[string][]*typeInfo
	byDecl   map[*frontend.TypeDecl]*typeInfo
	order    []*typeInfo

	symbols []Symbol
	refs    map[string][]Symbol
	usages  []UsageLink
}

func newBuilder() *builder {
	return &builder{
		types:    make(map[string]*typeInfo),
		bySimple: make(map[string][]*typeInfo),
		byDecl:   make(map[*frontend.TypeDecl]*typeInfo),
		refs:     make(map[string][]Symbol),
	}
}

func (b *builder) emit(sym Symbol) {
	b.symbols = append(b.symbols, sym)
}

func (b *builder) addRef(key string, sym Symbol) {
	b.refs[key] = append(b.refs[key], sym)
}

// addTypeRef files sym under the workspace type that ref names, if any.
func (b *builder) addTypeRef(ctx *typeInfo, ref *frontend.TypeRef, sym Symbol) {
	if ref == nil {
		return
	}
	if target := b.resolveType(ctx, ref.Name); target != nil {
		b.addRef(target.key, sym)
	}
}

func (b *builder) link(uri string, r ranges.Range, decl Symbol) {
	if !ranges.IsValid(r) {
		return
	}
	b.usages = append(b.usages, UsageLink{
		Usage: ranges.Location{URI: uri, Range: r},
		Decl:  decl,
	})
}

// linkTypeRef links every type token in ref, type arguments included, to
// the workspace type it names.
func (b *builder) linkTypeRef(ctx *typeInfo, ref *frontend.TypeRef) {
	if ref == nil {
		return
	}
	if target := b.resolveType(ctx, ref.Name); target != nil {
		b.link(ctx.unit.URI, ref.Range, target.symbol)
	}
	for _, arg := range ref.Args {
		b.linkTypeRef(ctx, arg)
	}
}

// detail emits the symbols, reference entries and usage links of one type.
func (b *builder) detail(t *typeInfo) {
	if !t.decl.Script {
		b.emit(t.symbol)
		supers := append([]*frontend.TypeRef{t.decl.Super}, t.decl.Interfaces...)
		for _, ref := range supers {
			if ref == nil || isUniversalBase(ref.Name) {
				continue
			}
			b.addTypeRef(t, ref, t.symbol)
			b.linkTypeRef(t, ref)
		}
	}

	for _, f := range t.fields {
		b.emit(f.symbol)
		b.addTypeRef(t, f.decl.Type, f.symbol)
		b.linkTypeRef(t, f.decl.Type)
		if f.decl.Init != nil {
			w := newWalker(b, t, "")
			w.expr(f.decl.Init)
		}
	}

	for _, m := range t.members {
		b.emit(m.symbol)
		b.addTypeRef(t, m.decl.Return, m.symbol)
		b.linkTypeRef(t, m.decl.Return)

		w := newWalker(b, t, m.decl.Name)
		for _, p := range m.decl.Params {
			w.declare(p, b.typeString(t, p.Type))
		}
		if m.decl.Body != nil {
			w.stmt(m.decl.Body)
		}
	}

	if t.decl.Script && t.decl.Body != nil {
		w := newWalker(b, t, "")
		w.script = true
		for _, s := range t.decl.Body.Stmts {
			w.stmt(s)
		}
	}
}

func isUniversalBase(name string) bool {
	return name == "Object" || name == "java.lang.Object"
}

func symbolKind(k frontend.TypeKind) Kind {
	switch k {
	case frontend.KindInterface:
		return KindInterface
	case frontend.KindEnum:
		return KindEnum
	default:
		return KindClass
	}
}
