package index

import (
	"strings"

	"langidx/internal/frontend"
	"langidx/internal/ranges"
)

// scriptKeyPrefix keeps script wrappers out of name resolution: no source
// name can start with '<'.
const scriptKeyPrefix = "<script>"

type typeInfo struct {
	decl   *frontend.TypeDecl
	unit   *frontend.Unit
	key    string
	outer  *typeInfo
	symbol Symbol

	// supers holds the workspace supertypes; superNames every supertype
	// as a type string, external ones included.
	supers     []*typeInfo
	superNames []string

	nested  map[string]*typeInfo
	fields  []*fieldInfo
	members []*methodInfo // constructors and methods in declaration order
	methods []*methodInfo
	ctors   []*methodInfo
}

type fieldInfo struct {
	decl   *frontend.FieldDecl
	typ    string
	symbol Symbol
}

type methodInfo struct {
	decl   *frontend.MethodDecl
	params []string
	ret    string
	symbol Symbol
}

// containerName is the name members of t report as their container.
func (t *typeInfo) containerName() string {
	if t.decl.Script {
		return ""
	}
	return t.decl.Name
}

// declare registers every type of u. The first declaration of a qualified
// name wins resolution; duplicates are still indexed.
func (b *builder) declare(u *frontend.Unit) {
	var infos []*typeInfo
	for _, t := range u.Types {
		if t == nil {
			continue
		}
		ti := &typeInfo{decl: t, unit: u, nested: make(map[string]*typeInfo)}
		if t.Script {
			ti.key = scriptKeyPrefix + u.URI
		} else {
			ti.key = u.QualifiedName(t)
		}
		if _, dup := b.types[ti.key]; !dup {
			b.types[ti.key] = ti
			if !t.Script {
				b.bySimple[t.Name] = append(b.bySimple[t.Name], ti)
			}
		}
		b.byDecl[t] = ti
		b.order = append(b.order, ti)
		infos = append(infos, ti)
	}

	for _, ti := range infos {
		if ti.decl.Outer != nil {
			ti.outer = b.byDecl[ti.decl.Outer]
		}
		container := ""
		if ti.outer != nil {
			container = ti.outer.containerName()
			if _, dup := ti.outer.nested[ti.decl.Name]; !dup {
				ti.outer.nested[ti.decl.Name] = ti
			}
		}
		ti.symbol = Symbol{
			Name:          ti.decl.Name,
			Kind:          symbolKind(ti.decl.Kind),
			ContainerName: container,
			QualifiedName: ti.key,
			Location:      ranges.Location{URI: u.URI, Range: ti.decl.Range},
		}
	}
}

func (b *builder) resolveHierarchy(t *typeInfo) {
	refs := append([]*frontend.TypeRef{t.decl.Super}, t.decl.Interfaces...)
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		t.superNames = append(t.superNames, b.typeString(t, ref))
		if target := b.resolveType(t, ref.Name); target != nil && target != t {
			t.supers = append(t.supers, target)
		}
	}
}

func (b *builder) collectMembers(t *typeInfo) {
	uri := t.unit.URI
	container := t.containerName()

	for _, f := range t.decl.Fields {
		t.fields = append(t.fields, &fieldInfo{
			decl: f,
			typ:  b.typeString(t, f.Type),
			symbol: Symbol{
				Name:          f.Name,
				Kind:          KindField,
				ContainerName: container,
				Location:      ranges.Location{URI: uri, Range: f.Range},
			},
		})
	}

	for _, m := range t.decl.Methods {
		mi := &methodInfo{
			decl: m,
			ret:  b.typeString(t, m.Return),
			symbol: Symbol{
				Name:          m.Name,
				Kind:          KindMethod,
				ContainerName: container,
				Location:      ranges.Location{URI: uri, Range: m.Range},
			},
		}
		for _, p := range m.Params {
			mi.params = append(mi.params, b.typeString(t, p.Type))
		}
		t.members = append(t.members, mi)
		if m.Constructor {
			mi.ret = t.key
			t.ctors = append(t.ctors, mi)
		} else {
			t.methods = append(t.methods, mi)
		}
	}
}

// resolveType finds the workspace type that name denotes inside ctx.
// Lookup order: exact qualified name, same package, enclosing types,
// single and on-demand imports, then any type with that simple name.
func (b *builder) resolveType(ctx *typeInfo, name string) *typeInfo {
	if name == "" {
		return nil
	}
	if t := b.lookupKey(name); t != nil {
		return t
	}
	if ctx == nil {
		return b.uniqueSimple(name)
	}

	if pkg := ctx.unit.Package; pkg != "" {
		if t := b.lookupKey(pkg + "." + name); t != nil {
			return t
		}
	}

	first, rest := name, ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		first, rest = name[:i], name[i:]
	}
	for t := ctx; t != nil; t = t.outer {
		if t.decl.Script {
			continue
		}
		if t.decl.Name == first {
			if rest == "" {
				return t
			}
			if n := b.lookupKey(t.key + rest); n != nil {
				return n
			}
		}
		if n := b.lookupKey(t.key + "." + name); n != nil {
			return n
		}
	}

	for _, imp := range ctx.unit.Imports {
		switch {
		case strings.HasSuffix(imp, ".*"):
			if t := b.lookupKey(strings.TrimSuffix(imp, "*") + name); t != nil {
				return t
			}
		case imp == first || strings.HasSuffix(imp, "."+first):
			if t := b.lookupKey(imp + rest); t != nil {
				return t
			}
		}
	}

	return b.uniqueSimple(name)
}

func (b *builder) lookupKey(key string) *typeInfo {
	if strings.HasPrefix(key, scriptKeyPrefix) {
		return nil
	}
	return b.types[key]
}

// uniqueSimple falls back to the first type, in URI order, with that simple name.
func (b *builder) uniqueSimple(name string) *typeInfo {
	if strings.Contains(name, ".") {
		return nil
	}
	if list := b.bySimple[name]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// typeString renders ref as the key of the workspace type it names, or
// as written when it is external. Array dimensions append "[]".
func (b *builder) typeString(ctx *typeInfo, ref *frontend.TypeRef) string {
	if ref == nil || ref.Name == "" {
		return ""
	}
	name := ref.Name
	if t := b.resolveType(ctx, ref.Name); t != nil {
		name = t.key
	}
	return name + strings.Repeat("[]", ref.Dims)
}

// hierarchy returns t followed by its workspace supertypes, breadth first.
func (b *builder) hierarchy(t *typeInfo) []*typeInfo {
	seen := map[*typeInfo]bool{t: true}
	out := []*typeInfo{t}
	for i := 0; i < len(out); i++ {
		for _, s := range out[i].supers {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func (b *builder) findField(t *typeInfo, name string) *fieldInfo {
	for _, h := range b.hierarchy(t) {
		for _, f := range h.fields {
			if f.decl.Name == name {
				return f
			}
		}
	}
	return nil
}

// findMethod returns the first method in t's hierarchy named name whose
// parameters accept args.
func (b *builder) findMethod(t *typeInfo, name string, args []string) *methodInfo {
	for _, h := range b.hierarchy(t) {
		if m := b.matchMethod(h.methods, name, args); m != nil {
			return m
		}
	}
	return nil
}

func (b *builder) matchMethod(candidates []*methodInfo, name string, args []string) *methodInfo {
	for _, m := range candidates {
		if name != "" && m.decl.Name != name {
			continue
		}
		if len(m.params) != len(args) {
			continue
		}
		ok := true
		for i, p := range m.params {
			if !b.assignable(args[i], p) {
				ok = false
				break
			}
		}
		if ok {
			return m
		}
	}
	return nil
}

var boxed = map[string]string{
	"boolean": "Boolean",
	"byte":    "Byte",
	"char":    "Character",
	"short":   "Short",
	"int":     "Integer",
	"long":    "Long",
	"float":   "Float",
	"double":  "Double",
}

var numericRank = map[string]int{
	"byte":   1,
	"short":  2,
	"char":   2,
	"int":    3,
	"long":   4,
	"float":  5,
	"double": 6,
}

// assignable reports whether a value of static type arg may be passed
// where param is expected. Unknown types match anything.
func (b *builder) assignable(arg, param string) bool {
	if arg == "" || param == "" || arg == param {
		return true
	}
	if isUniversalBase(param) {
		return true
	}
	if arg == "null" {
		_, primitive := boxed[param]
		return !primitive
	}

	argDims := strings.Count(arg, "[]")
	paramDims := strings.Count(param, "[]")
	if argDims != paramDims {
		return false
	}
	if argDims > 0 {
		return b.assignable(strings.TrimSuffix(arg, "[]"), strings.TrimSuffix(param, "[]"))
	}

	if lastSegment(arg) == lastSegment(param) {
		return true
	}
	if boxed[arg] == lastSegment(param) || boxed[param] == lastSegment(arg) {
		return true
	}
	if ra, ok := numericRank[arg]; ok {
		if rp, ok := numericRank[param]; ok {
			return ra < rp && param != "char"
		}
	}
	if t := b.lookupKey(arg); t != nil {
		return b.isSubtype(t, param)
	}
	return false
}

func (b *builder) isSubtype(t *typeInfo, name string) bool {
	for _, h := range b.hierarchy(t) {
		if h.key == name {
			return true
		}
		for _, s := range h.superNames {
			if s == name || lastSegment(s) == lastSegment(name) {
				return true
			}
		}
	}
	return false
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
