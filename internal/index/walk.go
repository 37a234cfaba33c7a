package index

import (
	"strings"

	"langidx/internal/frontend"
	"langidx/internal/ranges"
)

type binding struct {
	symbol Symbol
	typ    string
}

type scope struct {
	vars   map[string]binding
	parent *scope
}

// exprType is the static type of an expression as a type string. static is
// set when the expression names a type rather than a value.
type exprType struct {
	name   string
	static bool
}

// walker traverses one body (method, field initializer or script) and
// records usage links and local declarations.
type walker struct {
	b      *builder
	owner  *typeInfo
	uri    string
	method string
	script bool
	scope  *scope
}

func newWalker(b *builder, owner *typeInfo, method string) *walker {
	return &walker{
		b:      b,
		owner:  owner,
		uri:    owner.unit.URI,
		method: method,
		scope:  &scope{vars: make(map[string]binding)},
	}
}

func (w *walker) push() {
	w.scope = &scope{vars: make(map[string]binding), parent: w.scope}
}

func (w *walker) pop() {
	if w.scope.parent != nil {
		w.scope = w.scope.parent
	}
}

func (w *walker) lookup(name string) (binding, bool) {
	for s := w.scope; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return binding{}, false
}

// declare emits a Variable symbol for v and binds it in the current scope.
func (w *walker) declare(v *frontend.Variable, typ string) {
	sym := Symbol{
		Name:          v.Name,
		Kind:          KindVariable,
		ContainerName: w.method,
		Location:      ranges.Location{URI: w.uri, Range: v.Range},
	}
	w.b.emit(sym)
	w.b.addTypeRef(w.owner, v.Type, sym)
	w.b.linkTypeRef(w.owner, v.Type)
	w.scope.vars[v.Name] = binding{symbol: sym, typ: typ}
}

func (w *walker) declareWithInit(v *frontend.Variable) {
	var init exprType
	if v.Init != nil {
		init = w.expr(v.Init)
	}
	typ := w.b.typeString(w.owner, v.Type)
	if typ == "" {
		typ = init.name
	}
	w.declare(v, typ)
}

func (w *walker) stmt(s frontend.Stmt) {
	switch s := s.(type) {
	case *frontend.Block:
		w.push()
		for _, st := range s.Stmts {
			w.stmt(st)
		}
		w.pop()
	case *frontend.DeclStmt:
		for _, v := range s.Vars {
			w.declareWithInit(v)
		}
	case *frontend.ExprStmt:
		w.expr(s.X)
	case *frontend.ScopeStmt:
		w.push()
		for _, v := range s.Decls {
			w.declareWithInit(v)
		}
		for _, e := range s.Exprs {
			w.expr(e)
		}
		for _, st := range s.Body {
			w.stmt(st)
		}
		w.pop()
	}
}

func (w *walker) expr(e frontend.Expr) exprType {
	switch e := e.(type) {
	case nil:
		return exprType{}
	case *frontend.Ident:
		return w.ident(e)
	case *frontend.This:
		if e.Super {
			if len(w.owner.superNames) > 0 && w.owner.decl.Super != nil {
				return exprType{name: w.owner.superNames[0]}
			}
			return exprType{}
		}
		return exprType{name: w.owner.key}
	case *frontend.Literal:
		return exprType{name: e.TypeName}
	case *frontend.FieldAccess:
		return w.fieldAccess(e)
	case *frontend.MethodCall:
		return w.call(e)
	case *frontend.New:
		return w.construct(e)
	case *frontend.Cast:
		w.expr(e.X)
		w.b.linkTypeRef(w.owner, e.Type)
		return exprType{name: w.b.typeString(w.owner, e.Type)}
	case *frontend.Assign:
		return w.assign(e)
	case *frontend.Compound:
		for _, op := range e.Operands {
			w.expr(op)
		}
		return exprType{}
	case *frontend.Lambda:
		w.push()
		for _, p := range e.Params {
			w.declare(p, w.b.typeString(w.owner, p.Type))
		}
		for _, st := range e.Body {
			w.stmt(st)
		}
		w.pop()
		return exprType{}
	default:
		return exprType{}
	}
}

// ident resolves a bare name: the nearest variable, then a field of the
// enclosing type chain, then a type.
func (w *walker) ident(e *frontend.Ident) exprType {
	if v, ok := w.lookup(e.Name); ok {
		w.b.link(w.uri, e.Range, v.symbol)
		return exprType{name: v.typ}
	}
	if f := w.enclosingField(e.Name); f != nil {
		w.b.link(w.uri, e.Range, f.symbol)
		return exprType{name: f.typ}
	}
	if t := w.b.resolveType(w.owner, e.Name); t != nil {
		w.b.link(w.uri, e.Range, t.symbol)
		return exprType{name: t.key, static: true}
	}
	return exprType{}
}

func (w *walker) enclosingField(name string) *fieldInfo {
	for t := w.owner; t != nil; t = t.outer {
		if f := w.b.findField(t, name); f != nil {
			return f
		}
	}
	return nil
}

func (w *walker) fieldAccess(e *frontend.FieldAccess) exprType {
	recv := w.expr(e.Receiver)
	if t := w.b.types[recv.name]; t != nil {
		if f := w.b.findField(t, e.Name); f != nil {
			w.b.link(w.uri, e.Range, f.symbol)
			return exprType{name: f.typ}
		}
		if n, ok := t.nested[e.Name]; ok {
			w.b.link(w.uri, e.Range, n.symbol)
			return exprType{name: n.key, static: true}
		}
		return exprType{}
	}
	if recv.name == "" {
		// A dotted name such as pets.Dog that did not resolve piecewise.
		if dotted, ok := dottedName(e); ok {
			if t := w.b.resolveType(w.owner, dotted); t != nil {
				w.b.link(w.uri, e.Range, t.symbol)
				return exprType{name: t.key, static: true}
			}
		}
	}
	return exprType{}
}

func dottedName(e frontend.Expr) (string, bool) {
	switch e := e.(type) {
	case *frontend.Ident:
		return e.Name, true
	case *frontend.FieldAccess:
		prefix, ok := dottedName(e.Receiver)
		if !ok {
			return "", false
		}
		return prefix + "." + e.Name, true
	default:
		return "", false
	}
}

func (w *walker) args(list []frontend.Expr) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = w.expr(a).name
	}
	return out
}

// call resolves a method call against the receiver's static type, or
// against the enclosing type chain when the receiver is implicit.
func (w *walker) call(e *frontend.MethodCall) exprType {
	var recv exprType
	if e.Receiver != nil {
		recv = w.expr(e.Receiver)
	}
	args := w.args(e.Args)

	var m *methodInfo
	if e.Receiver == nil {
		for t := w.owner; t != nil && m == nil; t = t.outer {
			m = w.b.findMethod(t, e.Name, args)
		}
	} else if t := w.b.types[recv.name]; t != nil {
		m = w.b.findMethod(t, e.Name, args)
	}
	if m == nil {
		return exprType{}
	}
	w.b.link(w.uri, e.Range, m.symbol)
	return exprType{name: m.ret}
}

func (w *walker) construct(e *frontend.New) exprType {
	args := w.args(e.Args)
	w.b.linkTypeRef(w.owner, e.Type)
	if e.Type == nil {
		return exprType{}
	}
	if t := w.b.resolveType(w.owner, e.Type.Name); t != nil {
		if c := w.b.matchMethod(t.ctors, "", args); c != nil {
			w.b.link(w.uri, e.Range, c.symbol)
		} else {
			w.b.link(w.uri, e.Range, t.symbol)
		}
	}
	return exprType{name: w.b.typeString(w.owner, e.Type)}
}

// assign evaluates the value first. In a script, assigning to a name that
// resolves to nothing declares a dynamic variable visible to the rest of
// the script.
func (w *walker) assign(e *frontend.Assign) exprType {
	value := w.expr(e.Value)
	if id, ok := e.Target.(*frontend.Ident); ok && w.script && w.unresolved(id.Name) {
		current := w.scope
		for w.scope.parent != nil {
			w.scope = w.scope.parent
		}
		w.declare(&frontend.Variable{
			Name:      id.Name,
			Kind:      frontend.VarDynamic,
			Range:     id.Range,
			NameRange: id.Range,
		}, value.name)
		w.scope = current
		return value
	}
	w.expr(e.Target)
	return value
}

func (w *walker) unresolved(name string) bool {
	if _, ok := w.lookup(name); ok {
		return false
	}
	if w.enclosingField(name) != nil {
		return false
	}
	return w.b.resolveType(w.owner, name) == nil && !strings.Contains(name, ".")
}
