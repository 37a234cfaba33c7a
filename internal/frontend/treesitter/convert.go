//go:build cgo

package treesitter

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"langidx/internal/frontend"
	"langidx/internal/ranges"
)

// converter lowers one tree-sitter Java tree into a frontend.Unit.
type converter struct {
	src   []byte
	lines *lineTable
	u     *frontend.Unit
	// cur is the type whose members are being converted.
	cur *frontend.TypeDecl
}

func newConverter(src []byte, lines *lineTable) *converter {
	return &converter{src: src, lines: lines}
}

func (l *lineTable) span(n *sitter.Node) ranges.Range {
	s, e := n.StartPoint(), n.EndPoint()
	return ranges.Range{
		Start: l.position(s.Row, s.Column),
		End:   l.position(e.Row, e.Column),
	}
}

func (c *converter) span(n *sitter.Node) ranges.Range {
	return c.lines.span(n)
}

// between spans from the start of a to the end of b.
func (c *converter) between(a, b *sitter.Node) ranges.Range {
	return ranges.Range{Start: c.span(a).Start, End: c.span(b).End}
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if isComment(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, child := range namedChildren(n) {
		if child.Type() == typ {
			return child
		}
	}
	return nil
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

// hasModifier looks for a keyword among a declaration's modifiers.
func hasModifier(n *sitter.Node, keyword string) bool {
	mods := childOfType(n, "modifiers")
	if mods == nil {
		return false
	}
	for i := 0; i < int(mods.ChildCount()); i++ {
		if mods.Child(i).Type() == keyword {
			return true
		}
	}
	return false
}

// unit converts the program node. Loose top-level statements are collected
// into a script wrapper named after the file.
func (c *converter) unit(root *sitter.Node, in frontend.Input) *frontend.Unit {
	c.u = &frontend.Unit{URI: in.URI, Path: in.Path}

	var script []frontend.Stmt
	var scriptMethods []*frontend.MethodDecl
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "package_declaration":
			if name := nameNode(n); name != nil {
				c.u.Package = c.text(name)
			}
		case "import_declaration":
			if name := nameNode(n); name != nil {
				imp := c.text(name)
				if childOfType(n, "asterisk") != nil {
					imp += ".*"
				}
				c.u.Imports = append(c.u.Imports, imp)
			}
		case "class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration", "annotation_type_declaration":
			c.typeDecl(n, nil)
		case "method_declaration":
			c.cur = nil
			scriptMethods = append(scriptMethods, c.method(n, false))
		case "module_declaration":
		default:
			c.cur = nil
			script = append(script, c.stmts(n)...)
		}
	}

	if len(script) > 0 || len(scriptMethods) > 0 {
		name := strings.TrimSuffix(filepath.Base(in.URI), filepath.Ext(in.URI))
		r := ranges.Range{Start: ranges.Position{}, End: c.lines.end()}
		wrapper := &frontend.TypeDecl{
			Name:      name,
			Kind:      frontend.KindClass,
			Range:     r,
			NameRange: ranges.Undefined,
			Script:    true,
			Methods:   scriptMethods,
			Body:      &frontend.Block{Stmts: script, Range: r},
		}
		c.u.Types = append(c.u.Types, wrapper)
	}
	return c.u
}

func nameNode(n *sitter.Node) *sitter.Node {
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "identifier", "scoped_identifier":
			return child
		}
	}
	return nil
}

func (c *converter) typeDecl(n *sitter.Node, outer *frontend.TypeDecl) *frontend.TypeDecl {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}

	t := &frontend.TypeDecl{
		Name:      c.text(name),
		Outer:     outer,
		Range:     c.span(n),
		NameRange: c.span(name),
	}
	switch n.Type() {
	case "interface_declaration", "annotation_type_declaration":
		t.Kind = frontend.KindInterface
	case "enum_declaration":
		t.Kind = frontend.KindEnum
	default:
		t.Kind = frontend.KindClass
	}
	c.u.Types = append(c.u.Types, t)

	if sc := childOfType(n, "superclass"); sc != nil {
		if nodes := namedChildren(sc); len(nodes) > 0 {
			t.Super = c.typeRef(nodes[0])
		}
	}
	for _, kind := range []string{"super_interfaces", "extends_interfaces"} {
		if list := childOfType(childOfType(n, kind), "type_list"); list != nil {
			for _, tn := range namedChildren(list) {
				if ref := c.typeRef(tn); ref != nil {
					t.Interfaces = append(t.Interfaces, ref)
				}
			}
		}
	}

	prev := c.cur
	c.cur = t
	defer func() { c.cur = prev }()

	if n.Type() == "record_declaration" {
		c.recordComponents(t, n.ChildByFieldName("parameters"))
	}

	body := n.ChildByFieldName("body")
	if t.Kind == frontend.KindEnum {
		c.enumBody(t, body)
	} else {
		c.members(t, body)
	}

	c.synthesize(t, n.Type() == "record_declaration")
	return t
}

// members converts a class, interface or annotation body.
func (c *converter) members(t *frontend.TypeDecl, body *sitter.Node) {
	for _, n := range namedChildren(body) {
		switch n.Type() {
		case "field_declaration", "constant_declaration":
			static := hasModifier(n, "static") || n.Type() == "constant_declaration"
			for _, v := range c.declarators(n, frontend.VarLocal) {
				t.Fields = append(t.Fields, &frontend.FieldDecl{
					Name:      v.Name,
					Type:      v.Type,
					Range:     v.Range,
					NameRange: v.NameRange,
					Static:    static,
					Init:      v.Init,
				})
			}
		case "method_declaration", "annotation_type_element_declaration":
			t.Methods = append(t.Methods, c.method(n, false))
		case "constructor_declaration", "compact_constructor_declaration":
			t.Methods = append(t.Methods, c.method(n, true))
		case "class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration", "annotation_type_declaration":
			c.typeDecl(n, t)
		}
	}
}

// enumBody converts constants into static fields of the enum type, then the
// regular members that follow them.
func (c *converter) enumBody(t *frontend.TypeDecl, body *sitter.Node) {
	for _, n := range namedChildren(body) {
		switch n.Type() {
		case "enum_constant":
			name := n.ChildByFieldName("name")
			if name == nil {
				continue
			}
			f := &frontend.FieldDecl{
				Name:      c.text(name),
				Type:      &frontend.TypeRef{Name: t.Name, Range: ranges.Undefined},
				Range:     c.span(n),
				NameRange: c.span(name),
				Static:    true,
			}
			if args := n.ChildByFieldName("arguments"); args != nil {
				f.Init = &frontend.New{
					Type:  &frontend.TypeRef{Name: t.Name, Range: ranges.Undefined},
					Args:  c.exprs(args),
					Range: c.span(n),
				}
			}
			t.Fields = append(t.Fields, f)
		case "enum_body_declarations":
			c.members(t, n)
		}
	}
}

func (c *converter) recordComponents(t *frontend.TypeDecl, params *sitter.Node) {
	for _, p := range c.params(params) {
		t.Fields = append(t.Fields, &frontend.FieldDecl{
			Name:      p.Name,
			Type:      p.Type,
			Range:     p.Range,
			NameRange: p.NameRange,
			Property:  true,
		})
	}
}

// synthesize adds the members the compiler would generate: the default
// constructor, enum helpers and record accessors.
func (c *converter) synthesize(t *frontend.TypeDecl, record bool) {
	if t.Kind == frontend.KindInterface {
		return
	}

	hasCtor := false
	for _, m := range t.Methods {
		if m.Constructor {
			hasCtor = true
			break
		}
	}

	if record {
		declared := make(map[string]bool)
		for _, m := range t.Methods {
			if !m.Constructor && len(m.Params) == 0 {
				declared[m.Name] = true
			}
		}
		var params []*frontend.Variable
		for _, f := range t.Fields {
			if !f.Property {
				continue
			}
			params = append(params, &frontend.Variable{
				Name: f.Name, Kind: frontend.VarParameter, Type: f.Type,
				Range: ranges.Undefined, NameRange: ranges.Undefined,
			})
			if !declared[f.Name] {
				t.Methods = append(t.Methods, synthetic(f.Name, f.Type, nil))
			}
		}
		if !hasCtor {
			ctor := synthetic(t.Name, nil, params)
			ctor.Constructor = true
			t.Methods = append(t.Methods, ctor)
			hasCtor = true
		}
	}

	if t.Kind == frontend.KindEnum {
		values := synthetic("values", &frontend.TypeRef{Name: t.Name, Range: ranges.Undefined, Dims: 1}, nil)
		values.Static = true
		valueOf := synthetic("valueOf", &frontend.TypeRef{Name: t.Name, Range: ranges.Undefined}, []*frontend.Variable{{
			Name: "name", Kind: frontend.VarParameter,
			Type:  &frontend.TypeRef{Name: "String", Range: ranges.Undefined},
			Range: ranges.Undefined, NameRange: ranges.Undefined,
		}})
		valueOf.Static = true
		t.Methods = append(t.Methods, values, valueOf)
	}

	if !hasCtor {
		ctor := synthetic(t.Name, nil, nil)
		ctor.Constructor = true
		t.Methods = append(t.Methods, ctor)
	}
}

func synthetic(name string, ret *frontend.TypeRef, params []*frontend.Variable) *frontend.MethodDecl {
	return &frontend.MethodDecl{
		Name:      name,
		Synthetic: true,
		Return:    ret,
		Params:    params,
		Range:     ranges.Undefined,
		NameRange: ranges.Undefined,
	}
}

func (c *converter) method(n *sitter.Node, ctor bool) *frontend.MethodDecl {
	m := &frontend.MethodDecl{
		Constructor: ctor,
		Static:      hasModifier(n, "static"),
		Range:       c.span(n),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		m.Name = c.text(name)
		m.NameRange = c.span(name)
	}
	if ctor {
		m.Name = c.cur.Name
	} else if tn := n.ChildByFieldName("type"); tn != nil {
		m.Return = c.typeRef(tn)
		if m.Return != nil {
			m.Return.Dims += c.dims(n.ChildByFieldName("dimensions"))
		}
	}
	m.Params = c.params(n.ChildByFieldName("parameters"))
	if body := n.ChildByFieldName("body"); body != nil {
		m.Body = c.block(body)
	}
	return m
}

// dims counts the brackets of a dimensions node.
func (c *converter) dims(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return strings.Count(c.text(n), "[")
}

func (c *converter) params(n *sitter.Node) []*frontend.Variable {
	var out []*frontend.Variable
	for _, p := range namedChildren(n) {
		switch p.Type() {
		case "formal_parameter":
			name := p.ChildByFieldName("name")
			if name == nil {
				continue
			}
			ref := c.typeRef(p.ChildByFieldName("type"))
			if ref != nil {
				ref.Dims += c.dims(p.ChildByFieldName("dimensions"))
			}
			out = append(out, &frontend.Variable{
				Name:      c.text(name),
				Kind:      frontend.VarParameter,
				Type:      ref,
				Range:     c.span(p),
				NameRange: c.span(name),
			})
		case "spread_parameter":
			var ref *frontend.TypeRef
			var name *sitter.Node
			for _, child := range namedChildren(p) {
				switch child.Type() {
				case "modifiers":
				case "variable_declarator":
					name = child.ChildByFieldName("name")
				default:
					if ref == nil {
						ref = c.typeRef(child)
					}
				}
			}
			if name == nil {
				continue
			}
			if ref != nil {
				ref.Dims++
			}
			out = append(out, &frontend.Variable{
				Name:      c.text(name),
				Kind:      frontend.VarParameter,
				Type:      ref,
				Range:     c.span(p),
				NameRange: c.span(name),
			})
		case "identifier":
			// Inferred lambda parameter.
			out = append(out, &frontend.Variable{
				Name:      c.text(p),
				Kind:      frontend.VarParameter,
				Range:     c.span(p),
				NameRange: c.span(p),
			})
		}
	}
	return out
}

// declarators converts the variable_declarator children of a field or local
// declaration. A single declarator takes the span of the whole declaration.
func (c *converter) declarators(n *sitter.Node, kind frontend.VarKind) []*frontend.Variable {
	typeNode := n.ChildByFieldName("type")
	dynamic := typeNode != nil && typeNode.Type() == "type_identifier" && c.text(typeNode) == "var"

	var decls []*sitter.Node
	for _, child := range namedChildren(n) {
		if child.Type() == "variable_declarator" {
			decls = append(decls, child)
		}
	}

	out := make([]*frontend.Variable, 0, len(decls))
	for _, d := range decls {
		name := d.ChildByFieldName("name")
		if name == nil {
			continue
		}
		v := &frontend.Variable{
			Name:      c.text(name),
			Kind:      kind,
			Range:     c.span(d),
			NameRange: c.span(name),
		}
		if len(decls) == 1 {
			v.Range = c.span(n)
		}
		if dynamic {
			v.Kind = frontend.VarDynamic
		} else {
			v.Type = c.typeRef(typeNode)
			if v.Type != nil {
				v.Type.Dims += c.dims(d.ChildByFieldName("dimensions"))
			}
		}
		if value := d.ChildByFieldName("value"); value != nil {
			v.Init = c.expr(value)
		}
		out = append(out, v)
	}
	return out
}

// typeRef converts a type node. void yields nil.
func (c *converter) typeRef(n *sitter.Node) *frontend.TypeRef {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "void_type":
		return nil
	case "type_identifier", "integral_type", "floating_point_type", "boolean_type":
		return &frontend.TypeRef{Name: c.text(n), Range: c.span(n)}
	case "scoped_type_identifier":
		return &frontend.TypeRef{Name: stripSpace(c.text(n)), Range: c.span(n)}
	case "generic_type":
		var ref *frontend.TypeRef
		for _, child := range namedChildren(n) {
			switch child.Type() {
			case "type_arguments":
				if ref == nil {
					continue
				}
				for _, arg := range namedChildren(child) {
					if a := c.typeRef(arg); a != nil {
						ref.Args = append(ref.Args, a)
					}
				}
			default:
				if ref == nil {
					ref = c.typeRef(child)
				}
			}
		}
		return ref
	case "array_type":
		ref := c.typeRef(n.ChildByFieldName("element"))
		if ref != nil {
			ref.Dims += c.dims(n.ChildByFieldName("dimensions"))
		}
		return ref
	case "annotated_type", "wildcard":
		nodes := namedChildren(n)
		for i := len(nodes) - 1; i >= 0; i-- {
			switch nodes[i].Type() {
			case "annotation", "marker_annotation", "super":
				continue
			}
			return c.typeRef(nodes[i])
		}
	}
	return nil
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func (c *converter) block(n *sitter.Node) *frontend.Block {
	b := &frontend.Block{Range: c.span(n)}
	for _, child := range namedChildren(n) {
		b.Stmts = append(b.Stmts, c.stmts(child)...)
	}
	return b
}

// stmts converts one statement node. Declarations of several variables and
// statements that carry nothing to index yield zero or more statements.
func (c *converter) stmts(n *sitter.Node) []frontend.Stmt {
	if n == nil {
		return nil
	}
	one := func(s frontend.Stmt) []frontend.Stmt { return []frontend.Stmt{s} }

	switch n.Type() {
	case "block", "constructor_body":
		return one(c.block(n))
	case "local_variable_declaration":
		return one(&frontend.DeclStmt{Vars: c.declarators(n, frontend.VarLocal)})
	case "expression_statement", "return_statement", "throw_statement", "yield_statement":
		var out []frontend.Stmt
		for _, e := range c.exprs(n) {
			out = append(out, &frontend.ExprStmt{X: e})
		}
		return out
	case "explicit_constructor_invocation":
		return c.delegatingCall(n)
	case "if_statement", "while_statement", "do_statement", "synchronized_statement":
		s := &frontend.ScopeStmt{Range: c.span(n)}
		if cond := n.ChildByFieldName("condition"); cond != nil {
			s.Exprs = c.exprList(cond)
		}
		for _, field := range []string{"consequence", "alternative", "body"} {
			s.Body = append(s.Body, c.stmts(n.ChildByFieldName(field))...)
		}
		if n.Type() == "synchronized_statement" {
			for _, child := range namedChildren(n) {
				if child.Type() == "parenthesized_expression" {
					s.Exprs = append(s.Exprs, c.exprList(child)...)
				}
			}
		}
		return one(s)
	case "for_statement":
		return one(c.forStmt(n))
	case "enhanced_for_statement":
		return one(c.enhancedFor(n))
	case "try_statement", "try_with_resources_statement":
		return one(c.tryStmt(n))
	case "switch_expression", "switch_statement":
		return one(c.switchStmt(n))
	case "labeled_statement":
		nodes := namedChildren(n)
		if len(nodes) > 0 {
			return c.stmts(nodes[len(nodes)-1])
		}
		return nil
	case "assert_statement":
		return one(&frontend.ExprStmt{X: &frontend.Compound{Operands: c.exprs(n), Range: c.span(n)}})
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		c.typeDecl(n, c.cur)
		return nil
	case "break_statement", "continue_statement", "empty_statement", ";":
		return nil
	default:
		if e := c.expr(n); e != nil {
			return one(&frontend.ExprStmt{X: e})
		}
		return nil
	}
}

// delegatingCall turns this(...) and super(...) into constructor calls on
// the current or super type.
func (c *converter) delegatingCall(n *sitter.Node) []frontend.Stmt {
	args := c.exprs(n.ChildByFieldName("arguments"))
	if c.cur == nil {
		return []frontend.Stmt{&frontend.ExprStmt{X: &frontend.Compound{Operands: args, Range: c.span(n)}}}
	}

	target := c.cur.Name
	if ctor := n.ChildByFieldName("constructor"); ctor != nil && ctor.Type() == "super" {
		if c.cur.Super == nil {
			return []frontend.Stmt{&frontend.ExprStmt{X: &frontend.Compound{Operands: args, Range: c.span(n)}}}
		}
		target = c.cur.Super.Name
	}
	return []frontend.Stmt{&frontend.ExprStmt{X: &frontend.New{
		Type:  &frontend.TypeRef{Name: target, Range: ranges.Undefined},
		Args:  args,
		Range: c.span(n),
	}}}
}

func (c *converter) forStmt(n *sitter.Node) *frontend.ScopeStmt {
	s := &frontend.ScopeStmt{Range: c.span(n)}
	nodes := namedChildren(n)
	if len(nodes) == 0 {
		return s
	}
	body := nodes[len(nodes)-1]
	for _, child := range nodes[:len(nodes)-1] {
		if child.Type() == "local_variable_declaration" {
			s.Decls = append(s.Decls, c.declarators(child, frontend.VarLocal)...)
			continue
		}
		if e := c.expr(child); e != nil {
			s.Exprs = append(s.Exprs, e)
		}
	}
	s.Body = c.stmts(body)
	return s
}

func (c *converter) enhancedFor(n *sitter.Node) *frontend.ScopeStmt {
	s := &frontend.ScopeStmt{Range: c.span(n)}
	typeNode := n.ChildByFieldName("type")
	name := n.ChildByFieldName("name")
	if name != nil {
		v := &frontend.Variable{
			Name:      c.text(name),
			Kind:      frontend.VarLocal,
			Range:     c.span(name),
			NameRange: c.span(name),
		}
		if typeNode != nil {
			v.Range = c.between(typeNode, name)
			if c.text(typeNode) == "var" {
				v.Kind = frontend.VarDynamic
			} else {
				v.Type = c.typeRef(typeNode)
			}
		}
		s.Decls = append(s.Decls, v)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		s.Exprs = c.exprList(value)
	}
	s.Body = c.stmts(n.ChildByFieldName("body"))
	return s
}

func (c *converter) tryStmt(n *sitter.Node) *frontend.ScopeStmt {
	s := &frontend.ScopeStmt{Range: c.span(n)}
	for _, res := range namedChildren(n.ChildByFieldName("resources")) {
		if res.Type() != "resource" {
			continue
		}
		name := res.ChildByFieldName("name")
		if name == nil {
			s.Exprs = append(s.Exprs, c.exprs(res)...)
			continue
		}
		v := &frontend.Variable{
			Name:      c.text(name),
			Kind:      frontend.VarLocal,
			Range:     c.span(res),
			NameRange: c.span(name),
		}
		if tn := res.ChildByFieldName("type"); tn != nil {
			if c.text(tn) == "var" {
				v.Kind = frontend.VarDynamic
			} else {
				v.Type = c.typeRef(tn)
			}
		}
		if value := res.ChildByFieldName("value"); value != nil {
			v.Init = c.expr(value)
		}
		s.Decls = append(s.Decls, v)
	}

	s.Body = c.stmts(n.ChildByFieldName("body"))
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "catch_clause":
			s.Body = append(s.Body, c.catchClause(child))
		case "finally_clause":
			for _, b := range namedChildren(child) {
				s.Body = append(s.Body, c.stmts(b)...)
			}
		}
	}
	return s
}

func (c *converter) catchClause(n *sitter.Node) *frontend.ScopeStmt {
	s := &frontend.ScopeStmt{Range: c.span(n)}
	if param := childOfType(n, "catch_formal_parameter"); param != nil {
		if name := param.ChildByFieldName("name"); name != nil {
			v := &frontend.Variable{
				Name:      c.text(name),
				Kind:      frontend.VarLocal,
				Range:     c.span(param),
				NameRange: c.span(name),
			}
			// A multi-catch is typed by its first alternative.
			if ct := childOfType(param, "catch_type"); ct != nil {
				if alts := namedChildren(ct); len(alts) > 0 {
					v.Type = c.typeRef(alts[0])
				}
			}
			s.Decls = append(s.Decls, v)
		}
	}
	s.Body = c.stmts(n.ChildByFieldName("body"))
	return s
}

func (c *converter) switchStmt(n *sitter.Node) *frontend.ScopeStmt {
	s := &frontend.ScopeStmt{Range: c.span(n)}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		s.Exprs = c.exprList(cond)
	}
	for _, group := range namedChildren(n.ChildByFieldName("body")) {
		arm := &frontend.ScopeStmt{Range: c.span(group)}
		for _, child := range namedChildren(group) {
			if child.Type() == "switch_label" {
				continue
			}
			arm.Body = append(arm.Body, c.stmts(child)...)
		}
		s.Body = append(s.Body, arm)
	}
	return s
}

// exprs converts every expression child of n.
func (c *converter) exprs(n *sitter.Node) []frontend.Expr {
	var out []frontend.Expr
	for _, child := range namedChildren(n) {
		if e := c.expr(child); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// exprList converts n itself, or its contents when n is parenthesized.
func (c *converter) exprList(n *sitter.Node) []frontend.Expr {
	if e := c.expr(n); e != nil {
		return []frontend.Expr{e}
	}
	return nil
}

// expr converts an expression node. Nodes that are not expressions, such as
// types and keywords, yield nil.
func (c *converter) expr(n *sitter.Node) frontend.Expr {
	if n == nil || isComment(n) {
		return nil
	}
	r := c.span(n)

	switch n.Type() {
	case "identifier":
		return &frontend.Ident{Name: c.text(n), Range: r}
	case "this":
		return &frontend.This{Range: r}
	case "super":
		return &frontend.This{Super: true, Range: r}
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(strings.ToLower(c.text(n)), "l") {
			return &frontend.Literal{TypeName: "long", Range: r}
		}
		return &frontend.Literal{TypeName: "int", Range: r}
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		if strings.HasSuffix(strings.ToLower(c.text(n)), "f") {
			return &frontend.Literal{TypeName: "float", Range: r}
		}
		return &frontend.Literal{TypeName: "double", Range: r}
	case "true", "false":
		return &frontend.Literal{TypeName: "boolean", Range: r}
	case "character_literal":
		return &frontend.Literal{TypeName: "char", Range: r}
	case "string_literal", "text_block":
		return &frontend.Literal{TypeName: "String", Range: r}
	case "null_literal":
		return &frontend.Literal{TypeName: "null", Range: r}
	case "parenthesized_expression":
		nodes := namedChildren(n)
		if len(nodes) == 1 {
			return c.expr(nodes[0])
		}
	case "field_access":
		field := n.ChildByFieldName("field")
		if field == nil {
			break
		}
		if field.Type() == "this" {
			return &frontend.This{Range: r}
		}
		return &frontend.FieldAccess{
			Receiver:  c.expr(n.ChildByFieldName("object")),
			Name:      c.text(field),
			NameRange: c.span(field),
			Range:     r,
		}
	case "method_invocation":
		name := n.ChildByFieldName("name")
		if name == nil {
			break
		}
		return &frontend.MethodCall{
			Receiver:  c.expr(n.ChildByFieldName("object")),
			Name:      c.text(name),
			NameRange: c.span(name),
			Args:      c.exprs(n.ChildByFieldName("arguments")),
			Range:     r,
		}
	case "object_creation_expression":
		return &frontend.New{
			Type:  c.typeRef(n.ChildByFieldName("type")),
			Args:  c.exprs(n.ChildByFieldName("arguments")),
			Range: r,
		}
	case "array_creation_expression":
		ref := c.typeRef(n.ChildByFieldName("type"))
		var operands []frontend.Expr
		for _, child := range namedChildren(n) {
			switch child.Type() {
			case "dimensions_expr":
				operands = append(operands, c.exprs(child)...)
				if ref != nil {
					ref.Dims++
				}
			case "dimensions":
				if ref != nil {
					ref.Dims += c.dims(child)
				}
			case "array_initializer":
				operands = append(operands, c.exprs(child)...)
			}
		}
		if ref == nil {
			return &frontend.Compound{Operands: operands, Range: r}
		}
		return &frontend.Cast{Type: ref, X: &frontend.Compound{Operands: operands, Range: r}, Range: r}
	case "cast_expression":
		return &frontend.Cast{
			Type:  c.typeRef(n.ChildByFieldName("type")),
			X:     c.expr(n.ChildByFieldName("value")),
			Range: r,
		}
	case "instanceof_expression":
		cast := &frontend.Cast{
			Type:  c.typeRef(n.ChildByFieldName("right")),
			X:     c.expr(n.ChildByFieldName("left")),
			Range: r,
		}
		return &frontend.Compound{Operands: []frontend.Expr{cast}, Range: r}
	case "assignment_expression":
		return &frontend.Assign{
			Target: c.expr(n.ChildByFieldName("left")),
			Value:  c.expr(n.ChildByFieldName("right")),
			Range:  r,
		}
	case "class_literal":
		if nodes := namedChildren(n); len(nodes) > 0 {
			if ref := c.typeRef(nodes[0]); ref != nil {
				return &frontend.Ident{Name: ref.Name, Range: ref.Range}
			}
		}
		return nil
	case "lambda_expression":
		return c.lambda(n)
	case "switch_expression":
		// Arms are statements; a parameterless lambda scopes them.
		return &frontend.Lambda{Body: []frontend.Stmt{c.switchStmt(n)}, Range: r}
	case "type_identifier", "scoped_type_identifier", "generic_type", "array_type",
		"integral_type", "floating_point_type", "boolean_type", "void_type",
		"type_arguments", "modifiers", "marker_annotation", "annotation", "dimensions":
		return nil
	}

	operands := c.exprs(n)
	if len(operands) == 0 {
		return nil
	}
	return &frontend.Compound{Operands: operands, Range: r}
}

func (c *converter) lambda(n *sitter.Node) frontend.Expr {
	l := &frontend.Lambda{Range: c.span(n)}
	if params := n.ChildByFieldName("parameters"); params != nil {
		if params.Type() == "identifier" {
			l.Params = []*frontend.Variable{{
				Name:      c.text(params),
				Kind:      frontend.VarParameter,
				Range:     c.span(params),
				NameRange: c.span(params),
			}}
		} else {
			l.Params = c.params(params)
		}
	}
	body := n.ChildByFieldName("body")
	if body != nil && body.Type() == "block" {
		l.Body = []frontend.Stmt{c.block(body)}
	} else if e := c.expr(body); e != nil {
		l.Body = []frontend.Stmt{&frontend.ExprStmt{X: e}}
	}
	return l
}
