// Package frontend defines the contract between the indexer and whatever
// parser produces syntax trees for the workspace.
//
// A Compiler turns a set of input files into a Forest of per-file Units or
// into a list of Messages. The indexer only ever sees the types declared
// here, so any front end that fills them in can be substituted.
package frontend

import (
	"context"

	"langidx/internal/ranges"
)

// Input is one file handed to the compiler. URI identifies the source file
// the client knows about; Path is what is actually read, which is an overlay
// file when the source has unsaved edits.
type Input struct {
	URI  string `json:"uri"`
	Path string `json:"path"`
}

// Compiler parses a set of inputs. targetDir is a fresh directory the
// compiler may use for build artifacts.
//
// A nil error with a non-empty message list means compilation failed; the
// returned forest must then be ignored. A non-nil error means the compiler
// itself could not run.
type Compiler interface {
	Compile(ctx context.Context, inputs []Input, targetDir string) (*Forest, []Message, error)
}

// Severity of a compiler message.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Message is a compiler failure. Range is nil when the compiler could not
// attribute it to a position; Path is empty when it has no file.
type Message struct {
	Text     string        `json:"text"`
	Severity Severity      `json:"severity"`
	Range    *ranges.Range `json:"range,omitempty"`
	Path     string        `json:"path,omitempty"`
	Code     string        `json:"code,omitempty"`
}

// Forest is the successful output of a compile.
type Forest struct {
	Units []*Unit
}

// Unit is one parsed file.
type Unit struct {
	URI     string
	Path    string
	Package string
	Imports []string
	// Hash is a content hash of the compiled bytes.
	Hash uint64
	// Types lists every declared type in the file, nested ones included,
	// in source order. A script wrapper, if present, is among them.
	Types []*TypeDecl
}

// TypeKind distinguishes declared types.
type TypeKind int

const (
	KindClass TypeKind = iota + 1
	KindInterface
	KindEnum
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// TypeDecl is a declared class, interface or enum.
type TypeDecl struct {
	Name      string
	Kind      TypeKind
	Outer     *TypeDecl
	Range     ranges.Range
	NameRange ranges.Range

	// Super is nil when the type extends the implicit universal base.
	Super      *TypeRef
	Interfaces []*TypeRef
	Fields     []*FieldDecl
	Methods    []*MethodDecl

	// Script marks the synthetic wrapper around loose top-level
	// statements. Body holds those statements.
	Script bool
	Body   *Block
}

// TypeRef is a type as written in source.
type TypeRef struct {
	Name  string
	Range ranges.Range
	Args  []*TypeRef
	// Dims counts array dimensions.
	Dims int
}

// FieldDecl is a field or property.
type FieldDecl struct {
	Name      string
	Type      *TypeRef
	Range     ranges.Range
	NameRange ranges.Range
	Static    bool
	Property  bool
	Init      Expr
}

// MethodDecl is a method or constructor. Synthetic members carry
// ranges.Undefined for Range and NameRange.
type MethodDecl struct {
	Name        string
	Constructor bool
	Static      bool
	Synthetic   bool
	// Return is nil for constructors and for void methods.
	Return    *TypeRef
	Params    []*Variable
	Body      *Block
	Range     ranges.Range
	NameRange ranges.Range
}

// VarKind distinguishes variable declarations.
type VarKind int

const (
	VarLocal VarKind = iota + 1
	VarParameter
	// VarDynamic is an untyped local, such as `var x = ...` or a script
	// assignment to an undeclared name.
	VarDynamic
)

// Variable is a parameter or local declaration. Type is nil for dynamic variables.
type Variable struct {
	Name      string
	Kind      VarKind
	Type      *TypeRef
	Range     ranges.Range
	NameRange ranges.Range
	Init      Expr
}

// Stmt is a statement node.
type Stmt interface {
	stmtNode()
}

// Block is a braced statement list that opens a scope.
type Block struct {
	Stmts []Stmt
	Range ranges.Range
}

// DeclStmt declares one or more local variables.
type DeclStmt struct {
	Vars []*Variable
}

// ExprStmt evaluates an expression (also used for return and throw).
type ExprStmt struct {
	X Expr
}

// ScopeStmt is any control structure: it opens a scope, declares Decls
// (loop variables, catch parameters, resources), evaluates Exprs
// (conditions, iterables) and runs Body.
type ScopeStmt struct {
	Decls []*Variable
	Exprs []Expr
	Body  []Stmt
	Range ranges.Range
}

func (*Block) stmtNode()     {}
func (*DeclStmt) stmtNode()  {}
func (*ExprStmt) stmtNode()  {}
func (*ScopeStmt) stmtNode() {}

// Expr is an expression node.
type Expr interface {
	Span() ranges.Range
}

// Ident is a bare name: a variable, a field, or a class.
type Ident struct {
	Name  string
	Range ranges.Range
}

// This is `this` or, with Super set, `super`.
type This struct {
	Super bool
	Range ranges.Range
}

// Literal is a constant whose static type is known from its syntax.
type Literal struct {
	TypeName string
	Range    ranges.Range
}

// FieldAccess is Receiver.Name.
type FieldAccess struct {
	Receiver  Expr
	Name      string
	NameRange ranges.Range
	Range     ranges.Range
}

// MethodCall is Receiver.Name(Args). Receiver is nil for an implicit receiver.
type MethodCall struct {
	Receiver  Expr
	Name      string
	NameRange ranges.Range
	Args      []Expr
	Range     ranges.Range
}

// New is a constructor call.
type New struct {
	Type  *TypeRef
	Args  []Expr
	Range ranges.Range
}

// Cast is (Type) X or X instanceof Type, which both expose Type.
type Cast struct {
	Type  *TypeRef
	X     Expr
	Range ranges.Range
}

// Assign is Target = Value (compound operators included).
type Assign struct {
	Target Expr
	Value  Expr
	Range  ranges.Range
}

// Compound is any other expression whose operands are traversed but
// whose static type is unknown (binary, ternary, array access, ...).
type Compound struct {
	Operands []Expr
	Range    ranges.Range
}

// Lambda opens a scope with Params and evaluates Body.
type Lambda struct {
	Params []*Variable
	Body   []Stmt
	Range  ranges.Range
}

func (e *Ident) Span() ranges.Range       { return e.Range }
func (e *This) Span() ranges.Range        { return e.Range }
func (e *Literal) Span() ranges.Range     { return e.Range }
func (e *FieldAccess) Span() ranges.Range { return e.Range }
func (e *MethodCall) Span() ranges.Range  { return e.Range }
func (e *New) Span() ranges.Range         { return e.Range }
func (e *Cast) Span() ranges.Range        { return e.Range }
func (e *Assign) Span() ranges.Range      { return e.Range }
func (e *Compound) Span() ranges.Range    { return e.Range }
func (e *Lambda) Span() ranges.Range      { return e.Range }

// QualifiedName joins the package, enclosing types and the type's own name
// with dots. The script wrapper contributes no segment for nested members.
func (u *Unit) QualifiedName(t *TypeDecl) string {
	name := t.Name
	for o := t.Outer; o != nil; o = o.Outer {
		if o.Script {
			continue
		}
		name = o.Name + "." + name
	}
	if u.Package != "" {
		name = u.Package + "." + name
	}
	return name
}
