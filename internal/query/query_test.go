package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langidx/internal/errors"
	"langidx/internal/frontend"
	"langidx/internal/index"
	"langidx/internal/ranges"
)

const (
	dogURI = "file:///ws/Dog.java"
	catURI = "file:///ws/Cat.java"
)

func sym(name string, kind index.Kind, uri string, r ranges.Range) index.Symbol {
	return index.Symbol{Name: name, Kind: kind, Location: ranges.Location{URI: uri, Range: r}}
}

// petEngine indexes:
//
//	Cat.java: class Cat {}
//	Dog.java: class Dog {
//	            Cat friend1
//	            void pet() { friend1; }
//	          }
func petEngine(t *testing.T) *Engine {
	t.Helper()
	cat := &frontend.TypeDecl{Name: "Cat", Kind: frontend.KindClass, Range: ranges.New(0, 0, 0, 12)}
	dog := &frontend.TypeDecl{Name: "Dog", Kind: frontend.KindClass, Range: ranges.New(0, 0, 3, 1)}
	dog.Fields = []*frontend.FieldDecl{{
		Name:  "friend1",
		Type:  &frontend.TypeRef{Name: "Cat", Range: ranges.New(1, 2, 1, 5)},
		Range: ranges.New(1, 2, 1, 13),
	}}
	dog.Methods = []*frontend.MethodDecl{{
		Name:  "pet",
		Range: ranges.New(2, 2, 2, 26),
		Body: &frontend.Block{Stmts: []frontend.Stmt{
			&frontend.ExprStmt{X: &frontend.Ident{Name: "friend1", Range: ranges.New(2, 15, 2, 22)}},
		}},
	}}

	snap := index.Build(&frontend.Forest{Units: []*frontend.Unit{
		{URI: catURI, Types: []*frontend.TypeDecl{cat}},
		{URI: dogURI, Types: []*frontend.TypeDecl{dog}},
	}}, "run-1")
	return NewEngine(NewStaticSource(snap), nil)
}

func names(syms []index.Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func TestFilteredSymbols_Glob(t *testing.T) {
	r := ranges.New(0, 0, 0, 1)
	snap := index.NewSnapshot(index.Meta{}, []index.Symbol{
		sym("Coordinates", index.KindClass, "file:///a", r),
		sym("CoordinatesVar", index.KindVariable, "file:///b", r),
		sym("ICoordinates", index.KindInterface, "file:///c", r),
	}, nil, nil)
	e := NewEngine(NewStaticSource(snap), nil)

	tests := []struct {
		query string
		want  []string
	}{
		{"Coordinates*", []string{"Coordinates", "CoordinatesVar"}},
		{"Coordinates?", []string{}},
		{"*Coordinates*", []string{"Coordinates", "CoordinatesVar", "ICoordinates"}},
		{"Coordinates???", []string{"CoordinatesVar"}},
		{"Coordinates", []string{"Coordinates"}},
		{"*", []string{"Coordinates", "CoordinatesVar", "ICoordinates"}},
		{"C.ordinates", []string{}},
		{"[Coordinates]", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, names(e.FilteredSymbols(tt.query)))
		})
	}
}

func TestCompileGlob_EscapesMetacharacters(t *testing.T) {
	match := compileGlob("a+b(c)")
	assert.True(t, match("a+b(c)"))
	assert.False(t, match("aab(c)"))
}

func TestFileSymbols(t *testing.T) {
	e := petEngine(t)

	assert.Equal(t, []string{"Dog", "friend1", "pet"}, names(e.FileSymbols(dogURI)))
	assert.Empty(t, e.FileSymbols("file:///ws/Never.java"))
}

func TestFindReferences_FromUsage(t *testing.T) {
	e := petEngine(t)

	// Cursor on the Cat type token of the field declaration.
	res, err := e.FindReferences(dogURI, ranges.Position{Line: 1, Column: 3}, false)
	require.NoError(t, err)
	require.NotNil(t, res.Declaration)
	assert.Equal(t, "Cat", res.Declaration.Name)
	assert.Equal(t, []string{"friend1"}, names(res.Symbols))
	assert.Equal(t, "Dog", res.Symbols[0].ContainerName)
	assert.Equal(t, []ranges.Location{{URI: dogURI, Range: ranges.New(1, 2, 1, 5)}}, res.Usages)

	res, err = e.FindReferences(dogURI, ranges.Position{Line: 1, Column: 3}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat", "friend1"}, names(res.Symbols))
}

func TestFindReferences_FromDeclaration(t *testing.T) {
	e := petEngine(t)

	// Cursor on the field name: the field is innermost, not the class.
	res, err := e.FindReferences(dogURI, ranges.Position{Line: 1, Column: 9}, true)
	require.NoError(t, err)
	require.NotNil(t, res.Declaration)
	assert.Equal(t, "friend1", res.Declaration.Name)
	assert.Equal(t, []string{"friend1"}, names(res.Symbols))
	assert.Equal(t, []ranges.Location{{URI: dogURI, Range: ranges.New(2, 15, 2, 22)}}, res.Usages)

	res, err = e.FindReferences(dogURI, ranges.Position{Line: 1, Column: 9}, false)
	require.NoError(t, err)
	assert.Empty(t, res.Symbols)
}

func TestFindReferences_NoCandidates(t *testing.T) {
	e := petEngine(t)

	res, err := e.FindReferences(dogURI, ranges.Position{Line: 40, Column: 0}, true)
	require.NoError(t, err)
	assert.Nil(t, res.Declaration)
	assert.Empty(t, res.Symbols)
	assert.Empty(t, res.Usages)
}

func TestFindReferences_InvalidPosition(t *testing.T) {
	e := petEngine(t)

	_, err := e.FindReferences(dogURI, ranges.Position{Line: -1, Column: 0}, true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.InvalidArgument))
}

func TestInnermostWins(t *testing.T) {
	outer := sym("Outer", index.KindClass, dogURI, ranges.New(0, 0, 10, 0))
	inner := sym("Inner", index.KindClass, dogURI, ranges.New(2, 0, 5, 0))
	sameStartShorter := sym("Short", index.KindField, dogURI, ranges.New(2, 0, 3, 0))
	target := sym("Target", index.KindClass, catURI, ranges.New(0, 0, 1, 0))

	snap := index.NewSnapshot(index.Meta{},
		[]index.Symbol{outer, inner, sameStartShorter, target},
		nil,
		[]index.UsageLink{
			{Usage: ranges.Location{URI: dogURI, Range: ranges.New(0, 0, 9, 0)}, Decl: outer},
			{Usage: ranges.Location{URI: dogURI, Range: ranges.New(4, 0, 4, 8)}, Decl: target},
		},
	)
	e := NewEngine(NewStaticSource(snap), nil)

	tests := []struct {
		name string
		pos  ranges.Position
		want string
	}{
		{"earlier end wins on equal start", ranges.Position{Line: 2, Column: 5}, "Short"},
		{"later start wins", ranges.Position{Line: 4, Column: 0}, "Target"},
		{"outer only", ranges.Position{Line: 9, Column: 5}, "Outer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.FindReferences(dogURI, tt.pos, true)
			require.NoError(t, err)
			require.NotNil(t, res.Declaration)
			assert.Equal(t, tt.want, res.Declaration.Name)
		})
	}

	loc, err := e.GotoDefinition(dogURI, ranges.Position{Line: 4, Column: 3})
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, target.Location, *loc)
}

func TestGotoDefinition(t *testing.T) {
	e := petEngine(t)

	loc, err := e.GotoDefinition(dogURI, ranges.Position{Line: 2, Column: 18})
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, ranges.Location{URI: dogURI, Range: ranges.New(1, 2, 1, 13)}, *loc)

	loc, err = e.GotoDefinition(dogURI, ranges.Position{Line: 1, Column: 3})
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, catURI, loc.URI)

	loc, err = e.GotoDefinition(dogURI, ranges.Position{Line: 1, Column: 9})
	require.NoError(t, err)
	assert.Nil(t, loc, "a declaration is not a usage site")
}

func TestGotoDefinition_SyntheticTarget(t *testing.T) {
	values := sym("values", index.KindMethod, dogURI, ranges.Undefined)
	snap := index.NewSnapshot(index.Meta{}, []index.Symbol{values}, nil, []index.UsageLink{
		{Usage: ranges.Location{URI: dogURI, Range: ranges.New(3, 4, 3, 18)}, Decl: values},
	})
	e := NewEngine(NewStaticSource(snap), nil)

	loc, err := e.GotoDefinition(dogURI, ranges.Position{Line: 3, Column: 10})
	require.NoError(t, err)
	assert.Nil(t, loc)

	res, err := e.FindReferences(dogURI, ranges.Position{Line: 3, Column: 10}, true)
	require.NoError(t, err)
	require.NotNil(t, res.Declaration)
	assert.True(t, res.Declaration.Synthetic())
}

func TestCompletionCandidates(t *testing.T) {
	e := petEngine(t)

	got := e.CompletionCandidates(dogURI)
	assert.Equal(t, []Completion{
		{Label: "Dog", Kind: index.KindClass},
		{Label: "friend1", Kind: index.KindField, Detail: "Dog"},
		{Label: "pet", Kind: index.KindMethod, Detail: "Dog"},
	}, got)
	assert.Empty(t, e.CompletionCandidates("file:///ws/None.java"))
}

type swapSource struct{ snap *index.Snapshot }

func (s *swapSource) Snapshot() *index.Snapshot { return s.snap }

func TestEngine_NilSnapshot(t *testing.T) {
	e := NewEngine(&swapSource{}, nil)
	assert.Empty(t, e.FileSymbols(dogURI))
	assert.Empty(t, e.FilteredSymbols("*"))
}
