//go:build cgo

package treesitter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langidx/internal/frontend"
	"langidx/internal/index"
	"langidx/internal/ranges"
)

func compileSources(t *testing.T, files map[string]string) (*frontend.Forest, []frontend.Message, string) {
	t.Helper()
	dir := t.TempDir()
	var inputs []frontend.Input
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		inputs = append(inputs, frontend.Input{URI: "file://" + filepath.ToSlash(path), Path: path})
	}

	target := filepath.Join(dir, "target")
	forest, msgs, err := New(2, nil).Compile(context.Background(), inputs, target)
	require.NoError(t, err)
	return forest, msgs, target
}

func findType(u *frontend.Unit, name string) *frontend.TypeDecl {
	for _, t := range u.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func TestCompile_ClassMembers(t *testing.T) {
	src := `package pets;

import java.util.*;

public class Dog extends Animal implements Comparable<Dog> {
    private Cat friend;
    static int count = 0;

    public Dog(String name) { super(name); }

    public String[] bark(int times) {
        var noise = "woof";
        for (int i = 0; i < times; i++) {
            friend.meow();
        }
        return null;
    }

    class Collar {}
}
`
	forest, msgs, _ := compileSources(t, map[string]string{"Dog.java": src})
	require.Empty(t, msgs)
	require.Len(t, forest.Units, 1)

	u := forest.Units[0]
	assert.Equal(t, "pets", u.Package)
	assert.Equal(t, []string{"java.util.*"}, u.Imports)
	assert.NotZero(t, u.Hash)

	dog := findType(u, "Dog")
	require.NotNil(t, dog)
	assert.Equal(t, frontend.KindClass, dog.Kind)
	require.NotNil(t, dog.Super)
	assert.Equal(t, "Animal", dog.Super.Name)
	require.Len(t, dog.Interfaces, 1)
	assert.Equal(t, "Comparable", dog.Interfaces[0].Name)
	require.Len(t, dog.Interfaces[0].Args, 1)
	assert.Equal(t, ranges.New(4, 13, 4, 16), dog.NameRange)

	require.Len(t, dog.Fields, 2)
	assert.Equal(t, "friend", dog.Fields[0].Name)
	assert.Equal(t, "Cat", dog.Fields[0].Type.Name)
	assert.True(t, dog.Fields[1].Static)

	require.Len(t, dog.Methods, 2)
	ctor := dog.Methods[0]
	assert.True(t, ctor.Constructor)
	assert.Equal(t, "Dog", ctor.Name)
	require.Len(t, ctor.Params, 1)

	bark := dog.Methods[1]
	assert.Equal(t, "bark", bark.Name)
	require.NotNil(t, bark.Return)
	assert.Equal(t, "String", bark.Return.Name)
	assert.Equal(t, 1, bark.Return.Dims)
	require.NotNil(t, bark.Body)
	decl, ok := bark.Body.Stmts[0].(*frontend.DeclStmt)
	require.True(t, ok)
	assert.Equal(t, frontend.VarDynamic, decl.Vars[0].Kind)
	assert.Nil(t, decl.Vars[0].Type)

	collar := findType(u, "Collar")
	require.NotNil(t, collar)
	assert.Same(t, dog, collar.Outer)
	assert.Equal(t, "pets.Dog.Collar", u.QualifiedName(collar))
	require.Len(t, collar.Methods, 1, "default constructor")
	assert.True(t, collar.Methods[0].Synthetic)
	assert.Equal(t, ranges.Undefined, collar.Methods[0].Range)
}

func TestCompile_EnumAndRecord(t *testing.T) {
	src := `enum Color { RED, GREEN(2); Color() {} Color(int n) {} }
record Point(int x, int y) {}
`
	forest, msgs, _ := compileSources(t, map[string]string{"Shapes.java": src})
	require.Empty(t, msgs)
	u := forest.Units[0]

	color := findType(u, "Color")
	require.NotNil(t, color)
	assert.Equal(t, frontend.KindEnum, color.Kind)
	require.Len(t, color.Fields, 2)
	assert.Nil(t, color.Fields[0].Init)
	assert.IsType(t, &frontend.New{}, color.Fields[1].Init)

	var names []string
	for _, m := range color.Methods {
		if m.Synthetic {
			names = append(names, m.Name)
		}
	}
	assert.Equal(t, []string{"values", "valueOf"}, names)

	point := findType(u, "Point")
	require.NotNil(t, point)
	require.Len(t, point.Fields, 2)
	assert.True(t, point.Fields[0].Property)

	var accessors, ctors int
	for _, m := range point.Methods {
		switch {
		case m.Constructor:
			ctors++
			assert.Len(t, m.Params, 2)
		case m.Synthetic:
			accessors++
		}
	}
	assert.Equal(t, 2, accessors)
	assert.Equal(t, 1, ctors)
}

func TestCompile_Script(t *testing.T) {
	src := `int total = 0;
total = total + 1;
System.out.println(total);
`
	forest, msgs, _ := compileSources(t, map[string]string{"run.java": src})
	require.Empty(t, msgs)
	require.Len(t, forest.Units[0].Types, 1)

	wrapper := forest.Units[0].Types[0]
	assert.True(t, wrapper.Script)
	assert.Equal(t, "run", wrapper.Name)
	require.NotNil(t, wrapper.Body)
	assert.Len(t, wrapper.Body.Stmts, 3)
}

func TestCompile_SyntaxErrors(t *testing.T) {
	forest, msgs, _ := compileSources(t, map[string]string{
		"Good.java":   "class Good {}",
		"Broken.java": "class Broken { void f( }",
	})
	require.NotEmpty(t, msgs)
	require.Len(t, forest.Units, 1)

	for _, m := range msgs {
		assert.Equal(t, frontend.SeverityError, m.Severity)
		assert.Equal(t, "syntax", m.Code)
		require.NotNil(t, m.Range)
		assert.Contains(t, m.Path, "Broken.java")
	}
}

func TestCompile_DuplicateTypes(t *testing.T) {
	_, msgs, _ := compileSources(t, map[string]string{
		"A.java": "class Twin {}",
		"B.java": "class Twin {}",
	})
	require.Len(t, msgs, 1)
	assert.Equal(t, "duplicate-type", msgs[0].Code)
	assert.Contains(t, msgs[0].Path, "B.java")
	assert.Equal(t, ranges.New(0, 6, 0, 10), *msgs[0].Range)
}

func TestCompile_UnreadableInput(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "Gone.java")
	_, msgs, err := New(1, nil).Compile(context.Background(), []frontend.Input{{URI: "file://" + missing, Path: missing}}, t.TempDir())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].Range)
	assert.Equal(t, "unreadable", msgs[0].Code)
}

func TestCompile_WritesManifest(t *testing.T) {
	forest, _, target := compileSources(t, map[string]string{"A.java": "class A {}"})

	m, err := ReadManifest(target)
	require.NoError(t, err)
	require.Len(t, m.Units, 1)
	assert.Equal(t, forest.Units[0].URI, m.Units[0].URI)
	assert.Equal(t, 1, m.Units[0].Types)
	assert.Len(t, m.Units[0].Hash, 16)
}

func TestCompile_IndexesEndToEnd(t *testing.T) {
	forest, msgs, _ := compileSources(t, map[string]string{
		"Cat.java": "class Cat { void meow() {} }",
		"Dog.java": "class Dog {\n  Cat friend;\n  void play() { friend.meow(); }\n}\n",
	})
	require.Empty(t, msgs)

	snap := index.Build(forest, "run")
	var catKey string
	for _, s := range snap.Symbols() {
		if s.Name == "Cat" {
			catKey = s.Key()
		}
	}
	require.NotEmpty(t, catKey)

	refs := snap.References(catKey)
	require.Len(t, refs, 1)
	assert.Equal(t, "friend", refs[0].Name)

	var linked []string
	for _, l := range snap.AllUsages() {
		linked = append(linked, l.Decl.Name)
	}
	assert.Contains(t, linked, "meow")
	assert.Contains(t, linked, "friend")
}
