// Package testutil provides Java workspace fixtures and golden-file helpers.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"langidx/internal/paths"
)

// FixtureContext holds information about a loaded fixture.
type FixtureContext struct {
	// Name is the fixture directory name under testdata/fixtures.
	Name string

	// Root is the workspace root the test compiles. It is a private copy,
	// so scratch directories never land in the source tree.
	Root string

	// ExpectedDir holds the golden files. It stays in the source tree so
	// -update writes back to it.
	ExpectedDir string
}

// LoadFixture copies the named fixture into a temporary workspace.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	src := filepath.Join(getFixturesRoot(t), name)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", src)
	}

	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if err := copyTree(src, root); err != nil {
		t.Fatalf("Failed to copy fixture %s: %v", name, err)
	}

	return &FixtureContext{
		Name:        name,
		Root:        root,
		ExpectedDir: filepath.Join(src, "expected"),
	}
}

// Path returns the absolute path of a fixture file given its slash path.
func (f *FixtureContext) Path(rel string) string {
	return filepath.Join(f.Root, filepath.FromSlash(rel))
}

// URI returns the file URI of a fixture file given its slash path.
func (f *FixtureContext) URI(rel string) string {
	return paths.PathToURI(f.Path(rel))
}

// ExpectedPath returns the path to a golden file within the fixture.
// The name should not include the .json extension.
func (f *FixtureContext) ExpectedPath(name string) string {
	return filepath.Join(f.ExpectedDir, name+".json")
}

// copyTree copies src into dst, skipping golden files.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel == "expected" {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dst, rel), data, 0o644)
	})
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}

	return fixturesRoot
}
