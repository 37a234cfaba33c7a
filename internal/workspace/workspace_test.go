package workspace

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langidx/internal/errors"
	"langidx/internal/frontend"
	"langidx/internal/overlay"
	"langidx/internal/paths"
	"langidx/internal/ranges"
)

// fakeCompiler declares one class per input, named after the file. Content
// containing "BROKEN" yields a positioned error; "FATAL" a positionless one.
type fakeCompiler struct {
	mu       sync.Mutex
	calls    int
	contents map[string]string // URI -> content read in the last call
	paths    map[string]string // URI -> path read in the last call
	gate     chan struct{}
	started  chan struct{}
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{}
}

func (f *fakeCompiler) Compile(_ context.Context, inputs []frontend.Input, targetDir string) (*frontend.Forest, []frontend.Message, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.contents = make(map[string]string)
	f.paths = make(map[string]string)

	forest := &frontend.Forest{}
	var msgs []frontend.Message
	for _, in := range inputs {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			msgs = append(msgs, frontend.Message{Text: err.Error(), Severity: frontend.SeverityError, Path: in.Path})
			continue
		}
		content := string(data)
		f.contents[in.URI] = content
		f.paths[in.URI] = in.Path

		switch {
		case strings.Contains(content, "BROKEN"):
			r := ranges.New(0, 0, 0, 6)
			msgs = append(msgs, frontend.Message{Text: "unexpected token", Severity: frontend.SeverityError, Range: &r, Path: in.Path})
		case strings.Contains(content, "FATAL"):
			msgs = append(msgs, frontend.Message{Text: "compiler crashed", Severity: frontend.SeverityError})
		}

		name := strings.TrimSuffix(filepath.Base(in.URI), filepath.Ext(in.URI))
		forest.Units = append(forest.Units, &frontend.Unit{
			URI:  in.URI,
			Path: in.Path,
			Hash: uint64(len(content)),
			Types: []*frontend.TypeDecl{{
				Name:  name,
				Kind:  frontend.KindClass,
				Range: ranges.New(0, 0, 0, len(content)),
			}},
		})
	}
	return forest, msgs, nil
}

func (f *fakeCompiler) lastContents() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contents
}

func (f *fakeCompiler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCompiler) lastPaths() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths
}

type fixture struct {
	root     string
	ws       *Workspace
	compiler *fakeCompiler
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	root := t.TempDir()
	write(t, root, "src/Dog.java", "class Dog {}")
	write(t, root, "src/Cat.java", "class Cat {}")
	write(t, root, "README.md", "# pets")
	write(t, root, "build/Gen.java", "class Gen {}")

	c := newFakeCompiler()
	opts.IgnoreDirs = append(opts.IgnoreDirs, "build")
	ws, err := New(root, c, opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return &fixture{root: ws.Root(), ws: ws, compiler: c}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func (f *fixture) uri(rel string) string {
	return paths.PathToURI(filepath.Join(f.root, filepath.FromSlash(rel)))
}

func rng(sl, sc, el, ec int) *ranges.Range {
	r := ranges.New(sl, sc, el, ec)
	return &r
}

func TestNew_InvalidRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), newFakeCompiler(), Options{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.InvalidWorkspace))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = New(file, newFakeCompiler(), Options{}, nil)
	assert.True(t, errors.IsCode(err, errors.InvalidWorkspace))

	_, err = New(t.TempDir(), nil, Options{}, nil)
	assert.True(t, errors.IsCode(err, errors.InvalidWorkspace))
}

func TestNew_ScratchNotCreatable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".langidx"), nil, 0644))

	_, err := New(root, newFakeCompiler(), Options{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.InvalidWorkspace))
}

func TestInitialize_EnumeratesEligibleFiles(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.ws.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Empty(t, res.Diagnostics)

	var uris []string
	for _, in := range res.Inputs {
		uris = append(uris, in.URI)
	}
	assert.Equal(t, []string{f.uri("src/Cat.java"), f.uri("src/Dog.java")}, uris)

	snap := f.ws.Snapshot()
	assert.Same(t, res.Snapshot, snap)
	require.Len(t, snap.FileSymbols(f.uri("src/Dog.java")), 1)
	assert.Equal(t, "Dog", snap.FileSymbols(f.uri("src/Dog.java"))[0].Name)
}

func TestInputs_DoesNotCompile(t *testing.T) {
	f := newFixture(t, Options{})

	inputs, err := f.ws.Inputs(context.Background())
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, f.uri("src/Cat.java"), inputs[0].URI)
	assert.Zero(t, f.compiler.callCount())
}

func TestInitialize_WipesTargetDir(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.ws.Initialize(context.Background())
	require.NoError(t, err)

	stale := filepath.Join(f.ws.TargetDir(), "stale.class")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	_, err = f.ws.Compile(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(f.ws.TargetDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestHandleFileChanged_CompilesOverlay(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	dog := f.uri("src/Dog.java")

	res, err := f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Range: rng(0, 6, 0, 9), Text: "Wolf"}})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)

	assert.Equal(t, "class Wolf {}", f.compiler.lastContents()[dog])
	assert.Equal(t, filepath.Join(f.ws.ScratchDir(), "changed", "src", "Dog.java"), f.compiler.lastPaths()[dog])

	original, err := os.ReadFile(filepath.Join(f.root, "src", "Dog.java"))
	require.NoError(t, err)
	assert.Equal(t, "class Dog {}", string(original))

	overlays, err := f.ws.Overlays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{dog}, overlays)

	// A second edit applies on top of the first.
	_, err = f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Range: rng(0, 12, 0, 12), Text: " int age; "}})
	require.NoError(t, err)
	assert.Equal(t, "class Wolf { int age; }", f.compiler.lastContents()[dog])
}

func TestHandleFileChanged_NewFile(t *testing.T) {
	f := newFixture(t, Options{})
	fox := f.uri("src/Fox.java")

	res, err := f.ws.HandleFileChanged(context.Background(), fox, []overlay.Edit{{Text: "class Fox {}"}})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "class Fox {}", f.compiler.lastContents()[fox])
	assert.NotEmpty(t, f.ws.Snapshot().FileSymbols(fox))
}

func TestHandleFileChanged_RejectedEdits(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	dog := f.uri("src/Dog.java")

	_, err := f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{
		{Range: rng(0, 0, 0, 5), Text: "a"},
		{Range: rng(0, 3, 0, 8), Text: "b"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.InvalidArgument))

	overlays, err := f.ws.Overlays(ctx)
	require.NoError(t, err)
	assert.Empty(t, overlays, "a first edit that fails leaves no overlay behind")
	_, statErr := os.Stat(filepath.Join(f.ws.ScratchDir(), "changed", "src", "Dog.java"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHandleFileChanged_OutsideWorkspace(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.ws.HandleFileChanged(context.Background(), paths.PathToURI(filepath.Join(t.TempDir(), "X.java")), []overlay.Edit{{Text: "x"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.InvalidArgument))

	_, err = f.ws.HandleFileChanged(context.Background(), "http://example.com/X.java", []overlay.Edit{{Text: "x"}})
	assert.True(t, errors.IsCode(err, errors.InvalidArgument))
}

func TestHandleFileChanged_SymlinkedRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	realRoot := filepath.Join(base, "real")
	write(t, realRoot, "src/Dog.java", "class Dog {}")
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(realRoot, link))

	c := newFakeCompiler()
	ws, err := New(link, c, Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.Equal(t, realRoot, ws.Root())

	viaLink := paths.PathToURI(filepath.Join(link, "src", "Dog.java"))
	viaReal := paths.PathToURI(filepath.Join(realRoot, "src", "Dog.java"))
	assert.Equal(t, viaReal, ws.CanonicalURI(viaLink))

	res, err := ws.HandleFileChanged(context.Background(), viaLink, []overlay.Edit{{Text: "class Dog { int x; }"}})
	require.NoError(t, err)
	require.True(t, res.Succeeded)

	require.Len(t, res.Inputs, 1, "the overlay must replace the original, not join it")
	assert.Equal(t, viaReal, res.Inputs[0].URI)
	shadow := filepath.Join(ws.ScratchDir(), "changed", "src", "Dog.java")
	assert.Equal(t, shadow, res.Inputs[0].Path)
	assert.Equal(t, "class Dog { int x; }", c.lastContents()[viaReal])

	overlays, err := ws.Overlays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{viaReal}, overlays)

	_, err = ws.HandleFileClosed(context.Background(), viaLink)
	require.NoError(t, err)
	_, statErr := os.Stat(shadow)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCanonicalURI(t *testing.T) {
	f := newFixture(t, Options{})
	dog := f.uri("src/Dog.java")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", dog, dog},
		{"dot segment", strings.Replace(dog, "/src/", "/./src/", 1), dog},
		{"escaped letters", strings.Replace(dog, "Dog.java", "D%6Fg.java", 1), dog},
		{"outside the workspace", "http://example.com/X.java", "http://example.com/X.java"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ws.CanonicalURI(tt.in))
		})
	}
}

func TestFailedCompileKeepsSnapshot(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	dog := f.uri("src/Dog.java")

	first, err := f.ws.Initialize(ctx)
	require.NoError(t, err)
	before := f.ws.Snapshot()

	res, err := f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Text: "BROKEN class Dog {"}})
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Same(t, before, f.ws.Snapshot())
	assert.Same(t, first.Snapshot, res.Snapshot)

	diags := res.Diagnostics[dog]
	require.Len(t, diags, 1)
	assert.Equal(t, ranges.New(0, 0, 0, 6), diags[0].Range)
	assert.Equal(t, frontend.SeverityError, diags[0].Severity)
	assert.Equal(t, DiagnosticSource, diags[0].Source)

	// Fixing the file clears its diagnostics explicitly.
	res, err = f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Text: "class Dog {}"}})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	require.Contains(t, res.Diagnostics, dog)
	assert.Empty(t, res.Diagnostics[dog])

	// And the clearing entry is sent only once.
	res, err = f.ws.Compile(ctx)
	require.NoError(t, err)
	assert.NotContains(t, res.Diagnostics, dog)
}

func TestPositionlessMessagesGoToRoot(t *testing.T) {
	f := newFixture(t, Options{})
	dog := f.uri("src/Dog.java")

	res, err := f.ws.HandleFileChanged(context.Background(), dog, []overlay.Edit{{Text: "FATAL"}})
	require.NoError(t, err)
	require.False(t, res.Succeeded)

	diags := res.Diagnostics[f.ws.RootURI()]
	require.Len(t, diags, 1)
	assert.True(t, diags[0].Range.IsUndefined())
	assert.Equal(t, "compiler crashed", diags[0].Message)
}

func TestHandleFileClosed_DiscardsOverlay(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	dog := f.uri("src/Dog.java")

	_, err := f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Text: "class Wolf {}"}})
	require.NoError(t, err)

	res, err := f.ws.HandleFileClosed(ctx, dog)
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "class Dog {}", f.compiler.lastContents()[dog])

	_, statErr := os.Stat(filepath.Join(f.ws.ScratchDir(), "changed", "src", "Dog.java"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHandleFileSaved(t *testing.T) {
	tests := []struct {
		name    string
		promote bool
		want    string
	}{
		{"client writes the file", false, "class Dog {}"},
		{"promote overlay", true, "class Wolf {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{PromoteOnSave: tt.promote})
			ctx := context.Background()
			dog := f.uri("src/Dog.java")

			_, err := f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Text: "class Wolf {}"}})
			require.NoError(t, err)

			_, err = f.ws.HandleFileSaved(ctx, dog)
			require.NoError(t, err)

			data, err := os.ReadFile(filepath.Join(f.root, "src", "Dog.java"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
			assert.Equal(t, tt.want, f.compiler.lastContents()[dog])

			overlays, err := f.ws.Overlays(ctx)
			require.NoError(t, err)
			assert.Empty(t, overlays)
		})
	}
}

func TestHandleChangeWatchedFiles(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	dog := f.uri("src/Dog.java")
	cat := f.uri("src/Cat.java")

	_, err := f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Text: "class Wolf {}"}})
	require.NoError(t, err)
	_, err = f.ws.HandleFileChanged(ctx, cat, []overlay.Edit{{Text: "class Lion {}"}})
	require.NoError(t, err)

	write(t, f.root, "src/Dog.java", "class Dog { int legs; }")
	res, err := f.ws.HandleChangeWatchedFiles(ctx, []FileEvent{
		{URI: dog, Type: FileChanged},
		{URI: cat, Type: FileCreated},
	})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)

	assert.Equal(t, "class Dog { int legs; }", f.compiler.lastContents()[dog])
	assert.Equal(t, "class Lion {}", f.compiler.lastContents()[cat], "created events keep overlays")

	overlays, err := f.ws.Overlays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{cat}, overlays)
}

func TestQueriesDoNotBlockOnCompile(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	_, err := f.ws.Initialize(ctx)
	require.NoError(t, err)
	before := f.ws.Snapshot()

	f.compiler.gate = make(chan struct{})
	f.compiler.started = make(chan struct{}, 1)

	done := make(chan *CompileResult, 1)
	go func() {
		res, _ := f.ws.HandleFileChanged(ctx, f.uri("src/Dog.java"), []overlay.Edit{{Text: "class Wolf {}"}})
		done <- res
	}()

	select {
	case <-f.compiler.started:
	case <-time.After(5 * time.Second):
		t.Fatal("compile never started")
	}
	assert.Same(t, before, f.ws.Snapshot(), "readers see the last committed snapshot")

	close(f.compiler.gate)
	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.NotSame(t, before, f.ws.Snapshot())
	case <-time.After(5 * time.Second):
		t.Fatal("compile never finished")
	}
}

func TestEventsAreSerialized(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	dog := f.uri("src/Dog.java")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ws.HandleFileChanged(ctx, dog, []overlay.Edit{{Range: rng(0, 0, 0, 0), Text: "x"}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, strings.Repeat("x", 10)+"class Dog {}", f.compiler.lastContents()[dog])
	assert.Equal(t, 10, f.compiler.callCount())
}

func TestClose(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.ws.HandleFileChanged(ctx, f.uri("src/Dog.java"), []overlay.Edit{{Text: "class Wolf {}"}})
	require.NoError(t, err)

	require.NoError(t, f.ws.Close())
	require.NoError(t, f.ws.Close(), "closing twice is harmless")

	_, statErr := os.Stat(filepath.Join(f.ws.ScratchDir(), "changed", "src", "Dog.java"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = f.ws.Compile(ctx)
	assert.True(t, errors.IsCode(err, errors.WorkspaceClosed))
}

func TestOnCommit(t *testing.T) {
	var committed []string
	f := newFixture(t, Options{OnCommit: func(r *CompileResult) {
		committed = append(committed, r.RunID)
	}})
	ctx := context.Background()

	res, err := f.ws.Initialize(ctx)
	require.NoError(t, err)
	_, err = f.ws.HandleFileChanged(ctx, f.uri("src/Dog.java"), []overlay.Edit{{Text: "BROKEN"}})
	require.NoError(t, err)

	assert.Equal(t, []string{res.RunID}, committed, "failed compiles are not committed")
}
