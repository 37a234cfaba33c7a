package overlay

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langidx/internal/errors"
	"langidx/internal/ranges"
)

func rng(sl, sc, el, ec int) *ranges.Range {
	r := ranges.New(sl, sc, el, ec)
	return &r
}

func TestSplice(t *testing.T) {
	const doc = "class Dog {\n  Cat friend1\n}\n"

	tests := []struct {
		name  string
		edits []Edit
		want  string
	}{
		{
			name:  "no edits",
			edits: nil,
			want:  doc,
		},
		{
			name:  "full replacement",
			edits: []Edit{{Text: "class Cat {}"}},
			want:  "class Cat {}",
		},
		{
			name:  "rename field",
			edits: []Edit{{Range: rng(1, 6, 1, 13), Text: "buddy"}},
			want:  "class Dog {\n  Cat buddy\n}\n",
		},
		{
			name: "out of order edits",
			edits: []Edit{
				{Range: rng(1, 2, 1, 5), Text: "Mouse"},
				{Range: rng(0, 6, 0, 9), Text: "Wolf"},
			},
			want: "class Wolf {\n  Mouse friend1\n}\n",
		},
		{
			name:  "prepend at origin",
			edits: []Edit{{Range: rng(0, 0, 0, 0), Text: "package pets;\n"}},
			want:  "package pets;\n" + doc,
		},
		{
			name:  "append beyond end of file",
			edits: []Edit{{Range: rng(10, 0, 10, 0), Text: "class Cat {}\n"}},
			want:  doc + "class Cat {}\n",
		},
		{
			name:  "insert on trailing empty line",
			edits: []Edit{{Range: rng(3, 0, 3, 0), Text: "//eof"}},
			want:  doc + "//eof",
		},
		{
			name:  "delete across lines",
			edits: []Edit{{Range: rng(0, 11, 2, 0), Text: ""}},
			want:  "class Dog {}\n",
		},
		{
			name: "touching edits",
			edits: []Edit{
				{Range: rng(0, 0, 0, 5), Text: "interface"},
				{Range: rng(0, 5, 0, 6), Text: "_"},
			},
			want: "interface_Dog {\n  Cat friend1\n}\n",
		},
		{
			name:  "column past end of line clamps",
			edits: []Edit{{Range: rng(0, 11, 0, 99), Text: " // pet"}},
			want:  "class Dog { // pet\n  Cat friend1\n}\n",
		},
		{
			name: "two insertions at the same point keep order",
			edits: []Edit{
				{Range: rng(2, 0, 2, 0), Text: "A"},
				{Range: rng(2, 0, 2, 0), Text: "B"},
			},
			want: "class Dog {\n  Cat friend1\nAB}\n",
		},
		{
			name: "insertion then replacement at the same start",
			edits: []Edit{
				{Range: rng(0, 0, 0, 0), Text: ">"},
				{Range: rng(0, 0, 0, 5), Text: "HI"},
			},
			want: ">HI Dog {\n  Cat friend1\n}\n",
		},
		{
			name: "replacement then insertion at the same start",
			edits: []Edit{
				{Range: rng(0, 0, 0, 5), Text: "HI"},
				{Range: rng(0, 0, 0, 0), Text: ">"},
			},
			want: ">HI Dog {\n  Cat friend1\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Splice(doc, tt.edits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplice_UTF16Columns(t *testing.T) {
	// "é" is one UTF-16 unit, "😀" is two.
	doc := "s = \"é😀x\"\n"

	got, err := Splice(doc, []Edit{{Range: rng(0, 8, 0, 9), Text: "y"}})
	require.NoError(t, err)
	assert.Equal(t, "s = \"é😀y\"\n", got)
}

func TestSplice_CRLF(t *testing.T) {
	doc := "a\r\nbc\r\n"

	got, err := Splice(doc, []Edit{{Range: rng(0, 1, 0, 50), Text: "!"}})
	require.NoError(t, err)
	assert.Equal(t, "a!\r\nbc\r\n", got)
}

func TestSplice_Errors(t *testing.T) {
	tests := []struct {
		name    string
		edits   []Edit
		message string
	}{
		{
			name:    "full replacement combined",
			edits:   []Edit{{Text: "x"}, {Range: rng(0, 0, 0, 1), Text: "y"}},
			message: "cannot combine a full replacement with other edits",
		},
		{
			name:    "full replacement second",
			edits:   []Edit{{Range: rng(0, 0, 0, 1), Text: "y"}, {Text: "x"}},
			message: "cannot combine a full replacement with other edits",
		},
		{
			name:    "intersecting",
			edits:   []Edit{{Range: rng(0, 4, 0, 8), Text: "a"}, {Range: rng(0, 0, 0, 5), Text: "b"}},
			message: "intersecting edit ranges",
		},
		{
			name:    "inverted range",
			edits:   []Edit{{Range: rng(1, 0, 0, 0), Text: "a"}},
			message: "invalid edit range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Splice("hello world\nsecond line\n", tt.edits)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.InvalidArgument))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

// manualSplice applies edits back to front on a single-line ASCII document.
func manualSplice(doc string, edits []Edit) string {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Column > sorted[j].Range.Start.Column
	})
	for _, e := range sorted {
		s, end := e.Range.Start.Column, e.Range.End.Column
		doc = doc[:s] + e.Text + doc[end:]
	}
	return doc
}

func TestSplice_MatchesManualSplicing(t *testing.T) {
	const doc = "abcdefghijklmnopqrstuvwxyz0123456789"
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		// Pick sorted, strictly separated cut points, then shuffle the edits.
		var edits []Edit
		pos := 0
		for pos < len(doc) {
			start := pos + r.Intn(5)
			if start >= len(doc) {
				break
			}
			end := start + r.Intn(4)
			if end > len(doc) {
				end = len(doc)
			}
			text := strings.Repeat(string(rune('A'+r.Intn(26))), r.Intn(3))
			edits = append(edits, Edit{Range: rng(0, start, 0, end), Text: text})
			pos = end + 1
		}
		r.Shuffle(len(edits), func(i, j int) { edits[i], edits[j] = edits[j], edits[i] })

		got, err := Splice(doc, edits)
		require.NoError(t, err)
		require.Equal(t, manualSplice(doc, edits), got, "iteration %d", iter)
	}
}

func TestOverlayLifecycle(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src", "Dog.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("class Dog {}\n"), 0644))

	dst := filepath.Join(root, ".langidx", "changed", "src", "Dog.java")
	o, err := Open(src, dst)
	require.NoError(t, err)
	assert.Equal(t, src, o.Source())
	assert.Equal(t, dst, o.Destination())

	content, err := o.Content()
	require.NoError(t, err)
	assert.Equal(t, "class Dog {}\n", content)

	require.NoError(t, o.ApplyChanges([]Edit{{Range: rng(0, 6, 0, 9), Text: "Wolf"}}))
	content, _ = o.Content()
	assert.Equal(t, "class Wolf {}\n", content)

	original, _ := os.ReadFile(src)
	assert.Equal(t, "class Dog {}\n", string(original), "original must stay untouched")

	// A rejected batch leaves the last valid content.
	err = o.ApplyChanges([]Edit{{Text: "x"}, {Text: "y"}})
	require.Error(t, err)
	content, _ = o.Content()
	assert.Equal(t, "class Wolf {}\n", content)

	require.NoError(t, o.Reload())
	content, _ = o.Content()
	assert.Equal(t, "class Dog {}\n", content)

	require.NoError(t, o.ApplyChanges([]Edit{{Text: "class Fox {}\n"}}))
	require.NoError(t, o.Promote())
	original, _ = os.ReadFile(src)
	assert.Equal(t, "class Fox {}\n", string(original))

	require.NoError(t, o.Remove())
	_, err = os.Stat(dst)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, o.Remove(), "removing twice is not an error")

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files may be left behind")
}

func TestOpen_MissingSourceStartsEmpty(t *testing.T) {
	root := t.TempDir()
	o, err := Open(filepath.Join(root, "New.java"), filepath.Join(root, "shadow", "New.java"))
	require.NoError(t, err)

	content, err := o.Content()
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestOpen_DestinationNotCreatable(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "Dog.java")
	require.NoError(t, os.WriteFile(src, []byte("class Dog {}"), 0644))

	// A regular file where a parent directory is needed.
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := Open(src, filepath.Join(blocker, "Dog.java"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ResourceFailure))
}
