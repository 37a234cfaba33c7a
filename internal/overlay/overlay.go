// Package overlay maintains shadow copies of source files that absorb
// incremental client edits without touching the originals.
package overlay

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"langidx/internal/errors"
	"langidx/internal/ranges"
)

// Edit replaces Range with Text. A nil Range replaces the whole document.
type Edit struct {
	Range *ranges.Range `json:"range,omitempty"`
	Text  string        `json:"text"`
}

// Overlay is a shadow copy of Source stored at Destination.
type Overlay struct {
	source      string
	destination string
}

// Open copies source to destination, creating parent directories as needed.
// A missing source starts the overlay empty.
func Open(source, destination string) (*Overlay, error) {
	data, err := os.ReadFile(source)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.New(errors.ResourceFailure, fmt.Sprintf("cannot read %s", source), err, nil)
	}

	o := &Overlay{source: source, destination: destination}
	if err := o.write(data); err != nil {
		return nil, err
	}
	return o, nil
}

// Source returns the path of the original file.
func (o *Overlay) Source() string { return o.source }

// Destination returns the path of the shadow file.
func (o *Overlay) Destination() string { return o.destination }

// Content returns the current shadow content.
func (o *Overlay) Content() (string, error) {
	data, err := os.ReadFile(o.destination)
	if err != nil {
		return "", errors.New(errors.ResourceFailure, "cannot read overlay", err, nil)
	}
	return string(data), nil
}

// ApplyChanges applies edits to the shadow content. On error the shadow
// keeps its last valid content.
func (o *Overlay) ApplyChanges(edits []Edit) error {
	current, err := o.Content()
	if err != nil {
		return err
	}
	next, err := Splice(current, edits)
	if err != nil {
		return err
	}
	return o.write([]byte(next))
}

// Reload discards all edits by copying the original over the shadow.
func (o *Overlay) Reload() error {
	data, err := os.ReadFile(o.source)
	if err != nil && !os.IsNotExist(err) {
		return errors.New(errors.ResourceFailure, fmt.Sprintf("cannot read %s", o.source), err, nil)
	}
	return o.write(data)
}

// Promote writes the shadow content into the original file.
func (o *Overlay) Promote() error {
	content, err := o.Content()
	if err != nil {
		return err
	}
	return atomicWrite(o.source, []byte(content))
}

// Remove deletes the shadow file. A shadow that is already gone is not an error.
func (o *Overlay) Remove() error {
	if err := os.Remove(o.destination); err != nil && !os.IsNotExist(err) {
		return errors.New(errors.ResourceFailure, "cannot remove overlay", err, nil)
	}
	return nil
}

func (o *Overlay) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(o.destination), 0755); err != nil {
		return errors.New(errors.ResourceFailure, fmt.Sprintf("cannot create %s", filepath.Dir(o.destination)), err, nil)
	}
	return atomicWrite(o.destination, data)
}

// atomicWrite writes through a temp file in the target directory and renames
// it into place so readers never observe a partial file.
func atomicWrite(path string, data []byte) error {
	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.New(errors.ResourceFailure, fmt.Sprintf("cannot write %s", path), err, nil)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.New(errors.ResourceFailure, fmt.Sprintf("cannot write %s", path), cause, nil)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.New(errors.ResourceFailure, fmt.Sprintf("cannot replace %s", path), err, nil)
	}
	return nil
}

// Splice applies edits to content in one linear pass.
//
// A rangeless edit must be the only edit and replaces everything. Ranged
// edits are sorted by start and must not intersect; each replaces
// [start, end). Edits starting at or beyond end of file are appended.
func Splice(content string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return content, nil
	}
	for _, e := range edits {
		if e.Range == nil {
			if len(edits) != 1 {
				return "", errors.Newf(errors.InvalidArgument, "cannot combine a full replacement with other edits")
			}
			return e.Text, nil
		}
		if !ranges.IsValid(*e.Range) {
			return "", errors.Newf(errors.InvalidArgument, "invalid edit range %s", *e.Range)
		}
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	// Start, then end: an insertion precedes a replacement at the same point.
	sort.SliceStable(sorted, func(i, j int) bool {
		return ranges.Less(*sorted[i].Range, *sorted[j].Range)
	})

	rs := make([]ranges.Range, len(sorted))
	for i, e := range sorted {
		rs[i] = *e.Range
	}
	if ranges.RangesIntersect(rs) {
		return "", errors.Newf(errors.InvalidArgument, "intersecting edit ranges")
	}

	idx := newLineIndex(content)
	var b strings.Builder
	b.Grow(len(content))
	cursor := 0
	for _, e := range sorted {
		start := idx.offset(e.Range.Start)
		end := idx.offset(e.Range.End)
		if start < cursor {
			start = cursor
		}
		if end < start {
			end = start
		}
		b.WriteString(content[cursor:start])
		b.WriteString(e.Text)
		cursor = end
	}
	b.WriteString(content[cursor:])
	return b.String(), nil
}

// lineIndex maps UTF-16 line/column positions to byte offsets.
type lineIndex struct {
	content string
	starts  []int
}

func newLineIndex(content string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{content: content, starts: starts}
}

// offset converts p to a byte offset. Lines past the end map to end of file;
// columns past the end of a line clamp to the line terminator.
func (l *lineIndex) offset(p ranges.Position) int {
	if p.Line >= len(l.starts) {
		return len(l.content)
	}
	start := l.starts[p.Line]
	end := len(l.content)
	if p.Line+1 < len(l.starts) {
		end = l.starts[p.Line+1] - 1 // '\n'
	}
	if end > start && l.content[end-1] == '\r' {
		end--
	}

	units := 0
	i := start
	for i < end && units < p.Column {
		r, size := utf8.DecodeRuneInString(l.content[i:end])
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return i
}
