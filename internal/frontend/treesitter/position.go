package treesitter

import (
	"sort"
	"unicode/utf8"

	"langidx/internal/ranges"
)

// lineTable converts tree-sitter byte columns into UTF-16 columns.
type lineTable struct {
	src    []byte
	starts []int
}

func newLineTable(src []byte) *lineTable {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineTable{src: src, starts: starts}
}

// position maps a row and byte column to a UTF-16 position.
func (l *lineTable) position(row, byteCol uint32) ranges.Position {
	line := int(row)
	if line >= len(l.starts) {
		return ranges.Position{Line: line, Column: int(byteCol)}
	}
	start := l.starts[line]
	end := start + int(byteCol)
	if end > len(l.src) {
		end = len(l.src)
	}
	return ranges.Position{Line: line, Column: utf16Len(l.src[start:end])}
}

// positionAt maps a byte offset to a UTF-16 position.
func (l *lineTable) positionAt(offset int) ranges.Position {
	line := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return l.position(uint32(line), uint32(offset-l.starts[line]))
}

// end returns the position just past the last byte.
func (l *lineTable) end() ranges.Position {
	return l.positionAt(len(l.src))
}

func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}
