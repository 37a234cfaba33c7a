// Package ranges provides ordering, validity and containment predicates over
// zero-based line/column positions and ranges.
package ranges

import (
	"fmt"
	"sort"

	"langidx/internal/errors"
)

// Position is a zero-based line/column pair. Columns count UTF-16 code units.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans Start to End. End is exclusive when ranges describe edits.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location pins a Range to a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// Undefined marks compiler-synthesized members that have no textual location.
var Undefined = Range{
	Start: Position{Line: -1, Column: -1},
	End:   Position{Line: -1, Column: -1},
}

// New builds a range from four integers.
func New(startLine, startCol, endLine, endCol int) Range {
	return Range{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
}

// IsValid reports whether both components are non-negative.
func (p Position) IsValid() bool {
	return p.Line >= 0 && p.Column >= 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsUndefined reports whether r is the Undefined sentinel.
func (r Range) IsUndefined() bool {
	return r == Undefined
}

func (r Range) String() string {
	if r.IsUndefined() {
		return "<undefined>"
	}
	return r.Start.String() + "-" + r.End.String()
}

// IsValid reports whether both endpoints are valid and Start <= End.
func IsValid(r Range) bool {
	return r.Start.IsValid() && r.End.IsValid() && Compare(r.Start, r.End) <= 0
}

// Compare orders positions by line, then column. It returns -1, 0 or +1.
func Compare(a, b Position) int {
	switch {
	case a.Line < b.Line:
		return -1
	case a.Line > b.Line:
		return 1
	case a.Column < b.Column:
		return -1
	case a.Column > b.Column:
		return 1
	default:
		return 0
	}
}

// Contains reports whether Start <= p <= End. Both endpoints are inclusive.
func Contains(r Range, p Position) (bool, error) {
	if !IsValid(r) {
		return false, errors.Newf(errors.InvalidArgument, "invalid range %s", r)
	}
	if !p.IsValid() {
		return false, errors.Newf(errors.InvalidArgument, "invalid position %s", p)
	}
	return Compare(r.Start, p) <= 0 && Compare(p, r.End) <= 0, nil
}

// MustContain is Contains for callers that have already validated r and p;
// invalid input reports false.
func MustContain(r Range, p Position) bool {
	ok, err := Contains(r, p)
	return err == nil && ok
}

// RangesIntersect reports whether any adjacent pair of ranges, pre-sorted by
// start, overlaps. Touching ranges (one ends where the next starts) do not.
func RangesIntersect(sorted []Range) bool {
	for i := 1; i < len(sorted); i++ {
		if Compare(sorted[i-1].End, sorted[i].Start) > 0 {
			return true
		}
	}
	return false
}

// SortByStart sorts ranges by start position, then end position.
func SortByStart(rs []Range) {
	sort.SliceStable(rs, func(i, j int) bool {
		return Less(rs[i], rs[j])
	})
}

// Less orders ranges by start, then end.
func Less(a, b Range) bool {
	if c := Compare(a.Start, b.Start); c != 0 {
		return c < 0
	}
	return Compare(a.End, b.End) < 0
}

// Innermost reports whether a is more specific than b: it starts later,
// or starts at the same place and ends earlier.
func Innermost(a, b Range) bool {
	if c := Compare(a.Start, b.Start); c != 0 {
		return c > 0
	}
	return Compare(a.End, b.End) < 0
}
