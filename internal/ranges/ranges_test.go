package ranges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langidx/internal/errors"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		want bool
	}{
		{"single point", New(0, 0, 0, 0), true},
		{"same line", New(2, 1, 2, 9), true},
		{"multi line", New(1, 8, 3, 0), true},
		{"end before start", New(3, 0, 1, 0), false},
		{"column before start on same line", New(1, 5, 1, 4), false},
		{"negative line", New(-1, 0, 1, 0), false},
		{"negative column", New(0, 0, 0, -2), false},
		{"undefined", Undefined, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.r))
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Position
		want int
	}{
		{Position{1, 1}, Position{1, 1}, 0},
		{Position{0, 9}, Position{1, 0}, -1},
		{Position{2, 0}, Position{1, 9}, 1},
		{Position{4, 3}, Position{4, 4}, -1},
		{Position{4, 5}, Position{4, 4}, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%v, %v)", tt.a, tt.b)
	}
}

func TestContains(t *testing.T) {
	r := New(4, 4, 6, 6)

	tests := []struct {
		p    Position
		want bool
	}{
		{Position{4, 4}, true},
		{Position{6, 6}, true},
		{Position{5, 0}, true},
		{Position{5, 100}, true},
		{Position{4, 3}, false},
		{Position{6, 7}, false},
		{Position{3, 10}, false},
		{Position{7, 0}, false},
	}

	for _, tt := range tests {
		got, err := Contains(r, tt.p)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Contains(%v, %v)", r, tt.p)
	}
}

func TestContains_InvalidArguments(t *testing.T) {
	_, err := Contains(New(2, 0, 1, 0), Position{1, 0})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.InvalidArgument))

	_, err = Contains(New(0, 0, 1, 0), Position{-1, 0})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.InvalidArgument))

	_, err = Contains(Undefined, Position{0, 0})
	require.Error(t, err)

	assert.False(t, MustContain(Undefined, Position{0, 0}))
	assert.True(t, MustContain(New(0, 0, 0, 3), Position{0, 2}))
}

func TestRangesIntersect(t *testing.T) {
	tests := []struct {
		name   string
		ranges []Range
		want   bool
	}{
		{"empty", nil, false},
		{"single", []Range{New(0, 0, 5, 0)}, false},
		{"disjoint", []Range{New(0, 0, 0, 2), New(0, 4, 0, 6)}, false},
		{"touching", []Range{New(0, 0, 0, 2), New(0, 2, 0, 4)}, false},
		{"overlap same line", []Range{New(0, 0, 0, 3), New(0, 2, 0, 4)}, true},
		{"overlap across lines", []Range{New(0, 0, 2, 0), New(1, 5, 1, 6)}, true},
		{"later pair overlaps", []Range{New(0, 0, 0, 1), New(1, 0, 1, 5), New(1, 4, 2, 0)}, true},
		{"insertions at same point", []Range{New(3, 1, 3, 1), New(3, 1, 3, 1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RangesIntersect(tt.ranges))
		})
	}
}

func TestSortByStart(t *testing.T) {
	rs := []Range{New(2, 0, 2, 1), New(0, 5, 0, 6), New(0, 5, 0, 5), New(1, 0, 3, 0)}
	SortByStart(rs)

	assert.Equal(t, []Range{New(0, 5, 0, 5), New(0, 5, 0, 6), New(1, 0, 3, 0), New(2, 0, 2, 1)}, rs)
}

func TestInnermost(t *testing.T) {
	outer := New(1, 0, 10, 0)
	inner := New(3, 2, 4, 0)
	sameStartShorter := New(1, 0, 5, 0)

	assert.True(t, Innermost(inner, outer))
	assert.False(t, Innermost(outer, inner))
	assert.True(t, Innermost(sameStartShorter, outer))
	assert.False(t, Innermost(outer, outer))
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "1:2-3:4", New(1, 2, 3, 4).String())
	assert.Equal(t, "<undefined>", Undefined.String())
	assert.True(t, Undefined.IsUndefined())
}
