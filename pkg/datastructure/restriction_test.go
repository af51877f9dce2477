package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesSuffix(t *testing.T) {
	testCases := []struct {
		name  string
		trail []Index
		seq   []Index
		want  bool
	}{
		{name: "exact", trail: []Index{1, 2, 3}, seq: []Index{1, 2, 3}, want: true},
		{name: "suffix", trail: []Index{0, 1, 2, 3}, seq: []Index{2, 3}, want: true},
		{name: "prefix only", trail: []Index{1, 2, 3}, seq: []Index{1, 2}, want: false},
		{name: "longer than trail", trail: []Index{2, 3}, seq: []Index{1, 2, 3}, want: false},
		{name: "mismatch", trail: []Index{1, 2, 4}, seq: []Index{2, 3}, want: false},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSuffix(tt.trail, tt.seq))
		})
	}
}

func TestRestrictionIndex(t *testing.T) {
	ri := NewRestrictionIndex([][]Index{
		{1, 2, 3},
		{1, 4},
		{5, 6, 7, 8},
		{9}, // too short, dropped
	})

	assert.Equal(t, 3, ri.Count())
	assert.Equal(t, 4, ri.MaxLength())
	assert.True(t, ri.HasComplexRestrictions())

	fromOne := ri.FromVertex(1)
	assert.Len(t, fromOne, 2)
	// shortest first
	assert.Len(t, fromOne[0], 2)
	assert.Len(t, fromOne[1], 3)

	assert.Empty(t, ri.FromVertex(2))

	var nilIndex *RestrictionIndex
	assert.False(t, nilIndex.HasComplexRestrictions())

	empty := NewRestrictionIndex(nil)
	assert.False(t, empty.HasComplexRestrictions())
}
