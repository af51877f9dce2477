package datastructure

import (
	"golang.org/x/exp/slices"
)

// RestrictionIndex holds, for one profile, the vertex sequences that
// must not appear contiguously in any path. Restrictions are indexed by
// their first vertex.
type RestrictionIndex struct {
	byFirst   map[Index][][]Index
	maxLength int
	count     int
}

func NewRestrictionIndex(restrictions [][]Index) *RestrictionIndex {
	ri := &RestrictionIndex{
		byFirst: make(map[Index][][]Index),
	}
	for _, r := range restrictions {
		if len(r) < 2 {
			continue
		}
		seq := make([]Index, len(r))
		copy(seq, r)
		ri.byFirst[seq[0]] = append(ri.byFirst[seq[0]], seq)
		if len(seq) > ri.maxLength {
			ri.maxLength = len(seq)
		}
		ri.count++
	}
	for first := range ri.byFirst {
		slices.SortFunc(ri.byFirst[first], func(a, b []Index) int {
			return len(a) - len(b)
		})
	}
	return ri
}

// FromVertex returns the restrictions whose first vertex is v, shortest
// first.
func (ri *RestrictionIndex) FromVertex(v Index) [][]Index {
	return ri.byFirst[v]
}

func (ri *RestrictionIndex) Count() int {
	return ri.count
}

// MaxLength is the longest restriction sequence; kernels size their
// trailing-vertex window as MaxLength-1.
func (ri *RestrictionIndex) MaxLength() int {
	return ri.maxLength
}

// HasComplexRestrictions reports whether any restriction requires the
// edge-expanded search to be honored exactly.
func (ri *RestrictionIndex) HasComplexRestrictions() bool {
	return ri != nil && ri.count > 0
}

// MatchesSuffix reports whether the restriction seq occurs contiguously
// at the end of trail (the last len(seq) entries equal seq).
func MatchesSuffix(trail []Index, seq []Index) bool {
	if len(seq) > len(trail) {
		return false
	}
	offset := len(trail) - len(seq)
	for i, v := range seq {
		if trail[offset+i] != v {
			return false
		}
	}
	return true
}
