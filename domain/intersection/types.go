package intersection

import (
	"sort"
)

// MaxSources is how many sources a summary compares; further selections are
// dropped
const MaxSources = 3

// Kind tags which variant a Summary carries
type Kind string

const (
	KindEmpty  Kind = "empty"
	KindSingle Kind = "single"
	KindDouble Kind = "double"
	KindTriple Kind = "triple"
)

// RegulatorSet is a set of regulator identifiers
type RegulatorSet map[string]struct{}

// NewRegulatorSet builds a set from a list, dropping duplicates
func NewRegulatorSet(ids ...string) RegulatorSet {
	s := make(RegulatorSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id
func (s RegulatorSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports membership
func (s RegulatorSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns the elements present in s and every other set
func (s RegulatorSet) Intersect(others ...RegulatorSet) RegulatorSet {
	out := make(RegulatorSet)
	for id := range s {
		inAll := true
		for _, o := range others {
			if !o.Has(id) {
				inAll = false
				break
			}
		}
		if inAll {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order
func (s RegulatorSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Summary describes how the regulators of up to three selected sources
// overlap. Which fields are populated depends on Kind:
//
//	single: Sources[0], Counts[0]
//	double: Sources, Counts, Intersection
//	triple: Sources, Counts, PairwiseIntersections (12, 13, 23), TripleIntersection
type Summary struct {
	Kind                  Kind     `json:"type"`
	Sources               []string `json:"sources,omitempty"`
	Counts                []int    `json:"counts,omitempty"`
	Intersection          int      `json:"intersection"`
	PairwiseIntersections []int    `json:"pairwise_intersections,omitempty"`
	TripleIntersection    int      `json:"triple_intersection"`
}

// CountOf returns the regulator count of a source in the summary
func (s Summary) CountOf(source string) (int, bool) {
	for i, name := range s.Sources {
		if name == source {
			return s.Counts[i], true
		}
	}
	return 0, false
}

// PairwiseOf returns the overlap of two sources regardless of argument order
func (s Summary) PairwiseOf(a, b string) (int, bool) {
	ia, ib := s.index(a), s.index(b)
	if ia < 0 || ib < 0 || ia == ib {
		return 0, false
	}
	switch s.Kind {
	case KindDouble:
		return s.Intersection, true
	case KindTriple:
		if ia > ib {
			ia, ib = ib, ia
		}
		// pairs are ordered (0,1), (0,2), (1,2)
		return s.PairwiseIntersections[ia+ib-1], true
	}
	return 0, false
}

func (s Summary) index(source string) int {
	for i, name := range s.Sources {
		if name == source {
			return i
		}
	}
	return -1
}

// Membership is one bar of an UpSet plot: regulators found in exactly the
// listed sources and no other
type Membership struct {
	Sources    []string `json:"sources"`
	Regulators []string `json:"regulators"`
	Size       int      `json:"size"`
}
