package graph

import (
	"slices"
)

// NodeID is a dense node index in 0..NodeCount()-1.
type NodeID int

// Attrs stores arbitrary attributes attached to a node or edge.
type Attrs map[string]any

// Edge is an undirected edge. Use [MakeEdge] to build one; U is always the
// smaller endpoint so equal edges compare equal as map keys.
type Edge struct {
	U NodeID
	V NodeID
}

// MakeEdge returns the normalized edge between a and b.
func MakeEdge(a, b NodeID) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{U: a, V: b}
}

// Other returns the endpoint of e opposite v.
func (e Edge) Other(v NodeID) NodeID {
	if e.U == v {
		return e.V
	}
	return e.U
}

// CompareEdges orders edges lexicographically by (U, V), for use with
// slices.SortFunc.
func CompareEdges(a, b Edge) int {
	if a.U != b.U {
		return int(a.U) - int(b.U)
	}
	return int(a.V) - int(b.V)
}

// =============================================================================
// NodeSet
// =============================================================================

// NodeSet is a set of nodes. Sets shared between partitions must be treated
// as read-only; callers that need to modify one take a [NodeSet.Clone] first.
type NodeSet map[NodeID]struct{}

// NewNodeSet returns a set holding ids.
func NewNodeSet(ids ...NodeID) NodeSet {
	s := make(NodeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s NodeSet) Add(v NodeID) { s[v] = struct{}{} }
func (s NodeSet) Len() int     { return len(s) }

// Has reports whether v is in s.
func (s NodeSet) Has(v NodeID) bool {
	_, ok := s[v]
	return ok
}

// Clone returns an independent copy of s.
func (s NodeSet) Clone() NodeSet {
	out := make(NodeSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order. Every random choice over a
// set goes through Sorted so that runs are reproducible by seed.
func (s NodeSet) Sorted() []NodeID {
	out := make([]NodeID, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set with the members of a and b.
func Union(a, b NodeSet) NodeSet {
	out := make(NodeSet, len(a)+len(b))
	for v := range a {
		out[v] = struct{}{}
	}
	for v := range b {
		out[v] = struct{}{}
	}
	return out
}

// =============================================================================
// EdgeSet
// =============================================================================

// EdgeSet is a set of normalized edges.
type EdgeSet map[Edge]struct{}

// NewEdgeSet returns a set holding edges.
func NewEdgeSet(edges ...Edge) EdgeSet {
	s := make(EdgeSet, len(edges))
	for _, e := range edges {
		s[e] = struct{}{}
	}
	return s
}

func (s EdgeSet) Add(e Edge) { s[e] = struct{}{} }
func (s EdgeSet) Len() int   { return len(s) }

// Has reports whether e is in s.
func (s EdgeSet) Has(e Edge) bool {
	_, ok := s[e]
	return ok
}

// Clone returns an independent copy of s.
func (s EdgeSet) Clone() EdgeSet {
	out := make(EdgeSet, len(s))
	for e := range s {
		out[e] = struct{}{}
	}
	return out
}

// Sorted returns the edges ordered by (U, V).
func (s EdgeSet) Sorted() []Edge {
	out := make([]Edge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	slices.SortFunc(out, CompareEdges)
	return out
}
