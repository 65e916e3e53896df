// Package tree draws spanning trees over district subgraphs and searches them
// for population-balanced cuts.
//
// Two generators are provided. [RandomSpanningTree] takes a maximum spanning
// tree over independent uniform edge weights; it is fast but its trees are
// not uniformly distributed. [UniformSpanningTree] runs Wilson's loop-erased
// random walk and draws exactly uniformly from all spanning trees, which the
// reversible chain requires.
//
// [BalancedCuts] roots a tree and lists every edge whose removal leaves a
// component within tolerance of a population target. [Bipartition] repeats
// tree draws until such a cut exists, and [RecursiveTreePart] applies it
// part by part to seed a fresh plan.
package tree

import (
	"slices"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
)

// Tree is a spanning tree over a node subset. Nodes are held in ascending
// id order and adjacency is stored by position.
type Tree struct {
	nodes []graph.NodeID
	pos   map[graph.NodeID]int
	adj   [][]int
}

func newTree(nodes []graph.NodeID) *Tree {
	t := &Tree{
		nodes: nodes,
		pos:   make(map[graph.NodeID]int, len(nodes)),
		adj:   make([][]int, len(nodes)),
	}
	for i, v := range nodes {
		t.pos[v] = i
	}
	return t
}

func (t *Tree) link(i, j int) {
	t.adj[i] = append(t.adj[i], j)
	t.adj[j] = append(t.adj[j], i)
}

// FromEdges builds a tree over nodes from an explicit edge list. The edges
// must connect every node without a cycle.
func FromEdges(nodes []graph.NodeID, edges []graph.Edge) (*Tree, error) {
	sorted := slices.Clone(nodes)
	slices.Sort(sorted)
	t := newTree(slices.Compact(sorted))
	if len(edges) != t.Len()-1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d edges cannot span %d nodes", len(edges), t.Len())
	}
	ds := newDisjointSet(t.Len())
	for _, e := range edges {
		i, iok := t.pos[e.U]
		j, jok := t.pos[e.V]
		if !iok || !jok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %d-%d leaves the node set", e.U, e.V)
		}
		if !ds.union(i, j) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %d-%d closes a cycle", e.U, e.V)
		}
		t.link(i, j)
	}
	return t, nil
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Nodes returns the nodes in ascending order. The slice must not be modified.
func (t *Tree) Nodes() []graph.NodeID { return t.nodes }

// Contains reports whether v is spanned by the tree.
func (t *Tree) Contains(v graph.NodeID) bool {
	_, ok := t.pos[v]
	return ok
}

// Neighbors returns the tree neighbors of v, sorted.
func (t *Tree) Neighbors(v graph.NodeID) []graph.NodeID {
	i, ok := t.pos[v]
	if !ok {
		return nil
	}
	out := make([]graph.NodeID, len(t.adj[i]))
	for k, j := range t.adj[i] {
		out[k] = t.nodes[j]
	}
	slices.Sort(out)
	return out
}

// Degree returns the tree degree of v.
func (t *Tree) Degree(v graph.NodeID) int {
	i, ok := t.pos[v]
	if !ok {
		return 0
	}
	return len(t.adj[i])
}

// Edges returns the tree edges sorted by (U, V).
func (t *Tree) Edges() []graph.Edge {
	out := make([]graph.Edge, 0, max(t.Len()-1, 0))
	for i, nbrs := range t.adj {
		for _, j := range nbrs {
			if i < j {
				out = append(out, graph.MakeEdge(t.nodes[i], t.nodes[j]))
			}
		}
	}
	slices.SortFunc(out, graph.CompareEdges)
	return out
}

// =============================================================================
// Union-Find
// =============================================================================

// disjointSet is a union-find over positions with path compression and
// union by rank.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (ds *disjointSet) find(i int) int {
	for ds.parent[i] != i {
		ds.parent[i] = ds.parent[ds.parent[i]]
		i = ds.parent[i]
	}
	return i
}

// union merges the sets holding i and j and reports whether they were
// disjoint.
func (ds *disjointSet) union(i, j int) bool {
	ri, rj := ds.find(i), ds.find(j)
	if ri == rj {
		return false
	}
	switch {
	case ds.rank[ri] < ds.rank[rj]:
		ds.parent[ri] = rj
	case ds.rank[ri] > ds.rank[rj]:
		ds.parent[rj] = ri
	default:
		ds.parent[rj] = ri
		ds.rank[ri]++
	}
	return true
}
