package graph

import "slices"

// View is the subgraph of a [Graph] induced by a node subset. Neighbor lists
// are filtered once at construction, so random walks and tree builders can
// iterate them without allocating.
type View struct {
	g     *Graph
	nodes []NodeID // sorted
	pos   map[NodeID]int
	adj   [][]NodeID
	edges int
}

// Subgraph returns the view induced by nodes.
func (g *Graph) Subgraph(nodes NodeSet) *View {
	v := &View{
		g:     g,
		nodes: nodes.Sorted(),
		pos:   make(map[NodeID]int, len(nodes)),
	}
	for i, n := range v.nodes {
		v.pos[n] = i
	}
	v.adj = make([][]NodeID, len(v.nodes))
	for i, n := range v.nodes {
		var nbrs []NodeID
		for _, u := range g.adj[n] {
			if _, ok := v.pos[u]; ok {
				nbrs = append(nbrs, u)
			}
		}
		v.adj[i] = nbrs
		v.edges += len(nbrs)
	}
	v.edges /= 2
	return v
}

// Graph returns the parent graph.
func (v *View) Graph() *Graph { return v.g }

// Len returns the number of nodes in the view.
func (v *View) Len() int { return len(v.nodes) }

// EdgeCount returns the number of edges in the view.
func (v *View) EdgeCount() int { return v.edges }

// Nodes returns the view's nodes in ascending order. The slice must not be
// modified.
func (v *View) Nodes() []NodeID { return v.nodes }

// Contains reports whether n is in the view.
func (v *View) Contains(n NodeID) bool {
	_, ok := v.pos[n]
	return ok
}

// Index returns the position of n in [View.Nodes], or -1.
func (v *View) Index(n NodeID) int {
	if i, ok := v.pos[n]; ok {
		return i
	}
	return -1
}

// Neighbors returns the neighbors of n inside the view, sorted.
func (v *View) Neighbors(n NodeID) []NodeID {
	i, ok := v.pos[n]
	if !ok {
		return nil
	}
	return v.adj[i]
}

// Degree returns the degree of n inside the view.
func (v *View) Degree(n NodeID) int { return len(v.Neighbors(n)) }

// Edges returns the view's edges sorted by (U, V).
func (v *View) Edges() []Edge {
	out := make([]Edge, 0, v.edges)
	for i, n := range v.nodes {
		for _, u := range v.adj[i] {
			if n < u {
				out = append(out, Edge{U: n, V: u})
			}
		}
	}
	slices.SortFunc(out, CompareEdges)
	return out
}

// NodeSet returns the view's nodes as a fresh set.
func (v *View) NodeSet() NodeSet { return NewNodeSet(v.nodes...) }

// Connected reports whether the view is connected. The empty view is not.
func (v *View) Connected() bool {
	if len(v.nodes) == 0 {
		return false
	}
	seen := make([]bool, len(v.nodes))
	seen[0] = true
	queue := []int{0}
	reached := 1
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, u := range v.adj[i] {
			j := v.pos[u]
			if !seen[j] {
				seen[j] = true
				reached++
				queue = append(queue, j)
			}
		}
	}
	return reached == len(v.nodes)
}
