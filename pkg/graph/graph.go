package graph

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"sync"
)

var (
	// ErrDuplicateNode is returned by [Builder.AddNode] when a node with the
	// same name already exists.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrUnknownNode is returned by [Builder.AddEdge] when an endpoint was
	// never added.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSelfLoop is returned by [Builder.AddEdge] when both endpoints are the
	// same node. Dual graphs never contain self-adjacency.
	ErrSelfLoop = errors.New("self-loop edge")
)

// Graph is an immutable undirected attributed graph.
//
// The zero value is not usable; build one with [NewBuilder] or [Grid].
// Graph is safe for concurrent use.
type Graph struct {
	names     []string
	index     map[string]NodeID
	nodeAttrs []Attrs
	adj       [][]NodeID // sorted ascending
	edges     []Edge     // sorted by (U, V)
	edgeAttrs map[Edge]Attrs

	colMu   sync.RWMutex
	columns map[string][]float64
}

// =============================================================================
// Builder
// =============================================================================

// Builder accumulates nodes and edges for a [Graph].
// A Builder is not safe for concurrent use.
type Builder struct {
	names     []string
	index     map[string]NodeID
	nodeAttrs []Attrs
	adj       []map[NodeID]struct{}
	edgeAttrs map[Edge]Attrs
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		index:     make(map[string]NodeID),
		edgeAttrs: make(map[Edge]Attrs),
	}
}

// AddNode adds a node with the given external name and returns its id.
// Attributes may be nil.
func (b *Builder) AddNode(name string, attrs Attrs) (NodeID, error) {
	if _, ok := b.index[name]; ok {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	id := NodeID(len(b.names))
	if attrs == nil {
		attrs = Attrs{}
	}
	b.names = append(b.names, name)
	b.index[name] = id
	b.nodeAttrs = append(b.nodeAttrs, attrs)
	b.adj = append(b.adj, make(map[NodeID]struct{}))
	return id, nil
}

// AddEdge connects u and v. Adding an existing edge again merges the new
// attributes into the old ones.
func (b *Builder) AddEdge(u, v NodeID, attrs Attrs) error {
	n := NodeID(len(b.names))
	if u < 0 || u >= n {
		return fmt.Errorf("%w: %d", ErrUnknownNode, u)
	}
	if v < 0 || v >= n {
		return fmt.Errorf("%w: %d", ErrUnknownNode, v)
	}
	if u == v {
		return fmt.Errorf("%w: %q", ErrSelfLoop, b.names[u])
	}
	e := MakeEdge(u, v)
	existing, ok := b.edgeAttrs[e]
	if !ok {
		existing = Attrs{}
		b.edgeAttrs[e] = existing
	}
	maps.Copy(existing, attrs)
	b.adj[u][v] = struct{}{}
	b.adj[v][u] = struct{}{}
	return nil
}

// Lookup returns the id of a node already added under name.
func (b *Builder) Lookup(name string) (NodeID, bool) {
	id, ok := b.index[name]
	return id, ok
}

// Build freezes the accumulated nodes and edges into a Graph. The Builder
// must not be used afterwards.
func (b *Builder) Build() *Graph {
	g := &Graph{
		names:     b.names,
		index:     b.index,
		nodeAttrs: b.nodeAttrs,
		adj:       make([][]NodeID, len(b.names)),
		edges:     make([]Edge, 0, len(b.edgeAttrs)),
		edgeAttrs: b.edgeAttrs,
		columns:   make(map[string][]float64),
	}
	for v, nbrs := range b.adj {
		g.adj[v] = slices.Sorted(maps.Keys(nbrs))
	}
	for e := range b.edgeAttrs {
		g.edges = append(g.edges, e)
	}
	slices.SortFunc(g.edges, CompareEdges)
	return g
}

// =============================================================================
// Structure
// =============================================================================

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.names) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns all node ids in ascending order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.names))
	for i := range out {
		out[i] = NodeID(i)
	}
	return out
}

// Edges returns all edges sorted by (U, V). The slice must not be modified.
func (g *Graph) Edges() []Edge { return g.edges }

// Neighbors returns the sorted neighbors of v. The slice must not be modified.
func (g *Graph) Neighbors(v NodeID) []NodeID { return g.adj[v] }

// Degree returns the number of neighbors of v.
func (g *Graph) Degree(v NodeID) int { return len(g.adj[v]) }

// HasEdge reports whether a and b are adjacent.
func (g *Graph) HasEdge(a, b NodeID) bool {
	_, ok := slices.BinarySearch(g.adj[a], b)
	return ok
}

// Contains reports whether v is a valid node id.
func (g *Graph) Contains(v NodeID) bool { return v >= 0 && int(v) < len(g.names) }

// Name returns the external name of v.
func (g *Graph) Name(v NodeID) string { return g.names[v] }

// Lookup resolves an external name to a node id.
func (g *Graph) Lookup(name string) (NodeID, bool) {
	id, ok := g.index[name]
	return id, ok
}

// =============================================================================
// Attributes
// =============================================================================

// NodeAttr returns the raw attribute key of node v.
func (g *Graph) NodeAttr(v NodeID, key string) (any, bool) {
	val, ok := g.nodeAttrs[v][key]
	return val, ok
}

// NodeAttrs returns the attribute map of v. The map must not be modified.
func (g *Graph) NodeAttrs(v NodeID) Attrs { return g.nodeAttrs[v] }

// EdgeAttr returns the raw attribute key of edge e.
func (g *Graph) EdgeAttr(e Edge, key string) (any, bool) {
	attrs, ok := g.edgeAttrs[MakeEdge(e.U, e.V)]
	if !ok {
		return nil, false
	}
	val, ok := attrs[key]
	return val, ok
}

// EdgeAttrs returns the attribute map of e. The map must not be modified.
func (g *Graph) EdgeAttrs(e Edge) Attrs { return g.edgeAttrs[MakeEdge(e.U, e.V)] }

// Float reads a numeric node attribute. Integers, floats, booleans, and
// numeric strings are accepted.
func (g *Graph) Float(v NodeID, key string) (float64, bool) {
	val, ok := g.nodeAttrs[v][key]
	if !ok {
		return 0, false
	}
	return ToFloat(val)
}

// EdgeFloat reads a numeric edge attribute.
func (g *Graph) EdgeFloat(e Edge, key string) (float64, bool) {
	val, ok := g.EdgeAttr(e, key)
	if !ok {
		return 0, false
	}
	return ToFloat(val)
}

// Column returns key read as a float for every node, indexed by NodeID. Nodes
// lacking the attribute read as 0. Columns are computed once per key; the
// returned slice must not be modified.
func (g *Graph) Column(key string) []float64 {
	g.colMu.RLock()
	col, ok := g.columns[key]
	g.colMu.RUnlock()
	if ok {
		return col
	}

	col = make([]float64, len(g.names))
	for v := range col {
		col[v], _ = g.Float(NodeID(v), key)
	}

	g.colMu.Lock()
	defer g.colMu.Unlock()
	if existing, ok := g.columns[key]; ok {
		return existing
	}
	g.columns[key] = col
	return col
}

// HasColumn reports whether every node carries a numeric attribute key.
func (g *Graph) HasColumn(key string) bool {
	for v := range g.nodeAttrs {
		if _, ok := g.Float(NodeID(v), key); !ok {
			return false
		}
	}
	return len(g.nodeAttrs) > 0
}

// ToFloat converts a decoded attribute value to float64.
func ToFloat(val any) (float64, bool) {
	switch x := val.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case interface{ Float64() (float64, error) }: // json.Number
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
