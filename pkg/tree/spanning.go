package tree

import (
	"cmp"
	"maps"
	"slices"

	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
)

// SpanningTreeFunc draws a spanning tree over a connected view.
type SpanningTreeFunc func(v *graph.View, rng *rand.Rand) (*Tree, error)

// SpanningOption configures [RandomSpanningTree].
type SpanningOption func(*spanningConfig)

type spanningConfig struct {
	surcharge map[string]float64
}

// WithRegionSurcharge penalizes tree edges that cross region boundaries. For
// each node attribute in surcharge, an edge whose endpoints hold different
// values loses that amount of weight, so cuts tend to follow region lines.
func WithRegionSurcharge(surcharge map[string]float64) SpanningOption {
	return func(c *spanningConfig) { c.surcharge = surcharge }
}

// RegionAware returns a [SpanningTreeFunc] drawing random-weight trees with
// the given region surcharge.
func RegionAware(surcharge map[string]float64) SpanningTreeFunc {
	return func(v *graph.View, rng *rand.Rand) (*Tree, error) {
		return RandomSpanningTree(v, rng, WithRegionSurcharge(surcharge))
	}
}

// RandomSpanningTree returns the maximum spanning tree of v under independent
// uniform edge weights, built with Kruskal's algorithm.
func RandomSpanningTree(v *graph.View, rng *rand.Rand, opts ...SpanningOption) (*Tree, error) {
	var cfg spanningConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if v.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot span an empty node set")
	}

	g := v.Graph()
	regions := slices.Sorted(maps.Keys(cfg.surcharge))
	type weighted struct {
		e graph.Edge
		w float64
	}
	edges := v.Edges()
	ws := make([]weighted, len(edges))
	for k, e := range edges {
		w := rng.Float64()
		for _, attr := range regions {
			if !sameRegion(g, e, attr) {
				w -= cfg.surcharge[attr]
			}
		}
		ws[k] = weighted{e: e, w: w}
	}
	slices.SortStableFunc(ws, func(a, b weighted) int { return cmp.Compare(b.w, a.w) })

	t := newTree(v.Nodes())
	ds := newDisjointSet(t.Len())
	added := 0
	for _, we := range ws {
		i, j := t.pos[we.e.U], t.pos[we.e.V]
		if ds.union(i, j) {
			t.link(i, j)
			added++
			if added == t.Len()-1 {
				break
			}
		}
	}
	if added < t.Len()-1 {
		return nil, errors.New(errors.ErrCodeDisconnected, "node set of %d nodes is not connected", t.Len())
	}
	return t, nil
}

// sameRegion reports whether both endpoints of e carry the same value for
// attr. Numeric values compare by value and strings by content. Missing
// attributes on both ends count as the same region.
func sameRegion(g *graph.Graph, e graph.Edge, attr string) bool {
	a, aok := g.NodeAttr(e.U, attr)
	b, bok := g.NodeAttr(e.V, attr)
	if !aok || !bok {
		return aok == bok
	}
	if fa, ok := graph.ToFloat(a); ok {
		fb, ok := graph.ToFloat(b)
		return ok && fa == fb
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	return aok && bok && sa == sb
}

// UniformSpanningTree draws a spanning tree of v uniformly at random using
// Wilson's algorithm. A disconnected view fails with DISCONNECTED.
func UniformSpanningTree(v *graph.View, rng *rand.Rand) (*Tree, error) {
	n := v.Len()
	if n == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot span an empty node set")
	}
	if !v.Connected() {
		return nil, errors.New(errors.ErrCodeDisconnected, "node set of %d nodes is not connected", n)
	}

	nodes := v.Nodes()
	t := newTree(nodes)
	inTree := make([]bool, n)
	next := make([]int, n)
	inTree[rng.Intn(n)] = true

	for start := range n {
		// Random walk until the tree is hit. Overwriting next on revisits
		// erases the loops.
		for u := start; !inTree[u]; u = next[u] {
			nbrs := v.Neighbors(nodes[u])
			next[u] = t.pos[nbrs[rng.Intn(len(nbrs))]]
		}
		for u := start; !inTree[u]; u = next[u] {
			inTree[u] = true
			t.link(u, next[u])
		}
	}
	return t, nil
}
