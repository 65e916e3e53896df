package tree

import (
	"math"
	"slices"

	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/graph"
)

// Cut is a tree edge whose removal leaves a balanced component.
type Cut struct {
	// Edge is the removed tree edge.
	Edge graph.Edge
	// Subset is the balanced side of the cut.
	Subset graph.NodeSet
	// Population is the total population of Subset.
	Population float64
}

// CutFunc lists the balanced cuts of a tree. pop is indexed by node id.
type CutFunc func(t *Tree, pop []float64, target, eps float64, rng *rand.Rand, oneSided bool) []Cut

// within reports whether x lies within eps*target of target.
func within(x, target, eps float64) bool {
	return math.Abs(x-target) <= eps*target
}

// pickRoot returns a random position of degree greater than one, or any
// position when the tree has none.
func pickRoot(t *Tree, rng *rand.Rand) int {
	var inner []int
	for i, nbrs := range t.adj {
		if len(nbrs) > 1 {
			inner = append(inner, i)
		}
	}
	if len(inner) == 0 {
		return rng.Intn(t.Len())
	}
	return inner[rng.Intn(len(inner))]
}

// classify decides whether removing the edge above a component of population
// sub leaves a balanced side. It returns whether the cut is valid and whether
// the balanced side is the component itself; one-sided mode may accept the
// complement instead.
func classify(sub, total, target, eps float64, oneSided bool) (ok, below bool) {
	if oneSided {
		if within(sub, target, eps) {
			return true, true
		}
		return within(total-sub, target, eps), false
	}
	return within(sub, target, eps) && within(total-sub, target, eps), true
}

func complementOf(t *Tree, side graph.NodeSet) graph.NodeSet {
	out := make(graph.NodeSet, t.Len()-side.Len())
	for _, v := range t.nodes {
		if !side.Has(v) {
			out.Add(v)
		}
	}
	return out
}

func sortCuts(cuts []Cut) {
	slices.SortFunc(cuts, func(a, b Cut) int { return graph.CompareEdges(a.Edge, b.Edge) })
}

// BalancedCuts roots t at a random inner node, computes subtree populations
// bottom-up along a BFS order, and returns every edge whose removal leaves a
// balanced component. Two-sided mode requires both sides within eps*target
// of target; one-sided mode requires only one, which becomes the Subset.
// Cuts are sorted by edge.
func BalancedCuts(t *Tree, pop []float64, target, eps float64, rng *rand.Rand, oneSided bool) []Cut {
	n := t.Len()
	if n < 2 {
		return nil
	}
	root := pickRoot(t, rng)

	parent := make([]int, n)
	order := make([]int, 0, n)
	parent[root] = -1
	order = append(order, root)
	for k := 0; k < len(order); k++ {
		i := order[k]
		for _, j := range t.adj[i] {
			if j != parent[i] {
				parent[j] = i
				order = append(order, j)
			}
		}
	}

	sub := make([]float64, n)
	for k := n - 1; k >= 0; k-- {
		i := order[k]
		sub[i] += pop[t.nodes[i]]
		if parent[i] >= 0 {
			sub[parent[i]] += sub[i]
		}
	}
	total := sub[root]

	var cuts []Cut
	for _, i := range order[1:] {
		ok, below := classify(sub[i], total, target, eps, oneSided)
		if !ok {
			continue
		}
		side := subtree(t, parent, i)
		cut := Cut{Edge: graph.MakeEdge(t.nodes[i], t.nodes[parent[i]]), Subset: side, Population: sub[i]}
		if !below {
			cut.Subset = complementOf(t, side)
			cut.Population = total - sub[i]
		}
		cuts = append(cuts, cut)
	}
	sortCuts(cuts)
	return cuts
}

// subtree collects the nodes below position i given BFS parents.
func subtree(t *Tree, parent []int, i int) graph.NodeSet {
	out := graph.NewNodeSet(t.nodes[i])
	stack := []int{i}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range t.adj[k] {
			if j != parent[k] {
				out.Add(t.nodes[j])
				stack = append(stack, j)
			}
		}
	}
	return out
}

// BalancedCutsContraction finds the same cuts as [BalancedCuts] by
// repeatedly contracting leaves into their neighbors. Each contraction
// tests the edge it removes against the population absorbed so far. Given
// the same random state both functions return identical results.
func BalancedCutsContraction(t *Tree, pop []float64, target, eps float64, rng *rand.Rand, oneSided bool) []Cut {
	n := t.Len()
	if n < 2 {
		return nil
	}
	root := pickRoot(t, rng)

	degree := make([]int, n)
	absorbed := make([]float64, n)
	members := make([][]graph.NodeID, n)
	var total float64
	var leaves []int
	for i, nbrs := range t.adj {
		degree[i] = len(nbrs)
		absorbed[i] = pop[t.nodes[i]]
		members[i] = []graph.NodeID{t.nodes[i]}
		total += absorbed[i]
		if i != root && degree[i] == 1 {
			leaves = append(leaves, i)
		}
	}

	removed := make([]bool, n)
	var cuts []Cut
	for len(leaves) > 0 {
		leaf := leaves[0]
		leaves = leaves[1:]
		nb := -1
		for _, j := range t.adj[leaf] {
			if !removed[j] {
				nb = j
				break
			}
		}

		if ok, below := classify(absorbed[leaf], total, target, eps, oneSided); ok {
			side := graph.NewNodeSet(members[leaf]...)
			cut := Cut{Edge: graph.MakeEdge(t.nodes[leaf], t.nodes[nb]), Subset: side, Population: absorbed[leaf]}
			if !below {
				cut.Subset = complementOf(t, side)
				cut.Population = total - absorbed[leaf]
			}
			cuts = append(cuts, cut)
		}

		removed[leaf] = true
		absorbed[nb] += absorbed[leaf]
		members[nb] = append(members[nb], members[leaf]...)
		members[leaf] = nil
		degree[nb]--
		if nb != root && degree[nb] == 1 {
			leaves = append(leaves, nb)
		}
	}
	sortCuts(cuts)
	return cuts
}
