package constraints

import (
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// =============================================================================
// Contiguity
// =============================================================================

// Contiguous requires the parts a flip touched to stay connected. A root
// partition, or one whose parent was cleared, has every part checked. An
// empty part is never contiguous.
var Contiguous = Predicate("contiguous", func(p *partition.Partition) bool {
	if p.Parent() == nil {
		return allConnected(p)
	}
	for part := range p.Flows() {
		if !p.Subgraph(part).Connected() {
			return false
		}
	}
	return true
})

// ContiguousBFS checks every part regardless of what changed.
var ContiguousBFS = Predicate("contiguous_bfs", allConnected)

func allConnected(p *partition.Partition) bool {
	for _, part := range p.Parts() {
		if !p.Subgraph(part).Connected() {
			return false
		}
	}
	return true
}

// SingleFlipContiguous is a faster contiguity check for proposals that move a
// few nodes out of an already contiguous partition. For each moved node it
// searches the node's old part from one remaining neighbor and requires every
// other remaining neighbor to be reached. A partition without a parent is
// checked with [Contiguous].
var SingleFlipContiguous = Predicate("single_flip_contiguous", func(p *partition.Partition) bool {
	parent := p.Parent()
	if parent == nil {
		ok, _ := Contiguous.Check(p)
		return ok
	}
	g, a, prev := p.Graph(), p.Assignment(), parent.Assignment()
	for _, v := range sortedFlipped(p) {
		oldPart := prev.Get(v)
		if a.Get(v) == oldPart {
			continue
		}
		var targets []graph.NodeID
		for _, u := range g.Neighbors(v) {
			if a.Get(u) == oldPart {
				targets = append(targets, u)
			}
		}
		if len(targets) == 0 {
			return false
		}
		if !reachesAll(g, a, oldPart, targets) {
			return false
		}
	}
	return true
})

func sortedFlipped(p *partition.Partition) []graph.NodeID {
	set := make(graph.NodeSet, len(p.Flips()))
	for v := range p.Flips() {
		set.Add(v)
	}
	return set.Sorted()
}

// reachesAll runs a BFS inside part from targets[0] and stops as soon as
// every target has been seen.
func reachesAll(g *graph.Graph, a *partition.Assignment, part partition.PartID, targets []graph.NodeID) bool {
	remaining := graph.NewNodeSet(targets[1:]...)
	delete(remaining, targets[0])
	if remaining.Len() == 0 {
		return true
	}
	seen := graph.NewNodeSet(targets[0])
	queue := []graph.NodeID{targets[0]}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, u := range g.Neighbors(v) {
			if seen.Has(u) || a.Get(u) != part {
				continue
			}
			seen.Add(u)
			if remaining.Has(u) {
				delete(remaining, u)
				if remaining.Len() == 0 {
					return true
				}
			}
			queue = append(queue, u)
		}
	}
	return false
}
