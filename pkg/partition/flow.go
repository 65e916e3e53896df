package partition

import "github.com/matzehuels/gerrywalk/pkg/graph"

// Flow is the change of one part between two successive assignments.
type Flow struct {
	In  graph.NodeSet // nodes now in the part
	Out graph.NodeSet // nodes no longer in the part
}

// EdgeFlow is the change of one part's interior edges (edges with both
// endpoints in the part).
type EdgeFlow struct {
	In  graph.EdgeSet
	Out graph.EdgeSet
}

// ComputeFlows derives the per-part flows of applying flips to old. Only
// parts whose node set changes appear in the result.
func ComputeFlows(old *Assignment, flips map[graph.NodeID]PartID) map[PartID]Flow {
	flows := make(map[PartID]Flow)
	get := func(part PartID) Flow {
		f, ok := flows[part]
		if !ok {
			f = Flow{In: make(graph.NodeSet), Out: make(graph.NodeSet)}
			flows[part] = f
		}
		return f
	}
	for v, target := range flips {
		source := old.Get(v)
		if source == target {
			continue
		}
		get(target).In.Add(v)
		get(source).Out.Add(v)
	}
	return flows
}

// computeEdgeFlows derives interior-edge flows from node flips plus adjacency.
// Only edges incident to a flipped node can change status.
func computeEdgeFlows(g *graph.Graph, old, next *Assignment, flips map[graph.NodeID]PartID) map[PartID]EdgeFlow {
	flows := make(map[PartID]EdgeFlow)
	get := func(part PartID) EdgeFlow {
		f, ok := flows[part]
		if !ok {
			f = EdgeFlow{In: make(graph.EdgeSet), Out: make(graph.EdgeSet)}
			flows[part] = f
		}
		return f
	}
	seen := make(graph.EdgeSet)
	for v := range flips {
		if old.Get(v) == next.Get(v) {
			continue
		}
		for _, u := range g.Neighbors(v) {
			e := graph.MakeEdge(v, u)
			if seen.Has(e) {
				continue
			}
			seen.Add(e)

			oldV, oldU := old.Get(v), old.Get(u)
			newV, newU := next.Get(v), next.Get(u)
			wasInterior := oldV == oldU
			isInterior := newV == newU
			if wasInterior && isInterior && oldV == newV {
				continue
			}
			if wasInterior {
				get(oldV).Out.Add(e)
			}
			if isInterior {
				get(newV).In.Add(e)
			}
		}
	}
	return flows
}
