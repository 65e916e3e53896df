package partition

import "github.com/matzehuels/gerrywalk/pkg/graph"

// Builtin updater names registered on every partition.
const (
	CutEdgesKey       = "cut_edges"
	CutEdgesByPartKey = "cut_edges_by_part"
	PartCountKey      = "part_count"
)

// CutEdgesByPart maps each part to the cut edges incident to it. Each step
// only revisits edges incident to nodes that entered or left the part.
func CutEdgesByPart() Updater {
	return Incremental[graph.EdgeSet]{
		Init: initCutEdgesByPart,
		Step: stepCutEdgesByPart,
	}
}

func initCutEdgesByPart(p *Partition) (map[PartID]graph.EdgeSet, error) {
	a := p.assignment
	out := make(map[PartID]graph.EdgeSet)
	for _, part := range a.Parts() {
		out[part] = make(graph.EdgeSet)
	}
	for _, e := range p.graph.Edges() {
		pu, pv := a.Get(e.U), a.Get(e.V)
		if pu != pv {
			out[pu].Add(e)
			out[pv].Add(e)
		}
	}
	return out, nil
}

func stepCutEdgesByPart(p *Partition, part PartID, prev graph.EdgeSet, in, out graph.NodeSet) (graph.EdgeSet, error) {
	a := p.assignment
	next := prev.Clone()
	for _, set := range [2]graph.NodeSet{in, out} {
		for v := range set {
			for _, u := range p.graph.Neighbors(v) {
				e := graph.MakeEdge(v, u)
				pv, pu := a.Get(v), a.Get(u)
				if pv != pu && (pv == part || pu == part) {
					next.Add(e)
				} else {
					delete(next, e)
				}
			}
		}
	}
	return next, nil
}

// CutEdges is the set of edges whose endpoints lie in different parts.
func CutEdges() Updater {
	return FromScratch[graph.EdgeSet](func(p *Partition) (graph.EdgeSet, error) {
		byPart, err := Value[map[PartID]graph.EdgeSet](p, CutEdgesByPartKey)
		if err != nil {
			return nil, err
		}
		out := make(graph.EdgeSet)
		for _, edges := range byPart {
			for e := range edges {
				out.Add(e)
			}
		}
		return out, nil
	})
}

// PartCount is the number of non-empty parts.
func PartCount() Updater {
	return FromScratch[int](func(p *Partition) (int, error) {
		n := 0
		for _, part := range p.assignment.Parts() {
			if p.assignment.Part(part).Len() > 0 {
				n++
			}
		}
		return n, nil
	})
}

// NaiveCutEdges computes the cut-edge set directly from the assignment.
func NaiveCutEdges(p *Partition) graph.EdgeSet {
	out := make(graph.EdgeSet)
	for _, e := range p.graph.Edges() {
		if p.Crosses(e) {
			out.Add(e)
		}
	}
	return out
}

// CutEdges returns the value of the cut_edges updater.
func (p *Partition) CutEdges() (graph.EdgeSet, error) {
	return Value[graph.EdgeSet](p, CutEdgesKey)
}
