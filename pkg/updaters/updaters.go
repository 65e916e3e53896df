// Package updaters provides incremental per-part aggregates for partitions.
//
// Every updater here is a [partition.Incremental]: it is initialized once on
// a root partition and then stepped from the flow of each touched part.
package updaters

import (
	"math/big"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// Sum is a per-part total held exactly. Float rounds it to the nearest
// float64, so a total stepped through any sequence of flows reads the same as
// one summed from scratch, and an emptied part reads exactly 0.
type Sum struct {
	exact *big.Rat
}

// Float returns the total rounded to the nearest float64.
func (s Sum) Float() float64 {
	if s.exact == nil {
		return 0
	}
	f, _ := s.exact.Float64()
	return f
}

// plus returns s + Σadd - Σsub without modifying s.
func (s Sum) plus(add, sub []float64) (Sum, error) {
	r := new(big.Rat)
	if s.exact != nil {
		r.Set(s.exact)
	}
	var x big.Rat
	for _, v := range add {
		if x.SetFloat64(v) == nil {
			return Sum{}, errors.New(errors.ErrCodeInvalidInput, "non-finite value %v in tally", v)
		}
		r.Add(r, &x)
	}
	for _, v := range sub {
		if x.SetFloat64(v) == nil {
			return Sum{}, errors.New(errors.ErrCodeInvalidInput, "non-finite value %v in tally", v)
		}
		r.Sub(r, &x)
	}
	return Sum{exact: r}, nil
}

// Tally sums a numeric node column per part.
//
//	updaters := map[string]partition.Updater{"population": updaters.Tally("TOTPOP")}
func Tally(column string) partition.Updater {
	return partition.Incremental[Sum]{
		Init: func(p *partition.Partition) (map[partition.PartID]Sum, error) {
			col := p.Graph().Column(column)
			a := p.Assignment()
			out := make(map[partition.PartID]Sum)
			for _, part := range a.Parts() {
				s, err := Sum{}.plus(values(col, a.Part(part)), nil)
				if err != nil {
					return nil, err
				}
				out[part] = s
			}
			return out, nil
		},
		Step: func(p *partition.Partition, _ partition.PartID, prev Sum, in, out graph.NodeSet) (Sum, error) {
			col := p.Graph().Column(column)
			return prev.plus(values(col, in), values(col, out))
		},
	}
}

func values(col []float64, nodes graph.NodeSet) []float64 {
	vals := make([]float64, 0, len(nodes))
	for v := range nodes {
		vals = append(vals, col[v])
	}
	return vals
}

// EdgeTally sums a numeric edge attribute over each part's interior edges,
// for example the shared perimeter inside a district.
func EdgeTally(attr string) partition.Updater {
	weights := func(g *graph.Graph, edges graph.EdgeSet) []float64 {
		ws := make([]float64, 0, len(edges))
		for e := range edges {
			w, _ := g.EdgeFloat(e, attr)
			ws = append(ws, w)
		}
		return ws
	}
	return partition.Incremental[Sum]{
		Init: func(p *partition.Partition) (map[partition.PartID]Sum, error) {
			g, a := p.Graph(), p.Assignment()
			interior := make(map[partition.PartID]graph.EdgeSet)
			for _, part := range a.Parts() {
				interior[part] = make(graph.EdgeSet)
			}
			for _, e := range g.Edges() {
				if part := a.Get(e.U); part == a.Get(e.V) {
					interior[part].Add(e)
				}
			}
			out := make(map[partition.PartID]Sum, len(interior))
			for part, edges := range interior {
				s, err := Sum{}.plus(weights(g, edges), nil)
				if err != nil {
					return nil, err
				}
				out[part] = s
			}
			return out, nil
		},
		Step: func(p *partition.Partition, part partition.PartID, prev Sum, _, _ graph.NodeSet) (Sum, error) {
			f := p.EdgeFlows()[part]
			g := p.Graph()
			return prev.plus(weights(g, f.In), weights(g, f.Out))
		},
	}
}

// BoundaryNodes collects, per part, the nodes whose boolean attribute flag is
// set (for example Grid's boundary_node).
func BoundaryNodes(flag string) partition.Updater {
	isSet := func(g *graph.Graph, v graph.NodeID) bool {
		f, ok := g.Float(v, flag)
		return ok && f != 0
	}
	return partition.Incremental[graph.NodeSet]{
		Init: func(p *partition.Partition) (map[partition.PartID]graph.NodeSet, error) {
			g, a := p.Graph(), p.Assignment()
			out := make(map[partition.PartID]graph.NodeSet)
			for _, part := range a.Parts() {
				set := make(graph.NodeSet)
				for v := range a.Part(part) {
					if isSet(g, v) {
						set.Add(v)
					}
				}
				out[part] = set
			}
			return out, nil
		},
		Step: func(p *partition.Partition, _ partition.PartID, prev graph.NodeSet, in, out graph.NodeSet) (graph.NodeSet, error) {
			g := p.Graph()
			next := prev.Clone()
			for v := range out {
				delete(next, v)
			}
			for v := range in {
				if isSet(g, v) {
					next.Add(v)
				}
			}
			return next, nil
		},
	}
}

// Tallies reads a Tally or EdgeTally value.
func Tallies(p *partition.Partition, name string) (map[partition.PartID]float64, error) {
	sums, err := partition.Value[map[partition.PartID]Sum](p, name)
	if err != nil {
		return nil, err
	}
	out := make(map[partition.PartID]float64, len(sums))
	for part, s := range sums {
		out[part] = s.Float()
	}
	return out, nil
}

// Total sums a tally over every part.
func Total(p *partition.Partition, name string) (float64, error) {
	vals, err := Tallies(p, name)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, part := range p.Parts() {
		total += vals[part]
	}
	return total, nil
}
