// Package proposals generates candidate next states for a chain.
//
// Every proposal has the signature
//
//	func(p *partition.Partition, rng *rand.Rand) (*partition.Partition, error)
//
// and draws all of its randomness from rng. A proposal that returns p itself
// signals a self-loop: the chain counts the step and re-emits p.
package proposals

import (
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// randomCutEdge returns a uniformly chosen cut edge of p, or false when p has
// none.
func randomCutEdge(p *partition.Partition, rng *rand.Rand) (graph.Edge, bool, error) {
	cut, err := p.CutEdges()
	if err != nil {
		return graph.Edge{}, false, err
	}
	if cut.Len() == 0 {
		return graph.Edge{}, false, nil
	}
	edges := cut.Sorted()
	return edges[rng.Intn(len(edges))], true, nil
}

// orient returns the endpoints of e in random order.
func orient(e graph.Edge, rng *rand.Rand) (graph.NodeID, graph.NodeID) {
	if rng.Intn(2) == 0 {
		return e.U, e.V
	}
	return e.V, e.U
}

// RandomFlip moves one endpoint of a random cut edge into the other
// endpoint's part. A partition without cut edges is returned unchanged.
func RandomFlip(p *partition.Partition, rng *rand.Rand) (*partition.Partition, error) {
	e, ok, err := randomCutEdge(p, rng)
	if err != nil || !ok {
		return p, err
	}
	v, u := orient(e, rng)
	return p.Flip(map[graph.NodeID]partition.PartID{v: p.Assignment().Get(u)})
}

// ChunkFlip picks an endpoint of a random cut edge and pulls every neighbor
// in another part into the endpoint's part.
func ChunkFlip(p *partition.Partition, rng *rand.Rand) (*partition.Partition, error) {
	e, ok, err := randomCutEdge(p, rng)
	if err != nil || !ok {
		return p, err
	}
	v, _ := orient(e, rng)
	a := p.Assignment()
	part := a.Get(v)
	flips := make(map[graph.NodeID]partition.PartID)
	for _, u := range p.Graph().Neighbors(v) {
		if a.Get(u) != part {
			flips[u] = part
		}
	}
	return p.Flip(flips)
}
