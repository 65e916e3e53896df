// Package accept provides acceptance functions for a chain's valid
// proposals.
package accept

import (
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// Always accepts every proposal.
func Always(*partition.Partition, *rand.Rand) (bool, error) { return true, nil }

// CutEdge is a Metropolis rule favoring fewer cut edges: p is accepted with
// probability min(1, |cut(parent)| / |cut(p)|). A partition without a parent
// is always accepted.
func CutEdge(p *partition.Partition, rng *rand.Rand) (bool, error) {
	parent := p.Parent()
	if parent == nil {
		return true, nil
	}
	before, err := parent.CutEdges()
	if err != nil {
		return false, err
	}
	after, err := p.CutEdges()
	if err != nil {
		return false, err
	}
	if after.Len() <= before.Len() {
		return true, nil
	}
	return rng.Float64() < float64(before.Len())/float64(after.Len()), nil
}
