package proposals

import (
	"github.com/charmbracelet/log"
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
	"github.com/matzehuels/gerrywalk/pkg/tree"
)

// IdealPopulation returns the total of column over g divided by parts.
func IdealPopulation(g *graph.Graph, column string, parts int) (float64, error) {
	if parts < 1 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "need at least one part, got %d", parts)
	}
	if !g.HasColumn(column) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "no node carries population column %q", column)
	}
	total := 0.0
	for _, v := range g.Column(column) {
		total += v
	}
	return total / float64(parts), nil
}

type partPair [2]partition.PartID

func pairOf(a, b partition.PartID) partPair {
	if a > b {
		a, b = b, a
	}
	return partPair{a, b}
}

// splitFlips assigns subset to first and the rest of merged to second,
// keeping only nodes whose part changes.
func splitFlips(a *partition.Assignment, merged, subset graph.NodeSet, first, second partition.PartID) map[graph.NodeID]partition.PartID {
	flips := make(map[graph.NodeID]partition.PartID)
	for v := range merged {
		target := second
		if subset.Has(v) {
			target = first
		}
		if a.Get(v) != target {
			flips[v] = target
		}
	}
	return flips
}

// =============================================================================
// ReCom
// =============================================================================

// ReCom merges two adjacent parts, draws a spanning tree over the union, and
// splits it along a balanced cut.
type ReCom struct {
	// Column names the node population attribute.
	Column string
	// Target is the ideal population of one part.
	Target float64
	// Epsilon is the allowed fractional deviation from Target.
	Epsilon float64
	// Options tunes the tree search. The zero value is valid.
	Options tree.Options
	// Logger receives per-pair exhaustion at debug level. Defaults to
	// log.Default().
	Logger *log.Logger
}

// Propose implements the ReCom step. Pairs whose merged region yields no
// balanced cut within the redraw budget are set aside and another adjacent
// pair is tried; once every adjacent pair is set aside Propose fails with
// [errors.MetagraphExhaustion].
func (r *ReCom) Propose(p *partition.Partition, rng *rand.Rand) (*partition.Partition, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	cut, err := p.CutEdges()
	if err != nil {
		return nil, err
	}
	a := p.Assignment()
	edges := cut.Sorted()
	pairs := make(map[partPair]struct{})
	for _, e := range edges {
		pairs[pairOf(a.Get(e.U), a.Get(e.V))] = struct{}{}
	}
	pop := p.Graph().Column(r.Column)

	exhausted := make(map[partPair]bool)
	for {
		candidates := make([]graph.Edge, 0, len(edges))
		for _, e := range edges {
			if !exhausted[pairOf(a.Get(e.U), a.Get(e.V))] {
				candidates = append(candidates, e)
			}
		}
		if len(candidates) == 0 {
			return nil, &errors.MetagraphExhaustion{Pairs: len(pairs)}
		}
		e := candidates[rng.Intn(len(candidates))]
		first, second := a.Get(e.U), a.Get(e.V)
		merged := graph.Union(a.Part(first), a.Part(second))

		res, err := tree.Bipartition(p.Graph().Subgraph(merged), pop, r.Target, r.Epsilon, rng, r.Options)
		if err != nil {
			return nil, err
		}
		if res.Outcome == tree.Found {
			return p.Flip(splitFlips(a, merged, res.Cut.Subset, first, second))
		}
		pair := pairOf(first, second)
		exhausted[pair] = true
		logger.Debug("recom pair exhausted",
			"err", &errors.BalanceExhaustion{Parts: [2]int{int(pair[0]), int(pair[1])}, Attempts: res.Attempts},
			"remaining", len(pairs)-len(exhausted))
	}
}

// =============================================================================
// Reversible ReCom
// =============================================================================

// ReversibleReCom is the ReCom variant whose transitions satisfy detailed
// balance. It picks an ordered pair of parts uniformly, draws one uniform
// spanning tree over their union, and accepts a uniformly chosen balanced
// cut with probability b / (M * seam), where b is the number of balanced
// cuts and seam the number of edges joining the two new parts. Every other
// outcome is a self-loop.
type ReversibleReCom struct {
	Column  string
	Target  float64
	Epsilon float64
	// M bounds the number of balanced cuts of any tree. Finding more fails
	// with [errors.ReversibilityError].
	M int
	// Options.SpanningTree defaults to tree.UniformSpanningTree. NodeRepeats
	// and OneSided are ignored.
	Options tree.Options
}

// seam returns the sorted edges joining parts i and j.
func seam(p *partition.Partition, i, j partition.PartID) ([]graph.Edge, error) {
	byPart, err := partition.Value[map[partition.PartID]graph.EdgeSet](p, partition.CutEdgesByPartKey)
	if err != nil {
		return nil, err
	}
	a := p.Assignment()
	var out []graph.Edge
	for _, e := range byPart[i].Sorted() {
		if a.Get(e.U) == j || a.Get(e.V) == j {
			out = append(out, e)
		}
	}
	return out, nil
}

// Propose implements the reversible ReCom step.
func (r *ReversibleReCom) Propose(p *partition.Partition, rng *rand.Rand) (*partition.Partition, error) {
	if r.M < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "reversible recom needs M >= 1, got %d", r.M)
	}
	parts := p.Parts()
	i, j := parts[rng.Intn(len(parts))], parts[rng.Intn(len(parts))]
	if i == j {
		return p, nil
	}
	edges, err := seam(p, i, j)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return p, nil
	}

	a := p.Assignment()
	e := edges[rng.Intn(len(edges))]
	first, second := a.Get(e.U), a.Get(e.V)
	merged := graph.Union(a.Part(first), a.Part(second))

	opts := r.Options
	if opts.SpanningTree == nil {
		opts.SpanningTree = tree.UniformSpanningTree
	}
	opts.OneSided = false
	res, err := tree.FindCuts(p.Graph().Subgraph(merged), p.Graph().Column(r.Column), r.Target, r.Epsilon, rng, opts)
	if err != nil {
		return nil, err
	}
	if res.Outcome != tree.Found {
		return p, nil
	}
	if len(res.Cuts) > r.M {
		return nil, &errors.ReversibilityError{Cuts: len(res.Cuts), M: r.M}
	}

	c := res.Cuts[rng.Intn(len(res.Cuts))]
	next, err := p.Flip(splitFlips(a, merged, c.Subset, first, second))
	if err != nil {
		return nil, err
	}
	after, err := seam(next, first, second)
	if err != nil {
		return nil, err
	}
	prob := min(1, float64(len(res.Cuts))/float64(r.M*len(after)))
	if rng.Float64() < prob {
		return next, nil
	}
	return p, nil
}
