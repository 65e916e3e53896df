package tree

import (
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// DefaultNodeRepeats bounds the tree draws of a single [Bipartition] call.
const DefaultNodeRepeats = 1000

// Outcome classifies a balanced-cut search.
type Outcome int

const (
	// Found means at least one balanced cut exists.
	Found Outcome = iota
	// NoBalancedCut means the single drawn tree had no balanced cut.
	NoBalancedCut
	// Exhausted means every allowed tree draw failed.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NoBalancedCut:
		return "no_balanced_cut"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the outcome of a cut search.
type Result struct {
	Outcome Outcome
	// Cut is the chosen cut. Set by Bipartition when Outcome is Found.
	Cut Cut
	// Cuts lists every balanced cut of the last drawn tree.
	Cuts []Cut
	// Tree is the last drawn tree.
	Tree *Tree
	// Attempts counts tree draws.
	Attempts int
}

// Options tunes a cut search. The zero value draws up to
// DefaultNodeRepeats random-weight trees and uses two-sided cuts.
type Options struct {
	NodeRepeats  int
	SpanningTree SpanningTreeFunc
	BalanceCuts  CutFunc
	OneSided     bool
}

func (o Options) withDefaults() Options {
	if o.NodeRepeats == 0 {
		o.NodeRepeats = DefaultNodeRepeats
	}
	if o.SpanningTree == nil {
		o.SpanningTree = func(v *graph.View, rng *rand.Rand) (*Tree, error) {
			return RandomSpanningTree(v, rng)
		}
	}
	if o.BalanceCuts == nil {
		o.BalanceCuts = BalancedCuts
	}
	return o
}

func validateSearch(v *graph.View, target, eps float64, repeats int) error {
	if v.Len() == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cannot split an empty node set")
	}
	if err := errors.ValidateTarget(target); err != nil {
		return err
	}
	if err := errors.ValidateEpsilon(eps); err != nil {
		return err
	}
	return errors.ValidateNodeRepeats(repeats)
}

// Bipartition draws trees over v until one has a balanced cut, and returns a
// uniformly chosen cut from it. After opts.NodeRepeats failed draws the
// outcome is Exhausted; that is a signal to try another pair of parts, not a
// failure.
func Bipartition(v *graph.View, pop []float64, target, eps float64, rng *rand.Rand, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if err := validateSearch(v, target, eps, opts.NodeRepeats); err != nil {
		return Result{}, err
	}
	var res Result
	for res.Attempts < opts.NodeRepeats {
		t, err := opts.SpanningTree(v, rng)
		if err != nil {
			return Result{}, err
		}
		res.Attempts++
		res.Tree = t
		res.Cuts = opts.BalanceCuts(t, pop, target, eps, rng, opts.OneSided)
		if len(res.Cuts) > 0 {
			res.Outcome = Found
			res.Cut = res.Cuts[rng.Intn(len(res.Cuts))]
			return res, nil
		}
	}
	res.Outcome = Exhausted
	return res, nil
}

// FindCuts draws a single tree over v and returns all of its balanced cuts.
// It never redraws, so the number of cuts reflects that one tree.
func FindCuts(v *graph.View, pop []float64, target, eps float64, rng *rand.Rand, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if err := validateSearch(v, target, eps, 1); err != nil {
		return Result{}, err
	}
	t, err := opts.SpanningTree(v, rng)
	if err != nil {
		return Result{}, err
	}
	res := Result{Tree: t, Attempts: 1}
	res.Cuts = opts.BalanceCuts(t, pop, target, eps, rng, opts.OneSided)
	if len(res.Cuts) == 0 {
		res.Outcome = NoBalancedCut
		return res, nil
	}
	res.Outcome = Found
	return res, nil
}

// =============================================================================
// Seeding Plans
// =============================================================================

// RecursiveTreePart splits g into len(parts) pieces of population near target
// by carving one balanced piece at a time off the remaining graph. Each
// piece's window is shifted by the running surplus of earlier pieces so the
// remainder stays feasible; the last part takes what is left. Every part is
// then checked against [target(1-eps), target(1+eps)].
func RecursiveTreePart(g *graph.Graph, parts []partition.PartID, target float64, column string, eps float64, rng *rand.Rand, opts Options) (*partition.Assignment, error) {
	if len(parts) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no parts to assign")
	}
	if err := errors.ValidateTarget(target); err != nil {
		return nil, err
	}
	if err := errors.ValidateEpsilon(eps); err != nil {
		return nil, err
	}
	if !g.HasColumn(column) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no node carries population column %q", column)
	}
	opts.OneSided = true
	pop := g.Column(column)

	mapping := make(map[graph.NodeID]partition.PartID, g.NodeCount())
	remaining := graph.NewNodeSet(g.Nodes()...)
	lower, upper := target*(1-eps), target*(1+eps)
	debt := 0.0

	for k, part := range parts[:len(parts)-1] {
		minPop := max(lower, lower-debt)
		maxPop := min(upper, upper-debt)
		if minPop > maxPop {
			return nil, errors.New(errors.ErrCodePopulationBalance, "part %d: surplus %g leaves no feasible population window", part, debt)
		}
		localTarget := (minPop + maxPop) / 2
		localEps := (maxPop - minPop) / (2 * localTarget)

		res, err := Bipartition(g.Subgraph(remaining), pop, localTarget, localEps, rng, opts)
		if err != nil {
			return nil, err
		}
		if res.Outcome != Found {
			return nil, &errors.BalanceExhaustion{Parts: [2]int{int(part), int(parts[k+1])}, Attempts: res.Attempts}
		}
		for v := range res.Cut.Subset {
			mapping[v] = part
			delete(remaining, v)
		}
		debt += res.Cut.Population - target
	}
	last := parts[len(parts)-1]
	for v := range remaining {
		mapping[v] = last
	}

	a, err := partition.NewAssignment(g, mapping)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		total := 0.0
		for _, v := range a.Part(part).Sorted() {
			total += pop[v]
		}
		if total < lower || total > upper {
			return nil, errors.New(errors.ErrCodePopulationBalance, "part %d has population %g, want [%g, %g]", part, total, lower, upper)
		}
	}
	return a, nil
}
