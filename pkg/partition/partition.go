package partition

import (
	"fmt"
	"maps"
	"math"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
)

// Partition is one state of a chain: a graph, an assignment, the registered
// updaters, and the link to the partition it was flipped from.
//
// Partitions are immutable once built. Computed values are memoized per
// partition on first read. A Partition is not safe for concurrent use.
type Partition struct {
	graph      *graph.Graph
	assignment *Assignment
	updaters   map[string]Updater

	parent     *Partition
	flips      map[graph.NodeID]PartID
	flows      map[PartID]Flow
	edgeFlows  map[PartID]EdgeFlow
	generation uint64

	cache     map[string]any
	partGen   map[PartID]uint64
	subgraphs map[subgraphKey]*graph.View
}

// subgraphKey identifies an induced part subgraph by the generation at which
// the part's node set last changed.
type subgraphKey struct {
	part PartID
	gen  uint64
}

// New builds a root partition. The cut-edge builtins are registered unless
// updaters already define those names.
func New(g *graph.Graph, a *Assignment, updaters map[string]Updater) (*Partition, error) {
	if a.Len() != g.NodeCount() {
		return nil, errors.New(errors.ErrCodeInvalidAssignment, "assignment has %d nodes, graph has %d", a.Len(), g.NodeCount())
	}
	all := map[string]Updater{
		CutEdgesByPartKey: CutEdgesByPart(),
		CutEdgesKey:       CutEdges(),
		PartCountKey:      PartCount(),
	}
	maps.Copy(all, updaters)

	p := &Partition{
		graph:      g,
		assignment: a,
		updaters:   all,
		cache:      make(map[string]any),
		partGen:    make(map[PartID]uint64),
		subgraphs:  make(map[subgraphKey]*graph.View),
	}
	return p, nil
}

// FromAttribute builds a root partition whose assignment is read from the
// node attribute attr. Values must be integers, integral floats, or numeric
// strings.
func FromAttribute(g *graph.Graph, attr string, updaters map[string]Updater) (*Partition, error) {
	mapping := make(map[graph.NodeID]PartID, g.NodeCount())
	for _, v := range g.Nodes() {
		raw, ok := g.NodeAttr(v, attr)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidAssignment, "node %q has no %q attribute", g.Name(v), attr)
		}
		f, ok := graph.ToFloat(raw)
		if !ok || f != math.Trunc(f) {
			return nil, errors.New(errors.ErrCodeInvalidAssignment, "node %q: %q value %v is not an integer part id", g.Name(v), attr, raw)
		}
		mapping[v] = PartID(f)
	}
	a, err := NewAssignment(g, mapping)
	if err != nil {
		return nil, err
	}
	return New(g, a, updaters)
}

// Flip returns the child partition obtained by applying flips. The receiver
// is unchanged and becomes the child's parent.
func (p *Partition) Flip(flips map[graph.NodeID]PartID) (*Partition, error) {
	for v := range flips {
		if !p.graph.Contains(v) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "flip of unknown node %d", v)
		}
	}
	next, flows := p.assignment.Update(flips)

	child := &Partition{
		graph:      p.graph,
		assignment: next,
		updaters:   p.updaters,
		parent:     p,
		flips:      maps.Clone(flips),
		flows:      flows,
		generation: p.generation + 1,
		cache:      make(map[string]any),
		partGen:    maps.Clone(p.partGen),
		subgraphs:  make(map[subgraphKey]*graph.View),
	}
	for part := range flows {
		child.partGen[part] = child.generation
	}
	for key, view := range p.subgraphs {
		if child.partGen[key.part] == key.gen {
			child.subgraphs[key] = view
		}
	}
	return child, nil
}

// Get returns the value of the updater registered under name, computing and
// memoizing it on first read.
func (p *Partition) Get(name string) (any, error) {
	if v, ok := p.cache[name]; ok {
		return v, nil
	}
	u, ok := p.updaters[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownUpdater, "no updater registered as %q", name)
	}
	v, err := u.compute(p, name)
	if err != nil {
		return nil, fmt.Errorf("updater %s: %w", name, err)
	}
	p.cache[name] = v
	return v, nil
}

// Value is the typed form of [Partition.Get].
func Value[T any](p *Partition, name string) (T, error) {
	var zero T
	raw, err := p.Get(name)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, errors.New(errors.ErrCodeInternal, "updater %q produced %T, want %T", name, raw, zero)
	}
	return v, nil
}

// Has reports whether an updater is registered under name.
func (p *Partition) Has(name string) bool {
	_, ok := p.updaters[name]
	return ok
}

// =============================================================================
// Accessors
// =============================================================================

func (p *Partition) Graph() *graph.Graph          { return p.graph }
func (p *Partition) Assignment() *Assignment      { return p.assignment }
func (p *Partition) Parent() *Partition           { return p.parent }
func (p *Partition) Generation() uint64           { return p.generation }
func (p *Partition) Flows() map[PartID]Flow       { return p.flows }
func (p *Partition) Parts() []PartID              { return p.assignment.Parts() }
func (p *Partition) Part(id PartID) graph.NodeSet { return p.assignment.Part(id) }

// Flips returns the diff this partition was built from; nil for a root.
func (p *Partition) Flips() map[graph.NodeID]PartID { return p.flips }

// ClearParent drops the link to the parent so a retired history can be
// collected. Values already memoized stay available; incremental updaters
// not yet read fall back to Init.
func (p *Partition) ClearParent() {
	p.parent = nil
	p.edgeFlows = nil
}

// EdgeFlows returns the interior-edge flows relative to the parent, computed
// on first use; nil for a partition without a parent.
func (p *Partition) EdgeFlows() map[PartID]EdgeFlow {
	if p.parent == nil {
		return nil
	}
	if p.edgeFlows == nil {
		p.edgeFlows = computeEdgeFlows(p.graph, p.parent.assignment, p.assignment, p.flips)
	}
	return p.edgeFlows
}

// Crosses reports whether e joins two different parts.
func (p *Partition) Crosses(e graph.Edge) bool {
	return p.assignment.Get(e.U) != p.assignment.Get(e.V)
}

// Subgraph returns the view induced by part. Views of parts a flip did not
// touch are inherited from the parent.
func (p *Partition) Subgraph(part PartID) *graph.View {
	key := subgraphKey{part: part, gen: p.partGen[part]}
	if v, ok := p.subgraphs[key]; ok {
		return v
	}
	v := p.graph.Subgraph(p.assignment.Part(part))
	p.subgraphs[key] = v
	return v
}
