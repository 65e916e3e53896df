package partition

import (
	"maps"
	"slices"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
)

// PartID labels a part (district).
type PartID int

// blockSize is the number of nodes per copy-on-write mapping block.
const blockSize = 64

// Assignment is a total node→part mapping together with its inverse.
//
// Assignments are persistent: [Assignment.Update] returns a new Assignment
// and leaves the receiver untouched. Node sets of parts a diff does not touch
// are the same map objects in the old and the new Assignment, and only the
// mapping blocks holding flipped nodes are copied.
//
// Node sets returned by [Assignment.Part] are shared and must not be modified.
type Assignment struct {
	n      int
	blocks [][]PartID
	parts  map[PartID]graph.NodeSet
}

// NewAssignment builds an Assignment from a mapping that must cover every
// node of g.
func NewAssignment(g *graph.Graph, mapping map[graph.NodeID]PartID) (*Assignment, error) {
	n := g.NodeCount()
	a := newEmpty(n)
	covered := 0
	for v, part := range mapping {
		if !g.Contains(v) {
			return nil, errors.New(errors.ErrCodeInvalidAssignment, "node %d is not in the graph", v)
		}
		a.set(v, part)
		covered++
	}
	if covered != n {
		return nil, errors.New(errors.ErrCodeInvalidAssignment, "assignment covers %d of %d nodes", covered, n)
	}
	a.rebuildParts()
	return a, nil
}

// AssignmentFromParts builds an Assignment from per-part node lists. A node
// listed under two different parts yields a [errors.DuplicateAssignmentError];
// the parts must cover every node of g.
func AssignmentFromParts(g *graph.Graph, parts map[PartID][]graph.NodeID) (*Assignment, error) {
	n := g.NodeCount()
	a := newEmpty(n)
	owner := make(map[graph.NodeID]PartID, n)
	for _, part := range slices.Sorted(maps.Keys(parts)) {
		for _, v := range parts[part] {
			if !g.Contains(v) {
				return nil, errors.New(errors.ErrCodeInvalidAssignment, "node %d is not in the graph", v)
			}
			if prev, ok := owner[v]; ok && prev != part {
				return nil, &errors.DuplicateAssignmentError{Node: int(v), First: int(prev), Second: int(part)}
			}
			owner[v] = part
			a.set(v, part)
		}
	}
	if len(owner) != n {
		return nil, errors.New(errors.ErrCodeInvalidAssignment, "parts cover %d of %d nodes", len(owner), n)
	}
	a.parts = make(map[PartID]graph.NodeSet, len(parts))
	for part := range parts {
		a.parts[part] = make(graph.NodeSet)
	}
	for v, part := range owner {
		a.parts[part].Add(v)
	}
	return a, nil
}

func newEmpty(n int) *Assignment {
	nb := (n + blockSize - 1) / blockSize
	blocks := make([][]PartID, nb)
	for i := range blocks {
		size := blockSize
		if rest := n - i*blockSize; rest < size {
			size = rest
		}
		blocks[i] = make([]PartID, size)
	}
	return &Assignment{n: n, blocks: blocks}
}

func (a *Assignment) set(v graph.NodeID, part PartID) {
	a.blocks[int(v)/blockSize][int(v)%blockSize] = part
}

func (a *Assignment) rebuildParts() {
	a.parts = make(map[PartID]graph.NodeSet)
	for v := 0; v < a.n; v++ {
		part := a.Get(graph.NodeID(v))
		set, ok := a.parts[part]
		if !ok {
			set = make(graph.NodeSet)
			a.parts[part] = set
		}
		set.Add(graph.NodeID(v))
	}
}

// Get returns the part of v.
func (a *Assignment) Get(v graph.NodeID) PartID {
	return a.blocks[int(v)/blockSize][int(v)%blockSize]
}

// Len returns the number of assigned nodes.
func (a *Assignment) Len() int { return a.n }

// Part returns the node set of part, or nil for an unknown part.
func (a *Assignment) Part(part PartID) graph.NodeSet { return a.parts[part] }

// Has reports whether part has ever been assigned. Emptied parts are kept.
func (a *Assignment) Has(part PartID) bool {
	_, ok := a.parts[part]
	return ok
}

// Parts returns every part id in ascending order, including emptied parts.
func (a *Assignment) Parts() []PartID {
	return slices.Sorted(maps.Keys(a.parts))
}

// Mapping returns a fresh node→part map.
func (a *Assignment) Mapping() map[graph.NodeID]PartID {
	out := make(map[graph.NodeID]PartID, a.n)
	for v := 0; v < a.n; v++ {
		out[graph.NodeID(v)] = a.Get(graph.NodeID(v))
	}
	return out
}

// Slice returns the assignment as a slice indexed by node id.
func (a *Assignment) Slice() []PartID {
	out := make([]PartID, 0, a.n)
	for _, b := range a.blocks {
		out = append(out, b...)
	}
	return out
}

// Update applies flips and returns the new Assignment together with the
// per-part flows. Flips that leave a node in its current part are ignored.
// Every flipped node must be a valid node id.
func (a *Assignment) Update(flips map[graph.NodeID]PartID) (*Assignment, map[PartID]Flow) {
	flows := ComputeFlows(a, flips)
	return a.apply(flips, flows), flows
}

func (a *Assignment) apply(flips map[graph.NodeID]PartID, flows map[PartID]Flow) *Assignment {
	child := &Assignment{
		n:      a.n,
		blocks: slices.Clone(a.blocks),
		parts:  maps.Clone(a.parts),
	}

	copied := make(map[int]struct{})
	for v, target := range flips {
		if a.Get(v) == target {
			continue
		}
		b := int(v) / blockSize
		if _, ok := copied[b]; !ok {
			child.blocks[b] = slices.Clone(a.blocks[b])
			copied[b] = struct{}{}
		}
		child.blocks[b][int(v)%blockSize] = target
	}

	for part, f := range flows {
		old := a.parts[part]
		next := make(graph.NodeSet, len(old)+len(f.In))
		for v := range old {
			if !f.Out.Has(v) {
				next.Add(v)
			}
		}
		for v := range f.In {
			next.Add(v)
		}
		child.parts[part] = next
	}
	return child
}
