package partition

import (
	"maps"
	"slices"

	"github.com/matzehuels/gerrywalk/pkg/graph"
)

// Updater computes a named value for a [Partition]. It is a closed union of
// two variants:
//
//   - [FromScratch]: recomputed in full on every partition
//   - [Incremental]: initialized once on a parentless partition, then
//     stepped per touched part from the parent's value and the part's flow
//
// The incremental path must always equal what its Init computes on the same
// assignment.
type Updater interface {
	compute(p *Partition, name string) (any, error)
}

// FromScratch is an updater that recomputes its value on every partition.
type FromScratch[V any] func(p *Partition) (V, error)

func (f FromScratch[V]) compute(p *Partition, _ string) (any, error) {
	v, err := f(p)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Incremental is a per-part updater whose value has type map[PartID]V.
//
// Init runs on any partition without a parent. Otherwise Step runs once for
// every part touched by the partition's flips, receiving the parent's value
// for that part (the zero V for a newly created part) and the part's flow.
// Untouched parts carry their parent value over unchanged.
type Incremental[V any] struct {
	Init func(p *Partition) (map[PartID]V, error)
	Step func(p *Partition, part PartID, prev V, in, out graph.NodeSet) (V, error)
}

func (u Incremental[V]) compute(p *Partition, name string) (any, error) {
	if p.parent == nil {
		vals, err := u.Init(p)
		if err != nil {
			return nil, err
		}
		return vals, nil
	}

	prev, err := Value[map[PartID]V](p.parent, name)
	if err != nil {
		return nil, err
	}
	next := maps.Clone(prev)
	if next == nil {
		next = make(map[PartID]V)
	}
	for _, part := range slices.Sorted(maps.Keys(p.flows)) {
		f := p.flows[part]
		v, err := u.Step(p, part, prev[part], f.In, f.Out)
		if err != nil {
			return nil, err
		}
		next[part] = v
	}
	return next, nil
}
