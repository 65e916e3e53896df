// Package partition implements the persistent partition model that every
// chain step operates on.
//
// # Assignments and Flows
//
// An [Assignment] maps every node to a [PartID] and keeps the inverse
// part→nodes sets. Applying a diff (a batch of flips) never mutates the
// original: [Assignment.Update] returns a new Assignment that shares the node
// sets of untouched parts with its parent. The per-part [Flow] of a diff is
// computed purely from the old assignment and the flips.
//
// # Updaters
//
// Aggregates over a partition (population tallies, cut edges, boundary
// nodes) are registered by name as an [Updater]. An updater is either
// [FromScratch] or [Incremental]; incremental updaters step per touched part
// from the parent's memoized value, so per-step cost tracks the size of the
// diff rather than the size of the graph.
//
//	updaters := map[string]partition.Updater{
//	    "population": updaters.Tally("population"),
//	}
//	p, err := partition.New(g, assignment, updaters)
//	child, err := p.Flip(map[graph.NodeID]partition.PartID{4: 1})
//	pops, err := updaters.Tallies(child, "population")
//
// # Memory
//
// Each child links to its parent so incremental updaters can reach the
// previous values. A chain calls [Partition.ClearParent] on a state once it
// is superseded, which keeps retired history at O(1) per step.
package partition
