// Package pkg provides the core libraries for Gerrywalk districting chains.
//
// # Overview
//
// Gerrywalk explores the space of districting plans of a region with Markov
// chain Monte Carlo. A region is a dual graph: one node per precinct or
// census block, one edge per shared boundary. A plan assigns every node to a
// district; a chain proposes small changes to the plan, keeps the ones that
// satisfy its constraints, and records the walk for ensemble analysis.
//
// # Architecture
//
// The typical data flow through Gerrywalk:
//
//	Dual graph JSON (networkx adjacency or node-link)
//	         ↓
//	    [io] package (read graph, initial plan from a node attribute)
//	         ↓
//	    [tree] package (seed a balanced plan when none is given)
//	         ↓
//	    [chain] package (propose → validate → accept, step by step)
//	         ↓
//	    [io] diff stream (bzip2 JSON lines of every plan change)
//
// # Quick Start
//
// Walk a two-district grid with ReCom:
//
//	import (
//	    "github.com/matzehuels/gerrywalk/pkg/accept"
//	    "github.com/matzehuels/gerrywalk/pkg/chain"
//	    "github.com/matzehuels/gerrywalk/pkg/constraints"
//	    "github.com/matzehuels/gerrywalk/pkg/graph"
//	    "github.com/matzehuels/gerrywalk/pkg/partition"
//	    "github.com/matzehuels/gerrywalk/pkg/proposals"
//	)
//
//	// 1. Build the graph and an initial plan
//	g := graph.MustGrid(10, 10)
//	a, _ := partition.AssignmentFromParts(g, halves)
//	initial, _ := partition.New(g, a, nil)
//
//	// 2. Choose a proposal and constraints
//	target, _ := proposals.IdealPopulation(g, "population", 2)
//	recom := &proposals.ReCom{Column: "population", Target: target, Epsilon: 0.02}
//	valid := constraints.NewValidator(constraints.Contiguous)
//
//	// 3. Run the chain
//	c, _ := chain.New(recom.Propose, valid, accept.Always, initial, 1000, chain.WithSeed(2018))
//	_ = c.Run(ctx, func(step int, p *partition.Partition) error {
//	    cut, _ := p.CutEdges()
//	    fmt.Println(step, cut.Len())
//	    return nil
//	})
//
// # Main Packages
//
// ## Core Domain Logic
//
// [graph] - Immutable dual graph with dense node ids, node and edge
// attributes, induced subgraph views, and a grid builder for experiments.
//
// [partition] - Plans as assignments plus lazily computed, memoized updaters.
// [partition.Partition.Flip] derives a child plan that updates incrementally
// from its parent.
//
// [updaters] - Tallies, boundary nodes, and other per-district statistics.
//
// [constraints] - Contiguity, population balance, and bound constraints,
// combined by a short-circuiting validator.
//
// [tree] - Random and uniform spanning trees, balanced tree cuts, and
// recursive tree partitioning for seeding plans.
//
// [proposals] - Single-node flips and ReCom merge-split moves, including
// the reversible variant.
//
// [accept] - Acceptance rules.
//
// [chain] - The Markov chain itself: a lazy, reproducible sequence of
// plans with step statistics.
//
// ## Infrastructure
//
// [io] - Dual graph JSON, engine parameter files, and compressed diff
// streams of chain runs.
//
// [config] - TOML and YAML run configuration with struct-tag validation.
//
// [cache] - File cache for seeded plans, keyed by graph hash and seeding
// parameters.
//
// [pipeline] - Complete load → seed → walk pipeline used by the CLI, with
// concurrent ensembles of independent chains.
//
// [observability] - Hook interfaces for chain, pipeline, and cache events,
// with a Prometheus implementation.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/tree/...               # Specific package
//	go test -run Example                 # Examples only
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/graph
// [partition]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/partition
// [partition.Partition.Flip]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/partition#Partition.Flip
// [updaters]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/updaters
// [constraints]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/constraints
// [tree]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/tree
// [proposals]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/proposals
// [accept]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/accept
// [chain]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/chain
// [io]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/io
// [config]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/config
// [cache]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/cache
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/pipeline
// [observability]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/gerrywalk/pkg/errors
package pkg
