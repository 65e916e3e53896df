// Package graph provides the immutable dual graph that every partition in a
// run shares.
//
// A dual graph has one node per geographic unit (precinct, block, county) and
// one undirected edge per adjacency. Nodes and edges carry attributes such as
// population, area, or shared perimeter length.
//
// # Identifiers
//
// Nodes are addressed by a dense [NodeID] in 0..n-1, assigned in insertion
// order by the [Builder]. External names (precinct GEOIDs, "r,c" grid labels)
// are kept alongside and resolved with [Graph.Lookup]. Dense ids let the
// partition layer store assignments in flat slices.
//
// # Core Types
//
//   - [Graph]: nodes, sorted adjacency, node and edge attributes
//   - [Edge]: undirected edge normalized so U < V
//   - [NodeSet], [EdgeSet]: set types used by flows and cut-edge updaters
//   - [View]: induced subgraph over a node subset
//
// # Concurrency
//
// A built Graph is never mutated, so it can be shared by any number of chains
// running in parallel. The only internal state is the memoized numeric column
// cache behind [Graph.Column], which is guarded by a lock.
//
// # Example
//
//	b := graph.NewBuilder()
//	a, _ := b.AddNode("a", graph.Attrs{"population": 10})
//	c, _ := b.AddNode("c", graph.Attrs{"population": 12})
//	_ = b.AddEdge(a, c, graph.Attrs{"shared_perim": 1.5})
//	g := b.Build()
//
//	g.Neighbors(a)              // [1]
//	g.Float(c, "population")    // 12, true
package graph
