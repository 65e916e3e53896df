// Package io reads and writes the files a redistricting run exchanges with
// the outside world: dual graphs, run parameters, and compressed diff
// streams of chain output.
//
// # Dual Graph Format
//
// Dual graphs use the JSON produced by networkx's json_graph module. Two
// layouts are accepted on read. The adjacency layout lists each node's
// neighbors in an array parallel to "nodes":
//
//	{
//	  "directed": false,
//	  "multigraph": false,
//	  "graph": {},
//	  "nodes": [{"id": 0, "population": 812}, {"id": 1, "population": 640}],
//	  "adjacency": [[{"id": 1, "shared_perim": 0.4}], [{"id": 0, "shared_perim": 0.4}]]
//	}
//
// The node-link layout lists edges once, under "links" or "edges":
//
//	{
//	  "nodes": [{"id": "a"}, {"id": "b"}],
//	  "links": [{"source": "a", "target": "b"}]
//	}
//
// Node ids may be numbers or strings; either way they become the node's
// name in the [graph.Graph]. Every other node or edge key becomes an
// attribute. Numbers are decoded as json.Number so integer values survive a
// round trip exactly.
//
// [WriteDualGraph] always writes the adjacency layout. Names that are
// canonical integers are written back as numbers.
//
// # Diff Streams
//
// A chain run is recorded as bzip2-compressed JSON lines. The first line is
// a [Header] carrying the full initial assignment; each following line is a
// [Record] listing only the nodes whose part changed since the previous
// record. Steps that leave the plan unchanged write nothing, so a stream of
// a mostly-rejecting chain stays small.
//
//	w, err := io.NewDiffWriter(f, io.Header{Seed: 2018, Steps: 1000}, initial)
//	err = c.Run(ctx, func(step int, p *partition.Partition) error {
//	    return w.Record(step, p)
//	})
//	err = w.Close()
//
// [Replay] reads a stream back and rebuilds the assignment at every
// recorded step.
package io
