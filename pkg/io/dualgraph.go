package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// DefaultAssignmentAttr is the node attribute [WriteDualGraph] stores the
// assignment under when no name is given.
const DefaultAssignmentAttr = "assignment"

const (
	keyID     = "id"
	keySource = "source"
	keyTarget = "target"
)

type dualGraph struct {
	Directed   bool               `json:"directed"`
	Multigraph bool               `json:"multigraph"`
	Graph      json.RawMessage    `json:"graph,omitempty"`
	Nodes      []map[string]any   `json:"nodes"`
	Adjacency  [][]map[string]any `json:"adjacency,omitempty"`
	Links      []map[string]any   `json:"links,omitempty"`
	Edges      []map[string]any   `json:"edges,omitempty"`
}

// =============================================================================
// Read
// =============================================================================

// ReadDualGraph decodes a networkx JSON dual graph from r. Both the adjacency
// and node-link layouts are accepted; see the package documentation.
//
// ReadDualGraph returns an INVALID_GRAPH error if the JSON is malformed, the
// graph is directed, a node id is missing or repeated, or an edge names an
// unknown node or joins a node to itself. ReadDualGraph does not close r.
func ReadDualGraph(r io.Reader) (*graph.Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var data dualGraph
	if err := dec.Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode dual graph")
	}
	if data.Directed {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "directed dual graphs are not supported")
	}

	b := graph.NewBuilder()
	ids := make([]graph.NodeID, len(data.Nodes))
	for i, raw := range data.Nodes {
		name, err := nodeName(raw[keyID])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "node %d", i)
		}
		attrs := maps.Clone(raw)
		delete(attrs, keyID)
		id, err := b.AddNode(name, attrs)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "node %d", i)
		}
		ids[i] = id
	}

	var err error
	switch {
	case data.Adjacency != nil:
		err = readAdjacency(b, ids, data.Adjacency)
	case data.Links != nil:
		err = readLinks(b, data.Links)
	default:
		err = readLinks(b, data.Edges)
	}
	if err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func readAdjacency(b *graph.Builder, ids []graph.NodeID, adjacency [][]map[string]any) error {
	if len(adjacency) != len(ids) {
		return errors.New(errors.ErrCodeInvalidGraph, "adjacency has %d entries for %d nodes", len(adjacency), len(ids))
	}
	for i, nbrs := range adjacency {
		for _, raw := range nbrs {
			v, err := lookup(b, raw[keyID])
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidGraph, err, "adjacency of node %d", i)
			}
			attrs := maps.Clone(raw)
			delete(attrs, keyID)
			if err := b.AddEdge(ids[i], v, attrs); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidGraph, err, "adjacency of node %d", i)
			}
		}
	}
	return nil
}

func readLinks(b *graph.Builder, links []map[string]any) error {
	for i, raw := range links {
		u, err := lookup(b, raw[keySource])
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidGraph, err, "link %d source", i)
		}
		v, err := lookup(b, raw[keyTarget])
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidGraph, err, "link %d target", i)
		}
		attrs := maps.Clone(raw)
		delete(attrs, keySource)
		delete(attrs, keyTarget)
		if err := b.AddEdge(u, v, attrs); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidGraph, err, "link %d", i)
		}
	}
	return nil
}

func lookup(b *graph.Builder, raw any) (graph.NodeID, error) {
	name, err := nodeName(raw)
	if err != nil {
		return 0, err
	}
	id, ok := b.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", graph.ErrUnknownNode, name)
	}
	return id, nil
}

func nodeName(raw any) (string, error) {
	switch x := raw.(type) {
	case json.Number:
		return x.String(), nil
	case string:
		return x, nil
	case nil:
		return "", fmt.Errorf("missing %q", keyID)
	}
	return "", fmt.Errorf("id %v has unsupported type %T", raw, raw)
}

// ReadDualGraphFile reads a dual graph from the file at path.
func ReadDualGraphFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	g, err := ReadDualGraph(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// =============================================================================
// Write
// =============================================================================

// WriteDualGraph encodes g to w in the adjacency layout. If a is non-nil,
// each node additionally carries its part under attr, or under
// [DefaultAssignmentAttr] when attr is empty.
func WriteDualGraph(w io.Writer, g *graph.Graph, a *partition.Assignment, attr string) error {
	if a != nil && a.Len() != g.NodeCount() {
		return errors.New(errors.ErrCodeInvalidAssignment, "assignment has %d nodes, graph has %d", a.Len(), g.NodeCount())
	}
	if attr == "" {
		attr = DefaultAssignmentAttr
	}

	data := dualGraph{
		Graph:     json.RawMessage("{}"),
		Nodes:     make([]map[string]any, g.NodeCount()),
		Adjacency: make([][]map[string]any, g.NodeCount()),
	}
	for _, v := range g.Nodes() {
		node := maps.Clone(g.NodeAttrs(v))
		if node == nil {
			node = map[string]any{}
		}
		node[keyID] = nameValue(g.Name(v))
		if a != nil {
			node[attr] = int(a.Get(v))
		}
		data.Nodes[v] = node

		nbrs := make([]map[string]any, 0, g.Degree(v))
		for _, u := range g.Neighbors(v) {
			entry := maps.Clone(g.EdgeAttrs(graph.MakeEdge(u, v)))
			if entry == nil {
				entry = map[string]any{}
			}
			entry[keyID] = nameValue(g.Name(u))
			nbrs = append(nbrs, entry)
		}
		data.Adjacency[v] = nbrs
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode dual graph: %w", err)
	}
	return nil
}

// nameValue writes canonical integer names as JSON numbers.
func nameValue(name string) any {
	if n, err := strconv.Atoi(name); err == nil && strconv.Itoa(n) == name {
		return json.Number(name)
	}
	return name
}

// WriteDualGraphFile writes g and an optional assignment to the file at path.
func WriteDualGraphFile(path string, g *graph.Graph, a *partition.Assignment, attr string) error {
	var buf bytes.Buffer
	if err := WriteDualGraph(&buf, g, a, attr); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
