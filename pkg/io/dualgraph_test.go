package io

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

const adjacencyJSON = `{
  "directed": false,
  "multigraph": false,
  "graph": [],
  "nodes": [
    {"id": 0, "population": 812, "district": 1},
    {"id": 1, "population": 640, "district": 1},
    {"id": 2, "population": 703, "district": 2}
  ],
  "adjacency": [
    [{"id": 1, "shared_perim": 0.5}],
    [{"id": 0, "shared_perim": 0.5}, {"id": 2}],
    [{"id": 1}]
  ]
}`

func TestReadDualGraphAdjacency(t *testing.T) {
	g, err := ReadDualGraph(strings.NewReader(adjacencyJSON))
	if err != nil {
		t.Fatalf("ReadDualGraph() error: %v", err)
	}
	if g.NodeCount() != 3 {
		t.Errorf("NodeCount() = %d, want 3", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2", g.EdgeCount())
	}

	a, _ := g.Lookup("0")
	b, _ := g.Lookup("1")
	if !g.HasEdge(a, b) {
		t.Error("HasEdge(0, 1) = false, want true")
	}
	if pop, _ := g.Float(a, "population"); pop != 812 {
		t.Errorf("population = %v, want 812", pop)
	}
	if _, ok := g.NodeAttr(a, "id"); ok {
		t.Error("id should not be stored as an attribute")
	}
	if perim, _ := g.EdgeFloat(graph.MakeEdge(a, b), "shared_perim"); perim != 0.5 {
		t.Errorf("shared_perim = %v, want 0.5", perim)
	}

	p, err := partition.FromAttribute(g, "district", nil)
	if err != nil {
		t.Fatalf("FromAttribute() error: %v", err)
	}
	if got := len(p.Parts()); got != 2 {
		t.Errorf("len(Parts()) = %d, want 2", got)
	}
}

func TestReadDualGraphNodeLink(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "links",
			json: `{"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}],
			        "links": [{"source": "a", "target": "b", "w": 2}, {"source": "b", "target": "c"}]}`,
		},
		{
			name: "edges",
			json: `{"nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}],
			        "edges": [{"source": "a", "target": "b", "w": 2}, {"source": "b", "target": "c"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadDualGraph(strings.NewReader(tt.json))
			if err != nil {
				t.Fatalf("ReadDualGraph() error: %v", err)
			}
			if g.EdgeCount() != 2 {
				t.Errorf("EdgeCount() = %d, want 2", g.EdgeCount())
			}
			a, _ := g.Lookup("a")
			b, _ := g.Lookup("b")
			if w, _ := g.EdgeFloat(graph.MakeEdge(a, b), "w"); w != 2 {
				t.Errorf("w = %v, want 2", w)
			}
			if _, ok := g.EdgeAttr(graph.MakeEdge(a, b), "source"); ok {
				t.Error("source should not be stored as an edge attribute")
			}
		})
	}
}

func TestReadDualGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"nodes": [`},
		{"directed", `{"directed": true, "nodes": [], "links": []}`},
		{"missing id", `{"nodes": [{"population": 1}], "links": []}`},
		{"bad id type", `{"nodes": [{"id": true}], "links": []}`},
		{"duplicate id", `{"nodes": [{"id": 1}, {"id": 1}], "links": []}`},
		{"unknown endpoint", `{"nodes": [{"id": 1}], "links": [{"source": 1, "target": 2}]}`},
		{"self loop", `{"nodes": [{"id": 1}], "links": [{"source": 1, "target": 1}]}`},
		{"short adjacency", `{"nodes": [{"id": 1}, {"id": 2}], "adjacency": [[]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDualGraph(strings.NewReader(tt.json))
			if err == nil {
				t.Fatal("ReadDualGraph() error = nil, want error")
			}
			if code := errors.GetCode(err); code != errors.ErrCodeInvalidGraph {
				t.Errorf("GetCode() = %v, want %v", code, errors.ErrCodeInvalidGraph)
			}
		})
	}
}

func TestWriteDualGraphRoundTrip(t *testing.T) {
	g := graph.MustGrid(3, 3)
	a, err := partition.AssignmentFromParts(g, map[partition.PartID][]graph.NodeID{
		0: {0, 1, 2, 3, 4},
		1: {5, 6, 7, 8},
	})
	if err != nil {
		t.Fatalf("AssignmentFromParts() error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteDualGraph(&buf, g, a, ""); err != nil {
		t.Fatalf("WriteDualGraph() error: %v", err)
	}

	back, err := ReadDualGraph(&buf)
	if err != nil {
		t.Fatalf("ReadDualGraph() error: %v", err)
	}
	if back.NodeCount() != g.NodeCount() || back.EdgeCount() != g.EdgeCount() {
		t.Fatalf("round trip = %d nodes, %d edges, want %d, %d",
			back.NodeCount(), back.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
	for _, e := range g.Edges() {
		if !back.HasEdge(e.U, e.V) {
			t.Errorf("edge %v lost in round trip", e)
		}
	}

	p, err := partition.FromAttribute(back, DefaultAssignmentAttr, nil)
	if err != nil {
		t.Fatalf("FromAttribute() error: %v", err)
	}
	for _, v := range g.Nodes() {
		if got, want := p.Assignment().Get(v), a.Get(v); got != want {
			t.Errorf("part of %s = %d, want %d", g.Name(v), got, want)
		}
	}
	if pop, _ := back.Float(4, graph.AttrPopulation); pop != 1 {
		t.Errorf("population = %v, want 1", pop)
	}
}

func TestWriteDualGraphNumericIDs(t *testing.T) {
	g, err := ReadDualGraph(strings.NewReader(adjacencyJSON))
	if err != nil {
		t.Fatalf("ReadDualGraph() error: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteDualGraph(&buf, g, nil, ""); err != nil {
		t.Fatalf("WriteDualGraph() error: %v", err)
	}

	var out struct {
		Nodes []map[string]any `json:"nodes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	for _, n := range out.Nodes {
		if _, ok := n["id"].(float64); !ok {
			t.Errorf("id %v is %T, want a number", n["id"], n["id"])
		}
		if _, ok := n[DefaultAssignmentAttr]; ok {
			t.Error("nil assignment should not write an assignment attribute")
		}
	}
}

func TestWriteDualGraphRejectsMismatchedAssignment(t *testing.T) {
	small := graph.MustGrid(2, 2)
	a, err := partition.AssignmentFromParts(small, map[partition.PartID][]graph.NodeID{0: {0, 1, 2, 3}})
	if err != nil {
		t.Fatalf("AssignmentFromParts() error: %v", err)
	}
	err = WriteDualGraph(&bytes.Buffer{}, graph.MustGrid(3, 3), a, "")
	if !errors.Is(err, errors.ErrCodeInvalidAssignment) {
		t.Errorf("WriteDualGraph() error = %v, want %v", err, errors.ErrCodeInvalidAssignment)
	}
}

func TestDualGraphFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.json")
	g := graph.MustGrid(2, 3)
	if err := WriteDualGraphFile(path, g, nil, ""); err != nil {
		t.Fatalf("WriteDualGraphFile() error: %v", err)
	}
	back, err := ReadDualGraphFile(path)
	if err != nil {
		t.Fatalf("ReadDualGraphFile() error: %v", err)
	}
	if back.NodeCount() != 6 {
		t.Errorf("NodeCount() = %d, want 6", back.NodeCount())
	}

	if _, err := ReadDualGraphFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadDualGraphFile(missing) error = nil, want error")
	}
}
