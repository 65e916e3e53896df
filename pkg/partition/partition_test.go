package partition

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
)

// stripes splits a grid with cols columns into vertical stripes, one per part.
func stripes(t *testing.T, g *graph.Graph, cols, parts int) *Assignment {
	t.Helper()
	mapping := make(map[graph.NodeID]PartID, g.NodeCount())
	width := cols / parts
	for _, v := range g.Nodes() {
		mapping[v] = PartID(min(int(v)%cols/width, parts-1))
	}
	a, err := NewAssignment(g, mapping)
	require.NoError(t, err)
	return a
}

// randomFlip moves a random node into the part of a random neighbor.
func randomFlip(p *Partition, rng *rand.Rand) map[graph.NodeID]PartID {
	g := p.Graph()
	v := graph.NodeID(rng.Intn(g.NodeCount()))
	nbrs := g.Neighbors(v)
	u := nbrs[rng.Intn(len(nbrs))]
	return map[graph.NodeID]PartID{v: p.Assignment().Get(u)}
}

func setPointer(m graph.NodeSet) uintptr { return reflect.ValueOf(m).Pointer() }

func TestNewAssignmentRequiresTotalMapping(t *testing.T) {
	g := graph.MustGrid(2, 2)
	_, err := NewAssignment(g, map[graph.NodeID]PartID{0: 0, 1: 0, 2: 1})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidAssignment))

	_, err = NewAssignment(g, map[graph.NodeID]PartID{0: 0, 1: 0, 2: 1, 9: 1})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidAssignment))
}

func TestAssignmentFromPartsDuplicate(t *testing.T) {
	g := graph.MustGrid(2, 2)
	_, err := AssignmentFromParts(g, map[PartID][]graph.NodeID{
		0: {0, 1},
		1: {1, 2, 3},
	})
	var dup *errors.DuplicateAssignmentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 1, dup.Node)
	assert.Equal(t, 0, dup.First)
	assert.Equal(t, 1, dup.Second)
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateAssignment))

	_, err = AssignmentFromParts(g, map[PartID][]graph.NodeID{0: {0, 1}, 1: {2}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidAssignment))

	a, err := AssignmentFromParts(g, map[PartID][]graph.NodeID{0: {0, 1}, 1: {2, 3}, 2: nil})
	require.NoError(t, err)
	assert.Equal(t, []PartID{0, 1, 2}, a.Parts())
	assert.Equal(t, 0, a.Part(2).Len())
}

func TestAssignmentUpdateIsPersistent(t *testing.T) {
	g := graph.MustGrid(10, 10)
	a := stripes(t, g, 10, 5)

	next, flows := a.Update(map[graph.NodeID]PartID{1: 0, 2: 2, 57: 2})

	assert.Equal(t, PartID(1), a.Get(2), "parent must not change")
	assert.Equal(t, PartID(2), next.Get(2))
	assert.Equal(t, PartID(2), next.Get(57))

	// Node 1 was already in part 0, so it produces no flow.
	require.Len(t, flows, 3)
	assert.Equal(t, graph.NewNodeSet(2, 57), flows[2].In)
	assert.Equal(t, graph.NewNodeSet(2), flows[1].Out)
	assert.Equal(t, graph.NewNodeSet(57), flows[3].Out)
	assert.Empty(t, flows[2].Out)

	// Untouched parts share their node set with the parent.
	assert.Equal(t, setPointer(a.Part(0)), setPointer(next.Part(0)))
	assert.Equal(t, setPointer(a.Part(4)), setPointer(next.Part(4)))
	assert.NotEqual(t, setPointer(a.Part(2)), setPointer(next.Part(2)))
}

func TestAssignmentKeepsEmptiedParts(t *testing.T) {
	g := graph.MustGrid(1, 3)
	a, err := NewAssignment(g, map[graph.NodeID]PartID{0: 0, 1: 1, 2: 1})
	require.NoError(t, err)

	next, _ := a.Update(map[graph.NodeID]PartID{0: 1})
	assert.Equal(t, []PartID{0, 1}, next.Parts())
	assert.Equal(t, 0, next.Part(0).Len())
	assert.Equal(t, []PartID{1, 1, 1}, next.Slice())
}

func TestPartsStayDisjointAndCovering(t *testing.T) {
	g := graph.MustGrid(10, 10)
	p, err := New(g, stripes(t, g, 10, 4), nil)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 500; step++ {
		p, err = p.Flip(randomFlip(p, rng))
		require.NoError(t, err)

		a := p.Assignment()
		seen := make(graph.NodeSet)
		for _, part := range a.Parts() {
			for v := range a.Part(part) {
				require.False(t, seen.Has(v), "node %d in two parts at step %d", v, step)
				require.Equal(t, part, a.Get(v))
				seen.Add(v)
			}
		}
		require.Equal(t, g.NodeCount(), seen.Len(), "parts must cover the graph at step %d", step)
	}
}

func TestCutEdgesMatchNaiveOnLongWalk(t *testing.T) {
	g := graph.MustGrid(10, 10)
	p, err := New(g, stripes(t, g, 10, 5), nil)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(2018))

	for step := 0; step < 1000; step++ {
		next, err := p.Flip(randomFlip(p, rng))
		require.NoError(t, err)

		cut, err := next.CutEdges()
		require.NoError(t, err)
		require.Equal(t, NaiveCutEdges(next), cut, "step %d", step)

		p.ClearParent()
		p = next
	}
}

func TestCutEdgesByPartIncrementalMatchesScratch(t *testing.T) {
	g := graph.MustGrid(8, 8)
	p, err := New(g, stripes(t, g, 8, 4), nil)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(11))

	// Read on the root so the walk uses the incremental path throughout.
	_, err = p.Get(CutEdgesByPartKey)
	require.NoError(t, err)

	for step := 0; step < 300; step++ {
		p, err = p.Flip(randomFlip(p, rng))
		require.NoError(t, err)
		_, err = p.Get(CutEdgesByPartKey)
		require.NoError(t, err)
	}

	got, err := Value[map[PartID]graph.EdgeSet](p, CutEdgesByPartKey)
	require.NoError(t, err)
	want, err := initCutEdgesByPart(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEdgeFlowsMatchInteriorDiff(t *testing.T) {
	g := graph.MustGrid(6, 6)
	p, err := New(g, stripes(t, g, 6, 3), nil)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))

	interior := func(a *Assignment) map[PartID]graph.EdgeSet {
		out := make(map[PartID]graph.EdgeSet)
		for _, e := range g.Edges() {
			if part := a.Get(e.U); part == a.Get(e.V) {
				if out[part] == nil {
					out[part] = make(graph.EdgeSet)
				}
				out[part].Add(e)
			}
		}
		return out
	}

	for step := 0; step < 200; step++ {
		flips := randomFlip(p, rng)
		// Occasionally move a pair of adjacent nodes together.
		if step%5 == 0 {
			var v graph.NodeID
			var part PartID
			for v, part = range flips {
			}
			flips[g.Neighbors(v)[0]] = part
		}
		next, err := p.Flip(flips)
		require.NoError(t, err)

		before, after := interior(p.Assignment()), interior(next.Assignment())
		for part, f := range next.EdgeFlows() {
			for e := range f.In {
				assert.False(t, before[part].Has(e), "step %d: %v already interior to %d", step, e, part)
				assert.True(t, after[part].Has(e))
			}
			for e := range f.Out {
				assert.True(t, before[part].Has(e))
				assert.False(t, after[part].Has(e), "step %d: %v still interior to %d", step, e, part)
			}
		}
		// Every changed interior edge is reported.
		for _, part := range next.Parts() {
			for e := range after[part] {
				if !before[part].Has(e) {
					assert.True(t, next.EdgeFlows()[part].In.Has(e), "step %d: missing in-edge %v", step, e)
				}
			}
		}
		p = next
	}
}

func TestGetErrors(t *testing.T) {
	g := graph.MustGrid(2, 2)
	a, err := NewAssignment(g, map[graph.NodeID]PartID{0: 0, 1: 0, 2: 1, 3: 1})
	require.NoError(t, err)
	p, err := New(g, a, nil)
	require.NoError(t, err)

	_, err = p.Get("population")
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownUpdater))

	_, err = Value[int](p, CutEdgesKey)
	assert.True(t, errors.Is(err, errors.ErrCodeInternal))

	count, err := Value[int](p, PartCountKey)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFromScratchRunsOncePerPartition(t *testing.T) {
	g := graph.MustGrid(2, 2)
	calls := 0
	a, err := NewAssignment(g, map[graph.NodeID]PartID{0: 0, 1: 0, 2: 1, 3: 1})
	require.NoError(t, err)
	p, err := New(g, a, map[string]Updater{
		"calls": FromScratch[int](func(*Partition) (int, error) {
			calls++
			return calls, nil
		}),
	})
	require.NoError(t, err)

	v1, _ := p.Get("calls")
	v2, _ := p.Get("calls")
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)

	child, err := p.Flip(map[graph.NodeID]PartID{1: 1})
	require.NoError(t, err)
	v3, _ := child.Get("calls")
	assert.Equal(t, 2, v3)
}

func TestClearParentFallsBackToInit(t *testing.T) {
	g := graph.MustGrid(4, 4)
	p, err := New(g, stripes(t, g, 4, 2), nil)
	require.NoError(t, err)

	child, err := p.Flip(map[graph.NodeID]PartID{1: 1})
	require.NoError(t, err)
	child.ClearParent()

	assert.Nil(t, child.Parent())
	assert.Nil(t, child.EdgeFlows())
	cut, err := child.CutEdges()
	require.NoError(t, err)
	assert.Equal(t, NaiveCutEdges(child), cut)
	assert.Equal(t, uint64(1), child.Generation())
}

func TestSubgraphCacheInheritsUntouchedParts(t *testing.T) {
	g := graph.MustGrid(4, 6)
	p, err := New(g, stripes(t, g, 6, 3), nil)
	require.NoError(t, err)

	v0, v1, v2 := p.Subgraph(0), p.Subgraph(1), p.Subgraph(2)
	assert.Equal(t, 8, v0.Len())

	// Node 2 (row 0, col 2) moves from part 1 to part 0.
	child, err := p.Flip(map[graph.NodeID]PartID{2: 0})
	require.NoError(t, err)

	assert.Same(t, v2, child.Subgraph(2))
	assert.NotSame(t, v0, child.Subgraph(0))
	assert.NotSame(t, v1, child.Subgraph(1))
	assert.Equal(t, 9, child.Subgraph(0).Len())
	assert.Equal(t, 7, child.Subgraph(1).Len())
}

func TestFromAttribute(t *testing.T) {
	b := graph.NewBuilder()
	x, _ := b.AddNode("x", graph.Attrs{"district": "1"})
	y, _ := b.AddNode("y", graph.Attrs{"district": 2.0})
	z, _ := b.AddNode("z", graph.Attrs{"district": 2})
	require.NoError(t, b.AddEdge(x, y, nil))
	require.NoError(t, b.AddEdge(y, z, nil))
	g := b.Build()

	p, err := FromAttribute(g, "district", nil)
	require.NoError(t, err)
	assert.Equal(t, []PartID{1, 2}, p.Parts())
	assert.Equal(t, graph.NewNodeSet(y, z), p.Part(2))

	_, err = FromAttribute(g, "county", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidAssignment))

	b = graph.NewBuilder()
	_, _ = b.AddNode("w", graph.Attrs{"district": 1.5})
	_, err = FromAttribute(b.Build(), "district", nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidAssignment))
}

func TestFlipRejectsUnknownNode(t *testing.T) {
	g := graph.MustGrid(2, 2)
	p, err := New(g, stripes(t, g, 2, 2), nil)
	require.NoError(t, err)

	_, err = p.Flip(map[graph.NodeID]PartID{12: 0})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
