package updaters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// weightedGrid is a grid with non-uniform populations and perimeters.
func weightedGrid(t *testing.T, rows, cols int) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			_, err := b.AddNode(
				string(rune('a'+r))+string(rune('a'+c)),
				graph.Attrs{"pop": float64(1 + (r*cols+c)%7)},
			)
			require.NoError(t, err)
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			u := graph.NodeID(r*cols + c)
			if c+1 < cols {
				require.NoError(t, b.AddEdge(u, u+1, graph.Attrs{"perim": 0.5 + float64(c)}))
			}
			if r+1 < rows {
				require.NoError(t, b.AddEdge(u, u+graph.NodeID(cols), graph.Attrs{"perim": 1.25}))
			}
		}
	}
	return b.Build()
}

func halves(t *testing.T, g *graph.Graph, cols int) *partition.Assignment {
	t.Helper()
	mapping := make(map[graph.NodeID]partition.PartID)
	for _, v := range g.Nodes() {
		if int(v)%cols < cols/2 {
			mapping[v] = 0
		} else {
			mapping[v] = 1
		}
	}
	a, err := partition.NewAssignment(g, mapping)
	require.NoError(t, err)
	return a
}

func walk(t *testing.T, p *partition.Partition, steps int, seed uint64, read func(*partition.Partition)) *partition.Partition {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	g := p.Graph()
	for i := 0; i < steps; i++ {
		v := graph.NodeID(rng.Intn(g.NodeCount()))
		nbrs := g.Neighbors(v)
		u := nbrs[rng.Intn(len(nbrs))]
		next, err := p.Flip(map[graph.NodeID]partition.PartID{v: p.Assignment().Get(u)})
		require.NoError(t, err)
		read(next)
		p = next
	}
	return p
}

func TestTallyIncrementalMatchesScratch(t *testing.T) {
	g := weightedGrid(t, 6, 6)
	p, err := partition.New(g, halves(t, g, 6), map[string]partition.Updater{
		"population": Tally("pop"),
	})
	require.NoError(t, err)

	final := walk(t, p, 400, 5, func(p *partition.Partition) {
		_, err := Tallies(p, "population")
		require.NoError(t, err)
	})

	got, err := Tallies(final, "population")
	require.NoError(t, err)

	scratch, err := partition.New(g, final.Assignment(), map[string]partition.Updater{
		"population": Tally("pop"),
	})
	require.NoError(t, err)
	want, err := Tallies(scratch, "population")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	total, err := Total(final, "population")
	require.NoError(t, err)
	var expected float64
	for _, v := range g.Column("pop") {
		expected += v
	}
	assert.Equal(t, expected, total)
}

// assertSameTallies compares bit for bit. An emptied part is kept by the
// incremental path and must read exactly 0.
func assertSameTallies(t *testing.T, want, got map[partition.PartID]float64) {
	t.Helper()
	for part, v := range want {
		assert.Contains(t, got, part)
		assert.Equal(t, v, got[part], "part %d", part)
	}
	for part, v := range got {
		if _, ok := want[part]; !ok {
			assert.Equal(t, 0.0, v, "emptied part %d", part)
		}
	}
}

func TestTallyFractionalMatchesScratch(t *testing.T) {
	const rows, cols = 6, 6
	b := graph.NewBuilder()
	for k := 0; k < rows*cols; k++ {
		_, err := b.AddNode(string(rune('a'+k/cols))+string(rune('a'+k%cols)), graph.Attrs{"pop": 0.1 * float64(k+1)})
		require.NoError(t, err)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			u := graph.NodeID(r*cols + c)
			if c+1 < cols {
				require.NoError(t, b.AddEdge(u, u+1, nil))
			}
			if r+1 < rows {
				require.NoError(t, b.AddEdge(u, u+graph.NodeID(cols), nil))
			}
		}
	}
	g := b.Build()

	p, err := partition.New(g, halves(t, g, cols), map[string]partition.Updater{
		"population": Tally("pop"),
	})
	require.NoError(t, err)

	final := walk(t, p, 2000, 11, func(p *partition.Partition) {
		_, err := Tallies(p, "population")
		require.NoError(t, err)
	})
	got, err := Tallies(final, "population")
	require.NoError(t, err)

	scratch, err := partition.New(g, final.Assignment(), map[string]partition.Updater{
		"population": Tally("pop"),
	})
	require.NoError(t, err)
	want, err := Tallies(scratch, "population")
	require.NoError(t, err)
	assertSameTallies(t, want, got)
}

func TestTallyEmptiedPartIsZero(t *testing.T) {
	b := graph.NewBuilder()
	for i, pop := range []float64{0.1, 0.2, 0.7} {
		_, err := b.AddNode(string(rune('a'+i)), graph.Attrs{"pop": pop})
		require.NoError(t, err)
	}
	require.NoError(t, b.AddEdge(0, 1, nil))
	require.NoError(t, b.AddEdge(1, 2, nil))
	g := b.Build()

	a, err := partition.NewAssignment(g, map[graph.NodeID]partition.PartID{0: 0, 1: 0, 2: 1})
	require.NoError(t, err)
	p, err := partition.New(g, a, map[string]partition.Updater{"population": Tally("pop")})
	require.NoError(t, err)
	_, err = Tallies(p, "population")
	require.NoError(t, err)

	// Drain part 0 one node at a time: 0.1 + 0.2 - 0.1 - 0.2 in floats is not 0.
	for _, v := range []graph.NodeID{0, 1} {
		p, err = p.Flip(map[graph.NodeID]partition.PartID{v: 1})
		require.NoError(t, err)
		_, err = Tallies(p, "population")
		require.NoError(t, err)
	}

	got, err := Tallies(p, "population")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0])

	scratch, err := partition.New(g, p.Assignment(), map[string]partition.Updater{"population": Tally("pop")})
	require.NoError(t, err)
	want, err := Tallies(scratch, "population")
	require.NoError(t, err)
	assert.Equal(t, want[1], got[1])
}

func TestEdgeTallyIncrementalMatchesScratch(t *testing.T) {
	g := weightedGrid(t, 5, 7)
	p, err := partition.New(g, halves(t, g, 7), map[string]partition.Updater{
		"interior_perim": EdgeTally("perim"),
	})
	require.NoError(t, err)

	final := walk(t, p, 300, 9, func(p *partition.Partition) {
		_, err := Tallies(p, "interior_perim")
		require.NoError(t, err)
	})

	got, err := Tallies(final, "interior_perim")
	require.NoError(t, err)

	scratch, err := partition.New(g, final.Assignment(), map[string]partition.Updater{
		"interior_perim": EdgeTally("perim"),
	})
	require.NoError(t, err)
	want, err := Tallies(scratch, "interior_perim")
	require.NoError(t, err)

	assertSameTallies(t, want, got)
}

func TestBoundaryNodesIncrementalMatchesScratch(t *testing.T) {
	g := graph.MustGrid(6, 6)
	p, err := partition.New(g, halves(t, g, 6), map[string]partition.Updater{
		"boundary": BoundaryNodes(graph.AttrBoundaryNode),
	})
	require.NoError(t, err)

	root, err := partition.Value[map[partition.PartID]graph.NodeSet](p, "boundary")
	require.NoError(t, err)
	// 20 ring nodes split evenly between the halves.
	assert.Equal(t, 10, root[0].Len())
	assert.Equal(t, 10, root[1].Len())

	final := walk(t, p, 200, 13, func(p *partition.Partition) {
		_, err := p.Get("boundary")
		require.NoError(t, err)
	})

	got, err := partition.Value[map[partition.PartID]graph.NodeSet](final, "boundary")
	require.NoError(t, err)
	scratch, err := partition.New(g, final.Assignment(), map[string]partition.Updater{
		"boundary": BoundaryNodes(graph.AttrBoundaryNode),
	})
	require.NoError(t, err)
	want, err := partition.Value[map[partition.PartID]graph.NodeSet](scratch, "boundary")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTallyCarriesUntouchedParts(t *testing.T) {
	g := graph.MustGrid(1, 4)
	a, err := partition.NewAssignment(g, map[graph.NodeID]partition.PartID{0: 0, 1: 1, 2: 2, 3: 2})
	require.NoError(t, err)
	p, err := partition.New(g, a, map[string]partition.Updater{
		"population": Tally(graph.AttrPopulation),
	})
	require.NoError(t, err)
	_, err = Tallies(p, "population")
	require.NoError(t, err)

	// Empty part 1 and create part 7; part 0 is untouched.
	child, err := p.Flip(map[graph.NodeID]partition.PartID{1: 2, 3: 7})
	require.NoError(t, err)

	got, err := Tallies(child, "population")
	require.NoError(t, err)
	assert.Equal(t, map[partition.PartID]float64{0: 1, 1: 0, 2: 2, 7: 1}, got)
}
