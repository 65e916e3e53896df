package graph

import (
	"errors"
	"fmt"
)

// ErrGridTooSmall is returned by [Grid] when either dimension is below 1.
var ErrGridTooSmall = errors.New("grid dimensions must be at least 1x1")

// Grid attribute keys.
const (
	AttrPopulation   = "population"
	AttrArea         = "area"
	AttrX            = "x"
	AttrY            = "y"
	AttrBoundaryNode = "boundary_node"
	AttrSharedPerim  = "shared_perim"
)

const gridIDFmt = "%d,%d"

// Grid builds a rows×cols grid with 4-neighbor adjacency. Nodes are added in
// row-major order, so the node at (r, c) has id r*cols+c and name "r,c".
//
// Every node has population 1 and area 1; nodes on the outer ring carry
// boundary_node=true. Every edge has shared_perim 1.
func Grid(rows, cols int) (*Graph, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("Grid(%d, %d): %w", rows, cols, ErrGridTooSmall)
	}

	b := NewBuilder()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			boundary := r == 0 || c == 0 || r == rows-1 || c == cols-1
			if _, err := b.AddNode(fmt.Sprintf(gridIDFmt, r, c), Attrs{
				AttrPopulation:   1.0,
				AttrArea:         1.0,
				AttrX:            float64(c),
				AttrY:            float64(r),
				AttrBoundaryNode: boundary,
			}); err != nil {
				return nil, err
			}
		}
	}

	// Right then bottom neighbor per cell.
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			u := NodeID(r*cols + c)
			if c+1 < cols {
				if err := b.AddEdge(u, u+1, Attrs{AttrSharedPerim: 1.0}); err != nil {
					return nil, err
				}
			}
			if r+1 < rows {
				if err := b.AddEdge(u, u+NodeID(cols), Attrs{AttrSharedPerim: 1.0}); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.Build(), nil
}

// MustGrid is like [Grid] but panics on invalid dimensions.
func MustGrid(rows, cols int) *Graph {
	g, err := Grid(rows, cols)
	if err != nil {
		panic(err)
	}
	return g
}
