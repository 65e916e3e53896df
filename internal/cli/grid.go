package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gerrywalk/pkg/graph"
	pkgio "github.com/matzehuels/gerrywalk/pkg/io"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// gridCommand creates the grid command for writing lattice dual graphs.
func (c *CLI) gridCommand() *cobra.Command {
	var (
		rows, cols, parts int
		output, attr      string
	)

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Write a grid dual graph",
		Long: `Write a grid dual graph.

Every cell has population 1 and area 1 and is adjacent to its four
neighbors. With --parts the grid also carries a plan of vertical stripes,
as even as the column count allows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cols == 0 {
				cols = rows
			}
			g, err := graph.Grid(rows, cols)
			if err != nil {
				return err
			}
			var a *partition.Assignment
			if parts > 0 {
				if a, err = stripes(g, cols, parts); err != nil {
					return err
				}
			}
			if err := pkgio.WriteDualGraphFile(output, g, a, attr); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Wrote %d×%d grid", rows, cols)
			printStats(g.NodeCount(), g.EdgeCount(), false)
			if a != nil {
				printPartSizes(g, a, graph.AttrPopulation)
			}
			printFile(output)
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 10, "number of rows")
	cmd.Flags().IntVar(&cols, "cols", 0, "number of columns (default: rows)")
	cmd.Flags().IntVarP(&parts, "parts", "k", 0, "split the grid into this many stripes")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output dual graph file")
	cmd.Flags().StringVar(&attr, "attr", defaultPlanAttr, "node attribute to store the plan under")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// stripes assigns the cells of a grid with cols columns to parts vertical
// stripes. Column c goes to part c*parts/cols.
func stripes(g *graph.Graph, cols, parts int) (*partition.Assignment, error) {
	if parts < 1 || parts > cols {
		return nil, fmt.Errorf("cannot split %d columns into %d stripes", cols, parts)
	}
	mapping := make(map[graph.NodeID]partition.PartID, g.NodeCount())
	for _, v := range g.Nodes() {
		col := int(v) % cols
		mapping[v] = partition.PartID(col * parts / cols)
	}
	return partition.NewAssignment(g, mapping)
}
