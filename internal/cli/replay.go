package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gerrywalk/pkg/graph"
	pkgio "github.com/matzehuels/gerrywalk/pkg/io"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// streamSummary aggregates the cut-edge counts of every plan in a diff
// stream. Plans are weighted by how many chain steps they were held.
type streamSummary struct {
	header   pkgio.Header
	records  int
	lastStep int

	initialCut, finalCut int
	minCut, maxCut       int
	meanCut              float64
}

// replayCommand creates the replay command for summarizing diff streams.
func (c *CLI) replayCommand() *cobra.Command {
	var graphPath string

	cmd := &cobra.Command{
		Use:   "replay [stream.jsonl.bz2]",
		Short: "Summarize a diff stream",
		Long: `Summarize a diff stream.

The replay command rebuilds every plan recorded by 'run' on the dual graph
it was run on and prints the number of recorded changes and the cut-edge
counts over the walk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			g, err := pkgio.ReadDualGraphFile(graphPath)
			if err != nil {
				return fmt.Errorf("load graph %s: %w", graphPath, err)
			}
			prog := newProgress(logger)
			sum, err := summarizeStream(g, args[0])
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Replayed %d records", sum.records))
			printSummary(args[0], sum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&graphPath, "graph", "g", "", "dual graph JSON file the stream was recorded on")
	_ = cmd.MarkFlagRequired("graph")

	return cmd
}

// summarizeStream replays the stream at path on g.
func summarizeStream(g *graph.Graph, path string) (streamSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return streamSummary{}, fmt.Errorf("open stream: %w", err)
	}
	defer f.Close()

	r, err := pkgio.NewDiffReader(f)
	if err != nil {
		return streamSummary{}, fmt.Errorf("read %s: %w", path, err)
	}
	defer r.Close()

	sum := streamSummary{header: r.Header(), records: -1}
	var (
		prevStep, prevCut int
		weighted          float64
	)
	err = pkgio.Replay(g, r, func(step int, a *partition.Assignment) error {
		cut := cutEdgeCount(g, a)
		if sum.records < 0 {
			sum.initialCut, sum.minCut, sum.maxCut = cut, cut, cut
		} else {
			weighted += float64(prevCut) * float64(step-prevStep)
		}
		sum.records++
		sum.minCut = min(sum.minCut, cut)
		sum.maxCut = max(sum.maxCut, cut)
		sum.finalCut = cut
		sum.lastStep = step
		prevStep, prevCut = step, cut
		return nil
	})
	if err != nil {
		return streamSummary{}, fmt.Errorf("replay %s: %w", path, err)
	}

	// The last plan is held through the final step of the chain.
	span := max(sum.header.Steps, sum.lastStep+1)
	weighted += float64(prevCut) * float64(span-prevStep)
	sum.meanCut = weighted / float64(span)
	return sum, nil
}

func cutEdgeCount(g *graph.Graph, a *partition.Assignment) int {
	n := 0
	for _, e := range g.Edges() {
		if a.Get(e.U) != a.Get(e.V) {
			n++
		}
	}
	return n
}

func printSummary(path string, sum streamSummary) {
	printSuccess("Stream %s", StyleDim.Render(path))
	printKeyValue("run", sum.header.RunID)
	printKeyValue("seed", fmt.Sprint(sum.header.Seed))
	printKeyValue("steps", fmt.Sprint(sum.header.Steps))
	printKeyValue("records", fmt.Sprint(sum.records))
	printKeyValue("cut edges", fmt.Sprintf("%d → %d", sum.initialCut, sum.finalCut))
	printKeyValue("range", fmt.Sprintf("%d-%d", sum.minCut, sum.maxCut))
	printKeyValue("mean", fmt.Sprintf("%.2f", sum.meanCut))
}
