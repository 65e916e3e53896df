package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gerrywalk/pkg/config"
	pkgio "github.com/matzehuels/gerrywalk/pkg/io"
	"github.com/matzehuels/gerrywalk/pkg/proposals"
)

// seedOpts holds the command-line flags for the seed command.
type seedOpts struct {
	epsilon float64 // population tolerance
	output  string  // dual graph output path
	attr    string  // node attribute the plan is written under
	params  string  // optional engine parameter file path
	noCache bool    // never read or write the plan cache
}

// seedCommand creates the seed command.
func (c *CLI) seedCommand() *cobra.Command {
	var opts seedOpts
	cfg := config.Run{
		PopulationColumn: config.DefaultPopulationColumn,
		Steps:            config.DefaultSteps,
	}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a balanced initial plan",
		Long: `Seed a balanced initial plan.

The seed command carves the dual graph into the requested number of parts
with recursive tree partitioning, each part within epsilon of the ideal
population, and writes the graph back out with the plan stored in a node
attribute. With --params it also writes an engine parameter file describing
the run.

Seeded plans are cached locally for faster subsequent runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Epsilon = config.Float(opts.epsilon)
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runSeed(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&cfg.Graph, "graph", "g", "", "dual graph JSON file")
	cmd.Flags().IntVarP(&cfg.Parts, "parts", "k", 0, "number of districts")
	cmd.Flags().Float64VarP(&opts.epsilon, "epsilon", "e", config.DefaultEpsilon, "population tolerance as a fraction of the ideal")
	cmd.Flags().StringVar(&cfg.PopulationColumn, "pop-col", cfg.PopulationColumn, "node attribute holding population")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&cfg.Steps, "steps", cfg.Steps, "chain length recorded in the parameter file")
	cmd.Flags().StringVar(&cfg.SpanningTree, "spanning-tree", "", "spanning tree sampler: random (default), uniform")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "output dual graph file")
	cmd.Flags().StringVar(&opts.attr, "attr", defaultPlanAttr, "node attribute to store the plan under")
	cmd.Flags().StringVar(&opts.params, "params", "", "also write an engine parameter file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	_ = cmd.MarkFlagRequired("graph")
	_ = cmd.MarkFlagRequired("parts")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// runSeed loads the graph, seeds a plan, and writes the outputs.
func (c *CLI) runSeed(ctx context.Context, cfg config.Run, opts seedOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, err := runner.Load(ctx, cfg.Graph)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", cfg.Graph, err)
	}

	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("Seeding %d districts...", cfg.Parts))
	spinner.Start()
	a, cacheHit, err := runner.SeedWithCacheInfo(ctx, g, cfg)
	if err != nil {
		spinner.StopWithError("Seeding failed")
		return fmt.Errorf("seed: %w", err)
	}
	elapsed := spinner.Stop()

	if err := pkgio.WriteDualGraphFile(opts.output, g, a, opts.attr); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Seeded %s districts %s", StyleNumber.Render(fmt.Sprint(cfg.Parts)),
		StyleDim.Render(fmt.Sprintf("(%s)", elapsed.Round(time.Millisecond))))
	printStats(g.NodeCount(), g.EdgeCount(), cacheHit)
	printPartSizes(g, a, cfg.PopulationColumn)
	printFile(opts.output)

	if opts.params != "" {
		target, err := proposals.IdealPopulation(g, cfg.PopulationColumn, cfg.Parts)
		if err != nil {
			return err
		}
		p := cfg.Params(target)
		p.AssignmentColumn = opts.attr
		if err := pkgio.WriteParamsFile(opts.params, p); err != nil {
			return fmt.Errorf("write %s: %w", opts.params, err)
		}
		printFile(opts.params)
	}

	printNextStep(fmt.Sprintf("Run a chain from this plan (assignment_column = %q)", opts.attr), appName+" run --config run.toml")
	return nil
}
