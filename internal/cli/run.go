package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gerrywalk/pkg/config"
	"github.com/matzehuels/gerrywalk/pkg/observability"
	"github.com/matzehuels/gerrywalk/pkg/pipeline"
)

// runOpts holds the command-line flags for the run command. Flags that are
// set override the matching config file fields.
type runOpts struct {
	config      string // path of the TOML or YAML run config
	steps       int    // chain length override
	seed        uint64 // base seed override
	output      string // diff stream path override
	chains      int    // ensemble size override
	metricsAddr string // listen address of the Prometheus endpoint
	noCache     bool   // never read or write the plan cache
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Markov chain over districting plans",
		Long: `Run a Markov chain over districting plans.

The run command reads a TOML or YAML run config naming the dual graph, the
initial plan (a node attribute, or a part count to seed), the proposal, the
acceptance rule, and the constraints. With chains > 1 it runs an ensemble of
independent chains concurrently, each with a derived seed and its own output
file.

Seeded plans are cached locally when the config sets cache = true.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.config)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("steps") {
				cfg.Steps = opts.steps
			}
			if flags.Changed("seed") {
				cfg.Seed = opts.seed
			}
			if flags.Changed("output") {
				cfg.Output = opts.output
			}
			if flags.Changed("chains") {
				cfg.Chains = opts.chains
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runChains(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "run config file (.toml, .yaml)")
	cmd.Flags().IntVar(&opts.steps, "steps", 0, "number of chain steps")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "base random seed")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "diff stream output path (.jsonl.bz2)")
	cmd.Flags().IntVar(&opts.chains, "chains", 0, "number of independent chains")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the seeded plan cache")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// runChains executes cfg and prints one summary per chain.
func (c *CLI) runChains(ctx context.Context, cfg config.Run, opts runOpts) error {
	if opts.metricsAddr != "" {
		stop, err := c.serveMetrics(opts.metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	runner, err := c.newRunner(opts.noCache || !cfg.Cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	results, err := runner.RunEnsemble(ctx, cfg)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	prog.done(fmt.Sprintf("Completed %d chain(s)", len(results)))

	for i, res := range results {
		printResult(i, len(results), res)
	}
	return nil
}

// serveMetrics registers Prometheus hooks and serves them on addr until the
// returned stop function is called.
func (c *CLI) serveMetrics(addr string) (func(), error) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	observability.SetChainHooks(hooks)
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		observability.Reset()
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.Logger.Warn("metrics server stopped", "error", err)
		}
	}()
	c.Logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		observability.Reset()
	}, nil
}

// printResult prints the summary of one chain of an ensemble of n.
func printResult(i, n int, res *pipeline.Result) {
	title := "Chain"
	if n > 1 {
		title = fmt.Sprintf("Chain %d", i)
	}
	printSuccess("%s %s", StyleTitle.Render(title), StyleDim.Render(res.RunID))
	printChainStats(res.Stats, res.FinalCutEdges)
	if res.Seeded {
		printSeedSource(res.CacheHit)
	}
	if res.Output != "" {
		printFile(res.Output)
		printDetail("%d records", res.Records)
	}
}
