package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/cache"
	"github.com/matzehuels/gerrywalk/pkg/chain"
	"github.com/matzehuels/gerrywalk/pkg/config"
	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	pkgio "github.com/matzehuels/gerrywalk/pkg/io"
	"github.com/matzehuels/gerrywalk/pkg/observability"
	"github.com/matzehuels/gerrywalk/pkg/partition"
	"github.com/matzehuels/gerrywalk/pkg/proposals"
	"github.com/matzehuels/gerrywalk/pkg/tree"
)

// seedStream separates the random stream of plan seeding from the chain's,
// so a cached plan leaves the walk identical to a freshly seeded one.
const seedStream = 1

// cacheKeySeed is the key type reported to cache hooks.
const cacheKeySeed = "seed"

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; it doesn't
// store run results. Multiple goroutines can safely use the same Runner
// with different configurations.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// Execute runs the complete load → seed → walk pipeline for one chain.
func (r *Runner) Execute(ctx context.Context, cfg config.Run) (*Result, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, err := r.Load(ctx, cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return r.Walk(ctx, g, cfg)
}

// Load reads the dual graph at path.
func (r *Runner) Load(ctx context.Context, path string) (*graph.Graph, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, path)
	start := time.Now()

	g, err := pkgio.ReadDualGraphFile(path)
	elapsed := time.Since(start)
	if err != nil {
		hooks.OnLoadComplete(ctx, path, 0, elapsed, err)
		return nil, err
	}
	hooks.OnLoadComplete(ctx, path, g.NodeCount(), elapsed, nil)

	r.Logger.Info("loaded dual graph",
		"path", path,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", elapsed)
	return g, nil
}

// Walk runs one chain over an already loaded graph. cfg must be validated.
func (r *Runner) Walk(ctx context.Context, g *graph.Graph, cfg config.Run) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	ups := Updaters(cfg)

	// Stage 2: Seed
	var initial *partition.Partition
	if cfg.AssignmentColumn != "" {
		p, err := partition.FromAttribute(g, cfg.AssignmentColumn, ups)
		if err != nil {
			return nil, fmt.Errorf("initial plan: %w", err)
		}
		initial = p
	} else {
		a, hit, err := r.SeedWithCacheInfo(ctx, g, cfg)
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		p, err := partition.New(g, a, ups)
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		initial = p
		result.Seeded = true
		result.CacheHit = hit
	}

	// Stage 3: Walk
	target, err := proposals.IdealPopulation(g, cfg.PopulationColumn, len(initial.Parts()))
	if err != nil {
		return nil, err
	}
	validator, err := Validator(cfg, initial)
	if err != nil {
		return nil, err
	}
	propose, err := Proposal(cfg, target, r.Logger)
	if err != nil {
		return nil, err
	}
	acceptFn, err := Accept(cfg)
	if err != nil {
		return nil, err
	}

	c, err := chain.New(propose, validator, acceptFn, initial, cfg.Steps,
		chain.WithSeed(cfg.Seed),
		chain.WithLogger(r.Logger),
		chain.WithMaxInvalidProposals(cfg.InvalidBound()),
		chain.WithHooks(observability.Chain()),
		chain.WithRunID(result.RunID))
	if err != nil {
		return nil, err
	}

	record := func(int, *partition.Partition) error { return nil }
	var finish func() error
	if cfg.Output != "" {
		rec, done, err := r.openStream(ctx, cfg, result.RunID, initial)
		if err != nil {
			return nil, err
		}
		record, finish = rec.Record, func() error {
			result.Records = rec.Records()
			return done()
		}
		result.Output = cfg.Output
	}

	runErr := c.Run(ctx, record)
	if finish != nil {
		if err := finish(); err != nil && runErr == nil {
			runErr = err
		}
	}
	result.Stats = c.Stats()
	result.Duration = time.Since(start)
	if runErr != nil {
		return result, runErr
	}

	cut, err := c.Current().CutEdges()
	if err != nil {
		return result, err
	}
	result.FinalCutEdges = cut.Len()

	r.Logger.Info("chain complete",
		"run", result.RunID,
		"steps", result.Stats.Steps,
		"accepted", result.Stats.Accepted,
		"rejected", result.Stats.Rejected,
		"self_loops", result.Stats.SelfLoops,
		"invalid", result.Stats.Invalid,
		"cut_edges", result.FinalCutEdges,
		"duration", result.Duration)
	return result, nil
}

// openStream creates the diff stream file. The returned function closes the
// stream and the file and reports the write to pipeline hooks.
func (r *Runner) openStream(ctx context.Context, cfg config.Run, runID string, initial *partition.Partition) (*pkgio.DiffWriter, func() error, error) {
	hooks := observability.Pipeline()
	hooks.OnWriteStart(ctx, cfg.Output)
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		err = fmt.Errorf("create output dir: %w", err)
		hooks.OnWriteComplete(ctx, cfg.Output, 0, time.Since(start), err)
		return nil, nil, err
	}
	f, err := os.Create(cfg.Output)
	if err != nil {
		err = fmt.Errorf("create output: %w", err)
		hooks.OnWriteComplete(ctx, cfg.Output, 0, time.Since(start), err)
		return nil, nil, err
	}
	w, err := pkgio.NewDiffWriter(f, pkgio.Header{RunID: runID, Seed: cfg.Seed, Steps: cfg.Steps}, initial)
	if err != nil {
		f.Close()
		hooks.OnWriteComplete(ctx, cfg.Output, 0, time.Since(start), err)
		return nil, nil, err
	}

	done := func() error {
		err := w.Close()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		hooks.OnWriteComplete(ctx, cfg.Output, w.Records(), time.Since(start), err)
		if err == nil {
			r.Logger.Debug("wrote diff stream", "path", cfg.Output, "records", w.Records())
		}
		return err
	}
	return w, done, nil
}

// =============================================================================
// Seeding
// =============================================================================

// Seed returns a plan of cfg.Parts parts within cfg.Tolerance() of the ideal
// population, drawn by recursive tree partitioning.
func (r *Runner) Seed(ctx context.Context, g *graph.Graph, cfg config.Run) (*partition.Assignment, error) {
	a, _, err := r.SeedWithCacheInfo(ctx, g, cfg)
	return a, err
}

// SeedWithCacheInfo is like [Runner.Seed] and also reports whether the plan
// was read from the cache. Plans are cached under [cache.Keyer.SeedKey] as a
// node-name to part map.
func (r *Runner) SeedWithCacheInfo(ctx context.Context, g *graph.Graph, cfg config.Run) (*partition.Assignment, bool, error) {
	hooks := observability.Pipeline()
	hooks.OnSeedStart(ctx, cfg.Parts)
	start := time.Now()

	a, hit, err := r.seed(ctx, g, cfg)
	hooks.OnSeedComplete(ctx, cfg.Parts, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	r.Logger.Info("seeded plan",
		"parts", cfg.Parts,
		"cached", hit,
		"duration", time.Since(start))
	return a, hit, nil
}

func (r *Runner) seed(ctx context.Context, g *graph.Graph, cfg config.Run) (*partition.Assignment, bool, error) {
	if cfg.Parts < 2 {
		return nil, false, errors.New(errors.ErrCodeInvalidInput, "seeding needs at least 2 parts, got %d", cfg.Parts)
	}
	graphHash, err := GraphHash(g)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.SeedKey(graphHash, cache.SeedKeyOpts{
		Parts:   cfg.Parts,
		Epsilon: cfg.Tolerance(),
		Column:  cfg.PopulationColumn,
		Seed:    cfg.Seed,
	})

	// Try cache first
	cacheHooks := observability.Cache()
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		if a, err := decodePlan(g, data); err == nil {
			cacheHooks.OnCacheHit(ctx, cacheKeySeed)
			return a, true, nil
		}
		// Undecodable entries fall through to a fresh seed.
	}
	cacheHooks.OnCacheMiss(ctx, cacheKeySeed)

	target, err := proposals.IdealPopulation(g, cfg.PopulationColumn, cfg.Parts)
	if err != nil {
		return nil, false, err
	}
	parts := make([]partition.PartID, cfg.Parts)
	for i := range parts {
		parts[i] = partition.PartID(i)
	}
	rng := rand.New(rand.NewSource(deriveSeed(cfg.Seed, seedStream)))
	a, err := tree.RecursiveTreePart(g, parts, target, cfg.PopulationColumn, cfg.Tolerance(), rng, TreeOptions(cfg))
	if err != nil {
		return nil, false, err
	}

	if data, err := encodePlan(g, a); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLSeed); err == nil {
			cacheHooks.OnCacheSet(ctx, cacheKeySeed, len(data))
		} else {
			r.Logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return a, false, nil
}

// GraphHash returns the content hash of g in its canonical serialized form.
func GraphHash(g *graph.Graph) (string, error) {
	var buf bytes.Buffer
	if err := pkgio.WriteDualGraph(&buf, g, nil, ""); err != nil {
		return "", fmt.Errorf("serialize graph for cache key: %w", err)
	}
	return cache.Hash(buf.Bytes()), nil
}

func encodePlan(g *graph.Graph, a *partition.Assignment) ([]byte, error) {
	plan := make(map[string]int, a.Len())
	for _, v := range g.Nodes() {
		plan[g.Name(v)] = int(a.Get(v))
	}
	return json.Marshal(plan)
}

func decodePlan(g *graph.Graph, data []byte) (*partition.Assignment, error) {
	var plan map[string]int
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	mapping := make(map[graph.NodeID]partition.PartID, len(plan))
	for name, part := range plan {
		v, ok := g.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("cached plan names unknown node %q", name)
		}
		mapping[v] = partition.PartID(part)
	}
	return partition.NewAssignment(g, mapping)
}
