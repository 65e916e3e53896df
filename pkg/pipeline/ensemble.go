package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gerrywalk/pkg/config"
)

// deriveSeed mixes a base seed with a stream index into an independent
// seed using the SplitMix64 finalizer.
func deriveSeed(base, stream uint64) uint64 {
	x := base ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// MemberSeed returns the seed of ensemble member i. Member i of an
// ensemble with base seed s reproduces as a single run with this seed.
func MemberSeed(base uint64, i int) uint64 {
	return deriveSeed(base, seedStream+1+uint64(i))
}

// MemberOutput returns the output path of ensemble member i: the base path
// with "-<i>" inserted before its extensions. An empty path stays empty.
func MemberOutput(path string, i int) string {
	if path == "" {
		return ""
	}
	dir, file := filepath.Split(path)
	stem, ext := file, ""
	if dot := strings.Index(file, "."); dot > 0 {
		stem, ext = file[:dot], file[dot:]
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
}

// RunEnsemble runs cfg.Chains independent chains over one loaded graph.
// Member i uses [MemberSeed] and writes to [MemberOutput]. Chains run
// concurrently, at most one per CPU. The first failure cancels the
// remaining members; every member's error is returned, combined.
// Results are indexed by member, nil for members that failed.
func (r *Runner) RunEnsemble(ctx context.Context, cfg config.Run) ([]*Result, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Chains == 1 {
		res, err := r.Execute(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return []*Result{res}, nil
	}

	g, err := r.Load(ctx, cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	results := make([]*Result, cfg.Chains)
	errs := make([]error, cfg.Chains)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i := 0; i < cfg.Chains; i++ {
		member := cfg
		member.Chains = 1
		member.Seed = MemberSeed(cfg.Seed, i)
		member.Output = MemberOutput(cfg.Output, i)
		runner := &Runner{Cache: r.Cache, Keyer: r.Keyer, Logger: r.Logger.With("chain", i)}

		eg.Go(func() error {
			res, err := runner.Walk(egCtx, g, member)
			if err != nil {
				errs[i] = fmt.Errorf("chain %d: %w", i, err)
				return errs[i]
			}
			results[i] = res
			return nil
		})
	}
	_ = eg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return results, err
	}
	r.Logger.Info("ensemble complete", "chains", cfg.Chains)
	return results, nil
}
