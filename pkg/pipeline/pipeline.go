// Package pipeline wires a run configuration into a running chain.
//
// This package implements the complete load → seed → walk pipeline shared by
// every command, so each entry point builds chains from a [config.Run] the
// same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read the dual graph from its JSON file
//  2. Seed: Take the initial plan from a node attribute, or carve one with
//     recursive tree partitioning (cached by graph hash and parameters)
//  3. Walk: Build updaters, constraints, proposal, and acceptance rule, run
//     the chain, and stream every change to a compressed diff file
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Stats.Accepted, result.FinalCutEdges)
//
// [Runner.RunEnsemble] runs cfg.Chains independent copies concurrently, each
// with its own derived seed and output file.
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gerrywalk/pkg/accept"
	"github.com/matzehuels/gerrywalk/pkg/chain"
	"github.com/matzehuels/gerrywalk/pkg/config"
	"github.com/matzehuels/gerrywalk/pkg/constraints"
	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/partition"
	"github.com/matzehuels/gerrywalk/pkg/proposals"
	"github.com/matzehuels/gerrywalk/pkg/tree"
	"github.com/matzehuels/gerrywalk/pkg/updaters"
)

// PopulationKey is the updater name the pipeline registers the population
// tally under.
const PopulationKey = "population"

// =============================================================================
// Result
// =============================================================================

// Result summarizes one chain run.
type Result struct {
	RunID string
	Stats chain.Stats

	// FinalCutEdges is the cut-edge count of the last emitted state.
	FinalCutEdges int

	// Output is the diff stream path, empty when none was written.
	Output  string
	Records int

	Duration time.Duration

	// Seeded reports that the initial plan came from recursive tree
	// partitioning rather than a node attribute; CacheHit that it was read
	// from the cache.
	Seeded   bool
	CacheHit bool
}

// =============================================================================
// Builders
// =============================================================================

// Updaters returns the updaters every pipeline partition carries.
func Updaters(cfg config.Run) map[string]partition.Updater {
	return map[string]partition.Updater{
		PopulationKey: updaters.Tally(cfg.PopulationColumn),
	}
}

// Validator builds the validator named by cfg.Constraints. The population
// bound is measured against the ideal population of initial.
func Validator(cfg config.Run, initial *partition.Partition) (*constraints.Validator, error) {
	cs := make([]constraints.Constraint, 0, len(cfg.Constraints))
	for _, name := range cfg.Constraints {
		switch name {
		case config.ConstraintContiguous:
			cs = append(cs, constraints.Contiguous)
		case config.ConstraintSingleFlipContiguous:
			cs = append(cs, constraints.SingleFlipContiguous)
		case config.ConstraintNoVanishing:
			cs = append(cs, constraints.NoVanishingDistricts)
		case config.ConstraintPopulation:
			c, err := constraints.WithinPercentOfIdealPopulation(initial, cfg.Tolerance(), PopulationKey)
			if err != nil {
				return nil, err
			}
			cs = append(cs, c)
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown constraint %q", name)
		}
	}
	return constraints.NewValidator(cs...), nil
}

// TreeOptions returns the spanning tree search options of cfg.
func TreeOptions(cfg config.Run) tree.Options {
	opts := tree.Options{NodeRepeats: cfg.NodeRepeats}
	if cfg.Tree() == config.TreeUniform {
		opts.SpanningTree = tree.UniformSpanningTree
	} else {
		opts.SpanningTree = tree.RegionAware(cfg.RegionSurcharge)
	}
	return opts
}

// Proposal builds the proposal named by cfg.Proposal for a plan of the
// given ideal population.
func Proposal(cfg config.Run, target float64, logger *log.Logger) (chain.ProposalFunc, error) {
	switch cfg.Proposal {
	case config.ProposalReCom:
		rc := &proposals.ReCom{
			Column:  cfg.PopulationColumn,
			Target:  target,
			Epsilon: cfg.Tolerance(),
			Options: TreeOptions(cfg),
			Logger:  logger,
		}
		return rc.Propose, nil
	case config.ProposalReversibleReCom:
		if cfg.Tree() != config.TreeUniform {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "reversible recom requires the uniform spanning tree, got %q", cfg.Tree())
		}
		rc := &proposals.ReversibleReCom{
			Column:  cfg.PopulationColumn,
			Target:  target,
			Epsilon: cfg.Tolerance(),
			M:       cfg.M,
			Options: TreeOptions(cfg),
		}
		return rc.Propose, nil
	case config.ProposalFlip:
		return proposals.RandomFlip, nil
	case config.ProposalChunkFlip:
		return proposals.ChunkFlip, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown proposal %q", cfg.Proposal)
}

// Accept returns the acceptance rule named by cfg.Accept.
func Accept(cfg config.Run) (chain.AcceptFunc, error) {
	switch cfg.Accept {
	case config.AcceptAlways:
		return accept.Always, nil
	case config.AcceptCutEdge:
		return accept.CutEdge, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown acceptance rule %q", cfg.Accept)
}
