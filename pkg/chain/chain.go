// Package chain runs the Markov chain that ties proposals, validation, and
// acceptance together.
//
// A [Chain] emits exactly totalSteps partitions. The first is the initial
// state. Each later one is produced by drawing proposals from the current
// state until one passes the validator, then accepting or rejecting it; a
// rejection re-emits the current state. Proposals that fail validation are
// retried without advancing the step counter.
//
//	c, err := chain.New(proposals.RandomFlip, validator, accept.Always, initial, 1000,
//	    chain.WithSeed(2018))
//	err = c.Run(ctx, func(step int, p *partition.Partition) error {
//	    // score p
//	    return nil
//	})
//
// Each proposal clears the parent link of the state it was drawn from, so a
// chain of any length retains a bounded history.
package chain

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/observability"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// DefaultMaxInvalidProposals bounds consecutive invalid proposals within one
// step.
const DefaultMaxInvalidProposals = 10000

// progressEvery is the step interval of debug progress logs.
const progressEvery = 1000

// ProposalFunc draws a candidate next state. Returning the argument itself
// is a self-loop.
type ProposalFunc func(p *partition.Partition, rng *rand.Rand) (*partition.Partition, error)

// AcceptFunc decides whether a valid proposal becomes the current state.
type AcceptFunc func(p *partition.Partition, rng *rand.Rand) (bool, error)

// Validator decides whether a partition is a legal state.
// *constraints.Validator implements it.
type Validator interface {
	Validate(p *partition.Partition) (bool, error)
	Failures(p *partition.Partition) ([]string, error)
}

// Stats counts what a chain has done so far.
type Stats struct {
	// Steps is the number of states emitted, including the initial one.
	Steps     int
	Accepted  int
	Rejected  int
	SelfLoops int
	// Invalid counts proposals that failed validation. They do not count as
	// steps.
	Invalid int
}

// Chain is a finite, forward-only sequence of partitions. It is not safe
// for concurrent use; run independent chains for an ensemble.
type Chain struct {
	propose    ProposalFunc
	validator  Validator
	accept     AcceptFunc
	total      int
	rng        *rand.Rand
	logger     *log.Logger
	maxInvalid int
	hooks      observability.ChainHooks
	runID      string

	state    *partition.Partition
	stats    Stats
	started  time.Time
	finished bool
}

// Option configures a Chain.
type Option func(*Chain)

// WithRand sets the random source. Every random choice of the chain and its
// proposals is drawn from it.
func WithRand(rng *rand.Rand) Option {
	return func(c *Chain) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithSeed seeds a fresh random source.
func WithSeed(seed uint64) Option {
	return func(c *Chain) { c.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxInvalidProposals bounds consecutive invalid proposals within one
// step; reaching the bound fails with PROPOSALS_EXHAUSTED. Zero means no
// bound, in which case a state with no valid successor loops forever.
func WithMaxInvalidProposals(n int) Option {
	return func(c *Chain) { c.maxInvalid = n }
}

// WithHooks sets the event hooks. Defaults to [observability.Chain].
func WithHooks(h observability.ChainHooks) Option {
	return func(c *Chain) {
		if h != nil {
			c.hooks = h
		}
	}
}

// WithRunID labels the run in hook events. Defaults to a random UUID.
func WithRunID(id string) Option {
	return func(c *Chain) { c.runID = id }
}

// New builds a chain emitting totalSteps states. The initial state is
// validated immediately; if it fails, New returns a
// [errors.ConfigurationError] naming every failing constraint.
func New(propose ProposalFunc, validator Validator, accept AcceptFunc, initial *partition.Partition, totalSteps int, opts ...Option) (*Chain, error) {
	if totalSteps < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "total steps must be at least 1, got %d", totalSteps)
	}
	if propose == nil || validator == nil || accept == nil || initial == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "proposal, validator, accept and initial state are required")
	}

	c := &Chain{
		propose:    propose,
		validator:  validator,
		accept:     accept,
		total:      totalSteps,
		rng:        rand.New(rand.NewSource(0)),
		logger:     log.Default(),
		maxInvalid: DefaultMaxInvalidProposals,
		hooks:      observability.Chain(),
		state:      initial,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxInvalid < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "max invalid proposals must not be negative, got %d", c.maxInvalid)
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}

	failed, err := validator.Failures(initial)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "validate initial state")
	}
	if len(failed) > 0 {
		var cause error
		for _, name := range failed {
			cause = multierr.Append(cause, fmt.Errorf("constraint %s failed", name))
		}
		return nil, &errors.ConfigurationError{Failures: failed, Cause: cause}
	}
	return c, nil
}

// Len returns the number of states the chain emits.
func (c *Chain) Len() int { return c.total }

// RunID returns the label used in hook events.
func (c *Chain) RunID() string { return c.runID }

// Stats returns the counters so far.
func (c *Chain) Stats() Stats { return c.stats }

// Current returns the most recently emitted state, or the initial state
// before the first call to Next.
func (c *Chain) Current() *partition.Partition { return c.state }

// Next returns the next state, or io.EOF once every state has been emitted.
// The context is checked between proposals.
func (c *Chain) Next(ctx context.Context) (*partition.Partition, error) {
	if c.stats.Steps >= c.total {
		return nil, io.EOF
	}
	start := time.Now()
	if c.stats.Steps == 0 {
		c.started = start
		c.hooks.OnChainStart(ctx, c.runID, c.total)
		c.logger.Debug("chain started", "run", c.runID, "steps", c.total)
		return c.emit(ctx, observability.StepInitial, start), nil
	}

	invalid := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, c.fail(ctx, err)
		}
		proposal, err := c.propose(c.state, c.rng)
		if err != nil {
			return nil, c.fail(ctx, fmt.Errorf("step %d: propose: %w", c.stats.Steps, err))
		}
		c.state.ClearParent()

		if proposal == c.state {
			c.stats.SelfLoops++
			return c.emit(ctx, observability.StepSelfLoop, start), nil
		}

		ok, err := c.validator.Validate(proposal)
		if err != nil {
			return nil, c.fail(ctx, fmt.Errorf("step %d: validate: %w", c.stats.Steps, err))
		}
		if !ok {
			invalid++
			c.stats.Invalid++
			c.hooks.OnInvalidProposal(ctx)
			if c.maxInvalid > 0 && invalid >= c.maxInvalid {
				return nil, c.fail(ctx, errors.New(errors.ErrCodeProposalsExhausted,
					"step %d: %d consecutive proposals failed validation", c.stats.Steps, invalid))
			}
			continue
		}

		accepted, err := c.accept(proposal, c.rng)
		if err != nil {
			return nil, c.fail(ctx, fmt.Errorf("step %d: accept: %w", c.stats.Steps, err))
		}
		if !accepted {
			c.stats.Rejected++
			return c.emit(ctx, observability.StepRejected, start), nil
		}
		c.state = proposal
		c.stats.Accepted++
		return c.emit(ctx, observability.StepAccepted, start), nil
	}
}

func (c *Chain) emit(ctx context.Context, outcome string, start time.Time) *partition.Partition {
	c.stats.Steps++
	c.hooks.OnStep(ctx, outcome, time.Since(start))
	if c.stats.Steps%progressEvery == 0 {
		c.logger.Debug("chain progress",
			"step", c.stats.Steps,
			"of", c.total,
			"accepted", c.stats.Accepted,
			"invalid", c.stats.Invalid)
	}
	if c.stats.Steps == c.total {
		c.complete(ctx, nil)
	}
	return c.state
}

func (c *Chain) fail(ctx context.Context, err error) error {
	c.complete(ctx, err)
	return err
}

func (c *Chain) complete(ctx context.Context, err error) {
	if c.finished {
		return
	}
	c.finished = true
	elapsed := time.Since(c.started)
	c.hooks.OnChainComplete(ctx, c.stats.Steps, elapsed, err)
	c.logger.Debug("chain complete",
		"run", c.runID,
		"steps", c.stats.Steps,
		"accepted", c.stats.Accepted,
		"rejected", c.stats.Rejected,
		"self_loops", c.stats.SelfLoops,
		"invalid", c.stats.Invalid,
		"duration", elapsed)
}

// Run calls fn with every remaining state in order. step counts from zero
// for the initial state. An error from fn stops the run and is returned.
func (c *Chain) Run(ctx context.Context, fn func(step int, p *partition.Partition) error) error {
	for {
		step := c.stats.Steps
		p, err := c.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(step, p); err != nil {
			return err
		}
	}
}
