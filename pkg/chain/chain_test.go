package chain

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/matzehuels/gerrywalk/pkg/accept"
	"github.com/matzehuels/gerrywalk/pkg/constraints"
	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/observability"
	"github.com/matzehuels/gerrywalk/pkg/partition"
	"github.com/matzehuels/gerrywalk/pkg/proposals"
	"github.com/matzehuels/gerrywalk/pkg/updaters"
)

// threeByThree is the 3x3 grid split as {0..4} and {5..8}.
func threeByThree(t *testing.T) *partition.Partition {
	t.Helper()
	g := graph.MustGrid(3, 3)
	a, err := partition.AssignmentFromParts(g, map[partition.PartID][]graph.NodeID{
		0: {0, 1, 2, 3, 4},
		1: {5, 6, 7, 8},
	})
	require.NoError(t, err)
	p, err := partition.New(g, a, nil)
	require.NoError(t, err)
	return p
}

func collect(t *testing.T, c *Chain) []*partition.Partition {
	t.Helper()
	var out []*partition.Partition
	require.NoError(t, c.Run(context.Background(), func(step int, p *partition.Partition) error {
		require.Equal(t, len(out), step)
		out = append(out, p)
		return nil
	}))
	return out
}

var contiguous = constraints.NewValidator(constraints.Contiguous)

func TestChainEmitsExactlyTotalSteps(t *testing.T) {
	initial := threeByThree(t)
	c, err := New(proposals.RandomFlip, contiguous, accept.Always, initial, 100, WithSeed(2018))
	require.NoError(t, err)
	assert.Equal(t, 100, c.Len())

	states := collect(t, c)
	require.Len(t, states, 100)
	assert.Same(t, initial, states[0], "first state is the initial state")

	for i, p := range states {
		for _, part := range p.Parts() {
			assert.True(t, p.Subgraph(part).Connected(), "state %d part %d", i, part)
		}
	}

	_, err = c.Next(context.Background())
	assert.Equal(t, io.EOF, err)

	s := c.Stats()
	assert.Equal(t, 100, s.Steps)
	assert.Equal(t, 99, s.Accepted+s.Rejected+s.SelfLoops)
}

func TestChainIsReproducible(t *testing.T) {
	run := func() [][]partition.PartID {
		c, err := New(proposals.RandomFlip, contiguous, accept.Always, threeByThree(t), 200, WithSeed(2018))
		require.NoError(t, err)
		var seq [][]partition.PartID
		for _, p := range collect(t, c) {
			seq = append(seq, p.Assignment().Slice())
		}
		return seq
	}
	first, second := run(), run()
	assert.Equal(t, first, second)

	other, err := New(proposals.RandomFlip, contiguous, accept.Always, threeByThree(t), 200, WithSeed(7))
	require.NoError(t, err)
	var seq [][]partition.PartID
	for _, p := range collect(t, other) {
		seq = append(seq, p.Assignment().Slice())
	}
	assert.NotEqual(t, first, seq, "a different seed should walk differently")
}

func TestChainClearsRetiredParents(t *testing.T) {
	c, err := New(proposals.RandomFlip, contiguous, accept.Always, threeByThree(t), 50, WithSeed(1))
	require.NoError(t, err)
	states := collect(t, c)
	for i, p := range states[:len(states)-1] {
		assert.Nil(t, p.Parent(), "state %d still holds its parent", i)
	}
}

func TestChainRejectsInvalidInitialState(t *testing.T) {
	initial := threeByThree(t)
	v := constraints.NewValidator(
		constraints.Predicate("first_bad", func(*partition.Partition) bool { return false }),
		constraints.Contiguous,
		constraints.Predicate("second_bad", func(*partition.Partition) bool { return false }),
	)
	_, err := New(proposals.RandomFlip, v, accept.Always, initial, 10)

	var cfgErr *errors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"first_bad", "second_bad"}, cfgErr.Failures)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "first_bad, second_bad")
}

func TestChainRejectsBadArguments(t *testing.T) {
	initial := threeByThree(t)
	tests := []struct {
		name  string
		steps int
		opts  []Option
	}{
		{"zero steps", 0, nil},
		{"negative steps", -3, nil},
		{"negative invalid bound", 10, []Option{WithMaxInvalidProposals(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(proposals.RandomFlip, contiguous, accept.Always, initial, tt.steps, tt.opts...)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "err = %v", err)
		})
	}

	_, err := New(nil, contiguous, accept.Always, initial, 10)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestChainBoundsInvalidProposals(t *testing.T) {
	initial := threeByThree(t)
	onlyInitial := constraints.NewValidator(
		constraints.Predicate("is_initial", func(p *partition.Partition) bool { return p == initial }),
	)
	c, err := New(proposals.RandomFlip, onlyInitial, accept.Always, initial, 10, WithMaxInvalidProposals(5))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Same(t, initial, first)

	_, err = c.Next(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeProposalsExhausted), "err = %v", err)
	assert.Equal(t, 5, c.Stats().Invalid)
	assert.Equal(t, 1, c.Stats().Steps)
}

func TestChainRetriesInvalidWithoutCounting(t *testing.T) {
	initial := threeByThree(t)
	calls := 0
	everyOther := constraints.NewValidator(constraints.Predicate("every_other", func(p *partition.Partition) bool {
		if p == initial {
			return true
		}
		calls++
		return calls%2 == 0
	}))
	// Re-flipping node 0 into its own part yields a fresh state every time.
	touch := func(p *partition.Partition, _ *rand.Rand) (*partition.Partition, error) {
		return p.Flip(map[graph.NodeID]partition.PartID{0: p.Assignment().Get(0)})
	}
	c, err := New(touch, everyOther, accept.Always, initial, 11, WithSeed(3))
	require.NoError(t, err)
	states := collect(t, c)
	assert.Len(t, states, 11)
	assert.Equal(t, 10, c.Stats().Invalid)
	assert.Equal(t, 10, c.Stats().Accepted)
}

func TestChainRejectionReemitsCurrentState(t *testing.T) {
	initial := threeByThree(t)
	never := func(*partition.Partition, *rand.Rand) (bool, error) { return false, nil }
	c, err := New(proposals.RandomFlip, contiguous, never, initial, 20, WithSeed(5))
	require.NoError(t, err)

	for _, p := range collect(t, c) {
		assert.Same(t, initial, p)
	}
	assert.Equal(t, 19, c.Stats().Rejected)
	assert.Zero(t, c.Stats().Accepted)
}

func TestChainSelfLoopSkipsValidation(t *testing.T) {
	initial := threeByThree(t)
	validated := 0
	counting := constraints.NewValidator(constraints.Predicate("count", func(*partition.Partition) bool {
		validated++
		return true
	}))
	stay := func(p *partition.Partition, _ *rand.Rand) (*partition.Partition, error) { return p, nil }

	c, err := New(stay, counting, accept.Always, initial, 15)
	require.NoError(t, err)
	validated = 0

	states := collect(t, c)
	assert.Len(t, states, 15)
	assert.Zero(t, validated)
	assert.Equal(t, 14, c.Stats().SelfLoops)
}

func TestChainPropagatesProposalErrors(t *testing.T) {
	boom := func(*partition.Partition, *rand.Rand) (*partition.Partition, error) {
		return nil, &errors.MetagraphExhaustion{Pairs: 1}
	}
	c, err := New(boom, contiguous, accept.Always, threeByThree(t), 5)
	require.NoError(t, err)

	err = c.Run(context.Background(), func(int, *partition.Partition) error { return nil })
	var me *errors.MetagraphExhaustion
	require.ErrorAs(t, err, &me)
}

func TestChainStopsOnCancel(t *testing.T) {
	c, err := New(proposals.RandomFlip, contiguous, accept.Always, threeByThree(t), 1000, WithSeed(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	err = c.Run(ctx, func(step int, _ *partition.Partition) error {
		if step == 9 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 10, c.Stats().Steps)
}

func TestChainRunStopsOnCallbackError(t *testing.T) {
	c, err := New(proposals.RandomFlip, contiguous, accept.Always, threeByThree(t), 100, WithSeed(1))
	require.NoError(t, err)
	stop := fmt.Errorf("stop")
	err = c.Run(context.Background(), func(step int, _ *partition.Partition) error {
		if step == 4 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 5, c.Stats().Steps)
}

type recordingHooks struct {
	observability.NoopChainHooks
	started   int
	completed int
	outcomes  map[string]int
	invalid   int
	lastErr   error
}

func (h *recordingHooks) OnChainStart(context.Context, string, int) { h.started++ }
func (h *recordingHooks) OnStep(_ context.Context, outcome string, _ time.Duration) {
	h.outcomes[outcome]++
}
func (h *recordingHooks) OnInvalidProposal(context.Context) { h.invalid++ }
func (h *recordingHooks) OnChainComplete(_ context.Context, _ int, _ time.Duration, err error) {
	h.completed++
	h.lastErr = err
}

func TestChainEmitsHooks(t *testing.T) {
	hooks := &recordingHooks{outcomes: make(map[string]int)}
	c, err := New(proposals.RandomFlip, contiguous, accept.CutEdge, threeByThree(t), 60,
		WithSeed(2018), WithHooks(hooks), WithRunID("test-run"))
	require.NoError(t, err)
	assert.Equal(t, "test-run", c.RunID())
	collect(t, c)

	s := c.Stats()
	assert.Equal(t, 1, hooks.started)
	assert.Equal(t, 1, hooks.completed)
	assert.NoError(t, hooks.lastErr)
	assert.Equal(t, 1, hooks.outcomes[observability.StepInitial])
	assert.Equal(t, s.Accepted, hooks.outcomes[observability.StepAccepted])
	assert.Equal(t, s.Rejected, hooks.outcomes[observability.StepRejected])
	assert.Equal(t, s.Invalid, hooks.invalid)
}

func TestChainWithReCom(t *testing.T) {
	g := graph.MustGrid(6, 6)
	mapping := make(map[graph.NodeID]partition.PartID)
	for _, v := range g.Nodes() {
		mapping[v] = partition.PartID(int(v) % 6 / 2)
	}
	a, err := partition.NewAssignment(g, mapping)
	require.NoError(t, err)
	initial, err := partition.New(g, a, map[string]partition.Updater{
		"population": updaters.Tally(graph.AttrPopulation),
	})
	require.NoError(t, err)

	balance, err := constraints.WithinPercentOfIdealPopulation(initial, 0.1, "population")
	require.NoError(t, err)
	v := constraints.NewValidator(constraints.Contiguous, balance)
	r := &proposals.ReCom{Column: graph.AttrPopulation, Target: 12, Epsilon: 0.1}

	c, err := New(r.Propose, v, accept.Always, initial, 25, WithSeed(2018))
	require.NoError(t, err)
	for i, p := range collect(t, c) {
		ok, err := v.Validate(p)
		require.NoError(t, err)
		assert.True(t, ok, "state %d", i)
	}
}

func TestChainUsesInjectedRand(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	seen := 0
	probe := func(p *partition.Partition, r *rand.Rand) (*partition.Partition, error) {
		if r == rng {
			seen++
		}
		return p, nil
	}
	c, err := New(probe, contiguous, accept.Always, threeByThree(t), 4, WithRand(rng))
	require.NoError(t, err)
	collect(t, c)
	assert.Equal(t, 3, seen)
}
