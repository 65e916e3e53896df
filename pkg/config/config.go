// Package config loads and validates run configurations.
//
// A run configuration describes one chain (or an ensemble of identical
// chains): the dual graph to walk, how to seed the initial plan, which
// proposal and acceptance rule to use, and which constraints every state
// must satisfy. Files may be TOML or YAML; the format is chosen by
// extension.
//
//	graph = "pa.json"
//	population_column = "TOTPOP"
//	assignment_column = "CD_2011"
//	epsilon = 0.02
//	steps = 10000
//	seed = 2018
//	proposal = "recom"
//	constraints = ["contiguous", "population"]
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/gerrywalk/pkg/chain"
	"github.com/matzehuels/gerrywalk/pkg/errors"
	pkgio "github.com/matzehuels/gerrywalk/pkg/io"
	"github.com/matzehuels/gerrywalk/pkg/tree"
)

// Proposal names.
const (
	ProposalReCom           = "recom"
	ProposalReversibleReCom = "reversible_recom"
	ProposalFlip            = "flip"
	ProposalChunkFlip       = "chunk_flip"
)

// Acceptance rule names.
const (
	AcceptAlways  = "always"
	AcceptCutEdge = "cut_edge"
)

// Constraint names.
const (
	ConstraintContiguous           = "contiguous"
	ConstraintSingleFlipContiguous = "single_flip_contiguous"
	ConstraintPopulation           = "population"
	ConstraintNoVanishing          = "no_vanishing"
)

// Spanning tree generator names.
const (
	TreeRandom  = "random"
	TreeUniform = "uniform"
)

// Defaults applied by [Run.SetDefaults].
const (
	DefaultPopulationColumn    = "population"
	DefaultEpsilon             = 0.02
	DefaultSteps               = 1000
	DefaultProposal            = ProposalReCom
	DefaultAccept              = AcceptAlways
	DefaultNodeRepeats         = tree.DefaultNodeRepeats
	DefaultM                   = 30
	DefaultMaxInvalidProposals = chain.DefaultMaxInvalidProposals
	DefaultChains              = 1
)

// Run is a complete run configuration.
type Run struct {
	// Graph is the path of the dual graph JSON file.
	Graph            string `toml:"graph" yaml:"graph" validate:"required"`
	PopulationColumn string `toml:"population_column" yaml:"population_column" validate:"required"`

	// AssignmentColumn names the node attribute holding the initial plan.
	// When empty, the initial plan is seeded with Parts parts.
	AssignmentColumn string `toml:"assignment_column" yaml:"assignment_column"`
	Parts            int    `toml:"parts" yaml:"parts" validate:"omitempty,min=2"`

	// Epsilon is the population tolerance as a fraction of the ideal. Nil
	// means DefaultEpsilon; an explicit 0 demands exact balance.
	Epsilon *float64 `toml:"epsilon" yaml:"epsilon" validate:"omitempty,gte=0,lt=1"`
	Steps   int     `toml:"steps" yaml:"steps" validate:"min=1"`
	Seed    uint64  `toml:"seed" yaml:"seed"`

	Proposal     string `toml:"proposal" yaml:"proposal" validate:"oneof=recom reversible_recom flip chunk_flip"`
	Accept       string `toml:"accept" yaml:"accept" validate:"oneof=always cut_edge"`
	SpanningTree string `toml:"spanning_tree" yaml:"spanning_tree" validate:"omitempty,oneof=random uniform"`
	NodeRepeats  int    `toml:"node_repeats" yaml:"node_repeats" validate:"min=1"`

	// M bounds the balanced cuts of one tree in reversible ReCom.
	M int `toml:"m" yaml:"m" validate:"min=1"`

	Constraints []string `toml:"constraints" yaml:"constraints" validate:"dive,oneof=contiguous single_flip_contiguous population no_vanishing"`

	// RegionSurcharge maps a node attribute to the weight penalty of tree
	// edges that cross a boundary of that attribute.
	RegionSurcharge map[string]float64 `toml:"region_surcharge" yaml:"region_surcharge" validate:"dive,gte=0"`

	// MaxInvalidProposals bounds consecutive invalid proposals per step. Nil
	// means DefaultMaxInvalidProposals; an explicit 0 removes the bound.
	MaxInvalidProposals *int `toml:"max_invalid_proposals" yaml:"max_invalid_proposals" validate:"omitempty,gte=0"`

	// Chains is the ensemble size.
	Chains int    `toml:"chains" yaml:"chains" validate:"min=1"`
	Output string `toml:"output" yaml:"output"`
	Cache  bool   `toml:"cache" yaml:"cache"`
}

var validate = validator.New()

// Load reads a run configuration from path, applies defaults, and
// validates it. Files ending in .toml are decoded as TOML, .yaml and .yml as
// YAML. Relative graph and output paths are resolved against the file's
// directory.
func Load(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("read config: %w", err)
	}

	var r Run
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &r); err != nil {
			return Run{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &r); err != nil {
			return Run{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", path)
		}
	default:
		return Run{}, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q", ext)
	}

	dir := filepath.Dir(path)
	if r.Graph != "" && !filepath.IsAbs(r.Graph) {
		r.Graph = filepath.Join(dir, r.Graph)
	}
	if r.Output != "" && !filepath.IsAbs(r.Output) {
		r.Output = filepath.Join(dir, r.Output)
	}
	r.SetDefaults()
	if err := r.Validate(); err != nil {
		return Run{}, err
	}
	return r, nil
}

// SetDefaults fills zero-valued fields and unset pointer fields.
func (r *Run) SetDefaults() {
	if r.PopulationColumn == "" {
		r.PopulationColumn = DefaultPopulationColumn
	}
	if r.Epsilon == nil {
		r.Epsilon = Float(DefaultEpsilon)
	}
	if r.Steps == 0 {
		r.Steps = DefaultSteps
	}
	if r.Proposal == "" {
		r.Proposal = DefaultProposal
	}
	if r.Accept == "" {
		r.Accept = DefaultAccept
	}
	if r.NodeRepeats == 0 {
		r.NodeRepeats = DefaultNodeRepeats
	}
	if r.M == 0 {
		r.M = DefaultM
	}
	if r.MaxInvalidProposals == nil {
		r.MaxInvalidProposals = Int(DefaultMaxInvalidProposals)
	}
	if r.Chains == 0 {
		r.Chains = DefaultChains
	}
	if r.Constraints == nil {
		r.Constraints = []string{ConstraintContiguous}
	}
}

// Validate checks field tags and the rules that span fields. Every problem
// is reported, combined into one INVALID_CONFIG error.
func (r Run) Validate() error {
	var errs error
	if err := validate.Struct(r); err != nil {
		if fields, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fields {
				errs = multierr.Append(errs, fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = multierr.Append(errs, err)
		}
	}

	if r.AssignmentColumn == "" && r.Parts < 2 {
		errs = multierr.Append(errs, errors.New(errors.ErrCodeInvalidConfig, "parts must be at least 2 when no assignment column is given"))
	}
	if len(r.RegionSurcharge) > 0 && r.Tree() == TreeUniform {
		errs = multierr.Append(errs, errors.New(errors.ErrCodeInvalidConfig, "region surcharges require the random spanning tree"))
	}
	if r.Proposal == ProposalReversibleReCom && r.Tree() != TreeUniform {
		errs = multierr.Append(errs, errors.New(errors.ErrCodeInvalidConfig, "reversible recom requires the uniform spanning tree, got %q", r.Tree()))
	}
	for _, col := range []string{r.PopulationColumn, r.AssignmentColumn} {
		if col == "" {
			continue
		}
		if err := errors.ValidateColumn(col); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, errs, "invalid run config")
	}
	return nil
}

// Tolerance returns the effective population tolerance.
func (r Run) Tolerance() float64 {
	if r.Epsilon == nil {
		return DefaultEpsilon
	}
	return *r.Epsilon
}

// InvalidBound returns the effective invalid proposal bound; 0 is unbounded.
func (r Run) InvalidBound() int {
	if r.MaxInvalidProposals == nil {
		return DefaultMaxInvalidProposals
	}
	return *r.MaxInvalidProposals
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional fields.
func Int(v int) *int { return &v }

// Tree returns the effective spanning tree generator. Reversible ReCom
// defaults to the uniform tree, every other proposal to the random one.
func (r Run) Tree() string {
	if r.SpanningTree != "" {
		return r.SpanningTree
	}
	if r.Proposal == ProposalReversibleReCom {
		return TreeUniform
	}
	return TreeRandom
}

// Params returns the parameters an external engine needs to replay this run
// on the same graph, given the ideal per-part population.
func (r Run) Params(target float64) pkgio.Params {
	col := r.AssignmentColumn
	if col == "" {
		col = pkgio.DefaultAssignmentAttr
	}
	return pkgio.Params{
		PopulationColumn: r.PopulationColumn,
		Target:           target,
		Tolerance:        r.Tolerance(),
		Steps:            r.Steps,
		AssignmentColumn: col,
		Seed:             r.Seed,
	}
}
