package constraints

import (
	"fmt"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/partition"
	"github.com/matzehuels/gerrywalk/pkg/updaters"
)

// ScoreFunc reduces a partition to one number.
type ScoreFunc func(p *partition.Partition) (float64, error)

// ValuesFunc reduces a partition to one number per part.
type ValuesFunc func(p *partition.Partition) ([]float64, error)

// UpperBound requires score(p) <= bound.
func UpperBound(name string, score ScoreFunc, bound float64) Constraint {
	return Func(name, func(p *partition.Partition) (bool, error) {
		v, err := score(p)
		return err == nil && v <= bound, err
	})
}

// LowerBound requires score(p) >= bound.
func LowerBound(name string, score ScoreFunc, bound float64) Constraint {
	return Func(name, func(p *partition.Partition) (bool, error) {
		v, err := score(p)
		return err == nil && v >= bound, err
	})
}

// selfConfiguring fixes its bound from the first partition it checks.
type selfConfiguring struct {
	name       string
	score      ScoreFunc
	upper      bool
	configured bool
	bound      float64
}

func (c *selfConfiguring) Name() string { return c.name }

func (c *selfConfiguring) Check(p *partition.Partition) (bool, error) {
	v, err := c.score(p)
	if err != nil {
		return false, err
	}
	if !c.configured {
		c.bound = v
		c.configured = true
	}
	if c.upper {
		return v <= c.bound, nil
	}
	return v >= c.bound, nil
}

// Bound returns the calibrated bound and whether calibration happened.
func (c *selfConfiguring) Bound() (float64, bool) { return c.bound, c.configured }

// SelfConfiguringUpperBound requires score(p) to never exceed its value on
// the first partition checked. A chain checks its initial state first.
func SelfConfiguringUpperBound(name string, score ScoreFunc) Constraint {
	return &selfConfiguring{name: name, score: score, upper: true}
}

// SelfConfiguringLowerBound requires score(p) to never drop below its value
// on the first partition checked.
func SelfConfiguringLowerBound(name string, score ScoreFunc) Constraint {
	return &selfConfiguring{name: name, score: score}
}

// CutEdgeCount scores a partition by its number of cut edges.
func CutEdgeCount(p *partition.Partition) (float64, error) {
	cut, err := p.CutEdges()
	if err != nil {
		return 0, err
	}
	return float64(cut.Len()), nil
}

// WithinBounds requires every per-part value to lie in [lower, upper].
func WithinBounds(name string, values ValuesFunc, lower, upper float64) Constraint {
	return Func(name, func(p *partition.Partition) (bool, error) {
		vals, err := values(p)
		if err != nil {
			return false, err
		}
		for _, v := range vals {
			if v < lower || v > upper {
				return false, nil
			}
		}
		return true, nil
	})
}

// WithinPercentOfIdealPopulation requires every part's tally to lie within
// percent of the ideal population of initial, the total divided by the
// number of parts. tally names a Tally updater registered on the partition.
func WithinPercentOfIdealPopulation(initial *partition.Partition, percent float64, tally string) (Constraint, error) {
	if err := errors.ValidateEpsilon(percent); err != nil {
		return nil, err
	}
	total, err := updaters.Total(initial, tally)
	if err != nil {
		return nil, err
	}
	parts := len(initial.Parts())
	if parts == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "initial partition has no parts")
	}
	ideal := total / float64(parts)
	values := func(p *partition.Partition) ([]float64, error) {
		pops, err := updaters.Tallies(p, tally)
		if err != nil {
			return nil, err
		}
		out := make([]float64, 0, len(pops))
		for _, part := range p.Parts() {
			out = append(out, pops[part])
		}
		return out, nil
	}
	name := fmt.Sprintf("within_%g_percent_of_ideal_population", percent*100)
	return WithinBounds(name, values, ideal*(1-percent), ideal*(1+percent)), nil
}

// NoVanishingDistricts requires every part to keep at least one node.
var NoVanishingDistricts = Predicate("no_vanishing_districts", func(p *partition.Partition) bool {
	for _, part := range p.Parts() {
		if p.Part(part).Len() == 0 {
			return false
		}
	}
	return true
})
