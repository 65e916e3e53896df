// Package constraints provides the predicates a chain uses to decide whether
// a proposed partition is valid.
//
// A [Validator] is an ordered list of named [Constraint] values. Built-in
// constraints cover contiguity, population balance, and self-calibrating
// bounds; [Predicate] and [Dynamic] wrap caller-supplied functions.
package constraints

import (
	"fmt"
	"reflect"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// Constraint is a named predicate over a partition.
type Constraint interface {
	Name() string
	Check(p *partition.Partition) (bool, error)
}

// =============================================================================
// Function Adapters
// =============================================================================

type predicate struct {
	name string
	fn   func(*partition.Partition) (bool, error)
}

func (c predicate) Name() string { return c.name }

func (c predicate) Check(p *partition.Partition) (bool, error) { return c.fn(p) }

// Predicate wraps a boolean function.
func Predicate(name string, fn func(*partition.Partition) bool) Constraint {
	return predicate{name: name, fn: func(p *partition.Partition) (bool, error) { return fn(p), nil }}
}

// Func wraps a boolean function that can fail.
func Func(name string, fn func(*partition.Partition) (bool, error)) Constraint {
	return predicate{name: name, fn: fn}
}

// Dynamic wraps a function whose result is only known at run time, such as
// a predicate loaded from a plugin or script. A result whose kind is not
// bool fails with a [errors.ConstraintTypeError]. Named boolean types
// (type Flag bool) are accepted.
func Dynamic(name string, fn func(*partition.Partition) any) Constraint {
	return predicate{name: name, fn: func(p *partition.Partition) (bool, error) {
		out := fn(p)
		if b, ok := out.(bool); ok {
			return b, nil
		}
		rv := reflect.ValueOf(out)
		if rv.IsValid() && rv.Kind() == reflect.Bool {
			return rv.Bool(), nil
		}
		return false, &errors.ConstraintTypeError{Constraint: name, Got: fmt.Sprintf("%T", out)}
	}}
}

// =============================================================================
// Validator
// =============================================================================

// Validator checks a partition against an ordered list of constraints.
type Validator struct {
	constraints []Constraint
}

// NewValidator returns a Validator checking constraints in order.
func NewValidator(constraints ...Constraint) *Validator {
	return &Validator{constraints: constraints}
}

// Validate reports whether p passes every constraint, stopping at the first
// failure.
func (v *Validator) Validate(p *partition.Partition) (bool, error) {
	for _, c := range v.constraints {
		ok, err := c.Check(p)
		if err != nil {
			return false, fmt.Errorf("constraint %s: %w", c.Name(), err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Failures checks every constraint and returns the names of those that fail.
func (v *Validator) Failures(p *partition.Partition) ([]string, error) {
	var failed []string
	for _, c := range v.constraints {
		ok, err := c.Check(p)
		if err != nil {
			return nil, fmt.Errorf("constraint %s: %w", c.Name(), err)
		}
		if !ok {
			failed = append(failed, c.Name())
		}
	}
	return failed, nil
}

// Names returns the constraint names in check order.
func (v *Validator) Names() []string {
	names := make([]string, len(v.constraints))
	for i, c := range v.constraints {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of constraints.
func (v *Validator) Len() int { return len(v.constraints) }
