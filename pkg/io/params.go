package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/gerrywalk/pkg/errors"
)

// Params is the parameter file handed to an external chain engine alongside
// a dual graph.
type Params struct {
	PopulationColumn string  `json:"pop_col"`
	Target           float64 `json:"target"`
	Tolerance        float64 `json:"tolerance"`
	Steps            int     `json:"steps"`
	AssignmentColumn string  `json:"assignment_col"`
	Seed             uint64  `json:"seed"`
}

// Validate checks the fields an engine cannot run without.
func (p Params) Validate() error {
	if err := errors.ValidateColumn(p.PopulationColumn); err != nil {
		return err
	}
	if err := errors.ValidateColumn(p.AssignmentColumn); err != nil {
		return err
	}
	if err := errors.ValidateTarget(p.Target); err != nil {
		return err
	}
	if err := errors.ValidateEpsilon(p.Tolerance); err != nil {
		return err
	}
	if p.Steps < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "steps must be at least 1, got %d", p.Steps)
	}
	return nil
}

// WriteParams encodes p as indented JSON.
func WriteParams(w io.Writer, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	return nil
}

// ReadParams decodes and validates a parameter file.
func ReadParams(r io.Reader) (Params, error) {
	var p Params
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Params{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode params")
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// WriteParamsFile writes p to the file at path.
func WriteParamsFile(path string, p Params) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteParams(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
