package io

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/dsnet/compress/bzip2"
	"github.com/google/uuid"

	"github.com/matzehuels/gerrywalk/pkg/errors"
	"github.com/matzehuels/gerrywalk/pkg/graph"
	"github.com/matzehuels/gerrywalk/pkg/partition"
)

// StreamVersion is the diff stream format version written in every header.
const StreamVersion = 1

// Header is the first line of a diff stream.
type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Seed    uint64 `json:"seed"`
	Steps   int    `json:"steps"`
	// Assignment maps every node name to its initial part.
	Assignment map[string]int `json:"assignment"`
}

// Record lists the nodes whose part changed at Step.
type Record struct {
	Step  int            `json:"step"`
	Flips map[string]int `json:"flips"`
}

// =============================================================================
// Writer
// =============================================================================

// DiffWriter writes a diff stream. It is not safe for concurrent use.
type DiffWriter struct {
	bz      *bzip2.Writer
	enc     *json.Encoder
	header  Header
	prev    *partition.Partition
	last    []partition.PartID
	records int
	err     error
}

// NewDiffWriter starts a stream on w whose header carries the assignment of
// initial. An empty RunID is replaced with a random UUID and Version is
// always [StreamVersion]. Closing the DiffWriter does not close w.
func NewDiffWriter(w io.Writer, h Header, initial *partition.Partition) (*DiffWriter, error) {
	bz, err := bzip2.NewWriter(w, &bzip2.WriterConfig{})
	if err != nil {
		return nil, fmt.Errorf("bzip2 writer: %w", err)
	}

	g := initial.Graph()
	h.Version = StreamVersion
	if h.RunID == "" {
		h.RunID = uuid.NewString()
	}
	last := initial.Assignment().Slice()
	h.Assignment = make(map[string]int, len(last))
	for v, part := range last {
		h.Assignment[g.Name(graph.NodeID(v))] = int(part)
	}

	dw := &DiffWriter{
		bz:     bz,
		enc:    json.NewEncoder(bz),
		header: h,
		prev:   initial,
		last:   last,
	}
	if err := dw.enc.Encode(h); err != nil {
		bz.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return dw, nil
}

// Header returns the header as written.
func (w *DiffWriter) Header() Header { return w.header }

// Records returns the number of records written so far.
func (w *DiffWriter) Records() int { return w.records }

// Record writes the changes from the previously recorded state to p. Nothing
// is written when the plan is unchanged. p must be a state of the same
// graph as the initial partition.
func (w *DiffWriter) Record(step int, p *partition.Partition) error {
	if w.err != nil {
		return w.err
	}
	if p == w.prev {
		return nil
	}

	g := p.Graph()
	a := p.Assignment()
	if a.Len() != len(w.last) {
		return errors.New(errors.ErrCodeInvalidInput, "step %d: partition has %d nodes, stream has %d", step, a.Len(), len(w.last))
	}

	flips := make(map[string]int)
	note := func(v graph.NodeID) {
		if part := a.Get(v); part != w.last[v] {
			w.last[v] = part
			flips[g.Name(v)] = int(part)
		}
	}
	if p.Parent() != nil && p.Parent() == w.prev {
		// Only the flipped nodes can differ from the parent.
		for _, v := range slices.Sorted(maps.Keys(p.Flips())) {
			note(v)
		}
	} else {
		for _, v := range g.Nodes() {
			note(v)
		}
	}
	w.prev = p
	if len(flips) == 0 {
		return nil
	}

	if err := w.enc.Encode(Record{Step: step, Flips: flips}); err != nil {
		w.err = fmt.Errorf("write record %d: %w", step, err)
		return w.err
	}
	w.records++
	return nil
}

// Close flushes the compressed stream.
func (w *DiffWriter) Close() error {
	if err := w.bz.Close(); err != nil {
		return fmt.Errorf("close bzip2 writer: %w", err)
	}
	return w.err
}

// =============================================================================
// Reader
// =============================================================================

// DiffReader reads a diff stream written by [DiffWriter].
type DiffReader struct {
	bz     *bzip2.Reader
	dec    *json.Decoder
	header Header
}

// NewDiffReader opens a stream on r and reads its header.
func NewDiffReader(r io.Reader) (*DiffReader, error) {
	bz, err := bzip2.NewReader(r, nil)
	if err != nil {
		return nil, fmt.Errorf("bzip2 reader: %w", err)
	}
	dr := &DiffReader{bz: bz, dec: json.NewDecoder(bz)}
	if err := dr.dec.Decode(&dr.header); err != nil {
		bz.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read stream header")
	}
	if dr.header.Version != StreamVersion {
		bz.Close()
		return nil, errors.New(errors.ErrCodeUnsupported, "stream version %d, want %d", dr.header.Version, StreamVersion)
	}
	return dr, nil
}

// Header returns the stream header.
func (r *DiffReader) Header() Header { return r.header }

// Next returns the next record, or io.EOF at the end of the stream.
func (r *DiffReader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read record")
	}
	return rec, nil
}

// Close releases the decompressor. It does not close the underlying reader.
func (r *DiffReader) Close() error { return r.bz.Close() }

// =============================================================================
// Replay
// =============================================================================

// Replay rebuilds the assignment of g at the start of the stream and after
// every record, calling fn with step 0 for the header and then each
// record's step. An error from fn stops the replay and is returned.
func Replay(g *graph.Graph, r *DiffReader, fn func(step int, a *partition.Assignment) error) error {
	h := r.Header()
	mapping := make(map[graph.NodeID]partition.PartID, len(h.Assignment))
	for name, part := range h.Assignment {
		v, ok := g.Lookup(name)
		if !ok {
			return errors.New(errors.ErrCodeInvalidInput, "stream header names unknown node %q", name)
		}
		mapping[v] = partition.PartID(part)
	}
	a, err := partition.NewAssignment(g, mapping)
	if err != nil {
		return err
	}
	if err := fn(0, a); err != nil {
		return err
	}

	for {
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		flips := make(map[graph.NodeID]partition.PartID, len(rec.Flips))
		for name, part := range rec.Flips {
			v, ok := g.Lookup(name)
			if !ok {
				return errors.New(errors.ErrCodeInvalidInput, "record %d names unknown node %q", rec.Step, name)
			}
			flips[v] = partition.PartID(part)
		}
		a, _ = a.Update(flips)
		if err := fn(rec.Step, a); err != nil {
			return err
		}
	}
}
