// Package cache stores the expensive intermediate results of a run so that
// repeated runs on the same graph can skip them.
//
// The main use is seeded plans: recursive tree partitioning of a large dual
// graph draws many spanning trees, and its output depends only on the graph
// and a handful of parameters. [Keyer.SeedKey] derives a key from those
// inputs; the pipeline stores the resulting part-per-node map under it.
//
// Two backends are provided. [FileCache] keeps one JSON file per entry under
// a directory and honors TTLs on read. [NullCache] stores nothing and is
// used when caching is disabled.
package cache

import (
	"context"
	"time"
)

// TTLSeed is how long a seeded plan stays cached.
const TTLSeed = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value stored under key. A missing or expired entry is
	// reported as a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// SeedKey identifies a seeded plan of the graph with content hash
	// graphHash.
	SeedKey(graphHash string, opts SeedKeyOpts) string
}

// SeedKeyOpts are the inputs that determine a seeded plan besides the
// graph itself.
type SeedKeyOpts struct {
	Parts   int     `json:"parts"`
	Epsilon float64 `json:"epsilon"`
	Column  string  `json:"column"`
	Seed    uint64  `json:"seed"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SeedKey returns "seed:" followed by a hash of graphHash and opts.
func (DefaultKeyer) SeedKey(graphHash string, opts SeedKeyOpts) string {
	return hashKey("seed", graphHash, opts)
}
