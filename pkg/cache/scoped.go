package cache

// ScopedKeyer wraps a Keyer with a prefix so that several caches, or
// several versions of the seeding algorithm, can share one directory
// without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v2:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SeedKey generates a prefixed key for a seeded plan.
func (k *ScopedKeyer) SeedKey(graphHash string, opts SeedKeyOpts) string {
	return k.prefix + k.inner.SeedKey(graphHash, opts)
}
