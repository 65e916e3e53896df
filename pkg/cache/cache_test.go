package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "nested", "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "absent"); hit || err != nil {
		t.Errorf("Get(absent) = hit %v, err %v, want miss", hit, err)
	}

	if err := c.Set(ctx, "plan", []byte(`{"0,0":1}`), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "plan")
	if err != nil || !hit {
		t.Fatalf("Get(plan) = hit %v, err %v, want hit", hit, err)
	}
	if string(data) != `{"0,0":1}` {
		t.Errorf("Get(plan) = %s, want stored data", data)
	}

	if err := c.Delete(ctx, "plan"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "plan"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "plan"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	now = now.Add(59 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Error("entry should still be live before its TTL")
	}
	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry should expire after its TTL")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Errorf("expired entry file should be removed, stat err = %v", err)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Get(corrupt) = hit %v, err %v, want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile error: %v", err)
	}
	if want := Hash([]byte("hello")); got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("HashFile(missing) should fail")
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := SeedKeyOpts{Parts: 4, Epsilon: 0.01, Column: "population", Seed: 1}

	key := k.SeedKey("graph123", base)
	if !strings.HasPrefix(key, "seed:") {
		t.Errorf("SeedKey = %s, want seed: prefix", key)
	}
	if key != k.SeedKey("graph123", base) {
		t.Error("SeedKey should be deterministic")
	}

	tests := []struct {
		name  string
		graph string
		opts  SeedKeyOpts
	}{
		{"graph", "graph456", base},
		{"parts", "graph123", SeedKeyOpts{Parts: 5, Epsilon: 0.01, Column: "population", Seed: 1}},
		{"epsilon", "graph123", SeedKeyOpts{Parts: 4, Epsilon: 0.02, Column: "population", Seed: 1}},
		{"column", "graph123", SeedKeyOpts{Parts: 4, Epsilon: 0.01, Column: "TOTPOP", Seed: 1}},
		{"seed", "graph123", SeedKeyOpts{Parts: 4, Epsilon: 0.01, Column: "population", Seed: 2}},
	}
	for _, tt := range tests {
		if k.SeedKey(tt.graph, tt.opts) == key {
			t.Errorf("changing %s should change the key", tt.name)
		}
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "v2:")

	opts := SeedKeyOpts{Parts: 2}
	if got, want := scoped.SeedKey("h", opts), "v2:"+inner.SeedKey("h", opts); got != want {
		t.Errorf("ScopedKeyer SeedKey = %s, want %s", got, want)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.SeedKey("h", SeedKeyOpts{})
	if !strings.HasPrefix(key, "prefix:seed:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}
