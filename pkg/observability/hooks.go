// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about chain execution, pipeline stages, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// A Prometheus backend is included; see [NewPrometheusHooks].
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    hooks := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
//	    observability.SetChainHooks(hooks)
//	    observability.SetPipelineHooks(hooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Chain().OnChainStart(ctx, runID, steps)
//	// ... walk ...
//	observability.Chain().OnChainComplete(ctx, steps, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// Step outcomes reported to [ChainHooks.OnStep].
const (
	StepInitial  = "initial"
	StepAccepted = "accepted"
	StepRejected = "rejected"
	StepSelfLoop = "self_loop"
)

// =============================================================================
// Chain Hooks
// =============================================================================

// ChainHooks receives events from a running Markov chain.
type ChainHooks interface {
	// OnChainStart records the start of a run of totalSteps states.
	OnChainStart(ctx context.Context, runID string, totalSteps int)

	// OnStep records one emitted state and the time spent producing it.
	OnStep(ctx context.Context, outcome string, duration time.Duration)

	// OnInvalidProposal records a proposal that failed validation.
	OnInvalidProposal(ctx context.Context)

	// OnChainComplete records the end of a run.
	OnChainComplete(ctx context.Context, steps int, duration time.Duration, err error)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the run pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, path string)
	OnLoadComplete(ctx context.Context, path string, nodeCount int, duration time.Duration, err error)

	// Seed events
	OnSeedStart(ctx context.Context, parts int)
	OnSeedComplete(ctx context.Context, parts int, duration time.Duration, err error)

	// Output events
	OnWriteStart(ctx context.Context, path string)
	OnWriteComplete(ctx context.Context, path string, records int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopChainHooks is a no-op implementation of ChainHooks.
type NoopChainHooks struct{}

func (NoopChainHooks) OnChainStart(context.Context, string, int)                  {}
func (NoopChainHooks) OnStep(context.Context, string, time.Duration)              {}
func (NoopChainHooks) OnInvalidProposal(context.Context)                          {}
func (NoopChainHooks) OnChainComplete(context.Context, int, time.Duration, error) {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string)                                {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)  {}
func (NoopPipelineHooks) OnSeedStart(context.Context, int)                                   {}
func (NoopPipelineHooks) OnSeedComplete(context.Context, int, time.Duration, error)          {}
func (NoopPipelineHooks) OnWriteStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnWriteComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	chainHooks    ChainHooks    = NoopChainHooks{}
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetChainHooks registers custom chain hooks.
// This should be called once at application startup before any chain runs.
func SetChainHooks(h ChainHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		chainHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Chain returns the registered chain hooks.
func Chain() ChainHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return chainHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	chainHooks = NoopChainHooks{}
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
}
