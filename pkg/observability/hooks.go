// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries call the hooks at fixed points of a build without depending on
// any observability backend. The defaults do nothing; main registers real
// implementations at startup.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetStageHooks(&myStageHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Stage().OnStackStart(ctx, method, beads)
//	// ... stack ...
//	observability.Stage().OnStackComplete(ctx, method, ghosts, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Stage Hooks
// =============================================================================

// StageHooks receives events from the build stages of a model.
type StageHooks interface {
	// Stacking events
	OnStackStart(ctx context.Context, method string, beads int)
	OnStackComplete(ctx context.Context, method string, ghosts int, duration time.Duration, err error)

	// OnFragmentComplete records the fragmentation of one section.
	OnFragmentComplete(ctx context.Context, section string, volumes int, duration time.Duration, err error)

	// OnPairComplete records the periodic pairing of one section.
	OnPairComplete(ctx context.Context, section string, pairs int, err error)
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

// NoopStageHooks is a no-op implementation of StageHooks.
type NoopStageHooks struct{}

func (NoopStageHooks) OnStackStart(context.Context, string, int) {}
func (NoopStageHooks) OnStackComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopStageHooks) OnFragmentComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopStageHooks) OnPairComplete(context.Context, string, int, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	stageHooks StageHooks = NoopStageHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetStageHooks registers custom stage hooks.
// This should be called once at application startup before any build.
func SetStageHooks(h StageHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		stageHooks = h
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

// Stage returns the registered stage hooks.
func Stage() StageHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return stageHooks
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
	stageHooks = NoopStageHooks{}
	cacheHooks = NoopCacheHooks{}
}
