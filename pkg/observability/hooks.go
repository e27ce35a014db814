// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries report events through the registered hooks; the defaults do
// nothing. Register hooks once at startup, before any lookups run:
//
//	func main() {
//	    observability.SetRepositoryHooks(&myRepositoryHooks{})
//	    observability.SetHTTPHooks(&myHTTPHooks{})
//	    // ... run application
//	}
//
// Emitting sites:
//   - repository.Group reports Releases and Dependencies lookups
//   - warehouse.Repository reports archive downloads
//   - cache.LoadStrings and cache.StoreStrings report hits, misses and writes
//   - integrations.Client reports index API requests
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Repository Hooks
// =============================================================================

// RepositoryHooks receives events from repository lookups.
type RepositoryHooks interface {
	// OnReleases records a release listing for pkg.
	OnReleases(ctx context.Context, repo, pkg string, count int, duration time.Duration, err error)

	// OnDependencies records a dependency lookup for one release.
	OnDependencies(ctx context.Context, repo, pkg, version string, count int, duration time.Duration, err error)

	// OnDownload records an archive download. size is the size advertised
	// by the index, 0 when unknown.
	OnDownload(ctx context.Context, url string, size int64, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations. kind is the cache key
// kind, e.g. "deps".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, kind string)
	OnCacheMiss(ctx context.Context, kind string)
	OnCacheSet(ctx context.Context, kind string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from index API requests.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRepositoryHooks is a no-op implementation of RepositoryHooks.
type NoopRepositoryHooks struct{}

func (NoopRepositoryHooks) OnReleases(context.Context, string, string, int, time.Duration, error) {}
func (NoopRepositoryHooks) OnDependencies(context.Context, string, string, string, int, time.Duration, error) {
}
func (NoopRepositoryHooks) OnDownload(context.Context, string, int64, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	repositoryHooks RepositoryHooks = NoopRepositoryHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetRepositoryHooks registers custom repository hooks. Nil is ignored.
func SetRepositoryHooks(h RepositoryHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		repositoryHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Repository returns the registered repository hooks.
func Repository() RepositoryHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return repositoryHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	repositoryHooks = NoopRepositoryHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
