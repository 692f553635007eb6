// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through the registered hooks; binaries register
// real implementations at startup. The defaults do nothing, so library
// code never depends on a metrics backend.
//
// Register hooks at application startup:
//
//	func main() {
//	    m := metrics.New(prometheus.NewRegistry())
//	    observability.SetAssemblyHooks(m)
//	    observability.SetDownloadHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Assembly().OnAssembleStart(ctx, uri)
//	// ... discover packages ...
//	observability.Assembly().OnAssembleComplete(ctx, uri, n, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Assembly Hooks
// =============================================================================

// AssemblyHooks receives events from program assembly.
type AssemblyHooks interface {
	// OnAssembleStart fires when an assembly or add-package pass begins.
	OnAssembleStart(ctx context.Context, uri string)

	// OnAssembleComplete fires once per pass with the number of packages
	// registered in the sandbox.
	OnAssembleComplete(ctx context.Context, uri string, packages int, duration time.Duration, err error)

	// OnLocatorClassified records how a locator was classified
	// (unavailable, identified, located).
	OnLocatorClassified(ctx context.Context, state string)
}

// =============================================================================
// Download Hooks
// =============================================================================

// DownloadHooks receives events from archive downloads.
type DownloadHooks interface {
	// OnDownloadStart fires before an archive is fetched.
	OnDownloadStart(ctx context.Context, url string)

	// OnDownloadComplete fires after a fetch and unpack attempt.
	OnDownloadComplete(ctx context.Context, url string, bytes int64, duration time.Duration, err error)

	// OnDownloadReused fires when an unpacked archive is reused. reason is
	// one of "fresh", "revalidated" or "present".
	OnDownloadReused(ctx context.Context, url, reason string)
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
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
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

// NoopAssemblyHooks is a no-op implementation of AssemblyHooks.
type NoopAssemblyHooks struct{}

func (NoopAssemblyHooks) OnAssembleStart(context.Context, string)                              {}
func (NoopAssemblyHooks) OnAssembleComplete(context.Context, string, int, time.Duration, error) {}
func (NoopAssemblyHooks) OnLocatorClassified(context.Context, string)                          {}

// NoopDownloadHooks is a no-op implementation of DownloadHooks.
type NoopDownloadHooks struct{}

func (NoopDownloadHooks) OnDownloadStart(context.Context, string)                                {}
func (NoopDownloadHooks) OnDownloadComplete(context.Context, string, int64, time.Duration, error) {}
func (NoopDownloadHooks) OnDownloadReused(context.Context, string, string)                       {}

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
	assemblyHooks AssemblyHooks = NoopAssemblyHooks{}
	downloadHooks DownloadHooks = NoopDownloadHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetAssemblyHooks registers custom assembly hooks.
func SetAssemblyHooks(h AssemblyHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		assemblyHooks = h
	}
}

// SetDownloadHooks registers custom download hooks.
func SetDownloadHooks(h DownloadHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		downloadHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Assembly returns the registered assembly hooks.
func Assembly() AssemblyHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return assemblyHooks
}

// Download returns the registered download hooks.
func Download() DownloadHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return downloadHooks
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
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	assemblyHooks = NoopAssemblyHooks{}
	downloadHooks = NoopDownloadHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
