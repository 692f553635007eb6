// Package metrics exports stackload's observability hooks as Prometheus
// collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/observability"
)

const namespace = "stackload"

// Metrics implements every hook interface in [observability].
type Metrics struct {
	gatherer prometheus.Gatherer

	assemblies       *prometheus.CounterVec
	assemblyDuration prometheus.Histogram
	assemblyPackages prometheus.Histogram
	activeAssemblies prometheus.Gauge
	locators         *prometheus.CounterVec
	downloads        *prometheus.CounterVec
	downloadBytes    prometheus.Counter
	downloadDuration prometheus.Histogram
	downloadsReused  *prometheus.CounterVec
	cacheOps         *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpErrors       *prometheus.CounterVec
}

// New registers the collectors with reg. Use a fresh
// [prometheus.NewRegistry] in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		assemblies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembly",
			Name:      "total",
			Help:      "Assembly passes by outcome",
		}, []string{"status"}),
		assemblyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assembly",
			Name:      "duration_seconds",
			Help:      "Assembly pass duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		assemblyPackages: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assembly",
			Name:      "packages",
			Help:      "Packages registered in the sandbox after a pass",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		activeAssemblies: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "assembly",
			Name:      "active",
			Help:      "Assembly passes in progress",
		}),
		locators: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assembly",
			Name:      "locators_total",
			Help:      "Resolved locators by state",
		}, []string{"state"}),
		downloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "total",
			Help:      "Archive fetches by outcome",
		}, []string{"status"}),
		downloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Archive bytes fetched",
		}),
		downloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "duration_seconds",
			Help:      "Archive fetch and unpack duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		downloadsReused: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "reused_total",
			Help:      "Unpacked archives reused without a full fetch",
		}, []string{"reason"}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Index cache operations",
		}, []string{"type", "op"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Outgoing HTTP responses by status code",
		}, []string{"method", "host", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "duration_seconds",
			Help:      "Outgoing HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "host"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "errors_total",
			Help:      "Outgoing HTTP requests that failed without a response",
		}, []string{"method", "host"}),
	}
}

// Install registers m as the process-wide hook implementation.
func (m *Metrics) Install() {
	observability.SetAssemblyHooks(m)
	observability.SetDownloadHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return "error"
}

func (m *Metrics) OnAssembleStart(context.Context, string) {
	m.activeAssemblies.Inc()
}

func (m *Metrics) OnAssembleComplete(_ context.Context, _ string, packages int, d time.Duration, err error) {
	m.activeAssemblies.Dec()
	m.assemblies.WithLabelValues(status(err)).Inc()
	m.assemblyDuration.Observe(d.Seconds())
	if err == nil {
		m.assemblyPackages.Observe(float64(packages))
	}
}

func (m *Metrics) OnLocatorClassified(_ context.Context, state string) {
	m.locators.WithLabelValues(state).Inc()
}

func (m *Metrics) OnDownloadStart(context.Context, string) {}

func (m *Metrics) OnDownloadComplete(_ context.Context, _ string, bytes int64, d time.Duration, err error) {
	m.downloads.WithLabelValues(status(err)).Inc()
	m.downloadDuration.Observe(d.Seconds())
	if bytes > 0 {
		m.downloadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) OnDownloadReused(_ context.Context, _ string, reason string) {
	m.downloadsReused.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, host, _ string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, host, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, host, _ string, _ error) {
	m.httpErrors.WithLabelValues(method, host).Inc()
}

var (
	_ observability.AssemblyHooks = (*Metrics)(nil)
	_ observability.DownloadHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
