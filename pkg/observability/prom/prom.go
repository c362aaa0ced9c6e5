// Package prom implements the observability hooks with Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	m := prom.New(reg)
//	m.Register()
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fraudy/flowgraph/pkg/observability"
)

const namespace = "flowgraph"

// Metrics holds every flowgraph collector. It implements all hook
// interfaces of the observability package.
type Metrics struct {
	BuildsTotal    *prometheus.CounterVec
	BuildDuration  prometheus.Histogram
	GraphNodes     prometheus.Histogram
	GraphEdges     prometheus.Histogram
	LayoutDuration prometheus.Histogram
	LayoutsTotal   *prometheus.CounterVec
	RendersTotal   *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec

	CacheRequests *prometheus.CounterVec
	CacheBytes    *prometheus.CounterVec

	HoversTotal *prometheus.CounterVec
	Mounted     prometheus.Gauge
	MountsTotal prometheus.Counter

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates and registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BuildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Graph builds by outcome.",
		}, []string{"outcome"}),
		BuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time spent synthesizing transaction graphs.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		GraphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Nodes per built graph.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		GraphEdges: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Edges per built graph.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		LayoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time spent in ForceAtlas2.",
			Buckets:   prometheus.DefBuckets,
		}),
		LayoutsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layouts_total",
			Help:      "Layout runs by outcome.",
		}, []string{"outcome"}),
		RendersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render runs by format and outcome.",
		}, []string{"format", "outcome"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering a request's formats.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Artifact cache lookups by result.",
		}, []string{"key_type", "result"}),
		CacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the artifact cache.",
		}, []string{"key_type"}),
		HoversTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hovers_total",
			Help:      "Hover transitions by entity kind and direction.",
		}, []string{"kind", "direction"}),
		Mounted: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "views_mounted",
			Help:      "Graph views currently mounted.",
		}),
		MountsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mounts_total",
			Help:      "Graph views mounted since start.",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served.",
		}),
	}
}

// Register installs m as every observability hook.
func (m *Metrics) Register() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHoverHooks(m)
	observability.SetSessionHooks(m)
	observability.SetHTTPHooks(m)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnBuildStart implements observability.PipelineHooks.
func (m *Metrics) OnBuildStart(context.Context, string, int) {}

// OnBuildComplete implements observability.PipelineHooks.
func (m *Metrics) OnBuildComplete(_ context.Context, _ string, nodes, edges int, d time.Duration, err error) {
	m.BuildsTotal.WithLabelValues(outcome(err)).Inc()
	m.BuildDuration.Observe(d.Seconds())
	if err == nil {
		m.GraphNodes.Observe(float64(nodes))
		m.GraphEdges.Observe(float64(edges))
	}
}

// OnLayoutStart implements observability.PipelineHooks.
func (m *Metrics) OnLayoutStart(context.Context, int, int) {}

// OnLayoutComplete implements observability.PipelineHooks.
func (m *Metrics) OnLayoutComplete(_ context.Context, d time.Duration, err error) {
	m.LayoutsTotal.WithLabelValues(outcome(err)).Inc()
	m.LayoutDuration.Observe(d.Seconds())
}

// OnRenderStart implements observability.PipelineHooks.
func (m *Metrics) OnRenderStart(context.Context, []string) {}

// OnRenderComplete implements observability.PipelineHooks.
func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	o := outcome(err)
	for _, f := range formats {
		m.RendersTotal.WithLabelValues(f, o).Inc()
	}
	m.RenderDuration.WithLabelValues(o).Observe(d.Seconds())
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnHoverEnter implements observability.HoverHooks.
func (m *Metrics) OnHoverEnter(kind, _ string) {
	m.HoversTotal.WithLabelValues(kind, "enter").Inc()
}

// OnHoverLeave implements observability.HoverHooks.
func (m *Metrics) OnHoverLeave(kind, _ string) {
	m.HoversTotal.WithLabelValues(kind, "leave").Inc()
}

// OnMount implements observability.SessionHooks.
func (m *Metrics) OnMount(context.Context, string, int) {
	m.Mounted.Inc()
	m.MountsTotal.Inc()
}

// OnTeardown implements observability.SessionHooks.
func (m *Metrics) OnTeardown(context.Context, string) { m.Mounted.Dec() }

// OnRequest implements observability.HTTPHooks.
func (m *Metrics) OnRequest(context.Context, string, string) { m.HTTPRequestsInFlight.Inc() }

// OnResponse implements observability.HTTPHooks.
func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.HTTPRequestsInFlight.Dec()
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HoverHooks    = (*Metrics)(nil)
	_ observability.SessionHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
