// Package metrics exposes the gateway's Prometheus collectors. It is an
// optional collaborator: every caller-facing field is a
// prometheus.Counter, prometheus.Gauge or *prometheus.CounterVec, and a
// nil *Metrics is simply not touched by callers that choose not to wire
// metrics in.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters and gauges the gateway updates as frames
// are decoded, samples are dropped, and windows are dispatched.
type Metrics struct {
	FramesDecoded      prometheus.Counter
	FramesDropped      *prometheus.CounterVec
	SamplesDropped     prometheus.Counter
	QueueDepth         prometheus.Gauge
	WindowsDispatched  prometheus.Counter
	DispatchSendErrors prometheus.Counter

	registry *prometheus.Registry
}

// New constructs a Metrics bound to a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		FramesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sv_bridge_frames_decoded_total",
			Help: "SV Ethernet frames successfully decoded into an SvMessage.",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sv_bridge_frames_dropped_total",
			Help: "SV Ethernet frames dropped due to a decode error, by reason.",
		}, []string{"reason"}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sv_bridge_samples_dropped_total",
			Help: "Decoded samples whose smp_cnt did not map into any live window.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sv_bridge_queue_depth",
			Help: "Number of in-flight sample buffers currently queued for dispatch.",
		}),
		WindowsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sv_bridge_windows_dispatched_total",
			Help: "Sample windows successfully rendered and sent as OpenPMU datagrams.",
		}),
		DispatchSendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sv_bridge_dispatch_send_errors_total",
			Help: "UDP send failures encountered by the dispatch scheduler.",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.FramesDecoded, m.FramesDropped, m.SamplesDropped,
		m.QueueDepth, m.WindowsDispatched, m.DispatchSendErrors,
	)

	return m
}

// Handler returns an http.Handler serving this registry in the
// Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
