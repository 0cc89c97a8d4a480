// Package metrics provides Prometheus metrics for the integration pipeline and
// the preview server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildPassesTotal counts configuration passes by outcome.
	BuildPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_build_passes_total",
		Help: "Total number of integration configuration passes, by result.",
	}, []string{"result"})

	// RenderPassesTotal counts render passes by outcome.
	RenderPassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_render_passes_total",
		Help: "Total number of server-side render passes, by result.",
	}, []string{"result"})

	// AccessorDiagnosticsTotal counts accessor calls made before a client was installed.
	AccessorDiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_accessor_uninitialized_total",
		Help: "Total number of accessor calls against an uninitialized render pass, by accessor.",
	}, []string{"accessor"})

	// BridgeEventsTotal counts live-preview events by action.
	BridgeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyblok_bridge_events_total",
		Help: "Total number of live-preview events relayed, by action.",
	}, []string{"action"})

	// ReloadsTotal counts reload actions triggered by live-preview events.
	ReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storyblok_reloads_total",
		Help: "Total number of content reloads triggered by live-preview events.",
	})

	// BridgeClients tracks connected websocket relay clients.
	BridgeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyblok_bridge_clients",
		Help: "Current number of connected live-preview relay clients.",
	})

	// OperationDuration observes durations recorded by performance markers.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyblok_operation_duration_seconds",
		Help:    "Duration of integration operations, by operation and result.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "result"})
)

// Result maps an error to a low-cardinality result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
