// Package metrics groups the Prometheus instruments exported by localchat.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ChatRequests    *prometheus.CounterVec
	ExtractionPaths *prometheus.CounterVec
	UpstreamLatency prometheus.Histogram
	WorkspaceOps    *prometheus.CounterVec
	AuthEvents      *prometheus.CounterVec
}

// New registers the instruments on a fresh registry under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat proxy requests by outcome.",
		}, []string{"outcome"}),
		ExtractionPaths: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_extractions_total",
			Help:      "Completion extractions by ladder branch.",
		}, []string{"path"}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Inference endpoint round trip in seconds.",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		WorkspaceOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workspace_ops_total",
			Help:      "Workspace store operations by op and outcome.",
		}, []string{"op", "outcome"}),
		AuthEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Identity events by type and outcome.",
		}, []string{"event", "outcome"}),
	}
}

// ObserveChat counts one chat request with outcome "ok" or "error".
func (m *Metrics) ObserveChat(outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(outcome).Inc()
}

// ObserveExtraction counts the extraction branch that produced a reply.
func (m *Metrics) ObserveExtraction(path string) {
	if m == nil {
		return
	}
	m.ExtractionPaths.WithLabelValues(path).Inc()
}

// ObserveUpstreamLatency records one inference round trip.
func (m *Metrics) ObserveUpstreamLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamLatency.Observe(d.Seconds())
}

// ObserveWorkspaceOp counts a workspace store operation and whether it failed.
func (m *Metrics) ObserveWorkspaceOp(op string, err error) {
	if m == nil {
		return
	}
	m.WorkspaceOps.WithLabelValues(op, outcome(err)).Inc()
}

// ObserveAuth counts a sign-up, sign-in or logout and whether it failed.
func (m *Metrics) ObserveAuth(event string, err error) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event, outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
