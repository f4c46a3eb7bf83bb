// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grader_market"

// Metrics is the set of application collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec   // route, method, code
	HTTPLatency   *prometheus.HistogramVec // route, method
	ListingWrites *prometheus.CounterVec   // op: create|update|delete
	CodesSent     *prometheus.CounterVec   // result: ok|dispatch_error
	CodeChecks    *prometheus.CounterVec   // result: verified|mismatch|expired|no_session
	ChatReplies   *prometheus.CounterVec   // source
}

// New builds and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ListingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "listing_writes_total",
			Help: "Successful listing mutations by operation.",
		}, []string{"op"}),
		CodesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "verification_codes_sent_total",
			Help: "Verification code dispatches by result.",
		}, []string{"result"}),
		CodeChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "verification_checks_total",
			Help: "Verification code checks by result.",
		}, []string{"result"}),
		ChatReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "chat_replies_total",
			Help: "Chat widget replies by the rule that produced them.",
		}, []string{"source"}),
	}
	m.Registry.MustRegister(
		m.HTTPRequests, m.HTTPLatency, m.ListingWrites, m.CodesSent, m.CodeChecks, m.ChatReplies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
