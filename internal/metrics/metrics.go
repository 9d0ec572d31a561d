// Package metrics owns the process Prometheus registry and the collectors the
// transport, dispatcher and CRM client report into. A nil *Metrics is valid
// and discards every observation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// Dispatch outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeError         = "error"
	OutcomeUnknownMethod = "unknown_method"
	OutcomeInvalidParams = "invalid_params"
)

type Metrics struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	ssePushFailures  prometheus.Counter
	crmRequests      *prometheus.CounterVec
}

// New builds a registry with Go runtime and process collectors plus the
// server's own collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_dispatch_total",
			Help: "JSON-RPC requests dispatched, by method and outcome",
		}, []string{"method", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcp_dispatch_duration_seconds",
			Help:    "Time spent dispatching JSON-RPC requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		ssePushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcp_sse_push_failures_total",
			Help: "SSE message writes that failed and evicted the push channel",
		}),
		crmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_requests_total",
			Help: "Outbound CRM API calls, by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.dispatchTotal,
		m.dispatchDuration,
		m.ssePushFailures,
		m.crmRequests,
	)

	return m
}

// TrackActiveSessions registers the mcp_active_sessions gauge, sampled from
// count on every scrape.
func (m *Metrics) TrackActiveSessions(count func() int) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "mcp_active_sessions",
		Help: "Sessions currently held in the session table",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) ObserveDispatch(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(method, outcome).Inc()
	m.dispatchDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) SSEPushFailed() {
	if m == nil {
		return
	}
	m.ssePushFailures.Inc()
}

func (m *Metrics) CRMRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.crmRequests.WithLabelValues(endpoint, outcome).Inc()
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			http.NotFound(w, r)
			return
		}
		metricFamilies, err := m.registry.Gather()
		if err != nil {
			http.Error(w, "Failed to gather metrics", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", string(expfmt.FmtText))

		encoder := expfmt.NewEncoder(w, expfmt.FmtText)
		for _, mf := range metricFamilies {
			if err := encoder.Encode(mf); err != nil {
				http.Error(w, "Failed to encode metrics", http.StatusInternalServerError)
				return
			}
		}
	})
}
