package gateway

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus collectors on a private registry
// so tests can run gateways side by side.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	pushes   prometheus.Counter
	pulls    prometheus.Counter
	wsConns  prometheus.Gauge
}

// NewMetrics creates and registers the gateway collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confidantd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "confidantd",
			Name:      "snapshot_pushes_total",
			Help:      "User snapshot upserts received from clients.",
		}),
		pulls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "confidantd",
			Name:      "snapshot_pulls_total",
			Help:      "User snapshot fetches served to clients.",
		}),
		wsConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "confidantd",
			Name:      "event_connections",
			Help:      "Currently connected websocket event listeners.",
		}),
	}
	reg.MustRegister(m.requests, m.pushes, m.pulls, m.wsConns)
	return m
}

// middleware counts every request by method and response status.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
	})
}
