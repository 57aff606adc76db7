package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	LoginTotal          *prometheus.CounterVec
	RefreshTotal        *prometheus.CounterVec
	RegisterTotal       *prometheus.CounterVec
	LogoutTotal         prometheus.Counter
	GateRejectionsTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auth_login_total", Help: "Login attempts by result"},
			[]string{"result"},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auth_refresh_total", Help: "Refresh attempts by result"},
			[]string{"result"},
		),
		RegisterTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auth_register_total", Help: "Registrations by result"},
			[]string{"result"},
		),
		LogoutTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "auth_logout_total", Help: "Successful logouts"},
		),
		GateRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auth_gate_rejections_total", Help: "Bearer tokens rejected by the gate"},
			[]string{"code"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.LoginTotal,
		m.RefreshTotal,
		m.RegisterTotal,
		m.LogoutTotal,
		m.GateRejectionsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.LoginTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Refresh(result string) {
	if m != nil {
		m.RefreshTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Register(result string) {
	if m != nil {
		m.RegisterTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Logout() {
	if m != nil {
		m.LogoutTotal.Inc()
	}
}

func (m *Metrics) GateRejected(code string) {
	if m != nil {
		m.GateRejectionsTotal.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
