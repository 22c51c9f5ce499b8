package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	FlowsStarted     *prometheus.CounterVec
	FlowSubmissions  *prometheus.CounterVec
	ActiveFlows      prometheus.Gauge
	WithdrawalsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		FlowsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flows_started_total",
				Help: "Question flows started, by opportunity kind",
			},
			[]string{"kind"},
		),
		FlowSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_submissions_total",
				Help: "Flow submission attempts, by result",
			},
			[]string{"result"},
		),
		ActiveFlows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flows_active",
			Help: "Question flows currently held in memory",
		}),
		WithdrawalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_withdrawals_total",
				Help: "Withdrawal requests accepted, by method",
			},
			[]string{"method"},
		),
	}

	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.FlowsStarted,
		m.FlowSubmissions,
		m.ActiveFlows,
		m.WithdrawalsTotal,
	)
	return m
}

func (m *Metrics) FlowStarted(kind string) {
	if m == nil {
		return
	}
	m.FlowsStarted.WithLabelValues(kind).Inc()
}

// SubmissionResult records "success" or "failure"
func (m *Metrics) SubmissionResult(result string) {
	if m == nil {
		return
	}
	m.FlowSubmissions.WithLabelValues(result).Inc()
}

func (m *Metrics) SetActiveFlows(n int) {
	if m == nil {
		return
	}
	m.ActiveFlows.Set(float64(n))
}

func (m *Metrics) Withdrawal(method string) {
	if m == nil {
		return
	}
	m.WithdrawalsTotal.WithLabelValues(method).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
