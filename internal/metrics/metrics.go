package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	QuizCompletions    *prometheus.CounterVec
	NotificationPushes *prometheus.CounterVec
	OnlineConnections  prometheus.Gauge
}

// New builds the collectors and registers them on reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		QuizCompletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_completions_total",
				Help: "Quiz completion attempts by outcome",
			},
			[]string{"outcome"},
		),
		NotificationPushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notification_pushes_total",
				Help: "Live notification pushes by event kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		OnlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_connections_online",
			Help: "Open live notification connections",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RequestCounter, m.RequestDuration, m.QuizCompletions, m.NotificationPushes, m.OnlineConnections)
	}
	return m
}

func (m *Metrics) CompletionObserved(outcome string) {
	if m == nil {
		return
	}
	m.QuizCompletions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PushObserved(kind, outcome string) {
	if m == nil {
		return
	}
	m.NotificationPushes.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.OnlineConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.OnlineConnections.Dec()
}

// Middleware records request count and latency. route resolves the route
// template for the request so ids do not blow up label cardinality.
func (m *Metrics) Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			name := route(r)
			m.RequestCounter.WithLabelValues(r.Method, name, strconv.Itoa(sw.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
