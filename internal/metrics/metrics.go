package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry so that tests
// can build as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter        *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	SubmissionCounter     *prometheus.CounterVec
	SubmissionPercentages prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepmaster_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prepmaster_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		SubmissionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prepmaster_submissions_total",
				Help: "Test submissions by outcome",
			},
			[]string{"status"},
		),
		SubmissionPercentages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prepmaster_submission_percentage",
			Help:    "Overall percentage score of accepted submissions",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
	m.Registry.MustRegister(m.RequestCounter, m.RequestDuration, m.SubmissionCounter, m.SubmissionPercentages)
	return m
}

// ObserveSubmission records the outcome of one submit call. percentage is
// only observed for accepted submissions.
func (m *Metrics) ObserveSubmission(status string, percentage float64) {
	if m == nil {
		return
	}
	m.SubmissionCounter.WithLabelValues(status).Inc()
	if status == "completed" {
		m.SubmissionPercentages.Observe(percentage)
	}
}

// Middleware counts requests. routeOf resolves the low-cardinality route label.
func (m *Metrics) Middleware(routeOf func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := routeOf(r)
			m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack passes through to the wrapped writer so websocket upgrades work
// behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
