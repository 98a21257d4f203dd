package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the generation engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	runsTotal      prometheus.Counter
	runDuration    prometheus.Histogram
	lessonsPlaced  prometheus.Counter
	lessonsSkipped *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	runsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_runs_total",
		Help: "Total number of timetable generation runs",
	})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_run_duration_seconds",
		Help:    "Duration of timetable generation runs",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	lessonsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_lessons_placed_total",
		Help: "Lessons placed across generation runs",
	})

	lessonsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_lessons_skipped_total",
		Help: "Lessons skipped across generation runs by reason",
	}, []string{"reason"})

	registry.MustRegister(requestDuration, requestTotal, runsTotal, runDuration, lessonsPlaced, lessonsSkipped)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		lessonsPlaced:   lessonsPlaced,
		lessonsSkipped:  lessonsSkipped,
	}
}

// Handler exposes the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one handled request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveTimetableRun records the outcome of a generation run.
func (m *MetricsService) ObserveTimetableRun(report *dto.TimetableReport) {
	m.runsTotal.Inc()
	m.runDuration.Observe(report.Duration.Seconds())
	m.lessonsPlaced.Add(float64(report.Placed))
	for reason, count := range report.Reasons {
		m.lessonsSkipped.WithLabelValues(reason).Add(float64(count))
	}
}
