package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "echo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "echo",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	pipelineOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "echo",
			Subsystem: "pipeline",
			Name:      "entries_total",
			Help:      "Entries that left the pipeline, by terminal status and failing stage.",
		},
		[]string{"status", "stage"},
	)

	pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "echo",
			Subsystem: "pipeline",
			Name:      "entry_duration_seconds",
			Help:      "Wall time from pickup to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
		[]string{"status"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "echo",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"stage", "success"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "echo",
			Subsystem: "queue",
			Name:      "pending_jobs",
			Help:      "Check-in jobs queued or running.",
		},
	)

	queueRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "echo",
			Subsystem: "queue",
			Name:      "rejected_total",
			Help:      "Check-in jobs rejected because the queue was full.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		pipelineOutcomes,
		pipelineDuration,
		stageDuration,
		queueDepth,
		queueRejected,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObservePipeline records an entry leaving the pipeline. stage is empty on success.
func ObservePipeline(status, stage string, d time.Duration) {
	pipelineOutcomes.WithLabelValues(status, stage).Inc()
	pipelineDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveStage records the duration of one stage call.
func ObserveStage(stage string, err error, d time.Duration) {
	stageDuration.WithLabelValues(stage, strconv.FormatBool(err == nil)).Observe(d.Seconds())
}

// SetQueueDepth reports the number of pending check-in jobs.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// IncQueueRejected counts a job that could not be queued.
func IncQueueRejected() {
	queueRejected.Inc()
}

// InstrumentHandler wraps the router with HTTP metrics collection. Routes are
// labelled by chi pattern to keep cardinality bounded.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
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

// Hijack lets websocket upgrades pass through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}
