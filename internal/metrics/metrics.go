package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folioforge_api_request_duration_seconds",
			Help:    "Backend request duration in seconds by model",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"model", "status"},
	)

	rateLimiterWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folioforge_rate_limiter_wait_duration_seconds",
			Help:    "Rate limiter wait duration in seconds by model",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"model"},
	)

	unitsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folioforge_units_total",
			Help: "Units processed by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: introduction/subsection/summary, status: written/reused/error
	)

	wordsProduced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "folioforge_words_total",
			Help: "Approximate words produced by the backend",
		},
	)

	sectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folioforge_section_duration_seconds",
			Help:    "Section generation duration by outcome",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"status"},
	)

	activeSections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folioforge_active_sections",
			Help: "Sections currently being generated",
		},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folioforge_active_workers",
			Help: "Subsection workers currently calling the backend",
		},
	)
)

// Collector provides convenience methods for recording metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	logger *slog.Logger
}

// NewCollector creates a new metrics collector
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger}
}

// RecordAPIRequest records a backend request duration
func (c *Collector) RecordAPIRequest(model string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	apiRequestDuration.WithLabelValues(model, status(success)).Observe(duration.Seconds())
}

// RecordRateLimiterWait records rate limiter wait time
func (c *Collector) RecordRateLimiterWait(model string, duration time.Duration) {
	if c == nil {
		return
	}
	rateLimiterWaitDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordUnit counts a processed unit and the words it contributed
func (c *Collector) RecordUnit(kind, outcome string, words int) {
	if c == nil {
		return
	}
	unitsWritten.WithLabelValues(kind, outcome).Inc()
	if outcome == "written" {
		wordsProduced.Add(float64(words))
	}
}

// SectionStarted increments the active section gauge
func (c *Collector) SectionStarted() {
	if c == nil {
		return
	}
	activeSections.Inc()
}

// SectionFinished decrements the active section gauge and records the duration
func (c *Collector) SectionFinished(outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	activeSections.Dec()
	sectionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// WorkerBusy adjusts the active worker gauge by delta
func (c *Collector) WorkerBusy(delta int) {
	if c == nil {
		return
	}
	activeWorkers.Add(float64(delta))
}

// Serve exposes /metrics on addr until the server fails or is shut down
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()
	c.logger.Info("Serving metrics", "url", "http://"+addr+"/metrics")
	return srv
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
