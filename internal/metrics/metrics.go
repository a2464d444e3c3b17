package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/urlclass"
)

// Outcome label values for provider calls.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeInvalid = "invalid"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catgap_provider_calls_total",
			Help: "Total number of search and relevance provider calls",
		},
		[]string{"provider", "operation", "outcome"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catgap_provider_call_duration_seconds",
			Help:    "Duration of provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "operation"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catgap_decisions_total",
			Help: "Total number of keyword decisions by outcome",
		},
		[]string{"decision"},
	)

	URLsClassifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catgap_urls_classified_total",
			Help: "Total number of ranked URLs placed in each classification bucket",
		},
		[]string{"classification"},
	)

	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catgap_page_fetches_total",
			Help: "Total number of target-site page fetches",
		},
		[]string{"domain", "status", "detected", "detection_src"},
	)

	PageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catgap_page_bytes_total",
			Help: "Total bytes downloaded from the target site",
		},
		[]string{"domain"},
	)
)

// RecordProviderCall counts one provider call and observes its latency.
func RecordProviderCall(provider, operation, outcome string, d time.Duration) {
	ProviderCallsTotal.WithLabelValues(provider, operation, outcome).Inc()
	ProviderCallDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordDecision counts a terminal keyword decision.
func RecordDecision(d evidence.Decision) {
	DecisionsTotal.WithLabelValues(string(d)).Inc()
}

// RecordClassification adds bucket sizes from one keyword's partition.
func RecordClassification(counts map[urlclass.Classification]int) {
	for c, n := range counts {
		if n > 0 {
			URLsClassifiedTotal.WithLabelValues(string(c)).Add(float64(n))
		}
	}
}

// RecordFetch counts one page fetch. A negative status means the request
// failed before a response arrived.
func RecordFetch(domain string, status int, detectedBy string, size int) {
	statusStr := strconv.Itoa(status)
	if status < 0 {
		statusStr = "error"
	}
	detected := "false"
	if detectedBy != "" {
		detected = "true"
	}
	PageFetchesTotal.WithLabelValues(domain, statusStr, detected, detectedBy).Inc()
	PageBytesTotal.WithLabelValues(domain).Add(float64(size))
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "port", port, "error", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
