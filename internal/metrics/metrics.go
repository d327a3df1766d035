package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-scripts/research/pkg/common"
)

var (
	NavigationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "niche_navigation_attempts_total",
			Help: "Page load attempts by outcome",
		},
		[]string{"outcome"},
	)

	SearchResultsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "niche_search_results_total",
			Help: "Search results extracted, by the tier that produced them",
		},
		[]string{"tier"},
	)

	Clicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "niche_clicks_total",
			Help: "Clicks performed, by the strategy that located the element",
		},
		[]string{"strategy"},
	)

	SiteVisits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "niche_site_visits_total",
			Help: "Sites visited during research runs",
		},
		[]string{"status", "blocked"},
	)

	SiteVisitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "niche_site_visit_duration_seconds",
			Help:    "Time spent visiting a single site",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	ResearchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "niche_research_runs_total",
			Help: "Research runs by final status",
		},
		[]string{"status"},
	)
)

// RecordVisit updates the site visit metrics
func RecordVisit(status common.Status, blocked bool, d time.Duration) {
	blockedStr := "false"
	if blocked {
		blockedStr = "true"
	}
	SiteVisits.WithLabelValues(string(status), blockedStr).Inc()
	SiteVisitDuration.Observe(d.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "port", port, "err", err)
		}
	}()

	logger.Debug("Metrics server listening", "addr", srv.Addr)
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
