// Package metrics exposes Prometheus counters for policy lifecycle activity
// and runs the standalone metrics endpoint.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policy_governance"

var (
	// TransitionsTotal counts lifecycle transitions by action and outcome.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Policy lifecycle transitions by action and outcome.",
	}, []string{"action", "outcome"})

	// CommittedPolicies counts committed policy artifacts by role.
	CommittedPolicies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "committed_policies_total",
		Help:      "Committed policy artifacts produced, by role.",
	}, []string{"role"})

	// RequestDuration tracks API request latency by route and status code.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
)

// Server serves the Prometheus scrape endpoint on its own listener.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving the scrape endpoint until Shutdown.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
