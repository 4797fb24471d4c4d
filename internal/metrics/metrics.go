// Package metrics instruments backend calls with Prometheus and serves them.
package metrics

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeTransport = "transport"
)

// Observer counts backend requests and their latency by method, route and outcome.
// It satisfies api.Observer.
type Observer struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewObserver registers the collectors on a fresh registry
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billbuddy",
			Name:      "backend_requests_total",
			Help:      "Backend API requests by method, route, status and outcome.",
		}, []string{"method", "route", "status", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billbuddy",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "outcome"}),
	}
	o.registry.MustRegister(o.requests, o.latency)
	return o
}

// ObserveRequest records one call
func (o *Observer) ObserveRequest(method, route string, status int, transport bool, elapsed time.Duration) {
	outcome := OutcomeOK
	switch {
	case transport:
		outcome = OutcomeTransport
	case status < 200 || status >= 300:
		outcome = OutcomeFailed
	}
	o.requests.WithLabelValues(method, route, strconv.Itoa(status), outcome).Inc()
	o.latency.WithLabelValues(method, route, outcome).Observe(elapsed.Seconds())
}

// Gatherer exposes the registry
func (o *Observer) Gatherer() prometheus.Gatherer {
	return o.registry
}

// Server serves /health and /metrics
type Server struct {
	srv *http.Server
}

// NewServer builds the endpoint for addr
func NewServer(addr string, o *Observer) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(o.Gatherer(), promhttp.HandlerOpts{}))

	return &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens in the background. Bind errors are returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	go func() { _ = s.srv.Serve(ln) }()
	return nil
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
