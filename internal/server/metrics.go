package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blag/scheduler/internal/instrumentation"
)

// DefaultMetricsAddr is the default listen address of the metrics server.
const DefaultMetricsAddr = ":9090"

const (
	metricsReadTimeout  = 10 * time.Second
	metricsWriteTimeout = 10 * time.Second
	metricsIdleTimeout  = 60 * time.Second
)

// MetricsServer serves Prometheus metrics on a dedicated port, keeping the
// scrape endpoint off the guest-facing listener.
type MetricsServer struct {
	addr       string
	logger     *slog.Logger
	httpServer *http.Server
}

// NewMetricsServer creates a metrics server exposing /metrics. It requires
// an enabled instrumentation provider; with instrumentation disabled there is
// nothing to scrape and callers should not start one.
func NewMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*MetricsServer, error) {
	if provider == nil || !provider.Enabled() {
		return nil, fmt.Errorf("metrics server requires enabled instrumentation")
	}
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsServer{addr: addr, logger: logger}, nil
}

// Start runs the metrics server. It blocks; run it in a goroutine.
func (s *MetricsServer) Start() error {
	mux := http.NewServeMux()

	// The OpenTelemetry prometheus exporter registers with the global
	// Prometheus registry, which promhttp.Handler exposes.
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadTimeout,
		WriteTimeout:      metricsWriteTimeout,
		IdleTimeout:       metricsIdleTimeout,
	}

	s.logger.Info("starting metrics server", slog.String("addr", s.addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *MetricsServer) Addr() string {
	return s.addr
}
