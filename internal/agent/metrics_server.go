package agent

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/buildagent/internal/logfields"
)

// MetricsServer exposes the Prometheus registry on /metrics.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer builds the server for listenAddr (e.g. ":9181").
func NewMetricsServer(listenAddr string, reg *prom.Registry) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &MetricsServer{
		server: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background; listen failures are logged, not fatal.
func (m *MetricsServer) Start() {
	go func() {
		slog.Info("Metrics endpoint listening", slog.String("addr", m.server.Addr))
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Metrics server stopped", logfields.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully.
func (m *MetricsServer) Stop(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}
