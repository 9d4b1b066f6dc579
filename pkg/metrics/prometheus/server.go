package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type PrometheusServerConfig struct {
	Port int
}

// PrometheusServer serves /metrics for a single registry.
type PrometheusServer struct {
	config   *PrometheusServerConfig
	registry *prometheus.Registry
	logger   *zap.Logger
	server   *http.Server
}

func NewPrometheusServer(config *PrometheusServerConfig, registry *prometheus.Registry, l *zap.Logger) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return &PrometheusServer{
		config:   config,
		registry: registry,
		logger:   l,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (ps *PrometheusServer) Handler() http.Handler {
	return ps.server.Handler
}

// Start serves in the background until ctx is done.
func (ps *PrometheusServer) Start(ctx context.Context) {
	go func() {
		ps.logger.Sugar().Infow("Starting prometheus server", zap.Int("port", ps.config.Port))
		if err := ps.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ps.logger.Sugar().Errorw("Prometheus server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ps.server.Shutdown(shutdownCtx)
	}()
}
