// Package metrics fans metric writes out to every configured backend.
package metrics

import (
	"time"

	"github.com/staex-io/did-provisioner/internal/config"
	"github.com/staex-io/did-provisioner/pkg/metrics/dogstatsd"
	"github.com/staex-io/did-provisioner/pkg/metrics/metricsTypes"
	"github.com/staex-io/did-provisioner/pkg/metrics/prometheus"
	"go.uber.org/zap"
)

type MetricsSinkConfig struct{}

type MetricsSink struct {
	config  *MetricsSinkConfig
	clients []metricsTypes.IMetricsClient
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient) (*MetricsSink, error) {
	return &MetricsSink{
		config:  cfg,
		clients: clients,
	}, nil
}

// NewNoopSink returns a sink without backends, for commands and tests that
// do not report metrics.
func NewNoopSink() *MetricsSink {
	return &MetricsSink{config: &MetricsSinkConfig{}}
}

// MetricsClients is what InitMetricsSinksFromConfig built. Prometheus is
// kept separately so the caller can serve its registry.
type MetricsClients struct {
	Clients    []metricsTypes.IMetricsClient
	Prometheus *prometheus.PrometheusMetricsClient
}

func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) (*MetricsClients, error) {
	out := &MetricsClients{Clients: make([]metricsTypes.IMetricsClient, 0)}

	if cfg.Metrics.StatsdEnabled {
		dd, err := dogstatsd.NewDogStatsdMetricsClient(cfg.Metrics.StatsdUrl, l)
		if err != nil {
			l.Sugar().Errorw("Failed to create statsd client", zap.Error(err))
			return nil, err
		}
		out.Clients = append(out.Clients, dd)
	}

	if cfg.Metrics.PrometheusEnabled {
		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics: metricsTypes.MetricTypes,
		}, l)
		if err != nil {
			l.Sugar().Errorw("Failed to create prometheus client", zap.Error(err))
			return nil, err
		}
		out.Clients = append(out.Clients, pm)
		out.Prometheus = pm
	}
	return out, nil
}

func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	for _, client := range ms.clients {
		if err := client.Incr(name, labels, value); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	for _, client := range ms.clients {
		if err := client.Gauge(name, value, labels); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	for _, client := range ms.clients {
		if err := client.Timing(name, value, labels); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Flush() {
	for _, client := range ms.clients {
		client.Flush()
	}
}
