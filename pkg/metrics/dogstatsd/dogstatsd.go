package dogstatsd

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/staex-io/did-provisioner/pkg/metrics/metricsTypes"
	"github.com/staex-io/did-provisioner/pkg/utils"
	"go.uber.org/zap"
)

const namespace = "provisioner."

type DogStatsdClient struct {
	client statsd.ClientInterface
	logger *zap.Logger
}

func NewDogStatsdMetricsClient(addr string, l *zap.Logger) (*DogStatsdClient, error) {
	client, err := statsd.New(addr, statsd.WithNamespace(namespace))
	if err != nil {
		return nil, err
	}
	return NewDogStatsdClientWith(client, l), nil
}

// NewDogStatsdClientWith wraps an existing statsd client.
func NewDogStatsdClientWith(client statsd.ClientInterface, l *zap.Logger) *DogStatsdClient {
	return &DogStatsdClient{client: client, logger: l}
}

func formatTags(labels []metricsTypes.MetricsLabel) []string {
	return utils.Map(labels, func(label metricsTypes.MetricsLabel, i uint64) string {
		return label.Name + ":" + label.Value
	})
}

func (d *DogStatsdClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return d.client.Count(name, int64(value), formatTags(labels), 1)
}

func (d *DogStatsdClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return d.client.Gauge(name, value, formatTags(labels), 1)
}

func (d *DogStatsdClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return d.client.Timing(name, value, formatTags(labels), 1)
}

func (d *DogStatsdClient) Flush() {
	if err := d.client.Flush(); err != nil {
		d.logger.Sugar().Warnw("Failed to flush statsd client", zap.Error(err))
	}
}
