package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/staex-io/did-provisioner/internal/config"
	"github.com/staex-io/did-provisioner/internal/logger"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/clients/substrate"
	"github.com/staex-io/did-provisioner/pkg/contractCodec"
	"github.com/staex-io/did-provisioner/pkg/eventBus"
	"github.com/staex-io/did-provisioner/pkg/metrics"
	"github.com/staex-io/did-provisioner/pkg/metrics/prometheus"
	"github.com/staex-io/did-provisioner/pkg/provisioner"
	"github.com/staex-io/did-provisioner/pkg/signer"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper(), viper.GetString(config.ConfigPath))
	if err != nil {
		return nil, nil, err
	}
	l, err := logger.NewLogger(&logger.LoggerConfig{Level: cfg.LogLevel})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialize logger")
	}
	return cfg, l, nil
}

// setupMetrics builds the metrics sink and serves prometheus until ctx is done.
func setupMetrics(ctx context.Context, cfg *config.Config, l *zap.Logger) (*metrics.MetricsSink, error) {
	metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup metrics clients")
	}
	sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients.Clients)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup metrics sink")
	}
	if metricsClients.Prometheus != nil {
		pServer := prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
			Port: cfg.Metrics.PrometheusPort,
		}, metricsClients.Prometheus.Registry(), l)
		pServer.Start(ctx)
	}
	return sink, nil
}

func newChainClient(cfg *config.Config, l *zap.Logger) (*chain.NodeClient, error) {
	clientCfg := substrate.DefaultSubstrateClientConfig()
	clientCfg.BaseUrl = cfg.RpcUrl
	rpc, err := substrate.NewClient(clientCfg, l)
	if err != nil {
		return nil, err
	}
	return chain.NewNodeClient(rpc, l), nil
}

type provisionerOptions struct {
	// withContract loads the contract metadata; the faucet does not need it.
	withContract bool
}

func newProvisioner(ctx context.Context, cfg *config.Config, l *zap.Logger, opts provisionerOptions) (*provisioner.Provisioner, *metrics.MetricsSink, error) {
	sink, err := setupMetrics(ctx, cfg, l)
	if err != nil {
		return nil, nil, err
	}
	cc, err := newChainClient(cfg, l)
	if err != nil {
		return nil, nil, err
	}

	var codec *contractCodec.Codec
	if opts.withContract {
		codec, err = contractCodec.Load(cfg.DID.MetadataPath, l)
		if err != nil {
			return nil, nil, err
		}
	}
	s, err := signer.FromConfig(signer.SignerType(cfg.Signer.Typ), cfg.Signer.Val)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create signer")
	}
	l.Sugar().Infow("Using signer", zap.String("address", s.GetAddress()))

	p, err := provisioner.NewProvisioner(cfg, cc, codec, s, sink, eventBus.NewEventBus(l), l)
	if err != nil {
		return nil, nil, err
	}
	return p, sink, nil
}
