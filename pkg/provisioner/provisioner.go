// Package provisioner wires the pipeline, scanner and faucet into the
// commands the CLI exposes.
package provisioner

import (
	"context"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/internal/config"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/contractCodec"
	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/staex-io/did-provisioner/pkg/eventDecoder"
	"github.com/staex-io/did-provisioner/pkg/metrics"
	"github.com/staex-io/did-provisioner/pkg/scanner"
	"github.com/staex-io/did-provisioner/pkg/signer"
	"github.com/staex-io/did-provisioner/pkg/txPipeline"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

type Provisioner struct {
	config   *config.Config
	chain    chain.ChainClient
	Pipeline *txPipeline.TxPipeline
	Scanner  *scanner.Scanner
	eventBus eventBusTypes.IEventBus
	logger   *zap.Logger
}

// NewProvisioner builds the pipeline and scanner for cfg. The codec is
// only needed for contract calls and may be nil for faucet-only use.
func NewProvisioner(
	cfg *config.Config,
	cc chain.ChainClient,
	codec *contractCodec.Codec,
	s signer.SignerProvider,
	ms *metrics.MetricsSink,
	eb eventBusTypes.IEventBus,
	l *zap.Logger,
) (*Provisioner, error) {
	contract, err := cfg.ContractAccount()
	if err != nil {
		return nil, err
	}
	decoder := eventDecoder.NewEventDecoder(contract, eb, ms, l)
	pipeline := txPipeline.NewTxPipeline(&txPipeline.TxPipelineConfig{
		Contract:  contract,
		TxTimeout: cfg.TxTimeoutDuration(),
	}, cc, codec, decoder, s, ms, eb, l)
	sc := scanner.NewScanner(&scanner.ScannerConfig{
		StartBlock: cfg.DID.ExplorerStartBlock,
	}, cc, decoder, ms, eb, l)

	return &Provisioner{
		config:   cfg,
		chain:    cc,
		Pipeline: pipeline,
		Scanner:  sc,
		eventBus: eb,
		logger:   l,
	}, nil
}

// Run syncs the DID record and then scans the chain, each when enabled.
// Bus activity seen meanwhile is logged as a summary on return.
func (p *Provisioner) Run(ctx context.Context) error {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "provisioner.Run")
	defer span.Finish()

	attrs := p.config.DID.Attributes
	p.logger.Sugar().Infow("Starting provisioner",
		zap.String("contract", p.config.DID.ContractAddress),
		zap.Bool("sync", p.config.DID.Sync),
		zap.Bool("explorer", p.config.DID.Explorer),
		zap.String("dataType", attrs.DataType),
		zap.String("location", attrs.Location),
		zap.String("priceAccess", attrs.PriceAccess),
		zap.String("pinAccess", attrs.PinAccess),
		zap.Any("additional", attrs.Additional),
	)

	if p.eventBus != nil {
		recorder := startActivityRecorder(ctx, p.eventBus, p.logger)
		defer recorder.Stop()
	}

	if p.config.DID.Sync {
		if err := p.Pipeline.Sync(ctx); err != nil {
			span.SetTag("error", true)
			return errors.Wrap(err, "sync failed")
		}
	}
	if p.config.DID.Explorer {
		if _, err := p.Scanner.Run(ctx); err != nil {
			span.SetTag("error", true)
			return errors.Wrap(err, "explorer failed")
		}
	}
	return nil
}
