// Package scanner walks the chain from a start height and feeds every
// block's events to the event decoder.
package scanner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/staex-io/did-provisioner/pkg/eventDecoder"
	"github.com/staex-io/did-provisioner/pkg/metrics"
	"github.com/staex-io/did-provisioner/pkg/metrics/metricsTypes"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const defaultProgressInterval = 1000

type ScannerConfig struct {
	StartBlock uint64
	// ProgressInterval is how many blocks pass between progress logs.
	ProgressInterval uint64
}

type Scanner struct {
	config      *ScannerConfig
	chain       chain.ChainClient
	decoder     *eventDecoder.EventDecoder
	metricsSink *metrics.MetricsSink
	eventBus    eventBusTypes.IEventBus
	logger      *zap.Logger
}

func NewScanner(
	cfg *ScannerConfig,
	cc chain.ChainClient,
	decoder *eventDecoder.EventDecoder,
	ms *metrics.MetricsSink,
	eb eventBusTypes.IEventBus,
	l *zap.Logger,
) *Scanner {
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	return &Scanner{
		config:      cfg,
		chain:       cc,
		decoder:     decoder,
		metricsSink: ms,
		eventBus:    eb,
		logger:      l,
	}
}

// Run scans from the configured start block until the first height the node
// does not know, then returns. It returns the next unscanned height.
func (s *Scanner) Run(ctx context.Context) (uint64, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "scanner.Run")
	span.SetTag("start_block", s.config.StartBlock)
	defer span.Finish()

	height := s.config.StartBlock
	progress := NewProgress(height, s.logger)
	s.logger.Sugar().Infow("Starting explorer", zap.Uint64("startBlock", height))

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Sugar().Infow("Explorer cancelled", zap.Uint64("block", height))
			return height, err
		}

		found, events, err := s.scanBlock(ctx, height)
		if err != nil {
			span.SetTag("error", true)
			span.SetTag("error.message", err.Error())
			span.SetTag("failed_block", height)
			return height, err
		}
		if !found {
			progress.Print()
			s.logger.Sugar().Infow("Reached the end of the chain, stopping explorer",
				zap.Uint64("nextBlock", height),
				zap.Uint64("blocksScanned", progress.BlocksProcessed()),
			)
			span.SetTag("blocks_scanned", progress.BlocksProcessed())
			return height, nil
		}

		height++
		progress.Update(height, events)
		if progress.BlocksProcessed()%s.config.ProgressInterval == 0 {
			progress.Print()
		}
	}
}

func (s *Scanner) scanBlock(ctx context.Context, height uint64) (bool, int, error) {
	blockSpan, ctx := ddTracer.StartSpanFromContext(ctx, "scanner.ScanBlock")
	blockSpan.SetTag("block_number", height)
	defer blockSpan.Finish()
	start := time.Now()

	hash, err := s.chain.ResolveBlockHash(ctx, &height)
	if errors.Is(err, chain.ErrBlockNotFound) {
		return false, 0, nil
	}
	if err != nil {
		s.logger.Sugar().Errorw("Failed to resolve block hash", zap.Uint64("block", height), zap.Error(err))
		blockSpan.SetTag("error", true)
		return false, 0, errors.Wrapf(err, "failed to resolve block %d", height)
	}

	events, err := s.chain.GetBlockEvents(ctx, hash)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to fetch block events",
			zap.Uint64("block", height),
			zap.String("hash", hash.String()),
			zap.Error(err),
		)
		blockSpan.SetTag("error", true)
		return false, 0, errors.Wrapf(err, "failed to fetch events of block %d", height)
	}
	s.logger.Sugar().Debugw("Scanning block",
		zap.Uint64("block", height),
		zap.String("hash", hash.String()),
		zap.Int("events", len(events)),
	)

	if err := s.decoder.ProcessEvents(events); err != nil {
		blockSpan.SetTag("error", true)
		blockSpan.SetTag("error.message", err.Error())
		return false, 0, errors.Wrapf(err, "block %d", height)
	}

	_ = s.metricsSink.Incr(metricsTypes.Metric_Incr_BlockScanned, nil, 1)
	_ = s.metricsSink.Gauge(metricsTypes.Metric_Gauge_CurrentBlockHeight, float64(height), nil)
	if s.eventBus != nil {
		s.eventBus.Publish(&eventBusTypes.Event{
			Name: eventBusTypes.Event_BlockScanned,
			Data: &eventBusTypes.BlockScannedData{
				Height: height,
				Hash:   hash.String(),
				Events: len(events),
			},
		})
	}
	blockSpan.SetTag("events", len(events))
	blockSpan.SetTag("duration_ms", time.Since(start).Milliseconds())
	return true, len(events), nil
}
