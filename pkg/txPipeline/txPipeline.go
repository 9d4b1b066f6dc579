// Package txPipeline runs contract queries and drives signed extrinsics from
// submission to inclusion.
package txPipeline

import (
	"bytes"
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/contractCodec"
	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/staex-io/did-provisioner/pkg/eventDecoder"
	"github.com/staex-io/did-provisioner/pkg/extrinsic"
	"github.com/staex-io/did-provisioner/pkg/metrics"
	"github.com/staex-io/did-provisioner/pkg/metrics/metricsTypes"
	"github.com/staex-io/did-provisioner/pkg/signer"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var (
	ErrDryRunReverted      = errors.New("contract reverted during dry-run")
	ErrTimeout             = errors.New("timed out waiting for transaction status")
	ErrExtrinsicNotInBlock = errors.New("submitted extrinsic not found in block")
)

const DefaultTxTimeout = 5 * time.Minute

type TxPipelineConfig struct {
	Contract  ss58.AccountID
	TxTimeout time.Duration
}

// Receipt describes an included extrinsic.
type Receipt struct {
	Status         chain.TxStatus
	ExtrinsicIndex int
	Events         []chain.LedgerEvent
}

type TxPipeline struct {
	config      *TxPipelineConfig
	chain       chain.ChainClient
	codec       *contractCodec.Codec
	decoder     *eventDecoder.EventDecoder
	signer      signer.SignerProvider
	metricsSink *metrics.MetricsSink
	eventBus    eventBusTypes.IEventBus
	logger      *zap.Logger

	// one lock per signing account, held from nonce read to final status
	accountLocks sync.Map
}

func NewTxPipeline(
	cfg *TxPipelineConfig,
	cc chain.ChainClient,
	codec *contractCodec.Codec,
	decoder *eventDecoder.EventDecoder,
	s signer.SignerProvider,
	ms *metrics.MetricsSink,
	eb eventBusTypes.IEventBus,
	l *zap.Logger,
) *TxPipeline {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = DefaultTxTimeout
	}
	return &TxPipeline{
		config:      cfg,
		chain:       cc,
		codec:       codec,
		decoder:     decoder,
		signer:      s,
		metricsSink: ms,
		eventBus:    eb,
		logger:      l,
	}
}

func (p *TxPipeline) lockAccount(account ss58.AccountID) func() {
	v, _ := p.accountLocks.LoadOrStore(account, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (p *TxPipeline) dryRun(ctx context.Context, message string, args []string) ([]byte, *contractCodec.DryRunResult, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "txPipeline.DryRun")
	span.SetTag("message", message)
	defer span.Finish()

	data, err := p.codec.EncodeCall(message, args)
	if err != nil {
		span.SetTag("error", true)
		return nil, nil, err
	}

	start := time.Now()
	raw, err := p.chain.DryRunContractCall(ctx, p.signer.AccountID(), p.config.Contract, data)
	_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_DryRunDuration, time.Since(start), []metricsTypes.MetricsLabel{
		{Name: "message", Value: message},
		{Name: "hasError", Value: strconv.FormatBool(err != nil)},
	})
	if err != nil {
		span.SetTag("error", true)
		span.SetTag("error.message", err.Error())
		return nil, nil, errors.Wrapf(err, "dry-run of '%s' failed", message)
	}
	if len(raw.DebugMessage) > 0 {
		p.logger.Sugar().Debugw("message logs",
			zap.String("message", message),
			zap.ByteString("logs", raw.DebugMessage),
		)
	}

	res, err := p.codec.NewDryRunResult(message, raw)
	if err != nil {
		span.SetTag("error", true)
		return nil, nil, err
	}
	span.SetTag("ref_time", res.GasRequired.RefTime)
	span.SetTag("proof_size", res.GasRequired.ProofSize)
	span.SetTag("reverted", res.Reverted)
	return data, res, nil
}

// Query dry-runs a contract message. Nothing is submitted.
func (p *TxPipeline) Query(ctx context.Context, message string, args []string) (*contractCodec.DryRunResult, error) {
	_, res, err := p.dryRun(ctx, message, args)
	return res, err
}

// QueryBool dry-runs a message returning Result<bool, LangError>.
func (p *TxPipeline) QueryBool(ctx context.Context, message string, args []string) (bool, error) {
	res, err := p.Query(ctx, message, args)
	if err != nil {
		return false, err
	}
	return res.GetMessageResult()
}

// Execute dry-runs message for its gas requirement, then submits a
// Contracts.call carrying that gas limit and waits for inclusion.
func (p *TxPipeline) Execute(ctx context.Context, message string, args []string) (*Receipt, error) {
	data, res, err := p.dryRun(ctx, message, args)
	if err != nil {
		return nil, err
	}
	if res.Reverted {
		return nil, errors.Wrapf(ErrDryRunReverted, "'%s': %s", message, res.Data)
	}
	rt, err := p.chain.Runtime(ctx)
	if err != nil {
		return nil, err
	}
	call, err := extrinsic.ContractsCall(rt.Metadata, p.config.Contract, big.NewInt(0), res.GasRequired.RefTime, res.GasRequired.ProofSize, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build call for '%s'", message)
	}
	p.logger.Sugar().Debugw("Executing contract message",
		zap.String("message", message),
		zap.Uint64("refTime", res.GasRequired.RefTime),
		zap.Uint64("proofSize", res.GasRequired.ProofSize),
	)
	return p.Submit(ctx, call, p.signer)
}

func callLabel(call extrinsic.Call) string {
	return call.Pallet + "." + call.Name
}

func (p *TxPipeline) signCall(ctx context.Context, call extrinsic.Call, s signer.SignerProvider) ([]byte, error) {
	rt, err := p.chain.Runtime(ctx)
	if err != nil {
		return nil, err
	}
	best, err := p.chain.ResolveBlockHash(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve best block")
	}
	nonce, err := p.chain.GetNonce(ctx, s.AccountID(), best)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read nonce")
	}
	genesis, err := rt.GenesisHash.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "invalid genesis hash")
	}
	ext, err := extrinsic.Sign(rt.Metadata, call, s, extrinsic.SigningParams{
		Nonce:              nonce,
		SpecVersion:        rt.SpecVersion,
		TransactionVersion: rt.TransactionVersion,
		GenesisHash:        genesis,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign extrinsic")
	}
	p.logger.Sugar().Debugw("Signed extrinsic",
		zap.String("call", callLabel(call)),
		zap.String("signer", s.GetAddress()),
		zap.Uint64("nonce", nonce),
	)
	return ext, nil
}

// Submit signs call with s, submits it and waits for the first terminal
// status. Included extrinsics are checked for ExtrinsicFailed and their
// block's events are fed to the event decoder.
func (p *TxPipeline) Submit(ctx context.Context, call extrinsic.Call, s signer.SignerProvider) (*Receipt, error) {
	label := callLabel(call)
	span, ctx := ddTracer.StartSpanFromContext(ctx, "txPipeline.Submit")
	span.SetTag("call", label)
	defer span.Finish()

	unlock := p.lockAccount(s.AccountID())
	defer unlock()

	receipt, err := p.submit(ctx, call, s)
	if err != nil {
		span.SetTag("error", true)
		span.SetTag("error.message", err.Error())
		_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_TransactionFailed, []metricsTypes.MetricsLabel{
			{Name: "call", Value: label},
			{Name: "reason", Value: failureReason(err)},
		}, 1)
		return nil, err
	}
	return receipt, nil
}

func failureReason(err error) string {
	var txErr *chain.TransactionError
	var dispatchErr *chain.DispatchError
	switch {
	case errors.As(err, &txErr):
		return txErr.Kind.String()
	case errors.As(err, &dispatchErr):
		return "dispatch"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, chain.ErrSubscriptionDropped):
		return "subscription_dropped"
	default:
		return "other"
	}
}

func (p *TxPipeline) submit(ctx context.Context, call extrinsic.Call, s signer.SignerProvider) (*Receipt, error) {
	label := callLabel(call)
	ext, err := p.signCall(ctx, call, s)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithTimeout(ctx, p.config.TxTimeout)
	defer cancel()

	start := time.Now()
	stream, err := p.chain.SubmitAndWatch(watchCtx, ext)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_TransactionSubmitted, []metricsTypes.MetricsLabel{
		{Name: "call", Value: label},
	}, 1)

	for {
		status, ok, err := stream.Next(watchCtx)
		if err != nil {
			if watchCtx.Err() != nil && ctx.Err() == nil {
				return nil, errors.Wrapf(ErrTimeout, "%s after %s", label, p.config.TxTimeout)
			}
			return nil, errors.Wrap(err, "failed to read transaction status")
		}
		if !ok {
			return nil, chain.ErrSubscriptionDropped
		}
		p.logger.Sugar().Debugw("Transaction status",
			zap.String("call", label),
			zap.String("status", status.Kind.String()),
			zap.String("block", status.Block.String()),
		)
		if !status.Kind.IsTerminal() {
			continue
		}

		_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_FinalityDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "call", Value: label},
			{Name: "status", Value: status.Kind.String()},
		})
		if !status.Kind.IsIncluded() {
			p.logger.Sugar().Errorw("Transaction was not included",
				zap.String("call", label),
				zap.String("status", status.Kind.String()),
				zap.String("message", status.Message),
			)
			return nil, &chain.TransactionError{Kind: status.Kind, Message: status.Message}
		}
		return p.onIncluded(ctx, label, ext, status)
	}
}

func (p *TxPipeline) onIncluded(ctx context.Context, label string, ext []byte, status chain.TxStatus) (*Receipt, error) {
	extrinsics, err := p.chain.GetBlockExtrinsics(ctx, status.Block)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch block %s", status.Block)
	}
	index := -1
	for i, e := range extrinsics {
		if bytes.Equal(e, ext) {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, errors.Wrapf(ErrExtrinsicNotInBlock, "%s in %s", label, status.Block)
	}

	events, err := p.chain.GetBlockEvents(ctx, status.Block)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch events of %s", status.Block)
	}
	for _, ev := range events {
		if failed, ok := ev.Body.(chain.ExtrinsicFailed); ok && ev.Phase.AppliesTo(uint32(index)) {
			p.logger.Sugar().Errorw("Extrinsic failed",
				zap.String("call", label),
				zap.String("block", status.Block.String()),
				zap.Int("extrinsicIndex", index),
				zap.Error(failed.Error),
			)
			return nil, failed.Error
		}
	}

	p.logger.Sugar().Infow("Transaction included",
		zap.String("call", label),
		zap.String("status", status.Kind.String()),
		zap.String("block", status.Block.String()),
		zap.Int("extrinsicIndex", index),
	)
	_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_TransactionIncluded, []metricsTypes.MetricsLabel{
		{Name: "call", Value: label},
		{Name: "status", Value: status.Kind.String()},
	}, 1)
	if p.eventBus != nil {
		p.eventBus.Publish(&eventBusTypes.Event{
			Name: eventBusTypes.Event_TransactionIncluded,
			Data: &eventBusTypes.TransactionIncludedData{
				Call:           label,
				Block:          status.Block.String(),
				ExtrinsicIndex: index,
				Finalized:      status.Kind == chain.StatusInFinalizedBlock,
			},
		})
	}

	if err := p.decoder.ProcessEvents(events); err != nil {
		return nil, errors.Wrap(err, "failed to process block events")
	}
	return &Receipt{Status: status, ExtrinsicIndex: index, Events: events}, nil
}

// Sync reads the DID value, flips it and reads it again.
func (p *TxPipeline) Sync(ctx context.Context) error {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "txPipeline.Sync")
	defer span.Finish()

	before, err := p.QueryBool(ctx, "get", nil)
	if err != nil {
		return errors.Wrap(err, "failed to get value")
	}
	p.logger.Sugar().Infow("value before executing", zap.Bool("value", before))

	if _, err := p.Execute(ctx, "flip", nil); err != nil {
		return errors.Wrap(err, "failed to flip value")
	}

	after, err := p.QueryBool(ctx, "get", nil)
	if err != nil {
		return errors.Wrap(err, "failed to get value")
	}
	p.logger.Sugar().Infow("value after executing", zap.Bool("value", after))
	return nil
}
