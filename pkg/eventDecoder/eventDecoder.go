// Package eventDecoder filters ledger events for the ones the provisioner
// cares about and decodes the DID contract's own events.
package eventDecoder

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/internal/logger"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/staex-io/did-provisioner/pkg/metrics"
	"github.com/staex-io/did-provisioner/pkg/metrics/metricsTypes"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/units"
	"go.uber.org/zap"
)

type EventDecoder struct {
	contract    ss58.AccountID
	eventBus    eventBusTypes.IEventBus
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func NewEventDecoder(contract ss58.AccountID, eb eventBusTypes.IEventBus, ms *metrics.MetricsSink, l *zap.Logger) *EventDecoder {
	return &EventDecoder{
		contract:    contract,
		eventBus:    eb,
		metricsSink: ms,
		logger:      l,
	}
}

func dot(a units.Amount) string {
	return a.Decimal().String() + " DOT"
}

// ProcessEvents handles the events of one block in order. The first event
// that fails to decode aborts the rest of the block.
func (d *EventDecoder) ProcessEvents(events []chain.LedgerEvent) error {
	for i, ev := range events {
		_ = d.metricsSink.Incr(metricsTypes.Metric_Incr_LedgerEvent, []metricsTypes.MetricsLabel{
			{Name: "pallet", Value: ev.Pallet},
			{Name: "event", Value: ev.Name},
		}, 1)

		switch body := ev.Body.(type) {
		case chain.ContractEmitted:
			if err := d.handleContractEmitted(body); err != nil {
				d.logger.Sugar().Errorw("Failed to decode contract event",
					zap.Int("eventIndex", i),
					zap.String("contract", body.Contract.String()),
					zap.Error(err),
				)
				return errors.Wrapf(err, "event %d", i)
			}
		case chain.BalanceTransfer:
			d.logger.Sugar().Infow("Balance transfer",
				zap.String("from", body.From.String()),
				zap.String("to", body.To.String()),
				zap.String("amount", dot(body.Amount)),
			)
			d.publish(eventBusTypes.Event_BalanceEvent, body)
		case chain.BalanceWithdraw:
			d.logger.Sugar().Debugw("Balance withdraw",
				zap.String("who", body.Who.String()),
				zap.String("amount", dot(body.Amount)),
			)
			d.publish(eventBusTypes.Event_BalanceEvent, body)
		default:
			logger.Trace(d.logger, "Ledger event",
				zap.String("pallet", ev.Pallet),
				zap.String("name", ev.Name),
			)
		}
	}
	return nil
}

func (d *EventDecoder) handleContractEmitted(body chain.ContractEmitted) error {
	if !body.Contract.Equal(d.contract) {
		logger.Trace(d.logger, "Skipping event of another contract", zap.String("contract", body.Contract.String()))
		return nil
	}
	if len(body.Data) == 0 {
		return nil
	}
	ev, err := DecodeApplicationEvent(body.Data)
	if err != nil {
		return err
	}

	d.logger.Sugar().Infow("Contract event",
		zap.String("event", ev.EventName()),
		zap.Any("data", ev),
	)
	_ = d.metricsSink.Incr(metricsTypes.Metric_Incr_ApplicationEvent, []metricsTypes.MetricsLabel{
		{Name: "event", Value: ev.EventName()},
	}, 1)
	d.publish(eventBusTypes.Event_ApplicationEvent, ev)
	return nil
}

func (d *EventDecoder) publish(name eventBusTypes.EventName, data any) {
	if d.eventBus == nil {
		return
	}
	d.eventBus.Publish(&eventBusTypes.Event{Name: name, Data: data})
}
