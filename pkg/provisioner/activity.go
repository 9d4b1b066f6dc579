package provisioner

import (
	"context"
	"sync"

	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/staex-io/did-provisioner/pkg/eventDecoder"
	"go.uber.org/zap"
)

const activityBuffer = 1024

// Activity is the tally of bus events seen during one run.
type Activity struct {
	BlocksScanned        uint64
	LastBlock            uint64
	BalanceEvents        uint64
	TransactionsIncluded uint64
	ApplicationEvents    map[string]uint64
}

// activityRecorder consumes the event bus for the duration of a run.
type activityRecorder struct {
	eventBus eventBusTypes.IEventBus
	consumer *eventBusTypes.Consumer
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.Logger

	activity Activity
}

func startActivityRecorder(ctx context.Context, eb eventBusTypes.IEventBus, l *zap.Logger) *activityRecorder {
	ctx, cancel := context.WithCancel(ctx)
	r := &activityRecorder{
		eventBus: eb,
		consumer: eventBusTypes.NewConsumer(ctx, activityBuffer),
		cancel:   cancel,
		logger:   l,
		activity: Activity{ApplicationEvents: make(map[string]uint64)},
	}
	eb.Subscribe(r.consumer)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case event := <-r.consumer.Channel:
				r.record(event)
			case <-ctx.Done():
				r.drain()
				return
			}
		}
	}()
	return r
}

func (r *activityRecorder) drain() {
	for {
		select {
		case event := <-r.consumer.Channel:
			r.record(event)
		default:
			return
		}
	}
}

func (r *activityRecorder) record(event *eventBusTypes.Event) {
	switch event.Name {
	case eventBusTypes.Event_BlockScanned:
		r.activity.BlocksScanned++
		if data, ok := event.Data.(*eventBusTypes.BlockScannedData); ok {
			r.activity.LastBlock = data.Height
		}
	case eventBusTypes.Event_BalanceEvent:
		r.activity.BalanceEvents++
	case eventBusTypes.Event_TransactionIncluded:
		r.activity.TransactionsIncluded++
		if data, ok := event.Data.(*eventBusTypes.TransactionIncludedData); ok {
			r.logger.Sugar().Debugw("Recorded included transaction",
				zap.String("call", data.Call),
				zap.String("block", data.Block),
				zap.Bool("finalized", data.Finalized),
			)
		}
	case eventBusTypes.Event_ApplicationEvent:
		if ev, ok := event.Data.(eventDecoder.ApplicationEvent); ok {
			r.activity.ApplicationEvents[ev.EventName()]++
		}
	}
}

// Stop unsubscribes, consumes what is still buffered and logs the tally.
func (r *activityRecorder) Stop() Activity {
	r.eventBus.Unsubscribe(r.consumer)
	r.cancel()
	r.wg.Wait()

	r.logger.Sugar().Infow("Run summary",
		zap.Uint64("blocksScanned", r.activity.BlocksScanned),
		zap.Uint64("lastBlock", r.activity.LastBlock),
		zap.Uint64("balanceEvents", r.activity.BalanceEvents),
		zap.Uint64("transactionsIncluded", r.activity.TransactionsIncluded),
		zap.Any("applicationEvents", r.activity.ApplicationEvents),
	)
	return r.activity
}
