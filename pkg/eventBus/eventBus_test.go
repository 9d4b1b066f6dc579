package eventBus

import (
	"context"
	"testing"

	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_EventBus(t *testing.T) {
	eb := NewEventBus(zap.NewNop())

	t.Run("Should deliver to every subscriber", func(t *testing.T) {
		a := eventBusTypes.NewConsumer(context.Background(), 1)
		b := eventBusTypes.NewConsumer(context.Background(), 1)
		assert.NotEqual(t, a.Id, b.Id)
		eb.Subscribe(a)
		eb.Subscribe(b)
		defer eb.Unsubscribe(a)
		defer eb.Unsubscribe(b)

		eb.Publish(&eventBusTypes.Event{
			Name: eventBusTypes.Event_BlockScanned,
			Data: &eventBusTypes.BlockScannedData{Height: 3},
		})
		for _, c := range []*eventBusTypes.Consumer{a, b} {
			got := <-c.Channel
			assert.Equal(t, eventBusTypes.Event_BlockScanned, got.Name)
			assert.Equal(t, uint64(3), got.Data.(*eventBusTypes.BlockScannedData).Height)
		}
	})
	t.Run("Should not block on a full channel", func(t *testing.T) {
		c := eventBusTypes.NewConsumer(context.Background(), 1)
		eb.Subscribe(c)
		defer eb.Unsubscribe(c)

		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_BalanceEvent})
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_ApplicationEvent})
		assert.Len(t, c.Channel, 1)
		assert.Equal(t, eventBusTypes.Event_BalanceEvent, (<-c.Channel).Name)
	})
	t.Run("Should skip cancelled and removed consumers", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancelled := eventBusTypes.NewConsumer(ctx, 1)
		removed := eventBusTypes.NewConsumer(context.Background(), 1)
		eb.Subscribe(cancelled)
		eb.Subscribe(removed)
		cancel()
		eb.Unsubscribe(removed)

		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_BlockScanned})
		assert.Len(t, cancelled.Channel, 0)
		assert.Len(t, removed.Channel, 0)
		eb.Unsubscribe(cancelled)
	})
}
