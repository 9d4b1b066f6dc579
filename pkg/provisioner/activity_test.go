package provisioner

import (
	"context"
	"testing"

	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/eventBus"
	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/staex-io/did-provisioner/pkg/eventDecoder"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func Test_ActivityRecorder(t *testing.T) {
	t.Run("Should count published events until stopped", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		l := zap.New(core)
		eb := eventBus.NewEventBus(l)

		r := startActivityRecorder(context.Background(), eb, l)
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_ApplicationEvent, Data: eventDecoder.BeforeFlipping{Field2: "x"}})
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_ApplicationEvent, Data: eventDecoder.AfterFlipping{Field3: true}})
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_ApplicationEvent, Data: eventDecoder.AfterFlipping{}})
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_BalanceEvent, Data: chain.BalanceWithdraw{}})
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_TransactionIncluded, Data: &eventBusTypes.TransactionIncludedData{Call: "flip", Block: "0x01"}})
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_BlockScanned, Data: &eventBusTypes.BlockScannedData{Height: 7}})

		activity := r.Stop()
		assert.Equal(t, uint64(1), activity.BlocksScanned)
		assert.Equal(t, uint64(7), activity.LastBlock)
		assert.Equal(t, uint64(1), activity.BalanceEvents)
		assert.Equal(t, uint64(1), activity.TransactionsIncluded)
		assert.Equal(t, map[string]uint64{"BeforeFlipping": 1, "AfterFlipping": 2}, activity.ApplicationEvents)
		assert.Equal(t, 1, logs.FilterMessage("Run summary").Len())

		// unsubscribed consumers see nothing further
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_BlockScanned, Data: &eventBusTypes.BlockScannedData{Height: 8}})
		assert.Equal(t, uint64(1), r.activity.BlocksScanned)
	})
}
