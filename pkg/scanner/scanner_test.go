package scanner

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/internal/tests/fakeChain"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/eventBus"
	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
	"github.com/staex-io/did-provisioner/pkg/eventDecoder"
	"github.com/staex-io/did-provisioner/pkg/metrics"
	"github.com/staex-io/did-provisioner/pkg/scale"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/units"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var (
	contract = ss58.MustParseAccountID("5H4UGYpLFL2aobsv71CsiFwfcXe9yoSMGtrc6VENGzGRyQZa")
	alice    = ss58.MustParseAccountID("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY")
)

func contractEvent(tag byte) chain.LedgerEvent {
	e := scale.NewEncoder()
	e.U8(tag).Raw(alice.Bytes()).U64(1).String("did").Bool(true)
	return chain.LedgerEvent{
		Pallet: "Contracts",
		Name:   "ContractEmitted",
		Body:   chain.ContractEmitted{Contract: contract, Data: e.Bytes()},
	}
}

func transfer() chain.LedgerEvent {
	return chain.LedgerEvent{
		Pallet: "Balances",
		Name:   "Transfer",
		Body:   chain.BalanceTransfer{From: alice, To: contract, Amount: units.FromPlanckUint64(10)},
	}
}

func newScanner(fc *fakeChain.Chain, start uint64) (*Scanner, *eventBusTypes.Consumer) {
	l := zap.NewNop()
	bus := eventBus.NewEventBus(l)
	consumer := eventBusTypes.NewConsumer(context.Background(), 64)
	bus.Subscribe(consumer)
	ms := metrics.NewNoopSink()
	decoder := eventDecoder.NewEventDecoder(contract, bus, ms, l)
	return NewScanner(&ScannerConfig{StartBlock: start, ProgressInterval: 2}, fc, decoder, ms, bus, l), consumer
}

func drain(c *eventBusTypes.Consumer) []*eventBusTypes.Event {
	out := make([]*eventBusTypes.Event, 0)
	for {
		select {
		case e := <-c.Channel:
			out = append(out, e)
		default:
			return out
		}
	}
}

func Test_Scanner(t *testing.T) {
	t.Run("Should scan every block and stop at the end of the chain", func(t *testing.T) {
		fc := fakeChain.New()
		fc.AddBlock([]chain.LedgerEvent{transfer()})
		fc.AddBlock(nil)
		fc.AddBlock([]chain.LedgerEvent{contractEvent(1)})

		s, consumer := newScanner(fc, 0)
		next, err := s.Run(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, uint64(4), next)

		events := drain(consumer)
		names := make([]eventBusTypes.EventName, 0, len(events))
		for _, e := range events {
			names = append(names, e.Name)
		}
		assert.Equal(t, []eventBusTypes.EventName{
			eventBusTypes.Event_BlockScanned,
			eventBusTypes.Event_BalanceEvent,
			eventBusTypes.Event_BlockScanned,
			eventBusTypes.Event_BlockScanned,
			eventBusTypes.Event_ApplicationEvent,
			eventBusTypes.Event_BlockScanned,
		}, names)
		last := events[len(events)-1].Data.(*eventBusTypes.BlockScannedData)
		assert.Equal(t, uint64(3), last.Height)
		assert.Equal(t, 1, last.Events)
	})
	t.Run("Should start from the configured block", func(t *testing.T) {
		fc := fakeChain.New()
		fc.AddBlock([]chain.LedgerEvent{transfer()})
		fc.AddBlock([]chain.LedgerEvent{transfer()})

		s, consumer := newScanner(fc, 2)
		next, err := s.Run(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, uint64(3), next)
		assert.Len(t, drain(consumer), 2)
	})
	t.Run("Should succeed immediately past the tip", func(t *testing.T) {
		s, consumer := newScanner(fakeChain.New(), 10)
		next, err := s.Run(context.Background())
		assert.Nil(t, err)
		assert.Equal(t, uint64(10), next)
		assert.Len(t, drain(consumer), 0)
	})
	t.Run("Should stop at a block that fails to decode", func(t *testing.T) {
		fc := fakeChain.New()
		fc.AddBlock([]chain.LedgerEvent{contractEvent(7)})
		fc.AddBlock([]chain.LedgerEvent{transfer()})

		s, _ := newScanner(fc, 0)
		next, err := s.Run(context.Background())
		assert.True(t, errors.Is(err, eventDecoder.ErrUnknownEventTag))
		assert.Equal(t, uint64(1), next)
	})
	t.Run("Should return event fetch errors", func(t *testing.T) {
		fc := fakeChain.New()
		hash := fc.AddBlock(nil)
		boom := errors.New("connection reset")
		fc.EventsErr[hash] = boom

		s, _ := newScanner(fc, 0)
		_, err := s.Run(context.Background())
		assert.True(t, errors.Is(err, boom))
	})
	t.Run("Should return resolution errors other than a missing block", func(t *testing.T) {
		fc := fakeChain.New()
		fc.AddBlock([]chain.LedgerEvent{transfer()})
		fc.AddBlock(nil)
		boom := errors.New("rpc error -32000: state already discarded")
		fc.ResolveErr[2] = boom

		s, consumer := newScanner(fc, 0)
		next, err := s.Run(context.Background())
		assert.NotNil(t, err)
		assert.True(t, errors.Is(err, boom))
		assert.False(t, errors.Is(err, chain.ErrBlockNotFound))
		assert.Equal(t, uint64(2), next)

		events := drain(consumer)
		assert.Len(t, events, 3)
		assert.Equal(t, eventBusTypes.Event_BlockScanned, events[len(events)-1].Name)
	})
	t.Run("Should stop when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s, _ := newScanner(fakeChain.New(), 0)
		_, err := s.Run(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func Test_Progress(t *testing.T) {
	p := NewProgress(5, zap.NewNop())
	assert.Equal(t, uint64(0), p.BlocksProcessed())
	p.Update(6, 3)
	p.Update(8, 2)
	assert.Equal(t, uint64(3), p.BlocksProcessed())
	assert.Equal(t, uint64(5), p.EventsProcessed)
	p.Print()
}
