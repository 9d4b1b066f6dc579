package eventDecoder

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/eventBus/eventBusTypes"
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
	bob      = ss58.MustParseAccountID("5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty")
)

type recordingBus struct {
	events []*eventBusTypes.Event
}

func (b *recordingBus) Subscribe(*eventBusTypes.Consumer)   {}
func (b *recordingBus) Unsubscribe(*eventBusTypes.Consumer) {}
func (b *recordingBus) Publish(e *eventBusTypes.Event) {
	b.events = append(b.events, e)
}

func beforeFlipping(field3 string) []byte {
	e := scale.NewEncoder()
	e.U8(0).Raw(alice.Bytes()).U64(7).String("location").String(field3)
	return e.Bytes()
}

func afterFlipping(field3 bool) []byte {
	e := scale.NewEncoder()
	e.U8(1).Raw(alice.Bytes()).U64(8).String("location").Bool(field3)
	return e.Bytes()
}

func emitted(from ss58.AccountID, data []byte) chain.LedgerEvent {
	return chain.LedgerEvent{
		Pallet: "Contracts",
		Name:   "ContractEmitted",
		Body:   chain.ContractEmitted{Contract: from, Data: data},
	}
}

func Test_DecodeApplicationEvent(t *testing.T) {
	t.Run("Should decode BeforeFlipping", func(t *testing.T) {
		ev, err := DecodeApplicationEvent(beforeFlipping("paris"))
		assert.Nil(t, err)
		assert.Equal(t, BeforeFlipping{From: alice, Field1: 7, Field2: "location", Field3: "paris"}, ev)
		assert.Equal(t, "BeforeFlipping", ev.EventName())
	})
	t.Run("Should decode AfterFlipping", func(t *testing.T) {
		ev, err := DecodeApplicationEvent(afterFlipping(true))
		assert.Nil(t, err)
		assert.Equal(t, AfterFlipping{From: alice, Field1: 8, Field2: "location", Field3: true}, ev)
	})
	t.Run("Should return ErrUnknownEventTag for other tags", func(t *testing.T) {
		data := afterFlipping(true)
		data[0] = 2
		_, err := DecodeApplicationEvent(data)
		assert.True(t, errors.Is(err, ErrUnknownEventTag))

		_, err = DecodeApplicationEvent([]byte{0xff})
		assert.True(t, errors.Is(err, ErrUnknownEventTag))
	})
	t.Run("Should reject trailing and missing bytes", func(t *testing.T) {
		_, err := DecodeApplicationEvent(append(afterFlipping(false), 0x00))
		assert.True(t, errors.Is(err, ErrMalformedEvent))

		data := beforeFlipping("paris")
		_, err = DecodeApplicationEvent(data[:len(data)-1])
		assert.True(t, errors.Is(err, ErrMalformedEvent))

		_, err = DecodeApplicationEvent([]byte{0x01, 0x02})
		assert.True(t, errors.Is(err, ErrMalformedEvent))
	})
	t.Run("Should reject a non bool field3 in AfterFlipping", func(t *testing.T) {
		data := afterFlipping(true)
		data[len(data)-1] = 0x02
		_, err := DecodeApplicationEvent(data)
		assert.True(t, errors.Is(err, ErrMalformedEvent))
	})
}

func Test_ProcessEvents(t *testing.T) {
	newDecoder := func() (*EventDecoder, *recordingBus) {
		bus := &recordingBus{}
		return NewEventDecoder(contract, bus, metrics.NewNoopSink(), zap.NewNop()), bus
	}

	t.Run("Should publish contract and balance events", func(t *testing.T) {
		d, bus := newDecoder()
		transfer := chain.BalanceTransfer{From: alice, To: bob, Amount: units.FromPlanckUint64(15)}
		withdraw := chain.BalanceWithdraw{Who: alice, Amount: units.FromPlanckUint64(3)}
		err := d.ProcessEvents([]chain.LedgerEvent{
			{Pallet: "Balances", Name: "Withdraw", Body: withdraw},
			emitted(contract, beforeFlipping("paris")),
			{Pallet: "Balances", Name: "Transfer", Body: transfer},
			emitted(contract, afterFlipping(false)),
			{Pallet: "System", Name: "ExtrinsicSuccess", Body: chain.OtherEvent{}},
		})
		assert.Nil(t, err)
		assert.Len(t, bus.events, 4)

		assert.Equal(t, eventBusTypes.Event_BalanceEvent, bus.events[0].Name)
		assert.Equal(t, withdraw, bus.events[0].Data)
		assert.Equal(t, eventBusTypes.Event_ApplicationEvent, bus.events[1].Name)
		assert.Equal(t, "BeforeFlipping", bus.events[1].Data.(ApplicationEvent).EventName())
		assert.Equal(t, transfer, bus.events[2].Data)
		assert.Equal(t, AfterFlipping{From: alice, Field1: 8, Field2: "location", Field3: false}, bus.events[3].Data)
	})
	t.Run("Should skip events of other contracts and empty payloads", func(t *testing.T) {
		d, bus := newDecoder()
		garbage := []byte{0x09, 0x09}
		err := d.ProcessEvents([]chain.LedgerEvent{
			emitted(bob, garbage),
			emitted(contract, nil),
		})
		assert.Nil(t, err)
		assert.Len(t, bus.events, 0)
	})
	t.Run("Should stop at the first event that fails to decode", func(t *testing.T) {
		d, bus := newDecoder()
		bad := afterFlipping(true)
		bad[0] = 5
		err := d.ProcessEvents([]chain.LedgerEvent{
			emitted(contract, beforeFlipping("a")),
			emitted(contract, bad),
			emitted(contract, afterFlipping(true)),
		})
		assert.True(t, errors.Is(err, ErrUnknownEventTag))
		assert.Len(t, bus.events, 1)
	})
	t.Run("Should work without an event bus", func(t *testing.T) {
		d := NewEventDecoder(contract, nil, metrics.NewNoopSink(), zap.NewNop())
		assert.Nil(t, d.ProcessEvents([]chain.LedgerEvent{emitted(contract, afterFlipping(true))}))
	})
}
