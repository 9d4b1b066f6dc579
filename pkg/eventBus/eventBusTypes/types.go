// Package eventBusTypes holds the event names, payloads and consumer list
// shared by the event bus and its users.
package eventBusTypes

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type EventName string

func (en *EventName) String() string {
	return string(*en)
}

var (
	// Event_ApplicationEvent carries a decoded contract event.
	Event_ApplicationEvent EventName = "application_event"
	// Event_BalanceEvent carries a balance transfer or withdraw.
	Event_BalanceEvent EventName = "balance_event"
	// Event_BlockScanned is emitted once every event of a block was handled.
	Event_BlockScanned EventName = "block_scanned"
	// Event_TransactionIncluded is emitted when a submitted extrinsic lands.
	Event_TransactionIncluded EventName = "transaction_included"
)

type Event struct {
	Name EventName
	Data any
}

type ConsumerId string

// Consumer receives events on Channel until it is unsubscribed.
type Consumer struct {
	Id      ConsumerId
	Context context.Context
	Channel chan *Event
}

// NewConsumer returns a consumer with a random id and a channel of size buffer.
func NewConsumer(ctx context.Context, buffer int) *Consumer {
	return &Consumer{
		Id:      ConsumerId(uuid.New().String()),
		Context: ctx,
		Channel: make(chan *Event, buffer),
	}
}

type ConsumerList struct {
	mu        sync.Mutex
	consumers []*Consumer
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: make([]*Consumer, 0),
	}
}

func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers = append(cl.consumers, consumer)
}

func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for i, c := range cl.consumers {
		if c.Id == consumer.Id {
			cl.consumers = append(cl.consumers[:i], cl.consumers[i+1:]...)
			break
		}
	}
}

// GetAll returns a snapshot of the current consumers.
func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]*Consumer, len(cl.consumers))
	copy(out, cl.consumers)
	return out
}

type IEventBus interface {
	Subscribe(consumer *Consumer)
	Unsubscribe(consumer *Consumer)
	Publish(event *Event)
}

// BlockScannedData is the payload of Event_BlockScanned.
type BlockScannedData struct {
	Height uint64
	Hash   string
	Events int
}

// TransactionIncludedData is the payload of Event_TransactionIncluded.
type TransactionIncludedData struct {
	Call           string
	Block          string
	ExtrinsicIndex int
	Finalized      bool
}
