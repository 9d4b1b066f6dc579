package substrate

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type subscriptionParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
	Error        *RPCError       `json:"error"`
}

// Notification is one subscription update. Error is set when the node
// reported a failure in place of a result.
type Notification struct {
	Result json.RawMessage
	Error  *RPCError
}

type notification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  subscriptionParams `json:"params"`
	ID      *uint              `json:"id"`
	Result  *json.RawMessage   `json:"result"`
	Error   *RPCError          `json:"error"`
}

var noDeadline time.Time

// Subscription is a single websocket subscription. Notifications are
// delivered in the order the node sent them.
type Subscription struct {
	conn        *websocket.Conn
	id          json.RawMessage
	unsubscribe string
	updates     chan Notification
	done        chan struct{}
	logger      *zap.Logger

	mu      sync.Mutex
	readErr error
	closed  bool
}

// Subscribe opens a dedicated websocket connection, issues method with params
// and starts delivering notifications for the returned subscription id.
func (c *Client) Subscribe(ctx context.Context, method string, unsubscribe string, params ...interface{}) (*Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsUrl, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", c.wsUrl)
	}

	req := c.newRequest(method, params...)
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to send %s", method)
	}

	var res notification
	if err := conn.ReadJSON(&res); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "failed to read %s response", method)
	}
	if res.Error != nil {
		conn.Close()
		return nil, errors.Wrap(res.Error, method)
	}
	if res.Result == nil {
		conn.Close()
		return nil, errors.Errorf("%s returned no subscription id", method)
	}
	_ = conn.SetReadDeadline(noDeadline)
	_ = conn.SetWriteDeadline(noDeadline)

	s := &Subscription{
		conn:        conn,
		id:          *res.Result,
		unsubscribe: unsubscribe,
		updates:     make(chan Notification, 16),
		done:        make(chan struct{}),
		logger:      c.Logger,
	}
	c.Logger.Sugar().Debugw("Subscribed",
		zap.String("method", method),
		zap.String("subscription", string(s.id)),
	)
	go s.readLoop()
	return s, nil
}

func (s *Subscription) readLoop() {
	defer close(s.updates)
	for {
		var msg notification
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.mu.Lock()
			if !s.closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.readErr = err
			}
			s.mu.Unlock()
			return
		}
		if msg.Method == "" || string(msg.Params.Subscription) != string(s.id) {
			continue
		}
		update := Notification{Result: msg.Params.Result, Error: msg.Params.Error}
		select {
		case s.updates <- update:
		case <-s.done:
			return
		}
	}
}

// Next blocks until the next notification. ok is false once the subscription
// has ended; err is set when it ended abnormally.
func (s *Subscription) Next(ctx context.Context) (Notification, bool, error) {
	select {
	case <-ctx.Done():
		return Notification{}, false, ctx.Err()
	case update, ok := <-s.updates:
		if ok {
			return update, true, nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return Notification{}, false, s.readErr
	}
}

// Close unsubscribes (best effort) and closes the connection.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)

	if s.unsubscribe != "" {
		req := &RPCRequest{JSONRPC: "2.0", Method: s.unsubscribe, Params: []interface{}{s.id}, ID: 0}
		if err := s.conn.WriteJSON(req); err != nil {
			s.logger.Sugar().Debugw("Failed to unsubscribe", zap.Error(err))
		}
	}
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
