package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/staex-io/did-provisioner/internal/logger"
	"github.com/staex-io/did-provisioner/pkg/clients/substrate"
	"github.com/stretchr/testify/assert"
)

// watchServer answers author_submitAndWatchExtrinsic with the given
// notification params, in order.
func watchServer(t *testing.T, updates ...map[string]interface{}) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req substrate.RPCRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "sub-1"})
		for _, params := range updates {
			params["subscription"] = "sub-1"
			_ = conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "author_extrinsicUpdate",
				"params":  params,
			})
		}
		var unsub substrate.RPCRequest
		_ = conn.ReadJSON(&unsub)
	}))
}

func Test_SubmitAndWatch(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Level: "debug"})
	assert.Nil(t, err)

	srv := watchServer(t,
		map[string]interface{}{"result": "ready"},
		map[string]interface{}{"result": map[string]string{"finalityTimeout": "0xaa"}},
		map[string]interface{}{"error": map[string]interface{}{"code": 1010, "message": "node says boom"}},
	)
	defer srv.Close()

	cfg := substrate.DefaultSubstrateClientConfig()
	cfg.BaseUrl = "ws://" + strings.TrimPrefix(srv.URL, "http://")
	rpc, err := substrate.NewClient(cfg, l)
	assert.Nil(t, err)
	client := NewNodeClient(rpc, l)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("Should turn node error notifications into error statuses", func(t *testing.T) {
		stream, err := client.SubmitAndWatch(ctx, []byte{0x01})
		assert.Nil(t, err)
		defer stream.Close()

		status, ok, err := stream.Next(ctx)
		assert.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, StatusReady, status.Kind)

		status, ok, err = stream.Next(ctx)
		assert.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, StatusFinalityTimeout, status.Kind)
		assert.True(t, status.Kind.IsTerminal())

		status, ok, err = stream.Next(ctx)
		assert.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, StatusError, status.Kind)
		assert.Equal(t, "node says boom", status.Message)
		assert.True(t, status.Kind.IsTerminal())
		assert.False(t, status.Kind.IsIncluded())
	})
}
