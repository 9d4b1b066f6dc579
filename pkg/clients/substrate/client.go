package substrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint          `json:"id"`
}

type RPCResponse struct {
	ID      *uint            `json:"id"`
	JSONRPC string           `json:"jsonrpc"`
	Result  *json.RawMessage `json:"result"`
	Error   *RPCError        `json:"error"`
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type SubstrateClientConfig struct {
	// BaseUrl accepts ws(s):// or http(s)://; both transports are derived from it.
	BaseUrl        string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

func DefaultSubstrateClientConfig() *SubstrateClientConfig {
	return &SubstrateClientConfig{
		BaseUrl:        "ws://127.0.0.1:9944",
		RequestTimeout: 30 * time.Second,
		MaxRetries:     3,
		RetryBackoff:   500 * time.Millisecond,
	}
}

type Client struct {
	httpClient   *http.Client
	clientConfig *SubstrateClientConfig
	httpUrl      string
	wsUrl        string
	nextID       atomic.Uint64
	Logger       *zap.Logger
}

func NewClient(cfg *SubstrateClientConfig, l *zap.Logger) (*Client, error) {
	httpUrl, wsUrl, err := deriveUrls(cfg.BaseUrl)
	if err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	l.Sugar().Infow("Creating substrate client",
		zap.String("httpUrl", httpUrl),
		zap.String("wsUrl", wsUrl),
	)
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		clientConfig: cfg,
		httpUrl:      httpUrl,
		wsUrl:        wsUrl,
		Logger:       l,
	}, nil
}

// deriveUrls maps a node url to its HTTP and websocket endpoints. Substrate
// nodes serve both on the same port.
func deriveUrls(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errors.Wrapf(err, "invalid rpc url '%s'", raw)
	}
	httpU, wsU := *u, *u
	switch strings.ToLower(u.Scheme) {
	case "ws", "http":
		httpU.Scheme, wsU.Scheme = "http", "ws"
	case "wss", "https":
		httpU.Scheme, wsU.Scheme = "https", "wss"
	default:
		return "", "", errors.Errorf("unsupported rpc url scheme '%s'", u.Scheme)
	}
	return httpU.String(), wsU.String(), nil
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) newRequest(method string, params ...interface{}) *RPCRequest {
	if params == nil {
		params = []interface{}{}
	}
	return &RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      uint(c.nextID.Add(1)),
	}
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.httpUrl, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to make request")
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("request failed with status %d: %s", res.StatusCode, string(resBody))
	}
	return resBody, nil
}

// postWithRetry retries transport failures only. RPC level errors are
// returned as is.
func (c *Client) postWithRetry(ctx context.Context, method string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.clientConfig.RetryBackoff
	for attempt := 0; attempt <= c.clientConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			c.Logger.Sugar().Warnw("Retrying rpc request",
				zap.String("method", method),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		res, err := c.post(ctx, body)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, errors.Wrapf(lastErr, "%s failed after %d attempts", method, c.clientConfig.MaxRetries+1)
}

// Call performs a single request/response RPC.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	body, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	c.Logger.Sugar().Debugw("Sending rpc request",
		zap.String("method", rpcRequest.Method),
		zap.Uint("id", rpcRequest.ID),
	)

	resBody, err := c.postWithRetry(ctx, rpcRequest.Method, body)
	if err != nil {
		return nil, err
	}

	response := &RPCResponse{}
	if err := json.Unmarshal(resBody, response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s response", rpcRequest.Method)
	}
	if response.Error != nil {
		return nil, errors.Wrap(response.Error, rpcRequest.Method)
	}
	return response, nil
}

// BatchCall sends all requests in one HTTP round trip and returns the
// responses in request order.
func (c *Client) BatchCall(ctx context.Context, requests []*RPCRequest) ([]*RPCResponse, error) {
	if len(requests) == 0 {
		return []*RPCResponse{}, nil
	}
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal batch request")
	}
	resBody, err := c.postWithRetry(ctx, "batch", body)
	if err != nil {
		return nil, err
	}

	responses := make([]*RPCResponse, 0, len(requests))
	if err := json.Unmarshal(resBody, &responses); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal batch response")
	}
	byID := make(map[uint]*RPCResponse, len(responses))
	for _, r := range responses {
		if r.ID != nil {
			byID[*r.ID] = r
		}
	}
	ordered := make([]*RPCResponse, 0, len(requests))
	for _, req := range requests {
		r, ok := byID[req.ID]
		if !ok {
			return nil, errors.Errorf("batch response missing id %d (%s)", req.ID, req.Method)
		}
		if r.Error != nil {
			return nil, errors.Wrap(r.Error, req.Method)
		}
		ordered = append(ordered, r)
	}
	return ordered, nil
}
