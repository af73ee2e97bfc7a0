package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/SprengerV/volume-analyzer/internal/observability"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription id.
	SubscribeTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSClient watches logsSubscribe notifications over gorilla/websocket.
// Every Watch call owns its own connection and reconnects on failure.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	logger   logrus.FieldLogger
}

// NewWSClient creates a WebSocket client for endpoint. Nothing is dialed
// until Watch is called.
func NewWSClient(endpoint string, config *WSClientConfig, logger logrus.FieldLogger) *WSClient {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.WithField("component", "ws"),
	}
}

// Watch subscribes to logs mentioning address and forwards notifications
// until ctx is done. Connection failures are retried with exponential backoff.
func (c *WSClient) Watch(ctx context.Context, address string) <-chan LogNotification {
	out := make(chan LogNotification, 64)

	go func() {
		defer close(out)

		delay := c.config.ReconnectDelay
		for ctx.Err() == nil {
			subscribed, err := c.session(ctx, LogsFilter{Mentions: []string{address}}, out)
			if ctx.Err() != nil {
				return
			}
			if subscribed {
				delay = c.config.ReconnectDelay
			}
			c.logger.WithError(err).WithField("retry_in", delay).Warn("logs subscription lost")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
		}
	}()

	return out
}

// session runs one connection: dial, subscribe, read until failure.
// The bool reports whether the subscription was confirmed.
func (c *WSClient) session(ctx context.Context, filter LogsFilter, out chan<- LogNotification) (bool, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	var writeMu sync.Mutex
	write := func(fn func() error) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		return fn()
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sessionCtx.Done():
				write(func() error {
					return conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				})
				conn.Close()
				return
			case <-ticker.C:
				// a dead connection surfaces as a read error
				_ = write(func() error { return conn.WriteMessage(websocket.PingMessage, nil) })
			}
		}
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": filter.Mentions},
			map[string]string{"commitment": "confirmed"},
		},
	}
	if err := write(func() error { return conn.WriteJSON(req) }); err != nil {
		return false, fmt.Errorf("write subscribe: %w", err)
	}

	var subID int64
	subscribeDeadline := time.Now().Add(c.config.SubscribeTimeout)

	for {
		readDeadline := time.Now().Add(c.config.ReadTimeout)
		if subID == 0 && subscribeDeadline.Before(readDeadline) {
			readDeadline = subscribeDeadline
		}
		conn.SetReadDeadline(readDeadline)

		_, message, err := conn.ReadMessage()
		if err != nil {
			if subID == 0 {
				return false, fmt.Errorf("await subscription: %w", err)
			}
			return true, fmt.Errorf("read: %w", err)
		}

		msg, err := parseWSMessage(message)
		if err != nil {
			c.logger.WithError(err).Debug("ignoring websocket message")
			continue
		}

		switch {
		case msg.rpcErr != nil:
			if subID == 0 {
				return false, msg.rpcErr
			}
			c.logger.WithError(msg.rpcErr).Warn("websocket error response")
		case msg.subscribed != 0:
			subID = msg.subscribed
			c.logger.WithField("subscription", subID).Debug("logs subscription confirmed")
		case msg.notification != nil && msg.subscription == subID:
			observability.RecordWSNotification()
			select {
			case out <- *msg.notification:
			case <-ctx.Done():
				return true, ctx.Err()
			}
		}
	}
}

type wsMessage struct {
	subscribed   int64
	subscription int64
	notification *LogNotification
	rpcErr       *RPCError
}

func parseWSMessage(data []byte) (*wsMessage, error) {
	var env struct {
		ID     uint64                `json:"id"`
		Method string                `json:"method"`
		Result json.RawMessage       `json:"result"`
		Error  *RPCError             `json:"error"`
		Params *wsNotificationParams `json:"params"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	switch {
	case env.Error != nil:
		return &wsMessage{rpcErr: env.Error}, nil
	case env.Method == "logsNotification" && env.Params != nil:
		v := env.Params.Result.Value
		n := &LogNotification{Signature: v.Signature, Logs: v.Logs, Err: v.Err}
		if env.Params.Result.Context != nil {
			n.Slot = env.Params.Result.Context.Slot
		}
		return &wsMessage{subscription: env.Params.Subscription, notification: n}, nil
	case env.ID != 0 && len(env.Result) > 0:
		var id int64
		if err := json.Unmarshal(env.Result, &id); err != nil {
			return nil, fmt.Errorf("subscription id: %w", err)
		}
		return &wsMessage{subscribed: id}, nil
	}
	return nil, errors.New("unrecognized message")
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}

var _ LogsWatcher = (*WSClient)(nil)
