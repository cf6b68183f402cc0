// Package marketdata brings OHLCV bars into the engine, either streamed
// from a broker-bridge WebSocket feed or loaded from CSV exports.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/observability"
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
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// BarNotification is one streamed bar for a subscribed symbol.
type BarNotification struct {
	Symbol string
	Bar    domain.Bar
}

// WSClient streams bars from a broker-bridge feed over gorilla/websocket.
// It reconnects with exponential backoff and resubscribes all symbols
// after a reconnect.
type WSClient struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps symbol to notification channel
	subs   map[string]chan BarNotification
	subsMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for confirmation
	pendingSubs   map[uint64]chan error
	pendingSubsMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[string]chan BarNotification),
		pendingSubs: make(map[uint64]chan error),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	// Start reader goroutine
	c.wg.Add(1)
	go c.readLoop()

	// Start ping goroutine
	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeBars subscribes to the bar stream for a symbol. The returned
// channel is buffered to absorb bursts; sends block rather than drop bars.
func (c *WSClient) SubscribeBars(ctx context.Context, symbol string) (<-chan BarNotification, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	c.subsMu.Lock()
	if _, exists := c.subs[symbol]; exists {
		c.subsMu.Unlock()
		return nil, fmt.Errorf("already subscribed to %s", symbol)
	}
	ch := make(chan BarNotification, 10000)
	c.subs[symbol] = ch
	c.subsMu.Unlock()

	if err := c.sendSubscribe(ctx, symbol); err != nil {
		c.subsMu.Lock()
		delete(c.subs, symbol)
		c.subsMu.Unlock()
		return nil, err
	}

	return ch, nil
}

// sendSubscribe sends a subscribe request and waits for confirmation.
func (c *WSClient) sendSubscribe(ctx context.Context, symbol string) error {
	reqID := c.requestID.Add(1)

	req := wsRequest{
		ID:     reqID,
		Action: "subscribe",
		Symbol: symbol,
	}

	confirmCh := make(chan error, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	removePending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		removePending()
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		removePending()
		return fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case err := <-confirmCh:
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}
		return nil
	case <-time.After(30 * time.Second):
		removePending()
		return fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return fmt.Errorf("client closed")
	case <-ctx.Done():
		removePending()
		return ctx.Err()
	}
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	// Close all subscription channels
	c.subsMu.Lock()
	for symbol, ch := range c.subs {
		close(ch)
		delete(c.subs, symbol)
	}
	c.subsMu.Unlock()

	// Close pending subscription channels
	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		start := time.Now()
		c.handleMessage(message)
		observability.RecordWSMessageLatency(time.Since(start).Seconds())
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	// Wait before reconnecting
	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	// Close existing connection
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	// Attempt reconnect
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	// Resubscribe to all active symbols
	c.resubscribeAll()
}

// resubscribeAll resubscribes all symbols after reconnect. The symbol is
// the subscription key, so channels stay valid across reconnects.
func (c *WSClient) resubscribeAll() {
	c.subsMu.RLock()
	symbols := make([]string, 0, len(c.subs))
	for symbol := range c.subs {
		symbols = append(symbols, symbol)
	}
	c.subsMu.RUnlock()

	for _, symbol := range symbols {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.sendSubscribe(ctx, symbol)
		cancel()

		if err != nil {
			// Failed to resubscribe, next reconnect retries
			continue
		}
	}
}

// handleMessage processes incoming WebSocket message.
func (c *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "subscribed":
		c.handleSubscribeAck(msg.ID, nil)
	case "error":
		c.handleSubscribeAck(msg.ID, fmt.Errorf("%s", msg.Message))
	case "bar":
		c.handleBar(&msg)
	}
}

// handleSubscribeAck resolves a pending subscribe request.
func (c *WSClient) handleSubscribeAck(reqID uint64, err error) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[reqID]
	if ok {
		delete(c.pendingSubs, reqID)
	}
	c.pendingSubsMu.Unlock()

	if ok {
		select {
		case ch <- err:
		default:
		}
	}
}

// handleBar dispatches a bar to its symbol's subscriber.
func (c *WSClient) handleBar(msg *wsMessage) {
	if msg.Data == nil {
		return
	}

	notif := BarNotification{
		Symbol: msg.Symbol,
		Bar: domain.Bar{
			Timestamp: msg.Data.Timestamp,
			Open:      msg.Data.Open,
			High:      msg.Data.High,
			Low:       msg.Data.Low,
			Close:     msg.Data.Close,
			Volume:    msg.Data.Volume,
		},
	}

	c.subsMu.RLock()
	ch, ok := c.subs[msg.Symbol]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop bars
		select {
		case ch <- notif:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	ID     uint64 `json:"id"`
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

type wsMessage struct {
	Type    string     `json:"type"`
	ID      uint64     `json:"id,omitempty"`
	Symbol  string     `json:"symbol,omitempty"`
	Message string     `json:"message,omitempty"`
	Data    *wsBarData `json:"data,omitempty"`
}

type wsBarData struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}
