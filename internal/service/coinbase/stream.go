package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"dogebot/pkg/logger"
)

const defaultStreamURL = "wss://advanced-trade-ws.coinbase.com"

// Stream delivers live ticker prices over the Advanced Trade WebSocket, so
// the status display stays fresh between candle polls.
type Stream struct {
	websocketURL   string
	productID      string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	conn      *websocket.Conn
	connected bool
}

// StreamOption configures Stream.
type StreamOption func(*Stream)

// WithStreamURL overrides the WebSocket endpoint (tests).
func WithStreamURL(u string) StreamOption {
	return func(s *Stream) { s.websocketURL = u }
}

// WithStreamProductID sets the subscribed product.
func WithStreamProductID(id string) StreamOption {
	return func(s *Stream) { s.productID = id }
}

// WithReconnectDelay sets the wait before a reconnect attempt.
func WithReconnectDelay(d time.Duration) StreamOption {
	return func(s *Stream) { s.reconnectDelay = d }
}

// NewStream creates a ticker stream.
func NewStream(log *logger.Logger, opts ...StreamOption) *Stream {
	s := &Stream{
		websocketURL:   defaultStreamURL,
		productID:      "DOGE-USD",
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		log:            log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("ticker connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.log.Info("ticker stream connected", logger.String("url", s.websocketURL))
	return nil
}

// Subscribe subscribes to the ticker channel for the configured product.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("ticker not connected")
	}
	msg := map[string]interface{}{
		"type":        "subscribe",
		"channel":     "ticker",
		"product_ids": []string{s.productID},
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.productID, err)
	}
	s.log.Info("ticker subscribed", logger.String("product", s.productID))
	return nil
}

type wsTicker struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
}

type wsEvent struct {
	Type    string     `json:"type"`
	Tickers []wsTicker `json:"tickers"`
}

type wsMessage struct {
	Channel string    `json:"channel"`
	Events  []wsEvent `json:"events"`
}

// Read streams prices and errors. The price channel drops updates on
// backpressure; the latest price is all anyone wants.
func (s *Stream) Read(ctx context.Context) (<-chan float64, <-chan error) {
	prices := make(chan float64, 64)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(prices)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("ticker conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("ticker read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-JSON frames
					continue
				}
				if m.Channel != "ticker" {
					continue
				}
				for _, ev := range m.Events {
					for _, t := range ev.Tickers {
						if t.ProductID != s.productID {
							continue
						}
						price, err := strconv.ParseFloat(t.Price, 64)
						if err != nil || price <= 0 {
							continue
						}
						select {
						case prices <- price:
						default:
							// drop on backpressure
						}
					}
				}
			}
		}
	}()

	return prices, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
