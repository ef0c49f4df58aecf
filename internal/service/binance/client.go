package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	applogger "TradePulse/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	// raw frames are parsed off the receive loop so a slow decode never
	// blocks subsequent reads
	frameBuffer  = 4096
	updateBuffer = 1024
)

// Client implements a MarketStream backed by the Binance combined stream.
// The subscription list is baked into the connection URL; Binance has no
// mid-connection subscribe primitive on combined streams, so changing the
// set requires a reconnect.
type Client struct {
	baseURL string
	logger  *applogger.Logger

	mu        sync.Mutex
	symbols   []string
	conn      *websocket.Conn
	connected bool
}

// New creates a Binance combined-stream client.
func New(baseURL string, symbols []string, logger *applogger.Logger) *Client {
	return &Client{baseURL: baseURL, symbols: symbols, logger: logger}
}

// SetSymbols replaces the symbol set used by the next Connect.
func (c *Client) SetSymbols(symbols []string) {
	c.mu.Lock()
	c.symbols = symbols
	c.mu.Unlock()
}

// streamURL builds the combined-stream URL, e.g.
// wss://host/stream?streams=btcusdt@ticker/ethusdt@ticker
func (c *Client) streamURL() (string, error) {
	c.mu.Lock()
	symbols := c.symbols
	c.mu.Unlock()
	if len(symbols) == 0 {
		return "", fmt.Errorf("binance: no symbols to subscribe")
	}
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@ticker")
	}
	return fmt.Sprintf("%s/stream?streams=%s", c.baseURL, strings.Join(streams, "/")), nil
}

// Connect establishes the WebSocket connection with the current symbol
// set subscribed.
func (c *Client) Connect(ctx context.Context) error {
	u, err := c.streamURL()
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.connected = true
	n := len(c.symbols)
	c.mu.Unlock()
	c.logger.Info("binance: connected", applogger.Int("symbols", n))
	return nil
}

// tickerPayload is the 24hr ticker event carried inside a combined-stream
// envelope.
type tickerPayload struct {
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	PctChange string `json:"P"`
	Volume    string `json:"v"`
	EventTime int64  `json:"E"` // ms
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// Read streams parsed price updates and connection errors. The receive
// loop only accumulates complete frames; parsing runs on its own
// goroutine. Malformed frames are logged and dropped.
func (c *Client) Read(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error) {
	updates := make(chan *models.PriceUpdate, updateBuffer)
	errs := make(chan error, 1)
	frames := make(chan []byte, frameBuffer)

	go func() {
		defer close(frames)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("binance: connection not established")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("binance read: %w", err)
				return
			}
			select {
			case frames <- b:
			default:
				// parser is behind; drop rather than stall the socket
			}
		}
	}()

	go func() {
		defer close(updates)
		for b := range frames {
			u, ok := c.parseFrame(b)
			if !ok {
				continue
			}
			select {
			case updates <- u:
			default:
				// drop on backpressure
			}
		}
	}()

	return updates, errs
}

func (c *Client) parseFrame(b []byte) (*models.PriceUpdate, bool) {
	var env streamEnvelope
	if err := json.Unmarshal(b, &env); err != nil || len(env.Data) == 0 {
		c.logger.Warn("binance: dropping malformed frame", applogger.Int("bytes", len(b)))
		return nil, false
	}
	var t tickerPayload
	if err := json.Unmarshal(env.Data, &t); err != nil || t.Symbol == "" {
		c.logger.Warn("binance: dropping non-ticker frame", applogger.String("stream", env.Stream))
		return nil, false
	}
	price, ok1 := parseFloat(t.LastPrice)
	pct, _ := parseFloat(t.PctChange)
	vol, ok2 := parseFloat(t.Volume)
	if !ok1 || !ok2 {
		c.logger.Warn("binance: dropping frame with bad numerics", applogger.String("symbol", t.Symbol))
		return nil, false
	}
	return &models.PriceUpdate{
		Symbol:        strings.ToUpper(t.Symbol),
		Price:         price,
		PercentChange: pct,
		Volume:        vol,
		Timestamp:     time.Now(),
	}, true
}

// Ping sends a keepalive probe over the open connection. It is distinct
// from the protocol-level ping handler; a write failure here is how
// silently-dead connections are detected.
func (c *Client) Ping() error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("binance: not connected")
	}
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var _ drepo.MarketStream = (*Client)(nil)
