package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/service/binance"
	applogger "TradePulse/pkg/logger"
)

// fakeStream is a scriptable MarketStream. Each session drains the
// feed channel until the test closes the connection.
type fakeStream struct {
	mu        sync.Mutex
	symbols   []string
	connected bool
	connects  atomic.Int32
	pings     atomic.Int32
	connectAt chan time.Time

	feed chan *models.PriceUpdate
	errs chan error
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		feed:      make(chan *models.PriceUpdate, 64),
		errs:      make(chan error, 1),
		connectAt: make(chan time.Time, 16),
	}
}

func (f *fakeStream) Connect(context.Context) error {
	f.connects.Add(1)
	select {
	case f.connectAt <- time.Now():
	default:
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Read(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error) {
	out := make(chan *models.PriceUpdate)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		for {
			f.mu.Lock()
			connected := f.connected
			f.mu.Unlock()
			if !connected {
				errs <- context.Canceled
				return
			}
			select {
			case <-ctx.Done():
				return
			case e := <-f.errs:
				errs <- e
				return
			case u := <-f.feed:
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, errs
}

func (f *fakeStream) Ping() error {
	f.pings.Add(1)
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	select {
	case f.errs <- context.Canceled:
	default:
	}
	return nil
}

func (f *fakeStream) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStream) SetSymbols(symbols []string) {
	f.mu.Lock()
	f.symbols = symbols
	f.mu.Unlock()
}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string)  {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordLastPrice(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}
func (nopMetrics) RecordReconnect()                  {}
func (nopMetrics) RecordSignal(string, string)       {}
func (nopMetrics) RecordBroadcast(string)            {}

func collectorLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func testCollector(t *testing.T, stream *fakeStream) *PriceCollector {
	t.Helper()
	cfg := DefaultCollectorConfig()
	cfg.HealthInterval = 10 * time.Millisecond
	cfg.KeepaliveInterval = 20 * time.Millisecond
	cfg.Backoff = binance.Backoff{Min: 10 * time.Millisecond, Max: 50 * time.Millisecond, Factor: 2, Jitter: 0}
	cfg.RecoveryDelay = 100 * time.Millisecond
	return NewPriceCollector(stream, nil, nil, nopMetrics{}, collectorLogger(t), cfg)
}

func TestSubscribeNormalizesAndRejects(t *testing.T) {
	c := testCollector(t, newFakeStream())
	c.Subscribe("btc-usd", "ETH_USDT", "not a symbol!", "btcusdt")

	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, c.Symbols())
}

func TestStartRequiresSymbols(t *testing.T) {
	c := testCollector(t, newFakeStream())
	assert.Error(t, c.Start(context.Background()))
}

func TestLatestPriceCache(t *testing.T) {
	stream := newFakeStream()
	c := testCollector(t, stream)
	c.Subscribe("BTCUSDT")
	require.NoError(t, c.Start(context.Background()))
	defer func() { _ = c.Stop() }()

	stream.feed <- &models.PriceUpdate{Symbol: "BTCUSDT", Price: 50000, Timestamp: time.Now()}
	stream.feed <- &models.PriceUpdate{Symbol: "BTCUSDT", Price: 50100, Timestamp: time.Now()}

	require.Eventually(t, func() bool {
		u, ok := c.LatestPrice("btcusdt")
		return ok && u.Price == 50100
	}, time.Second, 5*time.Millisecond)

	all := c.AllLatestPrices()
	assert.Len(t, all, 1)

	_, ok := c.LatestPrice("ETHUSDT")
	assert.False(t, ok)
}

func TestSubscribeUpdatesFanOut(t *testing.T) {
	stream := newFakeStream()
	c := testCollector(t, stream)
	c.Subscribe("BTCUSDT")
	require.NoError(t, c.Start(context.Background()))
	defer func() { _ = c.Stop() }()

	ch, cancel := c.SubscribeUpdates(8)
	defer cancel()

	stream.feed <- &models.PriceUpdate{Symbol: "BTCUSDT", Price: 50000, Timestamp: time.Now()}

	select {
	case u := <-ch:
		assert.Equal(t, 50000.0, u.Price)
	case <-time.After(time.Second):
		t.Fatal("expected fan-out delivery")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	stream := newFakeStream()
	c := testCollector(t, stream)
	c.Subscribe("BTCUSDT")
	require.NoError(t, c.Start(context.Background()))
	defer func() { _ = c.Stop() }()

	// first session is up
	first := <-stream.connectAt

	// drop the connection; the supervisor or read loop notices and the
	// run loop reconnects after at least the base backoff
	_ = stream.Close()
	select {
	case second := <-stream.connectAt:
		assert.GreaterOrEqual(t, second.Sub(first), 10*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("expected reconnect")
	}
	assert.GreaterOrEqual(t, stream.connects.Load(), int32(2))
}

func TestStartIsIdempotentRestart(t *testing.T) {
	stream := newFakeStream()
	c := testCollector(t, stream)
	c.Subscribe("BTCUSDT")

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())
	require.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
	// stopping twice is fine
	require.NoError(t, c.Stop())
}

func TestKeepaliveProbes(t *testing.T) {
	stream := newFakeStream()
	c := testCollector(t, stream)
	c.Subscribe("BTCUSDT")
	require.NoError(t, c.Start(context.Background()))
	defer func() { _ = c.Stop() }()

	require.Eventually(t, func() bool {
		return stream.pings.Load() >= 1
	}, time.Second, 5*time.Millisecond)
}
