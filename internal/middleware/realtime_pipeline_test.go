package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePulse/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string) {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordLatency(string, float64)    {}
func (nopMetrics) RecordReconnect()                 {}
func (nopMetrics) RecordSignal(string, string)      {}
func (nopMetrics) RecordBroadcast(string)           {}

// flushProc fails while down, then hands delivered updates to the test.
type flushProc struct {
	mu   sync.Mutex
	down bool
	got  chan *models.PriceUpdate
}

func (f *flushProc) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flushProc) Process(_ context.Context, u *models.PriceUpdate) error {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return errors.New("downstream unavailable")
	}
	f.got <- u
	return nil
}

func validUpdate(symbol string) *models.PriceUpdate {
	return &models.PriceUpdate{Symbol: symbol, Price: 100, Volume: 1, Timestamp: time.Now()}
}

func TestPipelineRejectsInvalidUpdate(t *testing.T) {
	proc := &flushProc{got: make(chan *models.PriceUpdate, 1)}
	p := NewRealtimePipeline(proc, nopMetrics{})

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), &models.PriceUpdate{Symbol: "", Timestamp: time.Now()}))
	assert.Error(t, p.Process(context.Background(), &models.PriceUpdate{Symbol: "BTCUSDT", Price: -1, Timestamp: time.Now()}))
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &flushProc{down: true, got: make(chan *models.PriceUpdate, 1)}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithBufferSize(4))

	err := p.Process(context.Background(), validUpdate("BTCUSDT"))
	require.Error(t, err)
	assert.Len(t, p.bufCh, 1)
}

func TestPipelineRestartResumesFlushing(t *testing.T) {
	proc := &flushProc{down: true, got: make(chan *models.PriceUpdate, 1)}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithBufferSize(8))
	ctx := context.Background()

	p.Start(ctx)
	p.Stop()
	p.Start(ctx)
	defer p.Stop()

	require.Error(t, p.Process(ctx, validUpdate("BTCUSDT")))
	proc.setDown(false)

	select {
	case got := <-proc.got:
		assert.Equal(t, "BTCUSDT", got.Symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("buffered update was not flushed after restart")
	}
}

func TestPipelineStopIsIdempotent(t *testing.T) {
	proc := &flushProc{got: make(chan *models.PriceUpdate, 1)}
	p := NewRealtimePipeline(proc, nopMetrics{})

	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
