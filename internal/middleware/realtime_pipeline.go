package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/ratelimit"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, u *models.PriceUpdate) error
}

// RealtimePipeline sits between stream ingestion and the tick bus.
// It validates, throttles per symbol, and buffers when downstream is
// unavailable so a Kafka hiccup never stalls the socket.
type RealtimePipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	maxRPS  int
	bufSize int
	bufCh   chan *models.PriceUpdate
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// optional format transform hook
	transform func(*models.PriceUpdate) *models.PriceUpdate
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max updates per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook applied before throttling.
func WithTransform(fn func(*models.PriceUpdate) *models.PriceUpdate) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  20,   // default throttle per symbol
		bufSize: 1000, // default buffer
		bufCh:   make(chan *models.PriceUpdate, 1000),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.PriceUpdate, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered updates.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	// Stop closes stopCh, so a restart needs a fresh one
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-stopCh:
				return
			case u := <-p.bufCh:
				if u == nil {
					continue
				}
				if err := p.proc.Process(ctx, u); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- u:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.stopCh)
	p.mu.Unlock()
}

// Process validates, throttles, and forwards an update downstream,
// buffering on errors.
func (p *RealtimePipeline) Process(ctx context.Context, u *models.PriceUpdate) error {
	start := time.Now()
	if err := validateUpdate(u); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		u = p.transform(u)
		if err := validateUpdate(u); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if p.maxRPS > 0 && !p.limiter.Allow(u.Symbol, float64(p.maxRPS), float64(p.maxRPS)) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, u); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- u:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateUpdate(u *models.PriceUpdate) error {
	if u == nil {
		return fmt.Errorf("update nil")
	}
	if u.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if u.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if u.Price < 0 || u.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	return nil
}
