package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/pkg/logger"
)

const queueName = "signal_pipeline"

// SignalPipeline sits between the signal store's synchronous fan-out and the
// slow outbound sinks. Notify only validates, throttles and enqueues; a
// background worker delivers to every sink with retries.
type SignalPipeline struct {
	sinks    []domrepo.SignalSink
	metrics  domrepo.Metrics
	log      *logger.Logger
	now      func() time.Time
	bufSize  int
	minGap   time.Duration
	attempts int
	backoff  time.Duration
	timeout  time.Duration

	mu       sync.Mutex
	started  bool
	bufCh    chan *models.ExtremePoint
	stopCh   chan struct{}
	done     chan struct{}
	lastSeen map[string]time.Time
}

type PipelineOption func(*SignalPipeline)

// WithBufferSize sets how many signals may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithSymbolInterval drops signals for a symbol arriving sooner than d after
// the last forwarded one. Zero disables throttling.
func WithSymbolInterval(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if d >= 0 {
			p.minGap = d
		}
	}
}

// WithRetry sets delivery attempts per sink and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

// WithDeliveryTimeout bounds one Deliver call.
func WithDeliveryTimeout(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *SignalPipeline) { p.now = now }
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *SignalPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

func NewSignalPipeline(sinks []domrepo.SignalSink, metrics domrepo.Metrics, opts ...PipelineOption) *SignalPipeline {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	p := &SignalPipeline{
		sinks:    sinks,
		metrics:  metrics,
		log:      logger.NewNop(),
		now:      time.Now,
		bufSize:  256,
		minGap:   time.Second,
		attempts: 3,
		backoff:  50 * time.Millisecond,
		timeout:  5 * time.Second,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.ExtremePoint, p.bufSize)
	return p
}

// Start launches the delivery worker. Calling it twice is a no-op.
func (p *SignalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(ctx, p.stopCh, p.done)
}

// Stop halts the worker and waits for the signal in flight. Queued signals
// stay queued for a later Start.
func (p *SignalPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop, done := p.stopCh, p.done
	p.mu.Unlock()
	close(stop)
	<-done
}

// Enabled reports whether signals handed to Notify will go anywhere.
func (p *SignalPipeline) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && len(p.sinks) > 0
}

// Notify enqueues sig without blocking.
func (p *SignalPipeline) Notify(sig *models.ExtremePoint) {
	if err := validateSignal(sig); err != nil {
		p.metrics.RecordError("pipeline_validate")
		p.log.Warn("signal rejected by pipeline", logger.Error(err))
		return
	}
	if !p.allow(sig.Symbol, p.now()) {
		p.metrics.RecordError("pipeline_throttle")
		p.log.Debug("signal throttled", logger.String("symbol", sig.Symbol), logger.String("id", sig.ID))
		return
	}
	select {
	case p.bufCh <- sig.Clone():
		p.metrics.SetQueueDepth(queueName, len(p.bufCh))
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		p.log.Warn("signal pipeline buffer full, dropping", logger.String("id", sig.ID))
	}
}

func (p *SignalPipeline) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case sig := <-p.bufCh:
			p.metrics.SetQueueDepth(queueName, len(p.bufCh))
			p.deliver(ctx, stop, sig)
		}
	}
}

// deliver hands sig to every sink, retrying only the sinks that failed.
func (p *SignalPipeline) deliver(ctx context.Context, stop <-chan struct{}, sig *models.ExtremePoint) {
	start := time.Now()
	pending := p.sinks
	backoff := p.backoff
	for attempt := 1; len(pending) > 0; attempt++ {
		var failed []domrepo.SignalSink
		for _, sink := range pending {
			if err := p.deliverOne(ctx, sink, sig); err != nil {
				p.metrics.RecordError("sink_" + sink.Name())
				p.log.Warn("signal delivery failed",
					logger.String("sink", sink.Name()),
					logger.String("id", sig.ID),
					logger.Int("attempt", attempt),
					logger.Error(err))
				failed = append(failed, sink)
			}
		}
		pending = failed
		if len(pending) == 0 || attempt >= p.attempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	for _, sink := range pending {
		p.log.Error("signal dropped by sink", logger.String("sink", sink.Name()), logger.String("id", sig.ID))
	}
	p.metrics.RecordLatency("pipeline_deliver_seconds", time.Since(start).Seconds())
}

func (p *SignalPipeline) deliverOne(ctx context.Context, sink domrepo.SignalSink, sig *models.ExtremePoint) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	dctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return sink.Deliver(dctx, sig)
}

func (p *SignalPipeline) allow(symbol string, now time.Time) bool {
	if p.minGap <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSeen[symbol]; ok && now.Sub(last) < p.minGap {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}

func validateSignal(sig *models.ExtremePoint) error {
	switch {
	case sig == nil:
		return fmt.Errorf("signal nil")
	case sig.ID == "" || sig.Symbol == "":
		return fmt.Errorf("signal id or symbol empty")
	case sig.Price <= 0:
		return fmt.Errorf("signal %s: price must be positive", sig.ID)
	}
	return nil
}
