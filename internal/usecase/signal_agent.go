package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/pkg/logger"

	"github.com/go-co-op/gocron"
)

var ErrNoFetcher = errors.New("market data fetcher not set")

// SignalDetector turns one market snapshot into a detection.
type SignalDetector interface {
	Detect(ctx context.Context, symbol string, snap *models.MarketSnapshot) (models.Detection, error)
	SetMinConfidence(v float64)
}

var _ SignalDetector = (*StrategyCombiner)(nil)

// SignalAgent polls the watch-list on a fixed interval. Symbols are checked
// one after another inside a cycle and cycles never overlap.
type SignalAgent struct {
	detector SignalDetector
	store    domrepo.SignalStore
	metrics  domrepo.Metrics
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	cfg     models.AgentConfig
	fetcher domrepo.MarketDataFetcher
	sched   *gocron.Scheduler
	cancel  context.CancelFunc
	status  models.AgentStatus

	subMu  sync.Mutex
	subs   map[int]domrepo.SignalListener
	order  []int
	nextID int
}

// AgentOption configures a SignalAgent.
type AgentOption func(*SignalAgent)

func WithAgentClock(now func() time.Time) AgentOption {
	return func(a *SignalAgent) { a.now = now }
}

func WithAgentMetrics(m domrepo.Metrics) AgentOption {
	return func(a *SignalAgent) {
		if m != nil {
			a.metrics = m
		}
	}
}

func WithAgentLogger(l *logger.Logger) AgentOption {
	return func(a *SignalAgent) {
		if l != nil {
			a.log = l
		}
	}
}

// WithAgentFetcher injects the market data source up front.
func WithAgentFetcher(f domrepo.MarketDataFetcher) AgentOption {
	return func(a *SignalAgent) { a.fetcher = f }
}

func NewSignalAgent(detector SignalDetector, store domrepo.SignalStore, opts ...AgentOption) *SignalAgent {
	a := &SignalAgent{
		detector: detector,
		store:    store,
		metrics:  domrepo.NopMetrics{},
		log:      logger.NewNop(),
		now:      time.Now,
		cfg:      models.DefaultAgentConfig(),
		subs:     make(map[int]domrepo.SignalListener),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.detector.SetMinConfidence(a.cfg.MinConfidence)
	store.Subscribe(a.onSignal)
	return a
}

// SetFetcher replaces the market data source.
func (a *SignalAgent) SetFetcher(f domrepo.MarketDataFetcher) {
	a.mu.Lock()
	a.fetcher = f
	a.mu.Unlock()
}

// Start schedules the polling cycle, running the first one right away.
// Starting a running agent is a no-op.
func (a *SignalAgent) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fetcher == nil {
		a.log.Error("Market data fetcher not set")
		return ErrNoFetcher
	}
	if a.status.IsRunning {
		a.log.Warn("Signal agent already running")
		return nil
	}
	if err := a.scheduleLocked(); err != nil {
		a.log.Error("Signal agent schedule failed", logger.Error(err))
		return err
	}
	a.status.IsRunning = true
	a.cfg.Enabled = true
	a.log.Info("Starting signal agent",
		logger.Strings("symbols", a.cfg.Symbols),
		logger.Duration("interval_ms", a.cfg.CheckInterval))
	return nil
}

func (a *SignalAgent) scheduleLocked() error {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(a.cfg.CheckInterval).StartImmediately().Do(func() { a.RunCycle(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule agent cycle: %w", err)
	}
	s.StartAsync()
	a.sched, a.cancel = s, cancel
	return nil
}

// unscheduleLocked detaches the scheduler; the caller stops it after
// releasing the lock since a running cycle may need the lock to finish.
func (a *SignalAgent) unscheduleLocked() func() {
	s, cancel := a.sched, a.cancel
	a.sched, a.cancel = nil, nil
	return func() {
		if cancel != nil {
			cancel()
		}
		if s != nil {
			s.Stop()
		}
	}
}

// Stop cancels the schedule and any in-flight cycle.
func (a *SignalAgent) Stop() {
	a.mu.Lock()
	if !a.status.IsRunning {
		a.mu.Unlock()
		return
	}
	halt := a.unscheduleLocked()
	a.status.IsRunning = false
	a.status.CurrentSymbol = nil
	a.cfg.Enabled = false
	a.mu.Unlock()

	halt()
	a.log.Info("Signal agent stopped")
}

// Configure merges patch over the current configuration. A new interval
// reschedules a running agent; Enabled starts or stops it.
func (a *SignalAgent) Configure(patch models.AgentConfigPatch) error {
	a.mu.Lock()
	prev := a.cfg
	next := patch.Apply(prev)
	next.Enabled = prev.Enabled
	a.cfg = next
	a.detector.SetMinConfidence(next.MinConfidence)

	var halt func()
	if a.status.IsRunning && next.CheckInterval != prev.CheckInterval {
		halt = a.unscheduleLocked()
		if err := a.scheduleLocked(); err != nil {
			a.status.IsRunning = false
			a.cfg.Enabled = false
			a.mu.Unlock()
			halt()
			return err
		}
	}
	a.mu.Unlock()
	if halt != nil {
		halt()
	}

	a.log.Info("Signal agent configured",
		logger.Strings("symbols", next.Symbols),
		logger.Duration("interval_ms", next.CheckInterval),
		logger.Float64("minConfidence", next.MinConfidence),
		logger.Float64("minVolumeUSD", next.MinVolumeUSD))

	if patch.Enabled != nil {
		if *patch.Enabled {
			return a.Start()
		}
		a.Stop()
	}
	return nil
}

// Config returns a copy of the current configuration.
func (a *SignalAgent) Config() models.AgentConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg := a.cfg
	cfg.Symbols = append([]string(nil), a.cfg.Symbols...)
	return cfg
}

// Status returns a snapshot with the active signal count taken from the store.
func (a *SignalAgent) Status() models.AgentStatus {
	active := len(a.store.ActiveSignals(a.now().UnixMilli()))
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status
	st.ActiveSignals = active
	if st.CurrentSymbol != nil {
		sym := *st.CurrentSymbol
		st.CurrentSymbol = &sym
	}
	return st
}

func (a *SignalAgent) ActiveSignals() []*models.ExtremePoint {
	return a.store.ActiveSignals(a.now().UnixMilli())
}

// Subscribe registers fn for every newly created signal.
func (a *SignalAgent) Subscribe(fn domrepo.SignalListener) (unsubscribe func()) {
	a.subMu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	a.order = append(a.order, id)
	a.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			for i, v := range a.order {
				if v == id {
					a.order = append(a.order[:i], a.order[i+1:]...)
					break
				}
			}
			a.subMu.Unlock()
		})
	}
}

func (a *SignalAgent) onSignal(sig *models.ExtremePoint) {
	a.mu.Lock()
	a.status.SignalsGenerated++
	a.mu.Unlock()

	a.subMu.Lock()
	listeners := make([]domrepo.SignalListener, 0, len(a.order))
	for _, id := range a.order {
		listeners = append(listeners, a.subs[id])
	}
	a.subMu.Unlock()

	for _, fn := range listeners {
		a.notify(fn, sig)
	}
}

func (a *SignalAgent) notify(fn domrepo.SignalListener, sig *models.ExtremePoint) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("Error notifying subscriber",
				logger.String("signal", sig.ID), logger.Any("panic", r))
		}
	}()
	fn(sig.Clone())
}

// RunCycle performs one pass over the watch-list. A cancelled context ends the
// pass early; the cycle still counts.
func (a *SignalAgent) RunCycle(ctx context.Context) {
	start := time.Now()
	if n := a.store.CleanupExpired(a.now().UnixMilli()); n > 0 {
		a.log.Debug("Expired signals swept", logger.Int("count", n))
	}

	a.mu.Lock()
	symbols := append([]string(nil), a.cfg.Symbols...)
	a.mu.Unlock()

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		a.setCurrent(symbol)
		det, err := a.check(ctx, symbol)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				a.metrics.RecordError("check_symbol")
				a.log.Error("Error checking symbol", logger.String("symbol", symbol), logger.Error(err))
			}
			continue
		}
		if det.Accepted() {
			a.log.Info("Signal generated",
				logger.String("symbol", symbol),
				logger.String("type", string(det.Signal.SignalType)),
				logger.Float64("confidence", det.Signal.Confidence))
		}
	}

	a.mu.Lock()
	a.status.LastCheck = a.now().UnixMilli()
	a.status.ChecksPerformed++
	a.status.CurrentSymbol = nil
	a.mu.Unlock()
	a.metrics.RecordLatency("cycle_seconds", time.Since(start).Seconds())
}

// CheckSymbol runs one on-demand check with the same gates as a cycle.
func (a *SignalAgent) CheckSymbol(ctx context.Context, symbol string) (models.Detection, error) {
	a.mu.Lock()
	hasFetcher := a.fetcher != nil
	a.mu.Unlock()
	if !hasFetcher {
		a.log.Error("Market data fetcher not set")
		return models.Detection{Symbol: symbol}, ErrNoFetcher
	}
	return a.check(ctx, symbol)
}

func (a *SignalAgent) setCurrent(symbol string) {
	a.mu.Lock()
	a.status.CurrentSymbol = &symbol
	a.mu.Unlock()
}

// check fetches and analyses one symbol. Panics become errors.
func (a *SignalAgent) check(ctx context.Context, symbol string) (det models.Detection, err error) {
	det.Symbol = symbol
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check %s panicked: %v", symbol, r)
		}
	}()

	a.mu.Lock()
	fetcher, minVolume := a.fetcher, a.cfg.MinVolumeUSD
	a.mu.Unlock()
	if fetcher == nil {
		return det, ErrNoFetcher
	}

	snap, err := fetcher.Fetch(ctx, symbol)
	if err != nil {
		return det, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if snap == nil {
		a.log.Warn("Failed to fetch market data", logger.String("symbol", symbol))
		det.Outcome = models.OutcomeInsufficientData
		return det, nil
	}
	if snap.Volume24hUSD < minVolume {
		a.log.Debug("Volume below threshold",
			logger.String("symbol", symbol),
			logger.Float64("volume24hUSD", snap.Volume24hUSD))
		a.metrics.RecordCheck(symbol, models.OutcomeBelowVolume)
		det.Outcome = models.OutcomeBelowVolume
		return det, nil
	}
	return a.detector.Detect(ctx, symbol, snap)
}
