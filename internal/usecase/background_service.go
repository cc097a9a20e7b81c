package usecase

import (
	"errors"
	"sync"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	"ExtremeScan/pkg/logger"
)

var ErrNotInitialized = errors.New("background service not initialized")

// Notifier pushes new signals to the outside world. Enabled gates delivery.
type Notifier interface {
	Enabled() bool
	Notify(signal *models.ExtremePoint)
}

// BackgroundService owns the agent for the life of the process: it applies
// the service configuration once, wires the fetcher and forwards new signals
// to callbacks and the notifier.
type BackgroundService struct {
	agent    *SignalAgent
	fetcher  domrepo.MarketDataFetcher
	notifier Notifier
	log      *logger.Logger

	mu          sync.Mutex
	initialized bool
	cfg         models.ServiceConfig
	unsubscribe func()

	cbMu   sync.Mutex
	cbs    map[int]domrepo.SignalListener
	cbSeq  []int
	nextCb int
}

func NewBackgroundService(agent *SignalAgent, fetcher domrepo.MarketDataFetcher, notifier Notifier, log *logger.Logger) *BackgroundService {
	if log == nil {
		log = logger.NewNop()
	}
	return &BackgroundService{
		agent:    agent,
		fetcher:  fetcher,
		notifier: notifier,
		log:      log,
		cfg:      models.DefaultServiceConfig(),
		cbs:      make(map[int]domrepo.SignalListener),
	}
}

// Initialize runs once; later calls only warn.
func (s *BackgroundService) Initialize(patch models.ServiceConfigPatch) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		s.log.Warn("Background service already initialized")
		return nil
	}
	cfg := patch.Apply(models.DefaultServiceConfig())
	s.cfg = cfg
	s.initialized = true
	s.mu.Unlock()

	if err := s.agent.Configure(cfg.AgentPatch()); err != nil {
		return err
	}
	if s.fetcher != nil {
		s.agent.SetFetcher(s.fetcher)
	}
	unsub := s.agent.Subscribe(s.handleSignal)
	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()

	s.log.Info("Background signal service initialized",
		logger.Strings("symbols", cfg.Symbols),
		logger.Bool("autoStart", cfg.AutoStart),
		logger.Bool("notifyOnSignal", cfg.NotifyOnSignal))

	if cfg.AutoStart {
		return s.agent.Start()
	}
	return nil
}

func (s *BackgroundService) isInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *BackgroundService) Start() error {
	if !s.isInitialized() {
		return ErrNotInitialized
	}
	return s.agent.Start()
}

func (s *BackgroundService) Stop() {
	s.agent.Stop()
}

// Close stops the agent and detaches from it.
func (s *BackgroundService) Close() {
	s.agent.Stop()
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// OnSignal registers a callback for new signals.
func (s *BackgroundService) OnSignal(fn domrepo.SignalListener) (unsubscribe func()) {
	s.cbMu.Lock()
	id := s.nextCb
	s.nextCb++
	s.cbs[id] = fn
	s.cbSeq = append(s.cbSeq, id)
	s.cbMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.cbMu.Lock()
			defer s.cbMu.Unlock()
			delete(s.cbs, id)
			for i, v := range s.cbSeq {
				if v == id {
					s.cbSeq = append(s.cbSeq[:i], s.cbSeq[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *BackgroundService) Status() models.ServiceStatus {
	s.mu.Lock()
	cfg := s.cfg
	cfg.Symbols = append([]string(nil), s.cfg.Symbols...)
	initialized := s.initialized
	s.mu.Unlock()
	return models.ServiceStatus{Initialized: initialized, Agent: s.agent.Status(), Config: cfg}
}

func (s *BackgroundService) ActiveSignals() []*models.ExtremePoint {
	return s.agent.ActiveSignals()
}

func (s *BackgroundService) handleSignal(sig *models.ExtremePoint) {
	s.log.Info("New signal detected",
		logger.String("id", sig.ID),
		logger.String("symbol", sig.Symbol),
		logger.String("type", string(sig.SignalType)),
		logger.Float64("confidence", sig.Confidence))

	s.cbMu.Lock()
	cbs := make([]domrepo.SignalListener, 0, len(s.cbSeq))
	for _, id := range s.cbSeq {
		cbs = append(cbs, s.cbs[id])
	}
	s.cbMu.Unlock()
	for _, fn := range cbs {
		s.invoke(fn, sig)
	}

	s.mu.Lock()
	notify := s.cfg.NotifyOnSignal
	s.mu.Unlock()
	if notify && s.notifier != nil && s.notifier.Enabled() {
		s.notifier.Notify(sig)
	}
}

func (s *BackgroundService) invoke(fn domrepo.SignalListener, sig *models.ExtremePoint) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Signal callback failed", logger.String("signal", sig.ID), logger.Any("panic", r))
		}
	}()
	fn(sig)
}
