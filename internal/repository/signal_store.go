package repository

import (
	"fmt"
	"sort"
	"sync"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	applogger "ExtremeScan/pkg/logger"
)

// DefaultMaxSignals bounds the in-memory signal table.
const DefaultMaxSignals = 1000

type subscriber struct {
	id int
	fn domrepo.SignalListener
}

// MemorySignalStore keeps signals for the life of the process.
// Every read hands out copies.
type MemorySignalStore struct {
	mu      sync.RWMutex
	signals map[string]*models.ExtremePoint
	max     int

	subMu  sync.Mutex
	subs   []subscriber
	nextID int

	l       *applogger.Logger
	metrics domrepo.Metrics
}

// StoreOption configures a MemorySignalStore.
type StoreOption func(*MemorySignalStore)

// WithMaxSignals caps the table; n <= 0 keeps the default.
func WithMaxSignals(n int) StoreOption {
	return func(s *MemorySignalStore) {
		if n > 0 {
			s.max = n
		}
	}
}

func WithStoreLogger(l *applogger.Logger) StoreOption {
	return func(s *MemorySignalStore) { s.l = l }
}

func WithStoreMetrics(m domrepo.Metrics) StoreOption {
	return func(s *MemorySignalStore) { s.metrics = m }
}

func NewMemorySignalStore(opts ...StoreOption) *MemorySignalStore {
	s := &MemorySignalStore{
		signals: make(map[string]*models.ExtremePoint),
		max:     DefaultMaxSignals,
		l:       applogger.NewNop(),
		metrics: domrepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a copy of signal and notifies subscribers synchronously.
func (s *MemorySignalStore) Save(signal *models.ExtremePoint) error {
	if signal == nil || signal.ID == "" {
		return fmt.Errorf("save signal: missing id")
	}
	s.mu.Lock()
	s.signals[signal.ID] = signal.Clone()
	evicted := s.evictLocked()
	s.mu.Unlock()

	if evicted > 0 {
		s.l.Debug("signal store evicted entries", applogger.Int("evicted", evicted), applogger.Int("max", s.max))
	}
	s.notify(signal)
	return nil
}

// evictLocked drops terminal signals oldest first, then the oldest active ones,
// until the table fits. Caller holds s.mu.
func (s *MemorySignalStore) evictLocked() int {
	over := len(s.signals) - s.max
	if over <= 0 {
		return 0
	}
	all := make([]*models.ExtremePoint, 0, len(s.signals))
	for _, sp := range s.signals {
		all = append(all, sp)
	}
	sort.Slice(all, func(i, j int) bool {
		ti, tj := all[i].Status.Terminal(), all[j].Status.Terminal()
		if ti != tj {
			return ti
		}
		if all[i].Timestamp != all[j].Timestamp {
			return all[i].Timestamp < all[j].Timestamp
		}
		return all[i].ID < all[j].ID
	})
	for _, sp := range all[:over] {
		delete(s.signals, sp.ID)
	}
	return over
}

func (s *MemorySignalStore) Get(id string) (*models.ExtremePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.signals[id]
	if !ok {
		return nil, false
	}
	return sp.Clone(), true
}

// UpdateStatus moves an ACTIVE signal into a terminal state.
func (s *MemorySignalStore) UpdateStatus(id string, status models.SignalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.signals[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, domrepo.ErrSignalNotFound)
	}
	if !models.CanTransition(sp.Status, status) {
		s.l.Warn("rejected signal status transition",
			applogger.String("id", id),
			applogger.String("from", string(sp.Status)),
			applogger.String("to", string(status)))
		return fmt.Errorf("update %s %s -> %s: %w", id, sp.Status, status, domrepo.ErrInvalidTransition)
	}
	sp.Status = status
	return nil
}

// ActiveSignals returns ACTIVE, unexpired signals, newest first.
func (s *MemorySignalStore) ActiveSignals(nowMs int64) []*models.ExtremePoint {
	s.mu.RLock()
	out := make([]*models.ExtremePoint, 0, len(s.signals))
	for _, sp := range s.signals {
		if sp.ActiveAt(nowMs) {
			out = append(out, sp.Clone())
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out
}

// All returns every stored signal regardless of status, newest first.
func (s *MemorySignalStore) All() []*models.ExtremePoint {
	s.mu.RLock()
	out := make([]*models.ExtremePoint, 0, len(s.signals))
	for _, sp := range s.signals {
		out = append(out, sp.Clone())
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out
}

// CleanupExpired marks ACTIVE signals past their expiry as EXPIRED.
func (s *MemorySignalStore) CleanupExpired(nowMs int64) int {
	s.mu.Lock()
	n := 0
	active := 0
	for _, sp := range s.signals {
		if sp.Status != models.StatusActive {
			continue
		}
		if sp.ExpiresAt < nowMs {
			sp.Status = models.StatusExpired
			n++
			continue
		}
		active++
	}
	s.mu.Unlock()

	s.metrics.SetActiveSignals(active)
	if n > 0 {
		s.l.Info("expired signals swept", applogger.Int("count", n))
	}
	return n
}

// Subscribe registers fn for new signals. The returned func is idempotent.
func (s *MemorySignalStore) Subscribe(fn domrepo.SignalListener) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *MemorySignalStore) notify(signal *models.ExtremePoint) {
	s.subMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.Unlock()

	for _, sub := range subs {
		s.deliver(sub, signal.Clone())
	}
}

func (s *MemorySignalStore) deliver(sub subscriber, signal *models.ExtremePoint) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordError("subscriber_panic")
			s.l.Error("Error notifying subscriber",
				applogger.String("signal_id", signal.ID),
				applogger.Any("panic", r))
		}
	}()
	sub.fn(signal)
}

func sortNewestFirst(xs []*models.ExtremePoint) {
	sort.Slice(xs, func(i, j int) bool {
		if xs[i].Timestamp != xs[j].Timestamp {
			return xs[i].Timestamp > xs[j].Timestamp
		}
		return xs[i].ID > xs[j].ID
	})
}

var _ domrepo.SignalStore = (*MemorySignalStore)(nil)
