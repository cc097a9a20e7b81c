package usecase

import (
	"errors"
	"testing"
	"time"

	"ExtremeScan/internal/domain/models"
)

type fakeNotifier struct {
	enabled bool
	got     []string
}

func (n *fakeNotifier) Enabled() bool                   { return n.enabled }
func (n *fakeNotifier) Notify(sig *models.ExtremePoint) { n.got = append(n.got, sig.ID) }

func activeSignal(id string) *models.ExtremePoint {
	return &models.ExtremePoint{ID: id, Symbol: "BTCUSDT", Status: models.StatusActive,
		Timestamp: fixedNow.UnixMilli(), ExpiresAt: fixedNow.Add(time.Hour).UnixMilli()}
}

func TestBackgroundServiceLifecycle(t *testing.T) {
	a, _, _ := newTestAgent()
	svc := NewBackgroundService(a, goodFetcher(), &fakeNotifier{}, nil)

	if err := svc.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}

	off := false
	symbols := []string{"BTCUSDT"}
	if err := svc.Initialize(models.ServiceConfigPatch{AutoStart: &off, Symbols: symbols}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	st := svc.Status()
	if !st.Initialized || st.Agent.IsRunning {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Config.CheckInterval != time.Minute || !st.Config.NotifyOnSignal || st.Config.MinVolumeUSD != 2_000_000 {
		t.Fatalf("defaults not merged: %+v", st.Config)
	}
	if cfg := a.Config(); len(cfg.Symbols) != 1 || cfg.Symbols[0] != "BTCUSDT" {
		t.Fatalf("agent not configured: %+v", cfg)
	}

	if err := svc.Initialize(models.ServiceConfigPatch{Symbols: []string{"ETHUSDT"}}); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if svc.Status().Config.Symbols[0] != "BTCUSDT" {
		t.Fatalf("second initialize must be a no-op")
	}

	if err := svc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !svc.Status().Agent.IsRunning {
		t.Fatalf("agent should run")
	}
	svc.Close()
	if svc.Status().Agent.IsRunning {
		t.Fatalf("agent should stop on close")
	}
}

func TestBackgroundServiceAutoStart(t *testing.T) {
	a, _, _ := newTestAgent()
	svc := NewBackgroundService(a, goodFetcher(), nil, nil)
	if err := svc.Initialize(models.ServiceConfigPatch{}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer svc.Close()
	if !svc.Status().Agent.IsRunning {
		t.Fatalf("autoStart defaults to true")
	}
}

func TestBackgroundServiceFanOut(t *testing.T) {
	a, _, store := newTestAgent()
	notifier := &fakeNotifier{enabled: true}
	svc := NewBackgroundService(a, goodFetcher(), notifier, nil)
	off := false
	_ = svc.Initialize(models.ServiceConfigPatch{AutoStart: &off})

	var got []string
	svc.OnSignal(func(*models.ExtremePoint) { panic("callback bug") })
	unsub := svc.OnSignal(func(sig *models.ExtremePoint) { got = append(got, sig.ID) })

	_ = store.Save(activeSignal("ep_1"))
	notifier.enabled = false
	_ = store.Save(activeSignal("ep_2"))
	unsub()
	_ = store.Save(activeSignal("ep_3"))

	if len(got) != 2 || got[1] != "ep_2" {
		t.Fatalf("callbacks got %v", got)
	}
	if len(notifier.got) != 1 || notifier.got[0] != "ep_1" {
		t.Fatalf("notifier got %v, want only ep_1 while enabled", notifier.got)
	}
	if n := len(svc.ActiveSignals()); n != 3 {
		t.Fatalf("active signals = %d", n)
	}
}

func TestBackgroundServiceNotifyOff(t *testing.T) {
	a, _, store := newTestAgent()
	notifier := &fakeNotifier{enabled: true}
	svc := NewBackgroundService(a, nil, notifier, nil)
	off := false
	_ = svc.Initialize(models.ServiceConfigPatch{AutoStart: &off, NotifyOnSignal: &off})
	_ = store.Save(activeSignal("ep_1"))
	if len(notifier.got) != 0 {
		t.Fatalf("notifyOnSignal=false must skip the notifier")
	}
}
