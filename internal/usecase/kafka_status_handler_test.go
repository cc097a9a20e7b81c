package usecase

import (
	"context"
	"errors"
	"testing"

	"ExtremeScan/internal/domain/models"
	"ExtremeScan/internal/repository"
	pkgkafka "ExtremeScan/pkg/kafka"
)

func TestKafkaStatusHandler(t *testing.T) {
	store := repository.NewMemorySignalStore()
	_ = store.Save(activeSignal("ep_1"))
	h := NewKafkaStatusHandler("signal-status", store, nil, nil)
	ctx := context.Background()

	if h.Topic() != "signal-status" {
		t.Fatalf("topic = %s", h.Topic())
	}
	if err := h.Handle(ctx, []byte(`{"id":"ep_1","status":"TRIGGERED"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if sig, _ := store.Get("ep_1"); sig.Status != models.StatusTriggered {
		t.Fatalf("status = %s", sig.Status)
	}

	// rejected transitions are dropped, not retried
	if err := h.Handle(ctx, []byte(`{"id":"ep_1","status":"EXPIRED"}`)); err != nil {
		t.Fatalf("backward transition should be swallowed: %v", err)
	}
	if sig, _ := store.Get("ep_1"); sig.Status != models.StatusTriggered {
		t.Fatalf("status changed to %s", sig.Status)
	}
	if err := h.Handle(ctx, []byte(`{"id":"nope","status":"EXPIRED"}`)); err != nil {
		t.Fatalf("unknown id should be swallowed: %v", err)
	}

	var perm *pkgkafka.PermanentError
	for _, raw := range []string{`not json`, `{"id":"ep_1","status":"DONE"}`, `{"status":"EXPIRED"}`} {
		if err := h.Handle(ctx, []byte(raw)); !errors.As(err, &perm) {
			t.Errorf("%s: expected permanent error, got %v", raw, err)
		}
	}
}
