package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ExtremeScan/internal/domain/models"
	domrepo "ExtremeScan/internal/domain/repository"
	pkgkafka "ExtremeScan/pkg/kafka"
	applogger "ExtremeScan/pkg/logger"
)

// KafkaStatusHandler applies lifecycle commands such as
// {"id":"ep_BTCUSDT_...","status":"TRIGGERED"} to the signal store.
type KafkaStatusHandler struct {
	topic   string
	store   domrepo.SignalStore
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaStatusHandler(topic string, store domrepo.SignalStore, metrics domrepo.Metrics, l *applogger.Logger) *KafkaStatusHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &KafkaStatusHandler{topic: topic, store: store, metrics: metrics, l: l}
}

func (h *KafkaStatusHandler) Topic() string { return h.topic }

// Handle never asks for a retry: a bad command stays bad.
func (h *KafkaStatusHandler) Handle(ctx context.Context, b []byte) error {
	var m models.SignalStatusUpdate
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("status_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode status update: %w", err))
	}
	if m.ID == "" || !m.Status.Valid() {
		h.metrics.RecordError("status_invalid")
		return pkgkafka.Permanent(fmt.Errorf("invalid status update id=%q status=%q", m.ID, m.Status))
	}

	err := h.store.UpdateStatus(m.ID, m.Status)
	switch {
	case err == nil:
		h.l.Info("signal status updated",
			applogger.String("id", m.ID),
			applogger.String("status", string(m.Status)),
			applogger.String("trace_id", pkgkafka.TraceID(ctx)),
		)
		return nil
	case errors.Is(err, domrepo.ErrSignalNotFound), errors.Is(err, domrepo.ErrInvalidTransition):
		h.metrics.RecordError("status_rejected")
		h.l.Warn("status update rejected",
			applogger.String("id", m.ID),
			applogger.String("status", string(m.Status)),
			applogger.Error(err),
		)
		return nil
	default:
		return err
	}
}

var _ pkgkafka.MessageHandler = (*KafkaStatusHandler)(nil)
