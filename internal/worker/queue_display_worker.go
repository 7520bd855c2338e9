package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/service"
)

// WaitingLister reads the waiting queue in FIFO order.
type WaitingLister interface {
	ListWaiting(ctx context.Context) ([]domain.Ticket, error)
}

// QueueDisplayWorker polls the waiting queue and publishes snapshots. Polls
// may overlap; a poll that resolves after a newer one was applied is dropped.
type QueueDisplayWorker struct {
	tickets  WaitingLister
	store    service.SnapshotStore
	interval time.Duration
	seq      Sequencer
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewQueueDisplayWorker builds the worker.
func NewQueueDisplayWorker(tickets WaitingLister, store service.SnapshotStore, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *QueueDisplayWorker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueDisplayWorker{
		tickets:  tickets,
		store:    store,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start polls immediately and then every interval until ctx is done.
func (w *QueueDisplayWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		go w.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go w.Poll(ctx)
			}
		}
	}()
}

// Poll runs one fetch and applies it if still the newest. It returns whether
// the result was applied.
func (w *QueueDisplayWorker) Poll(ctx context.Context) bool {
	seq := w.seq.Next()
	pollCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	waiting, err := w.tickets.ListWaiting(pollCtx)
	if err != nil {
		w.metrics.Inc(observability.CounterReadDegraded)
		w.logger.Warn("queue display poll failed", zap.Uint64("sequence", seq), zap.Error(err))
		return false
	}

	snapshot := domain.NewQueueSnapshot(seq, waiting, w.now())
	applied := w.seq.TryApply(seq, func() {
		if err := w.store.Store(pollCtx, snapshot); err != nil {
			w.logger.Warn("queue snapshot store failed", zap.Uint64("sequence", seq), zap.Error(err))
		}
	})
	if !applied {
		w.metrics.Inc(observability.CounterStalePollDiscarded)
		w.logger.Debug("stale queue poll discarded", zap.Uint64("sequence", seq), zap.Uint64("applied", w.seq.Applied()))
	}
	return applied
}
