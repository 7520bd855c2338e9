package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/repository"
)

// auditTrail writes best-effort history rows and publishes events. Neither
// ever fails the calling operation.
type auditTrail struct {
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newAuditTrail(deps QueueDependencies) *auditTrail {
	deps = deps.withDefaults()
	return &auditTrail{
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
}

func (a *auditTrail) record(ctx context.Context, ticketID string, changedBy *string, change domain.TicketChangeType, oldValue, newValue map[string]any) {
	if a.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  changedBy,
		ChangeType: change,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  a.now(),
	}
	if err := a.history.Create(ctx, entry); err != nil {
		a.logger.Warn("history write failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(change)),
			zap.Error(err))
	}
}

func (a *auditTrail) publish(ctx context.Context, event events.Event) {
	if a.dispatcher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = a.now()
	}
	if err := a.dispatcher.Publish(ctx, event); err != nil {
		a.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func adminActor(adminID *string) events.Actor {
	if adminID == nil {
		return events.Actor{Type: events.ActorSystem}
	}
	return events.Actor{Type: events.ActorAdmin, AdminID: adminID}
}

func customerActor() events.Actor {
	return events.Actor{Type: events.ActorCustomer}
}
