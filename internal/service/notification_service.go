package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/events"
)

const defaultOutboxSize = 256

// Notifier delivers an event to admins outside the process.
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// NotificationService logs domain events and queues them for delivery.
// Delivery is at-most-once: a full outbox drops the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	logger     *zap.Logger
	outbox     chan events.Event
}

// NewNotificationService creates the service. A nil notifier only logs.
func NewNotificationService(dispatcher events.Dispatcher, notifier Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		outbox:     make(chan events.Event, defaultOutboxSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

// Run delivers queued events until ctx is done.
func (n *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.outbox:
			n.deliver(ctx, event)
		}
	}
}

func (n *NotificationService) handle(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor", event.Actor.Type),
		zap.Any("payload", event.Payload))
	if n.notifier == nil {
		return nil
	}
	select {
	case n.outbox <- event:
	default:
		n.logger.Warn("notification outbox full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event) {
	if err := n.notifier.Notify(ctx, event); err != nil {
		n.logger.Warn("admin notification failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
