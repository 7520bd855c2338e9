package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/redemption-queue/internal/events"
)

type capturingNotifier struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (n *capturingNotifier) Notify(_ context.Context, e events.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *capturingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func TestNotificationService_DeliversPublishedEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	notifier := &capturingNotifier{}
	svc := NewNotificationService(dispatcher, notifier, nil)
	svc.RegisterHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	for _, eventType := range events.AllEventTypes() {
		require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: eventType, TicketID: "t1"}))
	}

	assert.Eventually(t, func() bool { return notifier.count() == len(events.AllEventTypes()) }, time.Second, 5*time.Millisecond)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, events.EventTicketCreated, notifier.events[0].Type)
	assert.NotEmpty(t, notifier.events[0].ID)
}

func TestNotificationService_DeliveryFailureKeepsRunning(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	notifier := &capturingNotifier{err: errStorage}
	svc := NewNotificationService(dispatcher, notifier, nil)
	svc.RegisterHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketDeleted}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketReordered}))
	assert.Eventually(t, func() bool { return notifier.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestNotificationService_FullOutboxDropsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(dispatcher, &capturingNotifier{}, nil)
	svc.RegisterHandlers()

	for i := 0; i < defaultOutboxSize+10; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}))
	}
	assert.Len(t, svc.outbox, defaultOutboxSize)
}

func TestNotificationService_NilNotifierOnlyLogs(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(dispatcher, nil, nil)
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}))
	assert.Empty(t, svc.outbox)
}
