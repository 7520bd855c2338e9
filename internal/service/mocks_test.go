package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/redemption-queue/internal/config"
	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/repository"
)

var errStorage = errors.New("storage unavailable")

// faultyTickets wraps a ticket repository and lets tests override single methods.
type faultyTickets struct {
	repository.TicketRepository

	mu             sync.Mutex
	createFn       func(ctx context.Context, t *domain.Ticket) error
	listFn         func(ctx context.Context, f repository.TicketFilter) ([]domain.Ticket, error)
	searchFn       func(ctx context.Context, pattern string, columns []string) ([]domain.Ticket, error)
	updateStatusFn func(ctx context.Context, id string, change repository.StatusChange) error
	setLinkFn      func(ctx context.Context, id, requestID string) error
	creates        int
	statusWrites   int
	swaps          int
	searchPatterns []string
}

func (f *faultyTickets) Create(ctx context.Context, t *domain.Ticket) error {
	f.mu.Lock()
	f.creates++
	fn := f.createFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, t)
	}
	return f.TicketRepository.Create(ctx, t)
}

func (f *faultyTickets) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return f.TicketRepository.List(ctx, filter)
}

func (f *faultyTickets) SearchAny(ctx context.Context, pattern string, columns []string) ([]domain.Ticket, error) {
	f.mu.Lock()
	f.searchPatterns = append(f.searchPatterns, pattern)
	f.mu.Unlock()
	if f.searchFn != nil {
		return f.searchFn(ctx, pattern, columns)
	}
	return f.TicketRepository.SearchAny(ctx, pattern, columns)
}

func (f *faultyTickets) UpdateStatus(ctx context.Context, id string, change repository.StatusChange) error {
	f.mu.Lock()
	f.statusWrites++
	f.mu.Unlock()
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, change)
	}
	return f.TicketRepository.UpdateStatus(ctx, id, change)
}

func (f *faultyTickets) SetRedemptionLink(ctx context.Context, id, requestID string) error {
	if f.setLinkFn != nil {
		return f.setLinkFn(ctx, id, requestID)
	}
	return f.TicketRepository.SetRedemptionLink(ctx, id, requestID)
}

func (f *faultyTickets) SwapQueueOrder(ctx context.Context, firstID, secondID string) error {
	f.mu.Lock()
	f.swaps++
	f.mu.Unlock()
	return f.TicketRepository.SwapQueueOrder(ctx, firstID, secondID)
}

// faultyRequests wraps a redemption repository.
type faultyRequests struct {
	repository.RedemptionRepository

	listErr      error
	updateErr    error
	statusWrites   map[string]domain.RedemptionStatus
}

func (f *faultyRequests) ListAll(ctx context.Context) ([]domain.RedemptionRequest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.RedemptionRepository.ListAll(ctx)
}

func (f *faultyRequests) UpdateStatus(ctx context.Context, id string, status domain.RedemptionStatus) error {
	if f.statusWrites == nil {
		f.statusWrites = map[string]domain.RedemptionStatus{}
	}
	f.statusWrites[id] = status
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.RedemptionRepository.UpdateStatus(ctx, id, status)
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	tickets    *faultyTickets
	requests   *faultyRequests
	history    repository.TicketHistoryRepository
	dispatcher *recordingDispatcher
	metrics    *observability.Metrics
	deps       QueueDependencies
	clock      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		tickets:    &faultyTickets{TicketRepository: repository.NewMemoryTicketRepository()},
		requests:   &faultyRequests{RedemptionRepository: repository.NewMemoryRedemptionRepository()},
		history:    repository.NewMemoryTicketHistoryRepository(),
		dispatcher: &recordingDispatcher{},
		metrics:    observability.NewMetrics(),
		clock:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.deps = QueueDependencies{
		TicketRepo:     f.tickets,
		RedemptionRepo: f.requests,
		HistoryRepo:    f.history,
		Dispatcher:     f.dispatcher,
		Metrics:        f.metrics,
		Config: config.QueueConfig{
			AllocationAttempts:   3,
			AllocationRetryDelay: time.Millisecond,
			PersistLinksOnRead:   true,
		},
		Now: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	return f
}

// seed stores a ticket directly, one minute after the previous one.
func (f *fixture) seed(t *testing.T, number int64, status domain.TicketStatus, contact string) *domain.Ticket {
	t.Helper()
	f.clock = f.clock.Add(time.Minute)
	ticket := &domain.Ticket{
		QueueNumber: number,
		ContactInfo: contact,
		ProductType: domain.ProductTypeRobux,
		Status:      status,
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	require.NoError(t, f.tickets.TicketRepository.Create(context.Background(), ticket))
	return ticket
}

func (f *fixture) seedRequest(t *testing.T, req domain.RedemptionRequest) *domain.RedemptionRequest {
	t.Helper()
	require.NoError(t, f.requests.RedemptionRepository.Create(context.Background(), &req))
	return &req
}

func (f *fixture) reload(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	return ticket
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func categoryPtr(c domain.ProblemCategory) *domain.ProblemCategory { return &c }
