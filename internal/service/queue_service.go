package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/config"
	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/repository"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

// SnapshotStore holds the most recently applied public queue snapshot.
type SnapshotStore interface {
	Load(ctx context.Context) (*domain.QueueSnapshot, error)
	Store(ctx context.Context, snapshot domain.QueueSnapshot) error
}

// QueueDependencies bundles collaborators shared by the queue engine components.
type QueueDependencies struct {
	TicketRepo     repository.TicketRepository
	RedemptionRepo repository.RedemptionRepository
	HistoryRepo    repository.TicketHistoryRepository
	Snapshots      SnapshotStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Config         config.QueueConfig
	Now            func() time.Time
}

func (d QueueDependencies) withDefaults() QueueDependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// AdminListFilter describes the admin table query.
type AdminListFilter struct {
	Statuses []domain.TicketStatus
	Query    string
	Limit    int
	Offset   int
}

// QueueService is the entry point for queue reads and admin actions.
type QueueService struct {
	tickets   repository.TicketRepository
	history   repository.TicketHistoryRepository
	snapshots SnapshotStore
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	notes     *auditTrail

	allocator *QueueAllocator
	linker    *RecordLinker
	search    *SearchEngine
	machine   *StatusMachine
	bulk      *BulkCoordinator
	reorderer *QueueReorderer
}

// NewQueueService wires the queue engine components over one set of stores.
func NewQueueService(deps QueueDependencies) *QueueService {
	deps = deps.withDefaults()
	machine := NewStatusMachine(deps)
	return &QueueService{
		tickets:   deps.TicketRepo,
		history:   deps.HistoryRepo,
		snapshots: deps.Snapshots,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		now:       deps.Now,
		notes:     newAuditTrail(deps),
		allocator: NewQueueAllocator(deps),
		linker:    NewRecordLinker(deps),
		search:    NewSearchEngine(deps),
		machine:   machine,
		bulk:      NewBulkCoordinator(machine, deps),
		reorderer: NewQueueReorderer(deps),
	}
}

// AddToQueue creates a waiting ticket with the next queue number.
func (s *QueueService) AddToQueue(ctx context.Context, input NewTicketInput) (*domain.Ticket, error) {
	return s.allocator.AddToQueue(ctx, input)
}

// ListTickets returns enriched tickets for the admin table. Read failures
// degrade to an empty list.
func (s *QueueService) ListTickets(ctx context.Context, filter AdminListFilter) []domain.TicketView {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{Statuses: filter.Statuses})
	if err != nil {
		s.readDegraded("list tickets", err)
		return []domain.TicketView{}
	}

	views := s.linker.Enrich(ctx, tickets)
	if q := strings.TrimSpace(filter.Query); q != "" {
		views = FilterViews(views, q)
	}
	return paginate(views, filter.Limit, filter.Offset)
}

// GetTicket returns one enriched ticket, or nil when it does not exist.
func (s *QueueService) GetTicket(ctx context.Context, id string) (*domain.TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil || ticket == nil {
		return nil, err
	}
	view := s.linker.EnrichOne(ctx, *ticket)
	return &view, nil
}

// Lookup is the customer status search. A blank term finds nothing, and
// lookups never store links.
func (s *QueueService) Lookup(ctx context.Context, term string) []domain.TicketView {
	tickets := s.search.Search(ctx, term)
	if len(tickets) == 0 {
		return []domain.TicketView{}
	}
	return s.linker.EnrichReadOnly(ctx, tickets)
}

// Display returns the public waiting queue, preferring the polled snapshot
// and falling back to a live read on a miss.
func (s *QueueService) Display(ctx context.Context) domain.QueueSnapshot {
	if s.snapshots != nil {
		snap, err := s.snapshots.Load(ctx)
		if err != nil {
			s.logger.Warn("queue snapshot unavailable", zap.Error(err))
		} else if snap != nil {
			return *snap
		}
	}
	waiting, err := s.tickets.ListWaiting(ctx)
	if err != nil {
		s.readDegraded("list waiting", err)
		waiting = nil
	}
	return domain.NewQueueSnapshot(0, waiting, s.now())
}

// UpdateStatus applies one admin status transition.
func (s *QueueService) UpdateStatus(ctx context.Context, update StatusUpdate) (*domain.Ticket, error) {
	return s.machine.UpdateStatus(ctx, update)
}

// BulkUpdateStatus applies one transition to many tickets.
func (s *QueueService) BulkUpdateStatus(ctx context.Context, input BulkStatusInput) (BulkResult, error) {
	return s.bulk.ApplyStatus(ctx, input)
}

// MoveQueueItem shifts a waiting ticket one position.
func (s *QueueService) MoveQueueItem(ctx context.Context, id string, direction Direction, changedBy *string) error {
	return s.reorderer.MoveQueueItem(ctx, id, direction, changedBy)
}

// BackfillLinks persists redemption links for every unlinked ticket.
func (s *QueueService) BackfillLinks(ctx context.Context, changedBy *string) (BackfillResult, error) {
	return s.linker.Backfill(ctx, changedBy)
}

// UpdateNotes overwrites admin notes without touching status.
func (s *QueueService) UpdateNotes(ctx context.Context, id string, notes *string, changedBy *string) (*domain.Ticket, error) {
	ticket, err := s.requireTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		trimmed := strings.TrimSpace(*notes)
		if trimmed == "" {
			notes = nil
		} else {
			notes = &trimmed
		}
	}
	updatedAt := s.now()
	if err := s.tickets.UpdateNotes(ctx, id, notes, updatedAt); err != nil {
		return nil, err
	}

	old := ticket.AdminNotes
	ticket.AdminNotes = notes
	ticket.UpdatedAt = updatedAt
	s.notes.record(ctx, ticket.ID, changedBy, domain.ChangeTypeNotes,
		map[string]any{"admin_notes": old},
		map[string]any{"admin_notes": notes})
	return ticket, nil
}

// Delete hard-deletes a ticket. Its redemption request is kept.
func (s *QueueService) Delete(ctx context.Context, id string, changedBy *string) error {
	ticket, err := s.requireTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return err
	}
	s.notes.record(ctx, ticket.ID, changedBy, domain.ChangeTypeDelete,
		map[string]any{"queue_number": ticket.QueueNumber, "status": ticket.Status},
		nil)
	s.notes.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    adminActor(changedBy),
		Payload:  events.TicketDeletedPayload{QueueNumber: ticket.QueueNumber},
	})
	return nil
}

// ProblemStats counts problem tickets per category. Every category is present.
func (s *QueueService) ProblemStats(ctx context.Context) map[domain.ProblemCategory]int {
	stats := map[domain.ProblemCategory]int{domain.ProblemOther: 0}
	for _, c := range domain.SelectableProblemCategories() {
		stats[c] = 0
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusProblem},
	})
	if err != nil {
		s.readDegraded("list problem tickets", err)
		return stats
	}
	for i := range tickets {
		if c := domain.ClassifyProblem(&tickets[i]); c != nil {
			stats[*c]++
		}
	}
	return stats
}

// History lists audit entries for a ticket, newest last.
func (s *QueueService) History(ctx context.Context, id string, limit, offset int) []domain.TicketHistory {
	if s.history == nil {
		return []domain.TicketHistory{}
	}
	entries, err := s.history.ListByTicket(ctx, id, limit, offset)
	if err != nil {
		s.readDegraded("list history", err)
		return []domain.TicketHistory{}
	}
	return entries
}

func (s *QueueService) requireTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

func (s *QueueService) readDegraded(op string, err error) {
	s.metrics.Inc(observability.CounterReadDegraded)
	s.logger.Warn("read failed, returning empty result", zap.String("op", op), zap.Error(err))
}

func paginate(views []domain.TicketView, limit, offset int) []domain.TicketView {
	if limit <= 0 {
		return views
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(views) {
		return []domain.TicketView{}
	}
	end := offset + limit
	if end > len(views) {
		end = len(views)
	}
	return views[offset:end]
}

func sortTickets(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].QueueOrder != tickets[j].QueueOrder {
			return tickets[i].QueueOrder < tickets[j].QueueOrder
		}
		return tickets[i].QueueNumber < tickets[j].QueueNumber
	})
}
