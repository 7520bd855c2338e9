package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/redemption-queue/internal/domain"
)

// memoryTicketRepository keeps tickets in process memory. It enforces the
// queue_number uniqueness constraint and mirrors the pgx repository's
// zero-row semantics, and backs local runs without POSTGRES_DSN.
type memoryTicketRepository struct {
	mu        sync.RWMutex
	tickets   map[string]domain.Ticket
	lastOrder int64
}

// NewMemoryTicketRepository instantiates an empty in-memory store.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tickets {
		if existing.QueueNumber == ticket.QueueNumber {
			return fmt.Errorf("%w: %d", ErrDuplicateQueueNumber, ticket.QueueNumber)
		}
	}
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	r.lastOrder++
	ticket.QueueOrder = r.lastOrder
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTicketRepository) MaxQueueNumber(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max int64
	for _, t := range r.tickets {
		if t.QueueNumber > max {
			max = t.QueueNumber
		}
	}
	return max, nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	statuses := make(map[domain.TicketStatus]struct{}, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = struct{}{}
	}
	result := r.collect(func(t domain.Ticket) bool {
		if len(statuses) == 0 {
			return true
		}
		_, ok := statuses[t.Status]
		return ok
	})
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		end := offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}
	return result, nil
}

func (r *memoryTicketRepository) ListWaiting(ctx context.Context) ([]domain.Ticket, error) {
	return r.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusWaiting}})
}

func (r *memoryTicketRepository) SearchAny(_ context.Context, pattern string, columns []string) ([]domain.Ticket, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}
	re, err := likeRegexp(pattern)
	if err != nil {
		return nil, err
	}
	return r.collect(func(t domain.Ticket) bool {
		for _, c := range columns {
			if v, ok := columnValue(t, c); ok && re.MatchString(v) {
				return true
			}
		}
		return false
	}), nil
}

func (r *memoryTicketRepository) UpdateStatus(_ context.Context, id string, change StatusChange) error {
	return r.mutate(id, func(t *domain.Ticket) {
		t.Status = change.Status
		if change.AdminNotes != nil {
			notes := *change.AdminNotes
			t.AdminNotes = &notes
		}
		t.ProblemCategory = change.ProblemCategory
		t.UpdatedAt = change.UpdatedAt
	})
}

func (r *memoryTicketRepository) UpdateNotes(_ context.Context, id string, notes *string, updatedAt time.Time) error {
	return r.mutate(id, func(t *domain.Ticket) {
		t.AdminNotes = notes
		t.UpdatedAt = updatedAt
	})
}

func (r *memoryTicketRepository) SetRedemptionLink(_ context.Context, id, requestID string) error {
	return r.mutate(id, func(t *domain.Ticket) {
		t.RedemptionRequestID = &requestID
	})
}

func (r *memoryTicketRepository) SwapQueueOrder(_ context.Context, firstID, secondID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, okA := r.tickets[firstID]
	b, okB := r.tickets[secondID]
	if !okA || !okB || firstID == secondID {
		return pgx.ErrNoRows
	}
	a.QueueOrder, b.QueueOrder = b.QueueOrder, a.QueueOrder
	r.tickets[a.ID] = a
	r.tickets[b.ID] = b
	return nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *memoryTicketRepository) mutate(id string, fn func(t *domain.Ticket)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&t)
	r.tickets[id] = t
	return nil
}

func (r *memoryTicketRepository) collect(keep func(domain.Ticket) bool) []domain.Ticket {
	r.mu.RLock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if keep(t) {
			result = append(result, t)
		}
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].QueueOrder != result[j].QueueOrder {
			return result[i].QueueOrder < result[j].QueueOrder
		}
		return result[i].QueueNumber < result[j].QueueNumber
	})
	return result
}

func columnValue(t domain.Ticket, column string) (string, bool) {
	var v *string
	switch column {
	case "contact_info":
		return t.ContactInfo, true
	case "roblox_username":
		v = t.RobloxUsername
	case "assigned_code":
		v = t.AssignedCode
	case "customer_name":
		v = t.CustomerName
	}
	if v == nil {
		return "", false
	}
	return *v, true
}
