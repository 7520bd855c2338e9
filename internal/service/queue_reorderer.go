package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/repository"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

// Direction is a one-step move within the waiting queue.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether d is up or down.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// QueueReorderer moves waiting tickets by swapping queue_order with a neighbour.
// created_at always keeps the real creation time.
type QueueReorderer struct {
	tickets repository.TicketRepository
	logger  *zap.Logger
	audit   *auditTrail
}

// NewQueueReorderer builds the reorderer.
func NewQueueReorderer(deps QueueDependencies) *QueueReorderer {
	deps = deps.withDefaults()
	return &QueueReorderer{tickets: deps.TicketRepo, logger: deps.Logger, audit: newAuditTrail(deps)}
}

// MoveQueueItem swaps the ticket with its neighbour in FIFO order. Moving the
// first ticket up or the last one down fails with CANNOT_MOVE and writes nothing.
func (r *QueueReorderer) MoveQueueItem(ctx context.Context, id string, direction Direction, changedBy *string) error {
	if !direction.Valid() {
		return apperrors.NewValidationError("direction must be up or down", map[string]any{"direction": direction})
	}

	waiting, err := r.tickets.ListWaiting(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i := range waiting {
		if waiting[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.NewNotFound("waiting ticket", map[string]any{"id": id})
	}

	neighbour := idx - 1
	if direction == DirectionDown {
		neighbour = idx + 1
	}
	if neighbour < 0 || neighbour >= len(waiting) {
		return apperrors.NewCannotMove(string(direction), map[string]any{"id": id, "position": idx + 1})
	}

	moving, other := waiting[idx], waiting[neighbour]
	if err := r.tickets.SwapQueueOrder(ctx, moving.ID, other.ID); err != nil {
		return err
	}

	r.audit.record(ctx, moving.ID, changedBy, domain.ChangeTypeReorder,
		map[string]any{"queue_order": moving.QueueOrder, "position": idx + 1},
		map[string]any{"queue_order": other.QueueOrder, "position": neighbour + 1, "swapped_with": other.ID})
	r.audit.publish(ctx, events.Event{
		Type:     events.EventTicketReordered,
		TicketID: moving.ID,
		Actor:    adminActor(changedBy),
		Payload: events.TicketReorderedPayload{
			Direction:     string(direction),
			SwappedWithID: other.ID,
		},
	})
	return nil
}
