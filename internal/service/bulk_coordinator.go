package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/observability"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

// StatusUpdater applies a single status change.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, update StatusUpdate) (*domain.Ticket, error)
}

// BulkStatusInput applies one status, with shared notes and category, to many tickets.
type BulkStatusInput struct {
	IDs             []string
	Status          domain.TicketStatus
	AdminNotes      *string
	ProblemCategory *domain.ProblemCategory
	ChangedBy       *string
}

// BulkFailure names a ticket the bulk operation could not update.
type BulkFailure struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// BulkResult aggregates per-item outcomes.
type BulkResult struct {
	Success  int           `json:"success"`
	Failure  int           `json:"failure"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

// BulkCoordinator runs status updates one ticket at a time.
type BulkCoordinator struct {
	updater StatusUpdater
	logger  *zap.Logger
	metrics *observability.Metrics
	audit   *auditTrail
}

// NewBulkCoordinator builds the coordinator over updater.
func NewBulkCoordinator(updater StatusUpdater, deps QueueDependencies) *BulkCoordinator {
	deps = deps.withDefaults()
	return &BulkCoordinator{
		updater: updater,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		audit:   newAuditTrail(deps),
	}
}

// ApplyStatus attempts every id in order. A failed item is counted and the
// rest still run; successful items are never rolled back.
func (b *BulkCoordinator) ApplyStatus(ctx context.Context, input BulkStatusInput) (BulkResult, error) {
	result := BulkResult{}
	if len(input.IDs) == 0 {
		return result, apperrors.NewValidationError("no tickets selected", nil)
	}
	if !input.Status.Valid() {
		return result, apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
	}

	for _, id := range input.IDs {
		_, err := b.updater.UpdateStatus(ctx, StatusUpdate{
			TicketID:        id,
			Status:          input.Status,
			AdminNotes:      input.AdminNotes,
			ProblemCategory: input.ProblemCategory,
			ChangedBy:       input.ChangedBy,
		})
		if err != nil {
			result.Failure++
			domainErr := apperrors.ToDomainError(err)
			result.Failures = append(result.Failures, BulkFailure{ID: id, Code: domainErr.Code, Error: domainErr.Message})
			b.metrics.Inc(observability.CounterBulkItemFailed)
			b.logger.Warn("bulk status item failed", zap.String("ticket_id", id), zap.Error(err))
			continue
		}
		result.Success++
	}

	b.logger.Info("bulk status applied",
		zap.String("status", string(input.Status)),
		zap.Int("success", result.Success),
		zap.Int("failure", result.Failure))
	b.audit.publish(ctx, events.Event{
		Type:  events.EventTicketBulkStatusApplied,
		Actor: adminActor(input.ChangedBy),
		Payload: events.TicketBulkStatusAppliedPayload{
			Status:  input.Status,
			Success: result.Success,
			Failure: result.Failure,
		},
	})
	return result, nil
}
