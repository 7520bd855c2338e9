package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/repository"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

const (
	defaultAllocationAttempts   = 3
	defaultAllocationRetryDelay = 100 * time.Millisecond
)

// NewTicketInput is what the submission flow provides for a new queue entry.
type NewTicketInput struct {
	ContactInfo         string
	ProductType         domain.ProductType
	CustomerName        *string
	RobloxUsername      *string
	RobloxPassword      *string
	RobuxAmount         *int64
	AssignedCode        *string
	AssignedAccountCode *string
	CodeID              *string
	RedemptionRequestID *string
}

func (in NewTicketInput) validate() error {
	details := map[string]any{}
	if strings.TrimSpace(in.ContactInfo) == "" {
		details["contact_info"] = "required"
	}
	if !in.ProductType.Valid() {
		details["product_type"] = "must be one of robux, chicken, rainbow, other"
	}
	if in.RobuxAmount != nil && *in.RobuxAmount < 0 {
		details["robux_amount"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid queue ticket", details)
	}
	return nil
}

// QueueAllocator assigns queue numbers as max+1 and inserts the ticket,
// retrying the whole cycle when another writer took the same number.
type QueueAllocator struct {
	tickets    repository.TicketRepository
	requests   repository.RedemptionRepository
	attempts   int
	retryDelay time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics
	audit      *auditTrail
	now        func() time.Time
}

// NewQueueAllocator builds the allocator.
func NewQueueAllocator(deps QueueDependencies) *QueueAllocator {
	deps = deps.withDefaults()
	attempts := deps.Config.AllocationAttempts
	if attempts <= 0 {
		attempts = defaultAllocationAttempts
	}
	delay := deps.Config.AllocationRetryDelay
	if delay <= 0 {
		delay = defaultAllocationRetryDelay
	}
	return &QueueAllocator{
		tickets:    deps.TicketRepo,
		requests:   deps.RedemptionRepo,
		attempts:   attempts,
		retryDelay: delay,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		audit:      newAuditTrail(deps),
		now:        deps.Now,
	}
}

// GenerateQueueNumber returns one more than the highest number ever stored,
// irrespective of status, or 1 for an empty queue.
func (a *QueueAllocator) GenerateQueueNumber(ctx context.Context) (int64, error) {
	max, err := a.tickets.MaxQueueNumber(ctx)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// AddToQueue inserts a waiting ticket. Only duplicate queue numbers are
// retried; every other error is returned immediately.
func (a *QueueAllocator) AddToQueue(ctx context.Context, input NewTicketInput) (*domain.Ticket, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if input.RedemptionRequestID != nil && strings.TrimSpace(*input.RedemptionRequestID) == "" {
		input.RedemptionRequestID = nil
	}
	if input.RedemptionRequestID != nil {
		if err := a.checkLink(ctx, a.compose(input, 0)); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		number, err := a.GenerateQueueNumber(ctx)
		if err != nil {
			return nil, err
		}

		ticket := a.compose(input, number)
		err = a.tickets.Create(ctx, ticket)
		if err == nil {
			a.audit.publish(ctx, events.Event{
				Type:     events.EventTicketCreated,
				TicketID: ticket.ID,
				Actor:    customerActor(),
				Payload: events.TicketCreatedPayload{
					QueueNumber: ticket.QueueNumber,
					ProductType: ticket.ProductType,
				},
			})
			return ticket, nil
		}
		if errors.Is(err, repository.ErrUnknownRedemptionRequest) {
			return nil, invalidLink("unknown redemption request")
		}
		if !errors.Is(err, repository.ErrDuplicateQueueNumber) {
			return nil, err
		}

		lastErr = err
		a.metrics.Inc(observability.CounterAllocationConflict)
		a.logger.Debug("queue number taken, retrying",
			zap.Int64("queue_number", number),
			zap.Int("attempt", attempt))

		if attempt < a.attempts {
			timer := time.NewTimer(a.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	a.metrics.Inc(observability.CounterAllocationExhausted)
	a.logger.Warn("queue number allocation exhausted", zap.Int("attempts", a.attempts), zap.Error(lastErr))
	return nil, apperrors.NewQueueNumberExhausted(a.attempts, lastErr)
}

// checkLink accepts a submitted redemption request id only when it names an
// existing request that the link rules associate with the new ticket.
func (a *QueueAllocator) checkLink(ctx context.Context, ticket *domain.Ticket) error {
	id := strings.TrimSpace(*ticket.RedemptionRequestID)
	if _, err := uuid.Parse(id); err != nil {
		return invalidLink("must be a uuid")
	}
	if a.requests == nil {
		return invalidLink("unknown redemption request")
	}
	req, err := a.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return invalidLink("unknown redemption request")
	}
	if matched, _ := MatchRequest(ticket, []domain.RedemptionRequest{*req}); matched == nil {
		a.logger.Warn("submitted redemption link does not match ticket",
			zap.String("redemption_request_id", id))
		return invalidLink("does not match this ticket")
	}
	return nil
}

func invalidLink(reason string) error {
	return apperrors.NewValidationError("invalid redemption request link", map[string]any{
		"redemption_request_id": reason,
	})
}

func (a *QueueAllocator) compose(input NewTicketInput, number int64) *domain.Ticket {
	now := a.now()
	return &domain.Ticket{
		QueueNumber:         number,
		ContactInfo:         strings.TrimSpace(input.ContactInfo),
		ProductType:         input.ProductType,
		Status:              domain.TicketStatusWaiting,
		CustomerName:        input.CustomerName,
		RobloxUsername:      input.RobloxUsername,
		RobloxPassword:      input.RobloxPassword,
		RobuxAmount:         input.RobuxAmount,
		AssignedCode:        input.AssignedCode,
		AssignedAccountCode: input.AssignedAccountCode,
		CodeID:              input.CodeID,
		RedemptionRequestID: trimmed(input.RedemptionRequestID),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
