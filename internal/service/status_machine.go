package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/repository"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusWaiting:       {domain.TicketStatusProcessing, domain.TicketStatusCancelled},
	domain.TicketStatusProcessing:    {domain.TicketStatusCompleted, domain.TicketStatusCancelled, domain.TicketStatusProblem},
	domain.TicketStatusProblem:       {domain.TicketStatusCustomerFixed, domain.TicketStatusProcessing},
	domain.TicketStatusCustomerFixed: {domain.TicketStatusProcessing, domain.TicketStatusCompleted, domain.TicketStatusProblem},
	domain.TicketStatusCompleted:     {domain.TicketStatusProcessing},
	domain.TicketStatusCancelled:     {domain.TicketStatusProcessing},
}

// CanTransition reports whether a ticket may move from one status to
// another. Re-applying the current status is always allowed.
func CanTransition(from, to domain.TicketStatus) bool {
	if from == to {
		return to.Valid()
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusUpdate is one admin status change. A nil AdminNotes keeps the
// stored notes; ProblemCategory is required when Status is problem.
type StatusUpdate struct {
	TicketID        string
	Status          domain.TicketStatus
	AdminNotes      *string
	ProblemCategory *domain.ProblemCategory
	ChangedBy       *string
}

// StatusMachine validates and applies ticket status transitions and
// mirrors them onto the linked redemption request.
type StatusMachine struct {
	tickets  repository.TicketRepository
	requests repository.RedemptionRepository
	logger   *zap.Logger
	metrics  *observability.Metrics
	audit    *auditTrail
	now      func() time.Time
}

// NewStatusMachine builds the state machine.
func NewStatusMachine(deps QueueDependencies) *StatusMachine {
	deps = deps.withDefaults()
	return &StatusMachine{
		tickets:  deps.TicketRepo,
		requests: deps.RedemptionRepo,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		audit:    newAuditTrail(deps),
		now:      deps.Now,
	}
}

// UpdateStatus applies update to its ticket. Mirror sync failures are logged
// and never fail the ticket write.
func (m *StatusMachine) UpdateStatus(ctx context.Context, update StatusUpdate) (*domain.Ticket, error) {
	if !update.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": update.Status})
	}
	change, err := m.buildChange(update)
	if err != nil {
		return nil, err
	}

	ticket, err := m.tickets.GetByID(ctx, update.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": update.TicketID})
	}
	if !CanTransition(ticket.Status, update.Status) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(update.Status))
	}

	if err := m.tickets.UpdateStatus(ctx, ticket.ID, change); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	oldCategory := domain.ClassifyProblem(ticket)
	ticket.Status = change.Status
	if change.AdminNotes != nil {
		ticket.AdminNotes = change.AdminNotes
	}
	ticket.ProblemCategory = change.ProblemCategory
	ticket.UpdatedAt = change.UpdatedAt

	m.syncRedemption(ctx, ticket)

	m.audit.record(ctx, ticket.ID, update.ChangedBy, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus, "problem_category": oldCategory},
		map[string]any{"status": ticket.Status, "problem_category": ticket.ProblemCategory, "admin_notes": ticket.AdminNotes})
	m.audit.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    adminActor(update.ChangedBy),
		Payload: events.TicketStatusChangedPayload{
			QueueNumber:     ticket.QueueNumber,
			OldStatus:       oldStatus,
			NewStatus:       ticket.Status,
			ProblemCategory: ticket.ProblemCategory,
		},
	})
	return ticket, nil
}

// buildChange resolves the notes and category written by update. Moving to
// problem replaces the notes with the category sentinel, followed by any
// supplied comment on its own line.
func (m *StatusMachine) buildChange(update StatusUpdate) (repository.StatusChange, error) {
	change := repository.StatusChange{Status: update.Status, UpdatedAt: m.now()}

	var comment *string
	if update.AdminNotes != nil {
		trimmed := strings.TrimSpace(*update.AdminNotes)
		comment = &trimmed
	}

	if update.Status != domain.TicketStatusProblem {
		change.AdminNotes = comment
		return change, nil
	}

	if update.ProblemCategory == nil || !update.ProblemCategory.Selectable() {
		return change, apperrors.NewValidationError("problem status requires a problem category", map[string]any{
			"problem_category": domain.SelectableProblemCategories(),
		})
	}
	category := *update.ProblemCategory
	notes := category.Sentinel()
	if comment != nil && *comment != "" {
		notes += "\n" + *comment
	}
	change.AdminNotes = &notes
	change.ProblemCategory = &category
	return change, nil
}

func (m *StatusMachine) syncRedemption(ctx context.Context, ticket *domain.Ticket) {
	if ticket.RedemptionRequestID == nil || m.requests == nil {
		return
	}
	status := domain.RedemptionStatusFor(ticket.Status)
	if err := m.requests.UpdateStatus(ctx, *ticket.RedemptionRequestID, status); err != nil {
		m.metrics.Inc(observability.CounterMirrorSyncFailed)
		m.logger.Warn("redemption request status sync failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("redemption_request_id", *ticket.RedemptionRequestID),
			zap.String("redemption_status", string(status)),
			zap.Error(err))
	}
}
