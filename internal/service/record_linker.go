package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/contactinfo"
	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/repository"
)

// linkRule is one ordered predicate associating a ticket with a request.
type linkRule struct {
	rule    domain.MatchRule
	matches func(t *domain.Ticket, fields contactinfo.Fields, r *domain.RedemptionRequest) bool
}

var linkRules = []linkRule{
	{
		rule: domain.MatchContactContainsUsername,
		matches: func(t *domain.Ticket, _ contactinfo.Fields, r *domain.RedemptionRequest) bool {
			return r.RobloxUsername != "" && strings.Contains(t.ContactInfo, r.RobloxUsername)
		},
	},
	{
		rule: domain.MatchDisplayNameEqualsUsername,
		matches: func(_ *domain.Ticket, f contactinfo.Fields, r *domain.RedemptionRequest) bool {
			return r.RobloxUsername != "" && f.DisplayName != nil && *f.DisplayName == r.RobloxUsername
		},
	},
	{
		rule: domain.MatchCustomerNameEqualsUsername,
		matches: func(t *domain.Ticket, _ contactinfo.Fields, r *domain.RedemptionRequest) bool {
			return r.RobloxUsername != "" && t.CustomerName != nil && *t.CustomerName == r.RobloxUsername
		},
	},
	{
		// Only the Thai phone label counts here, on both sides.
		rule: domain.MatchLabeledPhone,
		matches: func(t *domain.Ticket, _ contactinfo.Fields, r *domain.RedemptionRequest) bool {
			ticketPhone, ok := contactinfo.ThaiLabeledPhone(t.ContactInfo)
			if !ok || ticketPhone == "" {
				return false
			}
			requestPhone, ok := contactinfo.ThaiLabeledPhone(r.ContactInfo)
			return ok && requestPhone == ticketPhone
		},
	},
	{
		rule: domain.MatchAssignedCode,
		matches: func(t *domain.Ticket, _ contactinfo.Fields, r *domain.RedemptionRequest) bool {
			return strings.Contains(t.ContactInfo, contactinfo.LabelCode) &&
				r.AssignedCode != nil && *r.AssignedCode != "" &&
				strings.Contains(t.ContactInfo, *r.AssignedCode)
		},
	},
}

// MatchRequest runs the linkage predicates in order over every candidate and
// returns the first candidate satisfying the earliest predicate. Candidates
// are tried in the order given.
func MatchRequest(ticket *domain.Ticket, requests []domain.RedemptionRequest) (*domain.RedemptionRequest, domain.MatchRule) {
	fields := contactinfo.Parse(ticket.ContactInfo)
	for _, lr := range linkRules {
		for i := range requests {
			if lr.matches(ticket, fields, &requests[i]) {
				return &requests[i], lr.rule
			}
		}
	}
	return nil, domain.MatchNone
}

// Merge builds the enriched view of ticket. Each field is resolved on its
// own; the password prefers the ticket's contact text over everything else.
func Merge(ticket domain.Ticket, req *domain.RedemptionRequest, rule domain.MatchRule) domain.TicketView {
	fields := contactinfo.Parse(ticket.ContactInfo)
	view := domain.TicketView{
		Ticket:          ticket,
		ProblemCategory: domain.ClassifyProblem(&ticket),
		MatchRule:       domain.MatchNone,
	}

	var fromRequest domain.RedemptionRequest
	if req != nil {
		fromRequest = *req
		id := req.ID
		view.MatchedRequestID = &id
		view.MatchRule = rule
	}

	view.RobloxUsername = firstString(nonEmpty(fromRequest.RobloxUsername), ticket.RobloxUsername, fields.DisplayName)
	view.RobuxAmount = firstInt(fromRequest.RobuxAmount, ticket.RobuxAmount)
	view.AssignedCode = firstString(fromRequest.AssignedCode, ticket.AssignedCode, fields.Code)
	view.AssignedAccountCode = firstString(fromRequest.AssignedAccountCode, ticket.AssignedAccountCode)
	view.CodeID = firstString(fromRequest.CodeID, ticket.CodeID)
	view.RobloxPassword = firstString(fields.Password, fromRequest.RobloxPassword, ticket.RobloxPassword)
	return view
}

// BackfillResult reports a link backfill run.
type BackfillResult struct {
	Scanned int `json:"scanned"`
	Linked  int `json:"linked"`
	Failed  int `json:"failed"`
}

// RecordLinker enriches tickets with their redemption request. A stored link
// wins; otherwise the heuristic runs and, when enabled, its result is saved.
type RecordLinker struct {
	tickets      repository.TicketRepository
	requests     repository.RedemptionRepository
	persistLinks bool
	logger       *zap.Logger
	metrics      *observability.Metrics
	audit        *auditTrail
}

// NewRecordLinker builds the linker.
func NewRecordLinker(deps QueueDependencies) *RecordLinker {
	deps = deps.withDefaults()
	return &RecordLinker{
		tickets:      deps.TicketRepo,
		requests:     deps.RedemptionRepo,
		persistLinks: deps.Config.PersistLinksOnRead,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		audit:        newAuditTrail(deps),
	}
}

// Enrich merges each ticket with its matched request. If requests cannot be
// read, tickets render with their own fields only.
func (l *RecordLinker) Enrich(ctx context.Context, tickets []domain.Ticket) []domain.TicketView {
	return l.enrichAll(ctx, tickets, l.persistLinks)
}

// EnrichReadOnly is Enrich without saving heuristic links, for anonymous reads.
func (l *RecordLinker) EnrichReadOnly(ctx context.Context, tickets []domain.Ticket) []domain.TicketView {
	return l.enrichAll(ctx, tickets, false)
}

func (l *RecordLinker) enrichAll(ctx context.Context, tickets []domain.Ticket, persist bool) []domain.TicketView {
	requests := l.loadRequests(ctx)
	byID := indexRequests(requests)

	views := make([]domain.TicketView, 0, len(tickets))
	for i := range tickets {
		views = append(views, l.enrich(ctx, tickets[i], requests, byID, persist))
	}
	return views
}

// EnrichOne enriches a single ticket.
func (l *RecordLinker) EnrichOne(ctx context.Context, ticket domain.Ticket) domain.TicketView {
	requests := l.loadRequests(ctx)
	return l.enrich(ctx, ticket, requests, indexRequests(requests), l.persistLinks)
}

// Backfill resolves and stores links for every ticket that has none.
func (l *RecordLinker) Backfill(ctx context.Context, changedBy *string) (BackfillResult, error) {
	var result BackfillResult
	tickets, err := l.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return result, err
	}
	requests, err := l.requests.ListAll(ctx)
	if err != nil {
		return result, err
	}

	for i := range tickets {
		t := &tickets[i]
		if t.RedemptionRequestID != nil {
			continue
		}
		result.Scanned++
		req, rule := MatchRequest(t, requests)
		if req == nil {
			continue
		}
		if l.saveLink(ctx, t, req, rule, changedBy) {
			result.Linked++
		} else {
			result.Failed++
		}
	}

	l.logger.Info("redemption links backfilled",
		zap.Int("scanned", result.Scanned),
		zap.Int("linked", result.Linked),
		zap.Int("failed", result.Failed))
	l.audit.publish(ctx, events.Event{
		Type:    events.EventTicketLinksBackfilled,
		Actor:   adminActor(changedBy),
		Payload: events.TicketLinksBackfilledPayload(result),
	})
	return result, nil
}

func (l *RecordLinker) enrich(ctx context.Context, ticket domain.Ticket, requests []domain.RedemptionRequest, byID map[string]*domain.RedemptionRequest, persist bool) domain.TicketView {
	if ticket.RedemptionRequestID != nil {
		if req, ok := byID[*ticket.RedemptionRequestID]; ok {
			return Merge(ticket, req, domain.MatchStoredLink)
		}
	}

	req, rule := MatchRequest(&ticket, requests)
	if req != nil && persist && ticket.RedemptionRequestID == nil {
		if l.saveLink(ctx, &ticket, req, rule, nil) {
			id := req.ID
			ticket.RedemptionRequestID = &id
		}
	}
	return Merge(ticket, req, rule)
}

func (l *RecordLinker) saveLink(ctx context.Context, ticket *domain.Ticket, req *domain.RedemptionRequest, rule domain.MatchRule, changedBy *string) bool {
	if err := l.tickets.SetRedemptionLink(ctx, ticket.ID, req.ID); err != nil {
		l.logger.Warn("persist redemption link failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("redemption_request_id", req.ID),
			zap.Error(err))
		return false
	}
	l.metrics.Inc(observability.CounterLinkPersisted)
	l.audit.record(ctx, ticket.ID, changedBy, domain.ChangeTypeLink,
		map[string]any{"redemption_request_id": nil},
		map[string]any{"redemption_request_id": req.ID, "rule": rule.String()})
	return true
}

func (l *RecordLinker) loadRequests(ctx context.Context) []domain.RedemptionRequest {
	if l.requests == nil {
		return nil
	}
	requests, err := l.requests.ListAll(ctx)
	if err != nil {
		l.metrics.Inc(observability.CounterReadDegraded)
		l.logger.Warn("list redemption requests failed, rendering tickets unenriched", zap.Error(err))
		return nil
	}
	return requests
}

func indexRequests(requests []domain.RedemptionRequest) map[string]*domain.RedemptionRequest {
	byID := make(map[string]*domain.RedemptionRequest, len(requests))
	for i := range requests {
		byID[requests[i].ID] = &requests[i]
	}
	return byID
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstString(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			v := *c
			return &v
		}
	}
	return nil
}

func firstInt(candidates ...*int64) *int64 {
	for _, c := range candidates {
		if c != nil {
			v := *c
			return &v
		}
	}
	return nil
}
