package events

import (
	"time"

	"github.com/spec-kit/redemption-queue/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketReordered         EventType = "ticket_reordered"
	EventTicketDeleted           EventType = "ticket_deleted"
	EventTicketBulkStatusApplied EventType = "ticket_bulk_status_applied"
	EventTicketLinksBackfilled   EventType = "ticket_links_backfilled"
)

// AllEventTypes lists every event the queue engine publishes.
func AllEventTypes() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketStatusChanged,
		EventTicketReordered,
		EventTicketDeleted,
		EventTicketBulkStatusApplied,
		EventTicketLinksBackfilled,
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    string  `json:"type"`
	AdminID *string `json:"admin_id,omitempty"`
}

// Actor types.
const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
	ActorSystem   = "system"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	QueueNumber int64              `json:"queue_number"`
	ProductType domain.ProductType `json:"product_type"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	QueueNumber     int64                   `json:"queue_number"`
	OldStatus       domain.TicketStatus     `json:"old_status"`
	NewStatus       domain.TicketStatus     `json:"new_status"`
	ProblemCategory *domain.ProblemCategory `json:"problem_category,omitempty"`
}

// TicketReorderedPayload payload.
type TicketReorderedPayload struct {
	Direction     string `json:"direction"`
	SwappedWithID string `json:"swapped_with_id"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	QueueNumber int64 `json:"queue_number"`
}

// TicketBulkStatusAppliedPayload payload.
type TicketBulkStatusAppliedPayload struct {
	Status  domain.TicketStatus `json:"status"`
	Success int                 `json:"success"`
	Failure int                 `json:"failure"`
}

// TicketLinksBackfilledPayload payload.
type TicketLinksBackfilledPayload struct {
	Scanned int `json:"scanned"`
	Linked  int `json:"linked"`
	Failed  int `json:"failed"`
}
