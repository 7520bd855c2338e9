package dto

import (
	"time"

	"github.com/spec-kit/redemption-queue/internal/domain"
)

// CreateTicketRequest payload for POST /queue.
type CreateTicketRequest struct {
	ContactInfo         string             `json:"contact_info"`
	ProductType         domain.ProductType `json:"product_type"`
	CustomerName        *string            `json:"customer_name"`
	RobloxUsername      *string            `json:"roblox_username"`
	RobloxPassword      *string            `json:"roblox_password"`
	RobuxAmount         *int64             `json:"robux_amount"`
	AssignedCode        *string            `json:"assigned_code"`
	AssignedAccountCode *string            `json:"assigned_account_code"`
	CodeID              *string            `json:"code_id"`
	RedemptionRequestID *string            `json:"redemption_request_id"`
}

// CreateTicketResponse acknowledges a queued ticket.
type CreateTicketResponse struct {
	ID          string              `json:"id"`
	QueueNumber int64               `json:"queue_number"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

// PublicTicketResponse is what a customer sees from the status lookup.
// Contact text and credentials are never included.
type PublicTicketResponse struct {
	QueueNumber     int64                   `json:"queue_number"`
	ProductType     domain.ProductType      `json:"product_type"`
	Status          domain.TicketStatus     `json:"status"`
	RobloxUsername  *string                 `json:"roblox_username,omitempty"`
	ProblemCategory *domain.ProblemCategory `json:"problem_category,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// AdminTicketResponse is the enriched admin table row.
type AdminTicketResponse struct {
	ID                  string                  `json:"id"`
	QueueNumber         int64                   `json:"queue_number"`
	ContactInfo         string                  `json:"contact_info"`
	ProductType         domain.ProductType      `json:"product_type"`
	Status              domain.TicketStatus     `json:"status"`
	AdminNotes          *string                 `json:"admin_notes"`
	ProblemCategory     *domain.ProblemCategory `json:"problem_category"`
	CustomerName        *string                 `json:"customer_name"`
	RobloxUsername      *string                 `json:"roblox_username"`
	RobloxPassword      *string                 `json:"roblox_password"`
	RobuxAmount         *int64                  `json:"robux_amount"`
	AssignedCode        *string                 `json:"assigned_code"`
	AssignedAccountCode *string                 `json:"assigned_account_code"`
	CodeID              *string                 `json:"code_id"`
	RedemptionRequestID *string                 `json:"redemption_request_id"`
	MatchedRequestID    *string                 `json:"matched_request_id"`
	MatchRule           string                  `json:"match_rule"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// UpdateStatusRequest payload for PATCH /admin/tickets/:id/status.
type UpdateStatusRequest struct {
	Status          domain.TicketStatus     `json:"status"`
	AdminNotes      *string                 `json:"admin_notes"`
	ProblemCategory *domain.ProblemCategory `json:"problem_category"`
}

// UpdateNotesRequest payload for PATCH /admin/tickets/:id/notes.
type UpdateNotesRequest struct {
	AdminNotes *string `json:"admin_notes"`
}

// BulkStatusRequest payload for POST /admin/tickets/bulk-status.
type BulkStatusRequest struct {
	IDs             []string                `json:"ids"`
	Status          domain.TicketStatus     `json:"status"`
	AdminNotes      *string                 `json:"admin_notes"`
	ProblemCategory *domain.ProblemCategory `json:"problem_category"`
}

// MoveRequest payload for POST /admin/tickets/:id/move.
type MoveRequest struct {
	Direction string `json:"direction"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ChangedBy  *string                 `json:"changed_by"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}
