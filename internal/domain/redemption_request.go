package domain

import "time"

// RedemptionStatus is the coarser status vocabulary of redemption requests.
type RedemptionStatus string

const (
	RedemptionStatusPending    RedemptionStatus = "pending"
	RedemptionStatusProcessing RedemptionStatus = "processing"
	RedemptionStatusCompleted  RedemptionStatus = "completed"
	RedemptionStatusRejected   RedemptionStatus = "rejected"
)

// RedemptionStatusFor translates a ticket status into the mirrored request status.
func RedemptionStatusFor(status TicketStatus) RedemptionStatus {
	switch status {
	case TicketStatusCompleted:
		return RedemptionStatusCompleted
	case TicketStatusCancelled:
		return RedemptionStatusRejected
	case TicketStatusProcessing:
		return RedemptionStatusProcessing
	default:
		return RedemptionStatusPending
	}
}

// RedemptionRequest is the customer's original redemption submission.
type RedemptionRequest struct {
	ID                  string
	RobloxUsername      string
	RobloxPassword      *string
	ContactInfo         string
	RobuxAmount         *int64
	AssignedCode        *string
	AssignedAccountCode *string
	CodeID              *string
	Status              RedemptionStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
