package domain

import "time"

// TicketStatus enumerates lifecycle states for queue tickets.
type TicketStatus string

const (
	TicketStatusWaiting       TicketStatus = "waiting"
	TicketStatusProcessing    TicketStatus = "processing"
	TicketStatusCompleted     TicketStatus = "completed"
	TicketStatusCancelled     TicketStatus = "cancelled"
	TicketStatusProblem       TicketStatus = "problem"
	TicketStatusCustomerFixed TicketStatus = "customer_fixed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusWaiting, TicketStatusProcessing, TicketStatusCompleted,
		TicketStatusCancelled, TicketStatusProblem, TicketStatusCustomerFixed:
		return true
	}
	return false
}

// ProductType tags what the customer is redeeming.
type ProductType string

const (
	ProductTypeRobux   ProductType = "robux"
	ProductTypeChicken ProductType = "chicken"
	ProductTypeRainbow ProductType = "rainbow"
	ProductTypeOther   ProductType = "other"
)

// Valid reports whether p is a known product type.
func (p ProductType) Valid() bool {
	switch p {
	case ProductTypeRobux, ProductTypeChicken, ProductTypeRainbow, ProductTypeOther:
		return true
	}
	return false
}

// Ticket is a customer's queue entry. The optional credential and code
// columns hold whatever the submission flow stored; enrichment never writes
// back to them.
type Ticket struct {
	ID                  string
	QueueNumber         int64
	QueueOrder          int64 // FIFO rank; assigned increasing on insert, swapped by reorders
	ContactInfo         string
	ProductType         ProductType
	Status              TicketStatus
	AdminNotes          *string
	ProblemCategory     *ProblemCategory
	CustomerName        *string
	RobloxUsername      *string
	RobloxPassword      *string
	RobuxAmount         *int64
	AssignedCode        *string
	AssignedAccountCode *string
	CodeID              *string
	RedemptionRequestID *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TicketView is a ticket merged with the fields of its matched redemption request.
type TicketView struct {
	Ticket
	RobloxUsername      *string
	RobloxPassword      *string
	RobuxAmount         *int64
	AssignedCode        *string
	AssignedAccountCode *string
	CodeID              *string
	ProblemCategory     *ProblemCategory
	MatchedRequestID    *string
	MatchRule           MatchRule
}

// MatchRule identifies which linkage predicate associated a ticket with a request.
type MatchRule int

const (
	MatchNone MatchRule = iota
	MatchContactContainsUsername
	MatchDisplayNameEqualsUsername
	MatchCustomerNameEqualsUsername
	MatchLabeledPhone
	MatchAssignedCode
	MatchStoredLink
)

func (r MatchRule) String() string {
	switch r {
	case MatchContactContainsUsername:
		return "contact_contains_username"
	case MatchDisplayNameEqualsUsername:
		return "display_name_equals_username"
	case MatchCustomerNameEqualsUsername:
		return "customer_name_equals_username"
	case MatchLabeledPhone:
		return "labeled_phone"
	case MatchAssignedCode:
		return "assigned_code"
	case MatchStoredLink:
		return "stored_link"
	default:
		return "none"
	}
}
