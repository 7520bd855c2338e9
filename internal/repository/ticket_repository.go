package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/redemption-queue/internal/domain"
)

// TicketFilter captures admin listing parameters.
type TicketFilter struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// StatusChange is the write applied by a status transition. A nil AdminNotes
// keeps the stored notes; ProblemCategory is always written.
type StatusChange struct {
	Status          domain.TicketStatus
	AdminNotes      *string
	ProblemCategory *domain.ProblemCategory
	UpdatedAt       time.Time
}

// TicketRepository encapsulates queue ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	MaxQueueNumber(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListWaiting(ctx context.Context) ([]domain.Ticket, error)
	SearchAny(ctx context.Context, pattern string, columns []string) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, change StatusChange) error
	UpdateNotes(ctx context.Context, id string, notes *string, updatedAt time.Time) error
	SetRedemptionLink(ctx context.Context, id, requestID string) error
	SwapQueueOrder(ctx context.Context, firstID, secondID string) error
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, queue_number, queue_order, contact_info, product_type, status, admin_notes, problem_category,
               customer_name, roblox_username, roblox_password, robux_amount, assigned_code,
               assigned_account_code, code_id, redemption_request_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.RedemptionRequestID != nil && !validID(*ticket.RedemptionRequestID) {
		return fmt.Errorf("%w: %s", ErrUnknownRedemptionRequest, *ticket.RedemptionRequestID)
	}
	const query = `
        INSERT INTO queue_items (queue_number, contact_info, product_type, status, admin_notes, customer_name,
            roblox_username, roblox_password, robux_amount, assigned_code, assigned_account_code, code_id,
            redemption_request_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, queue_order`
	err := r.pool.QueryRow(ctx, query,
		ticket.QueueNumber,
		ticket.ContactInfo,
		ticket.ProductType,
		ticket.Status,
		ticket.AdminNotes,
		ticket.CustomerName,
		ticket.RobloxUsername,
		ticket.RobloxPassword,
		ticket.RobuxAmount,
		ticket.AssignedCode,
		ticket.AssignedAccountCode,
		ticket.CodeID,
		ticket.RedemptionRequestID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID, &ticket.QueueOrder)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %d", ErrDuplicateQueueNumber, ticket.QueueNumber)
	}
	if isForeignKeyViolation(err) || isMalformedID(err) {
		return fmt.Errorf("%w: %v", ErrUnknownRedemptionRequest, derefID(ticket.RedemptionRequestID))
	}
	return err
}

func derefID(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

func (r *ticketRepository) MaxQueueNumber(ctx context.Context) (int64, error) {
	var max int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(queue_number), 0) FROM queue_items`).Scan(&max)
	return max, err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `SELECT ` + ticketColumns + ` FROM queue_items WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if isMalformedID(err) {
		return nil, nil
	}
	if err != nil || len(tickets) == 0 {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM queue_items WHERE %s ORDER BY queue_order ASC, queue_number ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWaiting(ctx context.Context) ([]domain.Ticket, error) {
	return r.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusWaiting}})
}

func (r *ticketRepository) SearchAny(ctx context.Context, pattern string, columns []string) ([]domain.Ticket, error) {
	if err := validateColumns(columns); err != nil {
		return nil, err
	}
	predicates := make([]string, len(columns))
	for i, c := range columns {
		predicates[i] = fmt.Sprintf(`%s ILIKE $1 ESCAPE '\'`, c)
	}
	query := fmt.Sprintf(`SELECT %s FROM queue_items WHERE %s ORDER BY queue_order ASC, queue_number ASC`,
		ticketColumns, strings.Join(predicates, " OR "))
	rows, err := r.pool.Query(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	const query = `
        UPDATE queue_items SET status=$1, admin_notes=COALESCE($2, admin_notes), problem_category=$3, updated_at=$4
        WHERE id=$5`
	return r.exec(ctx, id, query, change.Status, change.AdminNotes, change.ProblemCategory, change.UpdatedAt, id)
}

func (r *ticketRepository) UpdateNotes(ctx context.Context, id string, notes *string, updatedAt time.Time) error {
	return r.exec(ctx, id, `UPDATE queue_items SET admin_notes=$1, updated_at=$2 WHERE id=$3`, notes, updatedAt, id)
}

func (r *ticketRepository) SetRedemptionLink(ctx context.Context, id, requestID string) error {
	if !validID(requestID) {
		return fmt.Errorf("%w: %s", ErrUnknownRedemptionRequest, requestID)
	}
	err := r.exec(ctx, id, `UPDATE queue_items SET redemption_request_id=$1 WHERE id=$2`, requestID, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s", ErrUnknownRedemptionRequest, requestID)
	}
	return err
}

// SwapQueueOrder exchanges the FIFO ranks of two tickets in one statement.
// Both subqueries read the pre-update snapshot.
func (r *ticketRepository) SwapQueueOrder(ctx context.Context, firstID, secondID string) error {
	if !validID(firstID) || !validID(secondID) || firstID == secondID {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE queue_items SET queue_order = CASE id
            WHEN $1::uuid THEN (SELECT queue_order FROM queue_items WHERE id=$2::uuid)
            ELSE (SELECT queue_order FROM queue_items WHERE id=$1::uuid)
        END
        WHERE id IN ($1::uuid, $2::uuid)`
	cmd, err := r.pool.Exec(ctx, query, firstID, secondID)
	if isMalformedID(err) || isNotNullViolation(err) {
		return pgx.ErrNoRows
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() != 2 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, id, `DELETE FROM queue_items WHERE id=$1`, id)
}

// exec runs a single-row write against ticket id. Unknown and malformed ids
// both report pgx.ErrNoRows.
func (r *ticketRepository) exec(ctx context.Context, id, query string, args ...any) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.pool.Exec(ctx, query, args...)
	if isMalformedID(err) {
		return pgx.ErrNoRows
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.QueueNumber,
			&ticket.QueueOrder,
			&ticket.ContactInfo,
			&ticket.ProductType,
			&ticket.Status,
			&ticket.AdminNotes,
			&ticket.ProblemCategory,
			&ticket.CustomerName,
			&ticket.RobloxUsername,
			&ticket.RobloxPassword,
			&ticket.RobuxAmount,
			&ticket.AssignedCode,
			&ticket.AssignedAccountCode,
			&ticket.CodeID,
			&ticket.RedemptionRequestID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
