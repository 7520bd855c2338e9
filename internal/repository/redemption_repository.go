package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/redemption-queue/internal/domain"
)

// RedemptionRepository encapsulates redemption request persistence.
type RedemptionRepository interface {
	Create(ctx context.Context, req *domain.RedemptionRequest) error
	GetByID(ctx context.Context, id string) (*domain.RedemptionRequest, error)
	ListAll(ctx context.Context) ([]domain.RedemptionRequest, error)
	UpdateStatus(ctx context.Context, id string, status domain.RedemptionStatus) error
}

type redemptionRepository struct {
	pool *pgxpool.Pool
}

// NewRedemptionRepository instantiates repository.
func NewRedemptionRepository(pool *pgxpool.Pool) RedemptionRepository {
	return &redemptionRepository{pool: pool}
}

const redemptionColumns = `id, roblox_username, roblox_password, contact_info, robux_amount, assigned_code,
               assigned_account_code, code_id, status, created_at, updated_at`

func (r *redemptionRepository) Create(ctx context.Context, req *domain.RedemptionRequest) error {
	const query = `
        INSERT INTO redemption_requests (roblox_username, roblox_password, contact_info, robux_amount,
            assigned_code, assigned_account_code, code_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if req.Status == "" {
		req.Status = domain.RedemptionStatusPending
	}
	return r.pool.QueryRow(ctx, query,
		req.RobloxUsername,
		req.RobloxPassword,
		req.ContactInfo,
		req.RobuxAmount,
		req.AssignedCode,
		req.AssignedAccountCode,
		req.CodeID,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *redemptionRepository) GetByID(ctx context.Context, id string) (*domain.RedemptionRequest, error) {
	if !validID(id) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+redemptionColumns+` FROM redemption_requests WHERE id=$1`, id)
	if isMalformedID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reqs, err := scanRedemptions(rows)
	if isMalformedID(err) {
		return nil, nil
	}
	if err != nil || len(reqs) == 0 {
		return nil, err
	}
	return &reqs[0], nil
}

// ListAll returns every request, newest first.
func (r *redemptionRepository) ListAll(ctx context.Context) ([]domain.RedemptionRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+redemptionColumns+` FROM redemption_requests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRedemptions(rows)
}

func (r *redemptionRepository) UpdateStatus(ctx context.Context, id string, status domain.RedemptionStatus) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE redemption_requests SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanRedemptions(rows pgx.Rows) ([]domain.RedemptionRequest, error) {
	var result []domain.RedemptionRequest
	for rows.Next() {
		var req domain.RedemptionRequest
		if err := rows.Scan(
			&req.ID,
			&req.RobloxUsername,
			&req.RobloxPassword,
			&req.ContactInfo,
			&req.RobuxAmount,
			&req.AssignedCode,
			&req.AssignedAccountCode,
			&req.CodeID,
			&req.Status,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
