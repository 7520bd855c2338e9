package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/redemption-queue/internal/domain"
)

type memoryRedemptionRepository struct {
	mu       sync.RWMutex
	requests map[string]domain.RedemptionRequest
}

// NewMemoryRedemptionRepository instantiates an empty in-memory store.
func NewMemoryRedemptionRepository() RedemptionRepository {
	return &memoryRedemptionRepository{requests: make(map[string]domain.RedemptionRequest)}
}

func (r *memoryRedemptionRepository) Create(_ context.Context, req *domain.RedemptionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = domain.RedemptionStatusPending
	}
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	r.requests[req.ID] = *req
	return nil
}

func (r *memoryRedemptionRepository) GetByID(_ context.Context, id string) (*domain.RedemptionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *memoryRedemptionRepository) ListAll(_ context.Context) ([]domain.RedemptionRequest, error) {
	r.mu.RLock()
	result := make([]domain.RedemptionRequest, 0, len(r.requests))
	for _, req := range r.requests {
		result = append(result, req)
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryRedemptionRepository) UpdateStatus(_ context.Context, id string, status domain.RedemptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	r.requests[id] = req
	return nil
}
