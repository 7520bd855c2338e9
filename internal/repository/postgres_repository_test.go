package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/persistence"
)

// setupTestPostgres connects to POSTGRES_TEST_DSN, applies the migrations
// and empties every table. Tests skip when no database is reachable.
func setupTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Postgres not available: %v", err)
	}
	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", zap.NewNop()))

	reset := func() error {
		_, err := pool.Exec(ctx, `TRUNCATE ticket_history, queue_items, redemption_requests RESTART IDENTITY`)
		return err
	}
	require.NoError(t, reset())
	t.Cleanup(func() {
		_ = reset()
		pool.Close()
	})
	return pool
}

func pgTicket(number int64, contact string) *domain.Ticket {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Ticket{
		QueueNumber: number,
		ContactInfo: contact,
		ProductType: domain.ProductTypeRobux,
		Status:      domain.TicketStatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func waitingNumbers(t *testing.T, repo TicketRepository) []int64 {
	t.Helper()
	waiting, err := repo.ListWaiting(context.Background())
	require.NoError(t, err)
	out := make([]int64, 0, len(waiting))
	for _, w := range waiting {
		out = append(out, w.QueueNumber)
	}
	return out
}

func TestPostgresTicketRepository_CreateAndGet(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	first := pgTicket(1, "ชื่อ: alice")
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Positive(t, first.QueueOrder)

	err := repo.Create(ctx, pgTicket(1, "ชื่อ: bob"))
	require.ErrorIs(t, err, ErrDuplicateQueueNumber)

	max, err := repo.MaxQueueNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), max)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.QueueNumber, got.QueueNumber)
	assert.Equal(t, first.QueueOrder, got.QueueOrder)
	assert.Equal(t, "ชื่อ: alice", got.ContactInfo)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	for _, id := range []string{"not-a-uuid", uuid.NewString()} {
		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err, id)
		assert.Nil(t, got, id)
	}
}

func TestPostgresTicketRepository_RedemptionLink(t *testing.T) {
	pool := setupTestPostgres(t)
	tickets := NewTicketRepository(pool)
	requests := NewRedemptionRepository(pool)
	ctx := context.Background()

	missing := uuid.NewString()
	malformed := "not-a-uuid"
	for n, id := range map[int64]*string{1: &missing, 2: &malformed} {
		ticket := pgTicket(n, "ชื่อ: alice")
		ticket.RedemptionRequestID = id
		require.ErrorIs(t, tickets.Create(ctx, ticket), ErrUnknownRedemptionRequest, *id)
	}

	req := &domain.RedemptionRequest{RobloxUsername: "alice", ContactInfo: "ชื่อ: alice"}
	require.NoError(t, requests.Create(ctx, req))

	linked := pgTicket(3, "ชื่อ: alice")
	linked.RedemptionRequestID = &req.ID
	require.NoError(t, tickets.Create(ctx, linked))

	unlinked := pgTicket(4, "ชื่อ: bob")
	require.NoError(t, tickets.Create(ctx, unlinked))
	require.ErrorIs(t, tickets.SetRedemptionLink(ctx, unlinked.ID, uuid.NewString()), ErrUnknownRedemptionRequest)
	require.NoError(t, tickets.SetRedemptionLink(ctx, unlinked.ID, req.ID))

	for _, id := range []string{linked.ID, unlinked.ID} {
		got, err := tickets.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got.RedemptionRequestID)
		assert.Equal(t, req.ID, *got.RedemptionRequestID)
	}
}

func TestPostgresTicketRepository_ListOrderAndFilter(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	for _, n := range []int64{3, 1, 2} {
		require.NoError(t, repo.Create(ctx, pgTicket(n, "x")))
	}
	done := pgTicket(4, "x")
	done.Status = domain.TicketStatusCompleted
	require.NoError(t, repo.Create(ctx, done))

	assert.Equal(t, []int64{3, 1, 2}, waitingNumbers(t, repo), "insertion order, not queue number")

	page, err := repo.List(ctx, TicketFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].QueueNumber)
	assert.Equal(t, int64(4), page[1].QueueNumber)

	completed, err := repo.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusCompleted}})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, int64(4), completed[0].QueueNumber)
}

func TestPostgresTicketRepository_SearchAnyEscapesWildcards(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pgTicket(1, "ชื่อ: Player_One")))
	require.NoError(t, repo.Create(ctx, pgTicket(2, "ชื่อ: PlayerXOne")))

	got, err := repo.SearchAny(ctx, `%player\_one%`, []string{"contact_info", "roblox_username"})
	require.NoError(t, err)
	require.Len(t, got, 1, "underscore must match literally")
	assert.Equal(t, int64(1), got[0].QueueNumber)

	got, err = repo.SearchAny(ctx, "%PLAYER%", []string{"contact_info"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].QueueNumber)

	got, err = repo.SearchAny(ctx, `%100\%%`, []string{"contact_info"})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = repo.SearchAny(ctx, "%x%", []string{"admin_notes"})
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestPostgresTicketRepository_SwapQueueOrder(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	a, b, c := pgTicket(1, "a"), pgTicket(2, "b"), pgTicket(3, "c")
	for _, tk := range []*domain.Ticket{a, b, c} {
		require.NoError(t, repo.Create(ctx, tk))
	}

	require.NoError(t, repo.SwapQueueOrder(ctx, b.ID, a.ID))
	assert.Equal(t, []int64{2, 1, 3}, waitingNumbers(t, repo))

	gotA, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.QueueOrder, gotA.QueueOrder)
	assert.Equal(t, a.QueueOrder, gotB.QueueOrder)
	assert.True(t, a.CreatedAt.Equal(gotA.CreatedAt), "created_at untouched")

	for _, partner := range []string{uuid.NewString(), "not-a-uuid", a.ID} {
		require.ErrorIs(t, repo.SwapQueueOrder(ctx, a.ID, partner), pgx.ErrNoRows, partner)
	}
	require.ErrorIs(t, repo.SwapQueueOrder(ctx, uuid.NewString(), c.ID), pgx.ErrNoRows)
	assert.Equal(t, []int64{2, 1, 3}, waitingNumbers(t, repo), "failed swaps write nothing")
}

func TestPostgresTicketRepository_Updates(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := NewTicketRepository(pool)
	ctx := context.Background()

	ticket := pgTicket(1, "a")
	require.NoError(t, repo.Create(ctx, ticket))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	notes := "call back"
	category := domain.ProblemMapVerification
	require.NoError(t, repo.UpdateStatus(ctx, ticket.ID, StatusChange{
		Status: domain.TicketStatusProblem, AdminNotes: &notes, ProblemCategory: &category, UpdatedAt: at,
	}))
	got, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusProblem, got.Status)
	require.NotNil(t, got.ProblemCategory)
	assert.Equal(t, category, *got.ProblemCategory)
	assert.True(t, at.Equal(got.UpdatedAt))

	// nil notes keep the stored value on a status change
	require.NoError(t, repo.UpdateStatus(ctx, ticket.ID, StatusChange{Status: domain.TicketStatusProcessing, UpdatedAt: at}))
	got, err = repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AdminNotes)
	assert.Equal(t, notes, *got.AdminNotes)
	assert.Nil(t, got.ProblemCategory)

	later := at.Add(time.Hour)
	require.NoError(t, repo.UpdateNotes(ctx, ticket.ID, nil, later))
	got, err = repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AdminNotes)
	assert.True(t, later.Equal(got.UpdatedAt))

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		assert.ErrorIs(t, repo.UpdateStatus(ctx, id, StatusChange{Status: domain.TicketStatusProcessing, UpdatedAt: at}), pgx.ErrNoRows, id)
		assert.ErrorIs(t, repo.UpdateNotes(ctx, id, nil, at), pgx.ErrNoRows, id)
		assert.ErrorIs(t, repo.Delete(ctx, id), pgx.ErrNoRows, id)
	}

	require.NoError(t, repo.Delete(ctx, ticket.ID))
	got, err = repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresRedemptionRepository(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := NewRedemptionRepository(pool)
	ctx := context.Background()

	code := "R100"
	req := &domain.RedemptionRequest{RobloxUsername: "alice", ContactInfo: "ชื่อ: alice", AssignedCode: &code}
	require.NoError(t, repo.Create(ctx, req))
	assert.Equal(t, domain.RedemptionStatusPending, req.Status)
	require.NoError(t, repo.Create(ctx, &domain.RedemptionRequest{RobloxUsername: "bob"}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.UpdateStatus(ctx, req.ID, domain.RedemptionStatusCompleted))
	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RedemptionStatusCompleted, got.Status)
	require.NotNil(t, got.AssignedCode)
	assert.Equal(t, code, *got.AssignedCode)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err, id)
		assert.Nil(t, got, id)
		assert.ErrorIs(t, repo.UpdateStatus(ctx, id, domain.RedemptionStatusRejected), pgx.ErrNoRows, id)
	}
}

func TestPostgresTicketHistoryRepository(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := NewTicketHistoryRepository(pool)
	ctx := context.Background()
	ticketID := uuid.NewString()
	admin := "admin"

	for _, status := range []string{"processing", "completed"} {
		require.NoError(t, repo.Create(ctx, &domain.TicketHistory{
			TicketID:   ticketID,
			ChangedBy:  &admin,
			ChangeType: domain.ChangeTypeStatus,
			OldValue:   map[string]any{"status": "waiting"},
			NewValue:   map[string]any{"status": status},
		}))
	}

	entries, err := repo.ListByTicket(ctx, ticketID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ChangeTypeStatus, entries[0].ChangeType)
	assert.Equal(t, "processing", entries[0].NewValue["status"])
	require.NotNil(t, entries[0].ChangedBy)
	assert.Equal(t, admin, *entries[0].ChangedBy)

	page, err := repo.ListByTicket(ctx, ticketID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "completed", page[0].NewValue["status"])

	none, err := repo.ListByTicket(ctx, "not-a-uuid", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
