package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/redemption-queue/internal/api/dto"
	"github.com/spec-kit/redemption-queue/internal/auth"
	"github.com/spec-kit/redemption-queue/internal/domain"
	"github.com/spec-kit/redemption-queue/internal/service"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

// AdminTicketsHandler handles the admin console endpoints.
type AdminTicketsHandler struct {
	queue           *service.QueueService
	refreshInterval time.Duration
}

// NewAdminTicketsHandler constructs handler. refreshInterval is advertised to
// clients as the polling cadence for the ticket table.
func NewAdminTicketsHandler(queue *service.QueueService, refreshInterval time.Duration) *AdminTicketsHandler {
	return &AdminTicketsHandler{queue: queue, refreshInterval: refreshInterval}
}

// ListTickets GET /admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseAdminFilter(c)
	if err != nil {
		return err
	}
	views := h.queue.ListTickets(c.UserContext(), filter)
	items := make([]dto.AdminTicketResponse, 0, len(views))
	for i := range views {
		items = append(items, adminTicket(&views[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{
			"count":                    len(items),
			"refresh_interval_seconds": int(h.refreshInterval.Seconds()),
		},
	})
}

// GetTicket GET /admin/tickets/:id.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.queue.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if view == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": adminTicket(view)})
}

// History GET /admin/tickets/:id/history.
func (h *AdminTicketsHandler) History(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries := h.queue.History(c.UserContext(), c.Params("id"), pageSize, (page-1)*pageSize)
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// ProblemStats GET /admin/tickets/stats/problems.
func (h *AdminTicketsHandler) ProblemStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.queue.ProblemStats(c.UserContext())})
}

// UpdateStatus PATCH /admin/tickets/:id/status.
func (h *AdminTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.queue.UpdateStatus(c.UserContext(), service.StatusUpdate{
		TicketID:        c.Params("id"),
		Status:          req.Status,
		AdminNotes:      req.AdminNotes,
		ProblemCategory: req.ProblemCategory,
		ChangedBy:       auth.ActorID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.enriched(c, ticket)})
}

// UpdateNotes PATCH /admin/tickets/:id/notes.
func (h *AdminTicketsHandler) UpdateNotes(c *fiber.Ctx) error {
	var req dto.UpdateNotesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.queue.UpdateNotes(c.UserContext(), c.Params("id"), req.AdminNotes, auth.ActorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.enriched(c, ticket)})
}

// BulkStatus POST /admin/tickets/bulk-status.
func (h *AdminTicketsHandler) BulkStatus(c *fiber.Ctx) error {
	var req dto.BulkStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.queue.BulkUpdateStatus(c.UserContext(), service.BulkStatusInput{
		IDs:             req.IDs,
		Status:          req.Status,
		AdminNotes:      req.AdminNotes,
		ProblemCategory: req.ProblemCategory,
		ChangedBy:       auth.ActorID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Move POST /admin/tickets/:id/move.
func (h *AdminTicketsHandler) Move(c *fiber.Ctx) error {
	var req dto.MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	direction := service.Direction(strings.ToLower(strings.TrimSpace(req.Direction)))
	if err := h.queue.MoveQueueItem(c.UserContext(), c.Params("id"), direction, auth.ActorID(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Delete DELETE /admin/tickets/:id.
func (h *AdminTicketsHandler) Delete(c *fiber.Ctx) error {
	if err := h.queue.Delete(c.UserContext(), c.Params("id"), auth.ActorID(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// BackfillLinks POST /admin/tickets/backfill-links.
func (h *AdminTicketsHandler) BackfillLinks(c *fiber.Ctx) error {
	result, err := h.queue.BackfillLinks(c.UserContext(), auth.ActorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// enriched re-reads ticket through the linker so the response matches the
// admin table row.
func (h *AdminTicketsHandler) enriched(c *fiber.Ctx, ticket *domain.Ticket) dto.AdminTicketResponse {
	if view, err := h.queue.GetTicket(c.UserContext(), ticket.ID); err == nil && view != nil {
		return adminTicket(view)
	}
	view := service.Merge(*ticket, nil, domain.MatchNone)
	return adminTicket(&view)
}

func parseAdminFilter(c *fiber.Ctx) (service.AdminListFilter, error) {
	filter := service.AdminListFilter{Query: c.Query("q")}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("invalid status filter", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if pageSize := parseInt(c.Query("page_size"), 0); pageSize > 0 {
		page := parseInt(c.Query("page"), 1)
		filter.Limit = pageSize
		filter.Offset = (page - 1) * pageSize
	}
	return filter, nil
}
