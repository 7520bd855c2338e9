package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/redemption-queue/internal/api/dto"
	"github.com/spec-kit/redemption-queue/internal/service"
	apperrors "github.com/spec-kit/redemption-queue/pkg/util/errorutil"
)

// QueueHandler serves the customer-facing queue endpoints.
type QueueHandler struct {
	queue *service.QueueService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// AddToQueue POST /queue.
func (h *QueueHandler) AddToQueue(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.queue.AddToQueue(c.UserContext(), service.NewTicketInput{
		ContactInfo:         req.ContactInfo,
		ProductType:         req.ProductType,
		CustomerName:        req.CustomerName,
		RobloxUsername:      req.RobloxUsername,
		RobloxPassword:      req.RobloxPassword,
		RobuxAmount:         req.RobuxAmount,
		AssignedCode:        req.AssignedCode,
		AssignedAccountCode: req.AssignedAccountCode,
		CodeID:              req.CodeID,
		RedemptionRequestID: req.RedemptionRequestID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CreateTicketResponse{
		ID:          ticket.ID,
		QueueNumber: ticket.QueueNumber,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
	}})
}

// Display GET /queue/display.
func (h *QueueHandler) Display(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.queue.Display(c.UserContext())})
}

// Lookup GET /queue/lookup?q=.
func (h *QueueHandler) Lookup(c *fiber.Ctx) error {
	views := h.queue.Lookup(c.UserContext(), c.Query("q"))
	items := make([]dto.PublicTicketResponse, 0, len(views))
	for i := range views {
		items = append(items, publicTicket(&views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
